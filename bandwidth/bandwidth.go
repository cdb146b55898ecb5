// Package bandwidth はカーネル回帰の平滑化スケールを選択します。
// ルールオブサム（Silverman/Scott）と交差検証（等方・次元別）を提供し、
// 全ての探索はルールオブサム値を中心参照とする幾何グリッド上で行われます。
package bandwidth

import (
	"math"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// Bandwidth は次元ごとの平滑化スケールを保持する。
// 等方（全成分同一）の場合も次元数分のベクトルとして表現する。
// 不変条件: 全成分が正かつ有限。
type Bandwidth struct {
	Values []float64
}

// New は与えられた成分からBandwidthを作成する
func New(values ...float64) *Bandwidth {
	v := make([]float64, len(values))
	copy(v, values)
	return &Bandwidth{Values: v}
}

// Isotropic は全次元で同一のスカラー値を持つBandwidthを作成する
func Isotropic(h float64, d int) *Bandwidth {
	v := make([]float64, d)
	for j := range v {
		v[j] = h
	}
	return &Bandwidth{Values: v}
}

// Dim は次元数を返す
func (b *Bandwidth) Dim() int {
	return len(b.Values)
}

// IsIsotropic は全成分が同一かどうかを返す
func (b *Bandwidth) IsIsotropic() bool {
	for _, v := range b.Values[1:] {
		if v != b.Values[0] {
			return false
		}
	}
	return true
}

// Validate は全成分が正かつ有限であることを検証する
func (b *Bandwidth) Validate() error {
	if len(b.Values) == 0 {
		return errors.NewValueError("Bandwidth.Validate", "bandwidth has no components")
	}
	for j, v := range b.Values {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return errors.NewValueError("Bandwidth.Validate",
				errors.Newf("component %d must be positive and finite, got %v", j, v).Error())
		}
	}
	return nil
}

// Clone はBandwidthの独立したコピーを返す
func (b *Bandwidth) Clone() *Bandwidth {
	return New(b.Values...)
}

// Scale は全成分をf倍した新しいBandwidthを返す。
// 信頼区間構築のアンダースムージング（0.75倍）などに使用される。
func (b *Bandwidth) Scale(f float64) *Bandwidth {
	scaled := b.Clone()
	for j := range scaled.Values {
		scaled.Values[j] *= f
	}
	return scaled
}
