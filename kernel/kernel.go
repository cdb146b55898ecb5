// Package kernel はカーネル回帰で使用する重み関数を提供します。
// 全てのカーネルは対称（K(u) = K(-u)）かつ正規化（∫K(u)du = 1）された
// 非負の関数で、状態を持たず全ての推定量から共有されます。
package kernel

import (
	"math"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// Kind はカーネルの種類を表すタグ付きバリアントです。
type Kind int

const (
	// Gaussian はガウスカーネル exp(-u²/2)/√(2π)（無限サポート）
	Gaussian Kind = iota
	// Epanechnikov はエパネチニコフカーネル 0.75(1-u²)（|u|≤1、コンパクトサポート）
	Epanechnikov
	// Uniform は一様カーネル 0.5（|u|≤1）
	Uniform
	// Biweight はバイウェイトカーネル (15/16)(1-u²)²（|u|≤1）
	Biweight
)

const invSqrt2Pi = 0.3989422804014327

// String はカーネル名を返す
func (k Kind) String() string {
	switch k {
	case Gaussian:
		return "gaussian"
	case Epanechnikov:
		return "epanechnikov"
	case Uniform:
		return "uniform"
	case Biweight:
		return "biweight"
	default:
		return "unknown"
	}
}

// ParseKind はカーネル名からKindを解決する
func ParseKind(name string) (Kind, error) {
	switch name {
	case "gaussian":
		return Gaussian, nil
	case "epanechnikov":
		return Epanechnikov, nil
	case "uniform":
		return Uniform, nil
	case "biweight":
		return Biweight, nil
	default:
		return Gaussian, errors.NewValueError("kernel.ParseKind", "unknown kernel: "+name)
	}
}

// Weight はスケール済み距離uに対する1変量カーネル値を返す。
// コンパクトサポートのカーネルは|u|>1で正確に0を返し、ガウスカーネルは
// 極端なuでアンダーフローして0になる（どちらも期待される挙動）。
func (k Kind) Weight(u float64) float64 {
	switch k {
	case Gaussian:
		return invSqrt2Pi * math.Exp(-0.5*u*u)
	case Epanechnikov:
		if u < -1 || u > 1 {
			return 0
		}
		return 0.75 * (1 - u*u)
	case Uniform:
		if u < -1 || u > 1 {
			return 0
		}
		return 0.5
	case Biweight:
		if u < -1 || u > 1 {
			return 0
		}
		t := 1 - u*u
		return 0.9375 * t * t
	default:
		return 0
	}
}

// ProductWeight は点xと中心x0の間の多変量カーネル重みを、
// 次元ごとのスケール済み距離 (x_j - x0_j)/h_j の1変量カーネル値の積として返す。
// Nadaraya-Watson型の比では ∏h_j の正規化は分子分母で相殺されるため、
// ここでは掛けない。コンパクトサポートでいずれかの因子が0になった時点で打ち切る。
func (k Kind) ProductWeight(x, x0, h []float64) float64 {
	w := 1.0
	for j := range x {
		w *= k.Weight((x[j] - x0[j]) / h[j])
		if w == 0 {
			return 0
		}
	}
	return w
}

// NormalizedProductWeight は密度推定と整合する ∏h_j による正規化付きの
// 多変量カーネル重みを返す。
func (k Kind) NormalizedProductWeight(x, x0, h []float64) float64 {
	w := k.ProductWeight(x, x0, h)
	if w == 0 {
		return 0
	}
	for j := range h {
		w /= h[j]
	}
	return w
}
