package bandwidth

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// Method はバンド幅選択法を表すタグ付きバリアントです。
type Method int

const (
	// MethodSilverman はSilvermanのルールオブサム（デフォルト）
	MethodSilverman Method = iota
	// MethodScott はScottのルールオブサム
	MethodScott
	// MethodCV はleave-one-out交差検証（等方）
	MethodCV
	// MethodCVPerDimension は座標降下による次元別交差検証
	MethodCVPerDimension
)

// String は選択法名を返す
func (m Method) String() string {
	switch m {
	case MethodSilverman:
		return "silverman"
	case MethodScott:
		return "scott"
	case MethodCV:
		return "cv"
	case MethodCVPerDimension:
		return "cv_per_dimension"
	default:
		return "unknown"
	}
}

// ParseMethod は選択法名からMethodを解決する
func ParseMethod(name string) (Method, error) {
	switch name {
	case "silverman":
		return MethodSilverman, nil
	case "scott":
		return MethodScott, nil
	case "cv":
		return MethodCV, nil
	case "cv_per_dimension":
		return MethodCVPerDimension, nil
	default:
		return MethodSilverman, errors.NewValueError("bandwidth.ParseMethod", "unknown method: "+name)
	}
}

// Select は指定された方法でバンド幅を選択する。
// ルールオブサムはyを使用しない。CV系はNadaraya-Watson平滑量の
// LOO予測誤差を基準とする。
func Select(X, y mat.Matrix, m Method, opts *CVOptions) (*Bandwidth, error) {
	switch m {
	case MethodSilverman:
		return Silverman(X)
	case MethodScott:
		return Scott(X)
	case MethodCV:
		return CV(X, y, opts)
	case MethodCVPerDimension:
		return CVPerDimension(X, y, opts)
	default:
		return nil, errors.NewValueError("bandwidth.Select", "unknown method")
	}
}
