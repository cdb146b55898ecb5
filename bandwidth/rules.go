package bandwidth

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// ルールオブサム定数。h_j = c · σ̂_j · n^(-1/(d+4))
const (
	silvermanConstant = 1.06
	scottConstant     = 1.0
)

// Silverman はSilvermanのルールオブサムにより次元別バンド幅を計算する。
// スケール推定には標準偏差と正規化IQRの小さい方を使うロバスト推定を用いる。
// 分散がゼロの次元がある場合はDegenerateVarianceErrorを返す。
// 呼び出し元は n ≥ 2 を保証すること。
func Silverman(X mat.Matrix) (*Bandwidth, error) {
	return ruleOfThumb("bandwidth.Silverman", X, silvermanConstant)
}

// Scott はScottのルールオブサムにより次元別バンド幅を計算する
func Scott(X mat.Matrix) (*Bandwidth, error) {
	return ruleOfThumb("bandwidth.Scott", X, scottConstant)
}

func ruleOfThumb(op string, X mat.Matrix, c float64) (*Bandwidth, error) {
	n, d := X.Dims()
	if n < 2 {
		return nil, errors.NewInsufficientDataError(op, 2, n, "scale estimation")
	}

	exponent := -1.0 / (float64(d) + 4.0)
	factor := c * math.Pow(float64(n), exponent)

	values := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			col[i] = X.At(i, j)
		}
		sigma := robustSigma(col)
		if sigma == 0 {
			return nil, errors.NewDegenerateVarianceError(op,
				errors.Newf("input dimension %d", j).Error())
		}
		values[j] = factor * sigma
	}

	return &Bandwidth{Values: values}, nil
}

// robustSigma は標準偏差と正規化IQR（IQR/1.349）の小さい方を返す。
// 外れ値で標準偏差が膨らんだ場合でも妥当なスケールを与える。
func robustSigma(x []float64) float64 {
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)

	const normalize = 1.349

	q75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	q25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	iqr := (q75 - q25) / normalize

	stdDev := stat.StdDev(sorted, nil)

	if iqr > 0 && iqr < stdDev {
		return iqr
	}
	return stdDev
}
