package hetero

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// goldfeldQuandtTest はGoldfeld-Quandt検定を実行する。標本をSortDim列で
// 並べ、中央のDropFractionを落とし、上側裾と下側裾の残差分散比を
// F分布と比べる。対立仮説は「並べた変数に沿って分散が増加する」。
func goldfeldQuandtTest(residuals *mat.VecDense, X mat.Matrix, o *Options) (*Result, error) {
	const op = "hetero.GoldfeldQuandt"

	n, _ := X.Dims()

	order := sortedIndicesByColumn(X, o.SortDim)

	drop := int(float64(n) * o.DropFraction)
	keep := n - drop
	nLow := keep / 2
	nHigh := keep - nLow
	if nLow < 3 || nHigh < 3 {
		return nil, errors.NewInsufficientDataError(op, 3, min(nLow, nHigh),
			"each tail needs at least 3 samples after dropping the middle")
	}

	low := make([]float64, nLow)
	high := make([]float64, nHigh)
	for i := 0; i < nLow; i++ {
		low[i] = residuals.AtVec(order[i])
	}
	for i := 0; i < nHigh; i++ {
		high[i] = residuals.AtVec(order[n-nHigh+i])
	}

	varLow := varianceOf(low)
	varHigh := varianceOf(high)
	if varLow == 0 {
		return nil, errors.NewDegenerateVarianceError(op, "lower-tail residuals")
	}

	stat := varHigh / varLow
	f := distuv.F{D1: float64(nHigh - 1), D2: float64(nLow - 1)}
	return &Result{
		Variant:   GoldfeldQuandt,
		Statistic: stat,
		PValue:    f.Survival(stat),
		DF:        nHigh - 1,
		DF2:       nLow - 1,
	}, nil
}

// sortedIndicesByColumn はX[:,dim]の昇順で並べた行番号を返す。
// 同値は元の行順で安定に並ぶ。
func sortedIndicesByColumn(X mat.Matrix, dim int) []int {
	n, _ := X.Dims()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return X.At(order[a], dim) < X.At(order[b], dim)
	})
	return order
}
