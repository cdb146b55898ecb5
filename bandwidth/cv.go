package bandwidth

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/core/parallel"
	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/pkg/log"
)

// CVOptions は交差検証によるバンド幅選択の設定。
// ゼロ値のフィールドにはデフォルトが適用される。
type CVOptions struct {
	// Kernel は平滑化カーネル（デフォルト: Gaussian）
	Kernel kernel.Kind

	// GridSize は候補グリッドの点数（デフォルト: 20）
	GridSize int

	// MinFactor, MaxFactor はルールオブサム参照値に対する幾何グリッドの範囲
	// （デフォルト: 0.1〜10）。参照値を中心に探索することで発散や
	// 退化したゼロバンド幅の評価を防ぐ。
	MinFactor float64
	MaxFactor float64

	// FlatFactor は次元別探索にのみ追加される大きな候補（デフォルト: 100）。
	// 無関係な次元のバンド幅がこの候補へ発散することで、その次元の寄与が
	// ほぼ一様な重みへ平坦化され、フィットから事実上除去される。
	FlatFactor float64

	// MaxIter は座標降下の反復上限（デフォルト: 10）
	MaxIter int

	// Tol は座標降下の相対収束判定（デフォルト: 1e-3）
	Tol float64

	// TieTol は同点とみなすCVスコアの相対許容差（デフォルト: 0.01）。
	// 同点の中では最小のバンド幅を選び、バイアスの小さい解を優先する。
	TieTol float64

	// Logger は選択過程の構造化ログ出力先（省略可）
	Logger log.Logger
}

func (o *CVOptions) withDefaults() CVOptions {
	opts := CVOptions{}
	if o != nil {
		opts = *o
	}
	if opts.GridSize == 0 {
		opts.GridSize = 20
	}
	if opts.MinFactor == 0 {
		opts.MinFactor = 0.1
	}
	if opts.MaxFactor == 0 {
		opts.MaxFactor = 10
	}
	if opts.FlatFactor == 0 {
		opts.FlatFactor = 100
	}
	if opts.MaxIter == 0 {
		opts.MaxIter = 10
	}
	if opts.Tol == 0 {
		opts.Tol = 1e-3
	}
	if opts.TieTol == 0 {
		opts.TieTol = 0.01
	}
	return opts
}

// CV はleave-one-out交差検証で等方バンド幅を選択する。
// ルールオブサム参照値の0.1倍から10倍までの幾何グリッド上で
// LOO平均二乗予測誤差を最小化する。スコア曲線は移動平均で均して
// から最小化し、標本ノイズが作る孤立した偽の極小を避ける。
// グリッド点の評価は並列。
func CV(X, y mat.Matrix, opts *CVOptions) (*Bandwidth, error) {
	o := opts.withDefaults()

	xs, ys, err := checkCVInput("bandwidth.CV", X, y)
	if err != nil {
		return nil, err
	}

	ref, err := Silverman(X)
	if err != nil {
		return nil, err
	}

	factors := geometricGrid(o.MinFactor, o.MaxFactor, o.GridSize)
	scores := make([]float64, len(factors))

	parallel.ParallelizeIndexed(len(factors), func(i int) {
		h := ref.Scale(factors[i])
		scores[i] = looScore(xs, ys, o.Kernel, h.Values)
	})

	best, err := pickSmallestNearOptimal(factors, smoothScores(scores), o.TieTol)
	if err != nil {
		return nil, err
	}

	selected := ref.Scale(factors[best])
	if o.Logger != nil {
		o.Logger.Debug("bandwidth selected by LOO cross-validation",
			log.ComponentKey, "bandwidth",
			log.GridSizeKey, len(factors),
			log.CVScoreKey, scores[best],
			log.BandwidthKey, selected.Values,
		)
	}
	return selected, nil
}

// CVPerDimension は座標降下による次元別バンド幅選択を行う。
// 各次元のバンド幅を他を固定したまま自分のグリッド上で最適化し、
// 相対変化がTolを下回るかMaxIterに達するまで反復する。
// 反復自体は逐次だが、各反復内の候補評価は並列。
func CVPerDimension(X, y mat.Matrix, opts *CVOptions) (*Bandwidth, error) {
	o := opts.withDefaults()

	xs, ys, err := checkCVInput("bandwidth.CVPerDimension", X, y)
	if err != nil {
		return nil, err
	}

	ref, err := Silverman(X)
	if err != nil {
		return nil, err
	}
	d := ref.Dim()

	factors := geometricGrid(o.MinFactor, o.MaxFactor, o.GridSize)
	factors = append(factors, o.FlatFactor)

	current := ref.Clone()
	converged := false

	for iter := 0; iter < o.MaxIter && !converged; iter++ {
		maxRelChange := 0.0

		for j := 0; j < d; j++ {
			scores := make([]float64, len(factors))
			parallel.ParallelizeIndexed(len(factors), func(i int) {
				candidate := current.Clone()
				candidate.Values[j] = ref.Values[j] * factors[i]
				scores[i] = looScore(xs, ys, o.Kernel, candidate.Values)
			})

			// 平坦化候補は正規グリッドの外なので均さずそのまま比較する
			smoothed := append(smoothScores(scores[:len(scores)-1]), scores[len(scores)-1])
			best, err := pickSmallestNearOptimal(factors, smoothed, o.TieTol)
			if err != nil {
				return nil, err
			}

			newH := ref.Values[j] * factors[best]
			rel := math.Abs(newH-current.Values[j]) / current.Values[j]
			if rel > maxRelChange {
				maxRelChange = rel
			}
			current.Values[j] = newH
		}

		if o.Logger != nil {
			o.Logger.Debug("coordinate descent iteration",
				log.ComponentKey, "bandwidth",
				log.IterationKey, iter,
				log.BandwidthKey, current.Values,
			)
		}

		converged = maxRelChange < o.Tol
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("bandwidth.CVPerDimension", o.MaxIter, ""))
	}

	return current, nil
}

// looScore はNadaraya-Watson平滑量のleave-one-out平均二乗予測誤差を返す。
// 重み総和がゼロとなる点（コンパクトカーネルで近傍なし）は
// 自身を除いた全体平均へフォールバックして評価する。
func looScore(xs [][]float64, ys []float64, k kernel.Kind, h []float64) float64 {
	n := len(xs)
	totalY := 0.0
	for _, v := range ys {
		totalY += v
	}

	sse := 0.0
	for i := 0; i < n; i++ {
		num, den := 0.0, 0.0
		for l := 0; l < n; l++ {
			if l == i {
				continue
			}
			w := k.ProductWeight(xs[l], xs[i], h)
			num += w * ys[l]
			den += w
		}

		var pred float64
		if den > 0 {
			pred = num / den
		} else {
			pred = (totalY - ys[i]) / float64(n-1)
		}
		diff := ys[i] - pred
		sse += diff * diff
	}
	return sse / float64(n)
}

// smoothScores はCVスコア曲線の3点移動平均を返す。LOOスコアの標本
// ノイズが作る孤立した偽の極小を均し、最小バンド幅優先の同点規則が
// 過小なバンド幅へ吸い込まれるのを防ぐ。端点は存在する隣接点のみで
// 平均し、NaNは窓から除外する。
func smoothScores(scores []float64) []float64 {
	n := len(scores)
	out := make([]float64, n)
	for i := range scores {
		if math.IsNaN(scores[i]) {
			out[i] = scores[i]
			continue
		}
		sum := 0.0
		count := 0
		for j := i - 1; j <= i+1; j++ {
			if j < 0 || j >= n || math.IsNaN(scores[j]) {
				continue
			}
			sum += scores[j]
			count++
		}
		out[i] = sum / float64(count)
	}
	return out
}

// pickSmallestNearOptimal は最小スコアからTieTol以内の候補のうち
// 最小の係数を持つものを返す
func pickSmallestNearOptimal(factors, scores []float64, tieTol float64) (int, error) {
	minScore := math.Inf(1)
	for _, s := range scores {
		if !math.IsNaN(s) && s < minScore {
			minScore = s
		}
	}
	if math.IsInf(minScore, 1) {
		return 0, errors.NewNumericalInstabilityError("bandwidth_cv", scores, 0)
	}

	bestIdx := -1
	bestFactor := math.Inf(1)
	for i, s := range scores {
		if math.IsNaN(s) || s > minScore*(1+tieTol) {
			continue
		}
		if factors[i] < bestFactor {
			bestFactor = factors[i]
			bestIdx = i
		}
	}
	return bestIdx, nil
}

func geometricGrid(min, max float64, size int) []float64 {
	if size < 2 {
		return []float64{min}
	}
	grid := make([]float64, size)
	ratio := math.Pow(max/min, 1.0/float64(size-1))
	v := min
	for i := range grid {
		grid[i] = v
		v *= ratio
	}
	return grid
}

func checkCVInput(op string, X, y mat.Matrix) ([][]float64, []float64, error) {
	n, d := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || d == 0 {
		return nil, nil, errors.NewValueError(op, "empty input matrix")
	}
	if ry != n {
		return nil, nil, errors.NewDimensionError(op, n, ry, 0)
	}
	if cy != 1 {
		return nil, nil, errors.NewValueError(op, "y must be a column vector")
	}
	if n < 3 {
		return nil, nil, errors.NewInsufficientDataError(op, 3, n, "leave-one-out cross-validation")
	}

	xs := make([][]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = X.At(i, j)
		}
		xs[i] = row
		ys[i] = y.At(i, 0)
	}
	return xs, ys, nil
}
