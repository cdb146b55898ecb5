package smooth

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/bandwidth"
	"github.com/YuminosukeSato/npreg/core/model"
	"github.com/YuminosukeSato/npreg/core/parallel"
	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/pkg/log"
)

// LocalPolynomial は局所多項式回帰推定量。各クエリ点xで重み付き最小二乗問題
//
//	min_β Σ_i K_h(x - X_i) · (Y_i - P_β(X_i - x))²
//
// を解き、予測値は中心での多項式値 P_β(0)、すなわち局所切片となる。
// 次数0はNadaraya-Watsonと厳密に一致する。次数1以上は境界付近で
// 局所的な勾配・曲率を捉えられるため、NWの境界バイアスを補正する。
//
// 重み付き計画行列が階数不足の場合（要求次数に対しサポート内の有効点が
// 少なすぎる場合）は、決定論的に次数を1ずつ下げて再試行する。
// 次数0まで下げても重み総和がゼロの場合のみ全体平均へフォールバックする。
type LocalPolynomial struct {
	model.BaseEstimator

	// Kernel は平滑化カーネル
	Kernel kernel.Kind

	// Order は多項式次数（0でNWと一致）
	Order int

	// Bandwidth は使用されたバンド幅（Fit後に設定される）
	Bandwidth *bandwidth.Bandwidth

	opts options

	// 学習済み状態（Fit後は不変）
	xs        [][]float64
	ys        []float64
	yMean     float64
	fitted    *mat.VecDense
	residuals *mat.VecDense
	leverage  []float64
	edf       float64
}

// NewLocalPolynomial は指定次数の局所多項式推定量を作成する
func NewLocalPolynomial(order int, opts ...Option) *LocalPolynomial {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &LocalPolynomial{
		Kernel:    o.kernel,
		Order:     order,
		Bandwidth: o.bw,
		opts:      o,
	}
}

// localFitResult は1クエリ点の局所重み付き最小二乗の結果
type localFitResult struct {
	pred         float64
	usedOrder    int
	outOfSupport bool
	// z は (XᵀWX)z = e₁ の解。訓練点でのレバレッジ S_ii = w_self·z[0] に使う
	z []float64
}

// Fit はモデルを訓練データで学習させる
func (lp *LocalPolynomial) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LocalPolynomial.Fit")

	if lp.Order < 0 {
		return errors.NewValueError("LocalPolynomial.Fit", "order must be non-negative")
	}

	_, d := X.Dims()
	minSamples := 1 + d*lp.Order
	if minSamples < 2 {
		minSamples = 2
	}
	xs, ys, err := checkFitInput("LocalPolynomial.Fit", X, y, minSamples)
	if err != nil {
		return err
	}

	if lp.Bandwidth == nil {
		lp.Bandwidth, err = bandwidth.Select(X, y, lp.opts.method, lp.opts.cvOptions)
		if err != nil {
			return err
		}
	}
	if err := lp.Bandwidth.Validate(); err != nil {
		return err
	}
	if lp.Bandwidth.Dim() != d {
		return errors.NewDimensionError("LocalPolynomial.Fit", d, lp.Bandwidth.Dim(), 1)
	}

	lp.xs = xs
	lp.ys = ys
	lp.yMean = meanOf(ys)

	n := len(xs)
	lp.fitted = mat.NewVecDense(n, nil)
	lp.residuals = mat.NewVecDense(n, nil)
	lp.leverage = make([]float64, n)
	fallbacks := make([]int, n) // 使用された次数（負ならフォールバックなし）
	for i := range fallbacks {
		fallbacks[i] = -1
	}

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			res := lp.localFit(xs[i])
			// 訓練点では自己重みが正なのでサポート外にはならない
			lp.fitted.SetVec(i, res.pred)
			selfWeight := lp.Kernel.ProductWeight(xs[i], xs[i], lp.Bandwidth.Values)
			lp.leverage[i] = selfWeight * res.z[0]
			if res.usedOrder != lp.Order {
				fallbacks[i] = res.usedOrder
			}
		}
	})

	lp.edf = 0
	for i := 0; i < n; i++ {
		lp.residuals.SetVec(i, ys[i]-lp.fitted.AtVec(i))
		lp.edf += lp.leverage[i]
	}

	for i, used := range fallbacks {
		if used >= 0 {
			errors.Warn(errors.NewOrderFallbackWarning("LocalPolynomial", lp.Order, used, xs[i]))
		}
	}

	lp.SetFitted(n, d)

	if lp.opts.logger != nil {
		lp.opts.logger.Info("fit complete",
			log.ModelNameKey, "LocalPolynomial",
			log.OperationKey, "fit",
			log.SamplesKey, n,
			log.FeaturesKey, d,
			log.OrderKey, lp.Order,
			log.BandwidthKey, lp.Bandwidth.Values,
			log.EffectiveDFKey, lp.edf,
		)
	}
	return nil
}

// Predict は入力データに対する予測を行う。
// サポート外の点は全体平均へフォールバックし、OutOfSupportWarningを発生させる。
func (lp *LocalPolynomial) Predict(X mat.Matrix) (mat.Matrix, error) {
	pred, statuses, err := lp.PredictWithStatus(X)
	if err != nil {
		return nil, err
	}
	for i, s := range statuses {
		if s == StatusOutOfSupport {
			errors.Warn(errors.NewOutOfSupportWarning("LocalPolynomial", rowOf(X, i), lp.yMean))
		}
	}
	return pred, nil
}

// PredictWithStatus は予測値と点ごとの状態を返す。
// 単一クエリ点の数値的失敗（サポート外、次数フォールバック）は
// バッチ全体を中断せず、状態として報告される。
func (lp *LocalPolynomial) PredictWithStatus(X mat.Matrix) (*mat.Dense, []PredictionStatus, error) {
	if !lp.IsFitted() {
		return nil, nil, errors.NewNotFittedError("LocalPolynomial", "Predict")
	}

	qs, err := checkQueryInput("LocalPolynomial.Predict", X, lp.NFeatures())
	if err != nil {
		return nil, nil, err
	}

	nq := len(qs)
	pred := mat.NewDense(nq, 1, nil)
	statuses := make([]PredictionStatus, nq)

	parallel.ParallelizeWithThreshold(nq, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			res := lp.localFit(qs[i])
			switch {
			case res.outOfSupport:
				pred.Set(i, 0, lp.yMean)
				statuses[i] = StatusOutOfSupport
			case res.usedOrder != lp.Order:
				pred.Set(i, 0, res.pred)
				statuses[i] = StatusOrderFallback
			default:
				pred.Set(i, 0, res.pred)
			}
		}
	})

	return pred, statuses, nil
}

// localFit はクエリ点x0で局所重み付き最小二乗を解く。
// 要求次数から始め、解けるまで決定論的に次数を下げる。
// 次数0（重み付き平均）は重み総和が正であれば必ず解ける。
func (lp *LocalPolynomial) localFit(x0 []float64) localFitResult {
	n := len(lp.xs)
	d := len(x0)
	h := lp.Bandwidth.Values

	weights := make([]float64, n)
	sumW := 0.0
	npos := 0
	for l := 0; l < n; l++ {
		w := lp.Kernel.ProductWeight(lp.xs[l], x0, h)
		weights[l] = w
		sumW += w
		if w > 0 {
			npos++
		}
	}
	if sumW <= 0 {
		return localFitResult{outOfSupport: true, z: []float64{0}}
	}

	for ord := lp.Order; ord >= 0; ord-- {
		m := 1 + d*ord
		if npos < m {
			continue
		}

		xtwx := mat.NewSymDense(m, nil)
		xtwy := mat.NewVecDense(m, nil)
		row := make([]float64, m)
		for l := 0; l < n; l++ {
			w := weights[l]
			if w == 0 {
				continue
			}
			designRow(row, lp.xs[l], x0, ord)
			for a := 0; a < m; a++ {
				xtwy.SetVec(a, xtwy.AtVec(a)+w*row[a]*lp.ys[l])
				for b := a; b < m; b++ {
					xtwx.SetSym(a, b, xtwx.At(a, b)+w*row[a]*row[b])
				}
			}
		}

		beta, z, ok := solveLocalSystem(xtwx, xtwy, lp.opts.ridge)
		if !ok {
			continue
		}
		return localFitResult{pred: beta[0], usedOrder: ord, z: z}
	}

	// 次数0は重み総和が正なら必ず解けるため、ここには到達しない
	return localFitResult{outOfSupport: true, z: []float64{0}}
}

// solveLocalSystem は正規方程式をコレスキー分解で解く。
// 分解に失敗した場合は対角にリッジ項を加えて一度だけ再試行する。
// 戻り値は係数β、(XᵀWX)z = e₁の解z、成功フラグ。
func solveLocalSystem(xtwx *mat.SymDense, xtwy *mat.VecDense, ridge float64) ([]float64, []float64, bool) {
	m := xtwy.Len()

	var chol mat.Cholesky
	if !chol.Factorize(xtwx) {
		// 近特異: スケールに比例したリッジ項を加えて再試行
		trace := 0.0
		for a := 0; a < m; a++ {
			trace += xtwx.At(a, a)
		}
		lambda := ridge * trace / float64(m)
		if lambda <= 0 {
			return nil, nil, false
		}
		ridged := mat.NewSymDense(m, nil)
		ridged.CopySym(xtwx)
		for a := 0; a < m; a++ {
			ridged.SetSym(a, a, ridged.At(a, a)+lambda)
		}
		if !chol.Factorize(ridged) {
			return nil, nil, false
		}
	}

	var betaVec mat.VecDense
	if err := chol.SolveVecTo(&betaVec, xtwy); err != nil {
		return nil, nil, false
	}

	e1 := mat.NewVecDense(m, nil)
	e1.SetVec(0, 1)
	var zVec mat.VecDense
	if err := chol.SolveVecTo(&zVec, e1); err != nil {
		return nil, nil, false
	}

	beta := make([]float64, m)
	z := make([]float64, m)
	for a := 0; a < m; a++ {
		beta[a] = betaVec.AtVec(a)
		z[a] = zVec.AtVec(a)
	}
	return beta, z, true
}

// designRow は中心化された入力の多項式項 [1, (x_j-x0_j)^k ...] を構築する。
// 次元ごとの冪乗のみで交差項は含まない。
func designRow(row []float64, x, x0 []float64, order int) {
	row[0] = 1
	idx := 1
	for j := range x {
		diff := x[j] - x0[j]
		p := diff
		for k := 1; k <= order; k++ {
			row[idx] = p
			p *= diff
			idx++
		}
	}
}

// Score はモデルの決定係数（R²）を計算する
func (lp *LocalPolynomial) Score(X, y mat.Matrix) (float64, error) {
	if !lp.IsFitted() {
		return 0, errors.NewNotFittedError("LocalPolynomial", "Score")
	}
	pred, _, err := lp.PredictWithStatus(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	yTrue := make([]float64, r)
	for i := 0; i < r; i++ {
		yTrue[i] = y.At(i, 0)
	}
	return rSquared("LocalPolynomial.Score", yTrue, pred)
}

// FittedValues は訓練点でのフィット値を返す
func (lp *LocalPolynomial) FittedValues() *mat.VecDense {
	return lp.fitted
}

// Residuals は訓練点での残差を返す
func (lp *LocalPolynomial) Residuals() *mat.VecDense {
	return lp.residuals
}

// Leverage はスムーザー行列の対角を返す
func (lp *LocalPolynomial) Leverage() []float64 {
	return lp.leverage
}

// EffectiveDF は有効自由度 tr(S) を返す
func (lp *LocalPolynomial) EffectiveDF() float64 {
	return lp.edf
}
