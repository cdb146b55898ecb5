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

// 並列処理の閾値（この点数以下では逐次処理を使用）
const parallelThreshold = 200

// NadarayaWatson はカーネル重み付き局所平均推定量
//
//	ŷ(x) = Σ_i K_h(x - X_i) Y_i / Σ_i K_h(x - X_i)
//
// 領域境界付近では局所的な密度加重平均へ縮退するバイアスを持つ
// （境界値そのものへは収束しない）。境界バイアスの補正が必要な場合は
// LocalPolynomialを使用する。
type NadarayaWatson struct {
	model.BaseEstimator

	// Kernel は平滑化カーネル
	Kernel kernel.Kind

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

// NewNadarayaWatson は新しいNadaraya-Watson推定量を作成する
func NewNadarayaWatson(opts ...Option) *NadarayaWatson {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &NadarayaWatson{
		Kernel:    o.kernel,
		Bandwidth: o.bw,
		opts:      o,
	}
}

// Fit はモデルを訓練データで学習させる。
// バンド幅が未指定の場合は設定された選択法で自動選択する。
// 訓練点でのフィット値・残差・レバレッジ対角もここで計算される。
func (nw *NadarayaWatson) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "NadarayaWatson.Fit")

	xs, ys, err := checkFitInput("NadarayaWatson.Fit", X, y, 2)
	if err != nil {
		return err
	}

	if nw.Bandwidth == nil {
		nw.Bandwidth, err = bandwidth.Select(X, y, nw.opts.method, nw.opts.cvOptions)
		if err != nil {
			return err
		}
	}
	if err := nw.Bandwidth.Validate(); err != nil {
		return err
	}
	if nw.Bandwidth.Dim() != len(xs[0]) {
		return errors.NewDimensionError("NadarayaWatson.Fit", len(xs[0]), nw.Bandwidth.Dim(), 1)
	}

	nw.xs = xs
	nw.ys = ys
	nw.yMean = meanOf(ys)

	n := len(xs)
	nw.fitted = mat.NewVecDense(n, nil)
	nw.residuals = mat.NewVecDense(n, nil)
	nw.leverage = make([]float64, n)

	h := nw.Bandwidth.Values
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			num, den := 0.0, 0.0
			var selfWeight float64
			for l := 0; l < n; l++ {
				w := nw.Kernel.ProductWeight(xs[l], xs[i], h)
				num += w * ys[l]
				den += w
				if l == i {
					selfWeight = w
				}
			}
			// 自己重みは常に正なので訓練点でサポート外にはならない
			nw.fitted.SetVec(i, num/den)
			nw.leverage[i] = selfWeight / den
		}
	})

	nw.edf = 0
	for i := 0; i < n; i++ {
		nw.residuals.SetVec(i, ys[i]-nw.fitted.AtVec(i))
		nw.edf += nw.leverage[i]
	}

	nw.SetFitted(n, len(xs[0]))

	if nw.opts.logger != nil {
		nw.opts.logger.Info("fit complete",
			log.ModelNameKey, "NadarayaWatson",
			log.OperationKey, "fit",
			log.SamplesKey, n,
			log.FeaturesKey, len(xs[0]),
			log.BandwidthKey, nw.Bandwidth.Values,
			log.EffectiveDFKey, nw.edf,
		)
	}
	return nil
}

// Predict は入力データに対する予測を行う。
// サポート外の点は全体平均へフォールバックし、OutOfSupportWarningを発生させる。
func (nw *NadarayaWatson) Predict(X mat.Matrix) (mat.Matrix, error) {
	pred, statuses, err := nw.PredictWithStatus(X)
	if err != nil {
		return nil, err
	}
	for i, s := range statuses {
		if s == StatusOutOfSupport {
			errors.Warn(errors.NewOutOfSupportWarning("NadarayaWatson", rowOf(X, i), nw.yMean))
		}
	}
	return pred, nil
}

// PredictWithStatus は予測値と点ごとの状態を返す。
// 単一クエリ点の失敗はバッチを中断せず、状態として報告される。
func (nw *NadarayaWatson) PredictWithStatus(X mat.Matrix) (*mat.Dense, []PredictionStatus, error) {
	if !nw.IsFitted() {
		return nil, nil, errors.NewNotFittedError("NadarayaWatson", "Predict")
	}

	qs, err := checkQueryInput("NadarayaWatson.Predict", X, nw.NFeatures())
	if err != nil {
		return nil, nil, err
	}

	nq := len(qs)
	pred := mat.NewDense(nq, 1, nil)
	statuses := make([]PredictionStatus, nq)
	h := nw.Bandwidth.Values

	parallel.ParallelizeWithThreshold(nq, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			num, den := 0.0, 0.0
			for l := range nw.xs {
				w := nw.Kernel.ProductWeight(nw.xs[l], qs[i], h)
				num += w * nw.ys[l]
				den += w
			}
			if den > 0 {
				pred.Set(i, 0, num/den)
			} else {
				// 文書化されたデフォルト: 応答の全体平均へフォールバック
				pred.Set(i, 0, nw.yMean)
				statuses[i] = StatusOutOfSupport
			}
		}
	})

	return pred, statuses, nil
}

// Score はモデルの決定係数（R²）を計算する
func (nw *NadarayaWatson) Score(X, y mat.Matrix) (float64, error) {
	if !nw.IsFitted() {
		return 0, errors.NewNotFittedError("NadarayaWatson", "Score")
	}
	pred, _, err := nw.PredictWithStatus(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	yTrue := make([]float64, r)
	for i := 0; i < r; i++ {
		yTrue[i] = y.At(i, 0)
	}
	return rSquared("NadarayaWatson.Score", yTrue, pred)
}

// FittedValues は訓練点でのフィット値を返す
func (nw *NadarayaWatson) FittedValues() *mat.VecDense {
	return nw.fitted
}

// Residuals は訓練点での残差を返す
func (nw *NadarayaWatson) Residuals() *mat.VecDense {
	return nw.residuals
}

// Leverage はスムーザー行列の対角を返す
func (nw *NadarayaWatson) Leverage() []float64 {
	return nw.leverage
}

// EffectiveDF は有効自由度 tr(S) を返す
func (nw *NadarayaWatson) EffectiveDF() float64 {
	return nw.edf
}

func rowOf(X mat.Matrix, i int) []float64 {
	_, d := X.Dims()
	row := make([]float64, d)
	for j := 0; j < d; j++ {
		row[j] = X.At(i, j)
	}
	return row
}
