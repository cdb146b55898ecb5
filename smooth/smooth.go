// Package smooth はカーネル重み付き局所回帰の推定量を提供します。
// Nadaraya-Watson推定量（0次の局所平均）と局所多項式推定量（次数p、
// 境界バイアスを低減）を実装し、いずれも学習済みモデルとして
// 訓練点でのフィット値・残差・レバレッジ対角・有効自由度を保持します。
package smooth

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/core/model"
	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// PredictionStatus は予測バッチ内の1点の状態を表す。
// 単一クエリ点の数値的失敗はバッチ全体を中断せず、状態として報告される。
type PredictionStatus int

const (
	// StatusOK は通常の予測
	StatusOK PredictionStatus = iota
	// StatusOutOfSupport はカーネル重み総和がゼロで全体平均へ
	// フォールバックした予測
	StatusOutOfSupport
	// StatusOrderFallback は局所計画行列の階数不足により
	// 低次数へフォールバックした予測
	StatusOrderFallback
)

// String は状態名を返す
func (s PredictionStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOutOfSupport:
		return "out_of_support"
	case StatusOrderFallback:
		return "order_fallback"
	default:
		return "unknown"
	}
}

// Fitted は学習済み平滑化モデルが公開する読み取り専用の診断面。
// diagnosticsパッケージと信頼区間ビルダーが消費する。
type Fitted interface {
	model.Regressor

	// FittedValues は訓練点でのフィット値を返す
	FittedValues() *mat.VecDense

	// Residuals は訓練点での残差 e_i = y_i - ŷ(x_i) を返す
	Residuals() *mat.VecDense

	// Leverage はスムーザー行列の対角 S_ii を返す
	Leverage() []float64

	// EffectiveDF は有効自由度 tr(S) を返す
	EffectiveDF() float64
}

// checkFitInput はFitへの入力を検証し、内部表現へ変換する
func checkFitInput(op string, X, y mat.Matrix, minSamples int) ([][]float64, []float64, error) {
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
	if n < minSamples {
		return nil, nil, errors.NewInsufficientDataError(op, minSamples, n, "kernel-weighted local fit")
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

	if err := checkFinite(op, xs, ys); err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}

func checkFinite(op string, xs [][]float64, ys []float64) error {
	for i := range xs {
		if err := errors.CheckNumericalStability(op, xs[i], i); err != nil {
			return err
		}
	}
	return errors.CheckNumericalStability(op, ys, 0)
}

// checkQueryInput はPredictへのクエリ行列を検証し、行スライスへ変換する
func checkQueryInput(op string, X mat.Matrix, d int) ([][]float64, error) {
	nq, dq := X.Dims()
	if nq == 0 {
		return nil, errors.NewValueError(op, "empty query matrix")
	}
	if dq != d {
		return nil, errors.NewDimensionError(op, d, dq, 1)
	}

	qs := make([][]float64, nq)
	for i := 0; i < nq; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = X.At(i, j)
		}
		qs[i] = row
	}
	return qs, nil
}

func meanOf(ys []float64) float64 {
	sum := 0.0
	for _, v := range ys {
		sum += v
	}
	return sum / float64(len(ys))
}

// rSquared は決定係数を計算する。TSS=0の場合はDegenerateVarianceError。
func rSquared(op string, yTrue []float64, yPred *mat.Dense) (float64, error) {
	n := len(yTrue)
	mean := meanOf(yTrue)
	var tss, rss float64
	for i := 0; i < n; i++ {
		dt := yTrue[i] - mean
		dr := yTrue[i] - yPred.At(i, 0)
		tss += dt * dt
		rss += dr * dr
	}
	if tss == 0 {
		return 0, errors.NewDegenerateVarianceError(op, "y")
	}
	return 1 - rss/tss, nil
}
