// Package diagnostics は平滑化推定量の適合度診断を提供する。
//
// 有効自由度 tr(S) に基づく情報量規準（AIC・BIC）と一般化交差検証
// （GCV）を計算し、バンド幅や次数の比較に使える単一の要約を返す。
package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/metrics"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/smooth"
)

// Diagnostics はフィット済み推定量の適合度の要約。
type Diagnostics struct {
	// N は訓練標本数
	N int
	// RSS は残差二乗和
	RSS float64
	// TSS は全平方和
	TSS float64
	// R2 は決定係数 1 - RSS/TSS
	R2 float64
	// MSE は残差の平均二乗 RSS/n
	MSE float64
	// Sigma2 は誤差分散の推定値 RSS/(n - tr(S))
	Sigma2 float64
	// EffectiveDF は有効自由度 tr(S)
	EffectiveDF float64
	// GCV は一般化交差検証スコア (RSS/n) / (1 - tr(S)/n)²
	GCV float64
	// AIC は n·log(RSS/n) + 2·tr(S)
	AIC float64
	// BIC は n·log(RSS/n) + log(n)·tr(S)
	BIC float64
}

// Compute はフィット済み推定量から診断量を計算する。
// 訓練時の目的変数はフィット値と残差の和 y_i = ŷ_i + e_i として
// 復元する。目的変数が定数のときは DegenerateVarianceError を返す。
func Compute(f smooth.Fitted) (*Diagnostics, error) {
	const op = "diagnostics.Compute"

	fitted := f.FittedValues()
	residuals := f.Residuals()
	if fitted == nil || residuals == nil {
		return nil, errors.NewNotFittedError("estimator", "diagnostics.Compute")
	}

	n := fitted.Len()
	if n == 0 {
		return nil, errors.NewValueError(op, "estimator has no training samples")
	}
	if residuals.Len() != n {
		return nil, errors.NewDimensionError(op, n, residuals.Len(), 0)
	}

	edf := f.EffectiveDF()
	if edf <= 0 || !isFinite(edf) {
		return nil, errors.NewValueError(op, "effective degrees of freedom must be positive and finite")
	}

	yVec := mat.NewVecDense(n, nil)
	yVec.AddVec(fitted, residuals)

	mse, err := metrics.MSE(yVec, fitted)
	if err != nil {
		return nil, err
	}
	nf := float64(n)
	rss := mse * nf

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yVec.AtVec(i)
	}
	yMean /= nf

	var tss float64
	for i := 0; i < n; i++ {
		dev := yVec.AtVec(i) - yMean
		tss += dev * dev
	}
	if tss == 0 {
		return nil, errors.NewDegenerateVarianceError(op, "y")
	}

	d := &Diagnostics{
		N:           n,
		RSS:         rss,
		TSS:         tss,
		R2:          1 - rss/tss,
		MSE:         mse,
		EffectiveDF: edf,
	}

	// tr(S) ≥ n では残差自由度が尽き、Sigma2とGCVは定義できない
	if edf < nf {
		d.Sigma2 = rss / (nf - edf)
		ratio := 1 - edf/nf
		d.GCV = mse / (ratio * ratio)
	} else {
		d.Sigma2 = math.Inf(1)
		d.GCV = math.Inf(1)
	}

	// RSS=0（完全フィット）では log(0) を避けて -Inf を明示する
	if rss > 0 {
		logMSE := math.Log(mse)
		d.AIC = nf*logMSE + 2*edf
		d.BIC = nf*logMSE + math.Log(nf)*edf
	} else {
		d.AIC = math.Inf(-1)
		d.BIC = math.Inf(-1)
	}

	return d, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
