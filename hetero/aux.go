package hetero

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

// whiteTest はWhiteのLM検定を実行する。二乗残差を定数項・線形項・
// 二乗項・交差項に回帰し、LM = n·R² を自由度p-1のχ²分布と比べる。
//
// 平均関数が非線形なとき、ノンパラメトリックフィットの残差に残る
// バイアス構造が補助回帰に拾われ、この検定は過大に棄却しやすい。
func whiteTest(residuals *mat.VecDense, X mat.Matrix) (*Result, error) {
	const op = "hetero.White"

	n, d := X.Dims()
	// 列数: 定数項 + 線形d + 二乗d + 交差d(d-1)/2
	p := 1 + 2*d + d*(d-1)/2
	if n <= p+1 {
		return nil, errors.NewInsufficientDataError(op, p+2, n,
			"auxiliary regression needs more samples than regressors")
	}

	Z := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		Z.Set(i, 0, 1)
		col := 1
		for j := 0; j < d; j++ {
			Z.Set(i, col, X.At(i, j))
			col++
		}
		for j := 0; j < d; j++ {
			Z.Set(i, col, X.At(i, j)*X.At(i, j))
			col++
		}
		for j := 0; j < d; j++ {
			for k := j + 1; k < d; k++ {
				Z.Set(i, col, X.At(i, j)*X.At(i, k))
				col++
			}
		}
	}

	r2, err := auxR2(op, Z, squaredResiduals(residuals))
	if err != nil {
		return nil, err
	}

	df := p - 1
	lm := float64(n) * r2
	chi2 := distuv.ChiSquared{K: float64(df)}
	return &Result{
		Variant:   White,
		Statistic: lm,
		PValue:    chi2.Survival(lm),
		DF:        df,
	}, nil
}

// breuschPaganTest はKoenker版Breusch-Pagan検定を実行する。
// 補助回帰は定数項と線形項のみで、LM = n·R² を自由度dのχ²分布と比べる。
func breuschPaganTest(residuals *mat.VecDense, X mat.Matrix) (*Result, error) {
	const op = "hetero.BreuschPagan"

	n, d := X.Dims()
	p := 1 + d
	if n <= p+1 {
		return nil, errors.NewInsufficientDataError(op, p+2, n,
			"auxiliary regression needs more samples than regressors")
	}

	Z := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		Z.Set(i, 0, 1)
		for j := 0; j < d; j++ {
			Z.Set(i, 1+j, X.At(i, j))
		}
	}

	r2, err := auxR2(op, Z, squaredResiduals(residuals))
	if err != nil {
		return nil, err
	}

	lm := float64(n) * r2
	chi2 := distuv.ChiSquared{K: float64(d)}
	return &Result{
		Variant:   BreuschPagan,
		Statistic: lm,
		PValue:    chi2.Survival(lm),
		DF:        d,
	}, nil
}

// auxR2 は最小二乗で t を Z に回帰し決定係数を返す。
// 目的変数が定数（分散零）のときはDegenerateVarianceErrorを返す。
func auxR2(op string, Z *mat.Dense, t []float64) (float64, error) {
	n, _ := Z.Dims()
	tVec := mat.NewVecDense(n, t)

	var beta mat.VecDense
	if err := beta.SolveVec(Z, tVec); err != nil {
		return 0, errors.NewSingularFitError(op, nil)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(Z, &beta)

	tMean := meanOf(t)
	var rss, tss float64
	for i := 0; i < n; i++ {
		e := t[i] - fitted.AtVec(i)
		dev := t[i] - tMean
		rss += e * e
		tss += dev * dev
	}
	if tss == 0 {
		return 0, errors.NewDegenerateVarianceError(op, "squared residuals")
	}

	r2 := 1 - rss/tss
	// 数値誤差でわずかに範囲を出ることがある
	if r2 < 0 {
		r2 = 0
	}
	if r2 > 1 {
		r2 = 1
	}
	return r2, nil
}
