// Package dataset は検定と較正実験に使う合成データ生成器を提供する。
//
// 生成はすべて種（seed)付きで決定的。同じ引数は同じ標本を返す。
package dataset

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// NonlinearHomoscedastic は等分散の非線形回帰標本を生成する。
//
//	x_i は [0,1] の等間隔格子
//	y_i = sin(2π·x_i) + ε_i,  ε_i ~ N(0, 0.2²)
//
// 平均関数が非線形で誤差分散が一定なので、不均一分散検定の
// サイズ（偽陽性率）評価の帰無標本として使う。
func NonlinearHomoscedastic(n int, seed int64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		X.Set(i, 0, x)
		y.SetVec(i, math.Sin(2*math.Pi*x)+rng.NormFloat64()*0.2)
	}
	return X, y
}

// Trumpet はラッパ型の不均一分散標本を生成する。
//
//	x_i は [0,1] の等間隔格子
//	y_i = sin(2π·x_i) + σ(x_i)·ε_i,  σ(x) = 0.1 + strength·x
//
// strength=0 は等分散に退化する。検出力評価の対立標本として使う。
func Trumpet(n int, seed int64, strength float64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		X.Set(i, 0, x)
		sigma := 0.1 + strength*x
		y.SetVec(i, math.Sin(2*math.Pi*x)+rng.NormFloat64()*sigma)
	}
	return X, y
}

// Linspace は [lo, hi] の等間隔 n 点を n×1 行列で返す。
func Linspace(lo, hi float64, n int) *mat.Dense {
	X := mat.NewDense(n, 1, nil)
	if n == 1 {
		X.Set(0, 0, lo)
		return X
	}
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		X.Set(i, 0, lo+step*float64(i))
	}
	return X
}
