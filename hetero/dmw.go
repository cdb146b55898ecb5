package hetero

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/bandwidth"
	"github.com/YuminosukeSato/npreg/core/parallel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/pkg/log"
)

// dmwTest は差分ベースのノンパラメトリック不均一分散検定を実行する。
//
// 標本をSortDim列で並べ、隣接擬似残差 d_i = (e_{(i+1)} - e_{(i)})/√2 を
// 作る。差分が滑らかな平均構造（フィットの残りバイアスを含む）を
// 打ち消すので、d_i² は局所的な誤差分散の不偏に近い推定になる。
// d_i² をカーネル平滑化した曲線の全体平均からの乖離
//
//	T = (1/m)·Σ_i (ŝ(x̃_i) - s̄)²
//
// を統計量とし、d_i² の位置を並べ替えてp値を較正する。隣接差分は
// 残差を共有して1次依存するため、値を個別にシャッフルせず連続ブロック
// 単位で並べ替えて帰無分布の分散を保つ。漸近近似を使わないため、
// 非線形な平均関数の下でも名目サイズを保つ。
func dmwTest(residuals *mat.VecDense, X mat.Matrix, o *Options) (*Result, error) {
	const op = "hetero.DMW"

	n, _ := X.Dims()
	if n < 10 {
		return nil, errors.NewInsufficientDataError(op, 10, n,
			"pseudo-residual differencing needs a minimal sample")
	}

	order := sortedIndicesByColumn(X, o.SortDim)

	// 並べた順の隣接差分から擬似残差の二乗と中点座標を作る
	m := n - 1
	s := make([]float64, m)
	mid := make([]float64, m)
	for i := 0; i < m; i++ {
		a := residuals.AtVec(order[i])
		b := residuals.AtVec(order[i+1])
		d := (b - a) / math.Sqrt2
		s[i] = d * d
		mid[i] = 0.5 * (X.At(order[i], o.SortDim) + X.At(order[i+1], o.SortDim))
	}

	h := o.Bandwidth
	if h <= 0 {
		bw, err := bandwidth.Silverman(mat.NewDense(m, 1, mid))
		if err != nil {
			return nil, errors.Wrap(err, "npreg: hetero.DMW: bandwidth selection failed")
		}
		h = bw.Values[0]
	}

	// 平滑化の重みは位置だけで決まり並べ替えで不変なので、
	// 行正規化した重み行列を一度だけ作って全並べ替えで使い回す
	weights, err := normalizedWeights(op, mid, h, o)
	if err != nil {
		return nil, err
	}

	sBar := meanOf(s)
	tObs := dmwStatistic(weights, s, sBar)

	o.Logger.Debug("dmw permutation calibration",
		log.PermutationsKey, o.NPermutations,
		log.BandwidthKey, h,
		log.SeedKey, o.Seed,
	)

	// 各並べ替えは自分専用の乱数源を種から導出する。順序に依存
	// しないため並列実行しても結果は決定的
	exceed := make([]bool, o.NPermutations)
	parallel.ParallelizeIndexed(o.NPermutations, func(b int) {
		rng := rand.New(rand.NewSource(o.Seed + int64(b) + 1))
		shuffled := blockPermute(s, dmwBlockLen, rng)
		if dmwStatistic(weights, shuffled, sBar) >= tObs {
			exceed[b] = true
		}
	})

	count := 0
	for _, e := range exceed {
		if e {
			count++
		}
	}
	// +1/+1平滑化でp=0を避ける
	pValue := float64(1+count) / float64(1+o.NPermutations)

	return &Result{
		Variant:       DMW,
		Statistic:     tObs,
		PValue:        pValue,
		NPermutations: o.NPermutations,
	}, nil
}

// dmwBlockLen はブロック並べ替えの1ブロックあたりの要素数。隣接擬似
// 残差の1次依存をブロック内で保ちつつ、平滑化の窓より十分短いので
// 帰無仮説下の空間的な傾向は壊れる
const dmwBlockLen = 8

// blockPermute は s を長さ blockLen の連続ブロックに区切り、ブロックの
// 順序だけを並べ替えた新しいスライスを返す。端数の最終ブロックも
// ひとつのブロックとして扱う。
func blockPermute(s []float64, blockLen int, rng *rand.Rand) []float64 {
	m := len(s)
	nBlocks := (m + blockLen - 1) / blockLen
	order := rng.Perm(nBlocks)

	out := make([]float64, 0, m)
	for _, b := range order {
		lo := b * blockLen
		hi := lo + blockLen
		if hi > m {
			hi = m
		}
		out = append(out, s[lo:hi]...)
	}
	return out
}

// normalizedWeights は中点座標上のカーネル平滑化の行正規化重みを返す。
// weights[i][j] は位置jの値が位置iの平滑値に寄与する割合。
func normalizedWeights(op string, x []float64, h float64, o *Options) ([][]float64, error) {
	m := len(x)
	weights := make([][]float64, m)
	for i := 0; i < m; i++ {
		row := make([]float64, m)
		var sum float64
		for j := 0; j < m; j++ {
			w := o.Kernel.Weight((x[j] - x[i]) / h)
			row[j] = w
			sum += w
		}
		if sum <= 0 {
			return nil, errors.NewSingularFitError(op, []float64{x[i]})
		}
		for j := 0; j < m; j++ {
			row[j] /= sum
		}
		weights[i] = row
	}
	return weights, nil
}

// dmwStatistic は平滑化曲線の全体平均からの平均二乗乖離を計算する
func dmwStatistic(weights [][]float64, s []float64, sBar float64) float64 {
	m := len(s)
	var total float64
	for i := 0; i < m; i++ {
		var smoothed float64
		row := weights[i]
		for j := 0; j < m; j++ {
			smoothed += row[j] * s[j]
		}
		dev := smoothed - sBar
		total += dev * dev
	}
	return total / float64(m)
}
