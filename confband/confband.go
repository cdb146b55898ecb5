// Package confband はワイルドブートストラップによる回帰曲線の
// 同時点別信頼バンドを構築する。
//
// 中心曲線には意図的に過少平滑（undersmoothing）したバンド幅を使い、
// 平滑化バイアスを被覆誤差の主因から外す。残差はより高次のパイロット
// フィットから取り、Mammenの2点乗数によるワイルドブートストラップで
// 再標本化する。誤差分散が説明変数に依存していても、乗数が各点の
// 残差の大きさを保つため被覆が崩れない。
package confband

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/npreg/bandwidth"
	"github.com/YuminosukeSato/npreg/core/parallel"
	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/pkg/log"
	"github.com/YuminosukeSato/npreg/smooth"
)

// Mammenの2点分布の定数。E[v]=0, E[v²]=1, E[v³]=1 を満たす
var (
	mammenLow  = (1 - math.Sqrt(5)) / 2
	mammenHigh = (1 + math.Sqrt(5)) / 2
	mammenProb = (5 + math.Sqrt(5)) / 10
)

// Band は問い合わせ点ごとの信頼バンド。
type Band struct {
	// Lower は下側包絡線
	Lower *mat.VecDense
	// Center は過少平滑した中心推定
	Center *mat.VecDense
	// Upper は上側包絡線
	Upper *mat.VecDense
}

// Builder は信頼バンド構築の設定。NewBuilderで既定値を得てから
// フィールドを上書きする。
type Builder struct {
	// Order は中心推定に使う局所多項式の次数
	Order int
	// Coverage は名目被覆確率
	Coverage float64
	// NBootstrap はブートストラップ反復数
	NBootstrap int
	// Seed は乗数生成の乱数種。同じ種は同じバンドを与える
	Seed int64
	// UndersmoothFactor は参照バンド幅に掛ける過少平滑係数
	UndersmoothFactor float64
	// Bandwidth は参照バンド幅。nilならSilvermanの規則で選ぶ
	Bandwidth *bandwidth.Bandwidth
	// Kernel は平滑化カーネル
	Kernel kernel.Kind
	// Logger は構造化ログの出力先
	Logger log.Logger
}

// NewBuilder は既定設定のBuilderを返す。
func NewBuilder() *Builder {
	return &Builder{
		Order:             1,
		Coverage:          0.95,
		NBootstrap:        500,
		UndersmoothFactor: 0.75,
		Kernel:            kernel.Gaussian,
		Logger:            log.GetLogger(),
	}
}

func (b *Builder) validate() error {
	const op = "confband.Build"
	if b.Order < 0 {
		return errors.NewValueError(op, "polynomial order must be non-negative")
	}
	if b.Coverage <= 0 || b.Coverage >= 1 {
		return errors.NewValueError(op, "coverage must be in (0, 1)")
	}
	if b.NBootstrap < 2 {
		return errors.NewValueError(op, "need at least 2 bootstrap resamples")
	}
	if b.UndersmoothFactor <= 0 || b.UndersmoothFactor > 1 {
		return errors.NewValueError(op, "undersmooth factor must be in (0, 1]")
	}
	return nil
}

// Build は訓練データ(X, y)から問い合わせ点query上の信頼バンドを構築する。
func (b *Builder) Build(X, y, query mat.Matrix) (*Band, error) {
	const op = "confband.Build"

	if err := b.validate(); err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = log.GetLogger()
	}

	n, d := X.Dims()
	nq, dq := query.Dims()
	if nq == 0 {
		return nil, errors.NewValueError(op, "empty query matrix")
	}
	if dq != d {
		return nil, errors.NewDimensionError(op, d, dq, 1)
	}

	ref := b.Bandwidth
	if ref == nil {
		var err error
		ref, err = bandwidth.Silverman(X)
		if err != nil {
			return nil, errors.Wrap(err, "npreg: confband.Build: reference bandwidth selection failed")
		}
	}
	under := ref.Scale(b.UndersmoothFactor)

	start := time.Now()

	// パイロット: 1次高い多項式で平均をほぼバイアスなしに推定し、
	// その残差をブートストラップの材料にする
	pilot := smooth.NewLocalPolynomial(b.Order+1,
		smooth.WithKernel(b.Kernel),
		smooth.WithBandwidth(ref),
		smooth.WithLogger(logger),
	)
	if err := pilot.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "npreg: confband.Build: pilot fit failed")
	}
	pilotResiduals := pilot.Residuals()

	// 中心フィットは過少平滑したバンド幅で行う
	center := smooth.NewLocalPolynomial(b.Order,
		smooth.WithKernel(b.Kernel),
		smooth.WithBandwidth(under),
		smooth.WithLogger(logger),
	)
	if err := center.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "npreg: confband.Build: center fit failed")
	}
	centerFitted := center.FittedValues()
	centerPred, _, err := center.PredictWithStatus(query)
	if err != nil {
		return nil, err
	}

	// 各再標本は自分専用の乱数源を種から導出し、並列でも決定的
	curves := make([][]float64, b.NBootstrap)
	bootErrs := make([]error, b.NBootstrap)
	parallel.ParallelizeIndexed(b.NBootstrap, func(bi int) {
		bootErrs[bi] = errors.SafeExecute("confband.resample", func() error {
			rng := rand.New(rand.NewSource(b.Seed + int64(bi) + 1))
			yStar := mat.NewVecDense(n, nil)
			for i := 0; i < n; i++ {
				yStar.SetVec(i, centerFitted.AtVec(i)+pilotResiduals.AtVec(i)*mammen(rng))
			}

			est := smooth.NewLocalPolynomial(b.Order,
				smooth.WithKernel(b.Kernel),
				smooth.WithBandwidth(under),
				smooth.WithLogger(logger),
			)
			if err := est.Fit(X, yStar); err != nil {
				return err
			}
			pred, _, err := est.PredictWithStatus(query)
			if err != nil {
				return err
			}
			curve := make([]float64, nq)
			for q := 0; q < nq; q++ {
				curve[q] = pred.At(q, 0)
			}
			curves[bi] = curve
			return nil
		})
	})
	for _, err := range bootErrs {
		if err != nil {
			return nil, errors.Wrap(err, "npreg: confband.Build: bootstrap refit failed")
		}
	}

	// 点ごとに基本ブートストラップの分位点でバンドを引く
	alpha := 1 - b.Coverage
	lower := mat.NewVecDense(nq, nil)
	upper := mat.NewVecDense(nq, nil)
	deltas := make([]float64, b.NBootstrap)
	for q := 0; q < nq; q++ {
		c := centerPred.At(q, 0)
		for bi := 0; bi < b.NBootstrap; bi++ {
			deltas[bi] = curves[bi][q] - c
		}
		sort.Float64s(deltas)
		lo := c + stat.Quantile(alpha/2, stat.LinInterp, deltas, nil)
		hi := c + stat.Quantile(1-alpha/2, stat.LinInterp, deltas, nil)
		// 数値的に中心を跨がないよう挟み込む
		if lo > c {
			lo = c
		}
		if hi < c {
			hi = c
		}
		lower.SetVec(q, lo)
		upper.SetVec(q, hi)
	}

	centerVec := mat.NewVecDense(nq, nil)
	for q := 0; q < nq; q++ {
		centerVec.SetVec(q, centerPred.At(q, 0))
	}

	logger.Info("confidence band built",
		log.SamplesKey, n,
		log.QueriesKey, nq,
		log.ResamplesKey, b.NBootstrap,
		log.SeedKey, b.Seed,
		"coverage", b.Coverage,
		log.BandwidthKey, under.Values,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Band{Lower: lower, Center: centerVec, Upper: upper}, nil
}

// mammen は2点ワイルドブートストラップ乗数を1つ引く
func mammen(rng *rand.Rand) float64 {
	if rng.Float64() < mammenProb {
		return mammenLow
	}
	return mammenHigh
}
