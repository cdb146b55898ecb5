// Package hetero は回帰残差の不均一分散（heteroscedasticity）検定を提供する。
//
// 実装する検定は4種類。Whiteの検定とBreusch-Pagan検定は補助回帰に基づく
// 古典的なLM検定で、平均関数が非線形なときはサイズが膨らむ（偽陽性が
// 増える）ことが知られている。Goldfeld-Quandt検定は標本を並べ替えて
// 両裾の分散比を見る。DMW検定（差分ベースのノンパラメトリック検定）は
// 隣接擬似残差で平均構造を消去したうえで分散の滑らかな変動を検出し、
// 並べ替え（permutation）でp値を較正するため、非線形な平均の下でも
// 名目サイズを保つ。
package hetero

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
	"github.com/YuminosukeSato/npreg/pkg/log"
)

// Variant は不均一分散検定の種類を表す
type Variant int

const (
	// White はWhiteの検定。補助回帰に二乗項と交差項を含める
	White Variant = iota
	// BreuschPagan はKoenker版Breusch-Pagan検定。補助回帰は線形項のみ
	BreuschPagan
	// GoldfeldQuandt はGoldfeld-Quandt検定。裾の分散比をF検定する
	GoldfeldQuandt
	// DMW は差分ベースのノンパラメトリック検定。並べ替えで較正する
	DMW
)

// String はVariantの文字列表現を返す
func (v Variant) String() string {
	switch v {
	case White:
		return "white"
	case BreuschPagan:
		return "breusch_pagan"
	case GoldfeldQuandt:
		return "goldfeld_quandt"
	case DMW:
		return "dmw"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant は文字列から検定種類を解析する
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "white":
		return White, nil
	case "breusch_pagan":
		return BreuschPagan, nil
	case "goldfeld_quandt":
		return GoldfeldQuandt, nil
	case "dmw":
		return DMW, nil
	default:
		return 0, errors.NewValueError("hetero.ParseVariant", fmt.Sprintf("unknown test variant %q", s))
	}
}

// Result は検定の結果。
type Result struct {
	// Variant は実行した検定の種類
	Variant Variant
	// Statistic は検定統計量
	Statistic float64
	// PValue はp値。DMWでは並べ替えp値、それ以外は漸近分布に基づく
	PValue float64
	// DF は漸近分布の自由度。DMWでは0
	DF int
	// DF2 はF検定の分母自由度。Goldfeld-Quandt以外では0
	DF2 int
	// NPermutations は使った並べ替えの数。DMW以外では0
	NPermutations int
}

// IsHeteroscedastic は有意水準alphaで帰無仮説（等分散）を棄却するかを返す
func (r *Result) IsHeteroscedastic(alpha float64) bool {
	return r.PValue < alpha
}

// Options は検定の調整パラメータ。ゼロ値のフィールドには既定値が入る。
type Options struct {
	// NPermutations はDMWの並べ替え回数（既定500）
	NPermutations int
	// Seed はDMWの並べ替えに使う乱数種。同じ種は同じp値を与える
	Seed int64
	// Kernel はDMWの平滑化カーネル（既定Gaussian）
	Kernel kernel.Kind
	// Bandwidth はDMWの平滑化バンド幅。0ならSilvermanの規則で選ぶ
	Bandwidth float64
	// DropFraction はGoldfeld-Quandtで落とす中央部の割合（既定0.2）
	DropFraction float64
	// SortDim はGoldfeld-QuandtとDMWで標本を並べる説明変数の列（既定0）
	SortDim int
	// Logger は構造化ログの出力先。nilなら既定ロガー
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.NPermutations <= 0 {
		out.NPermutations = 500
	}
	if out.DropFraction <= 0 || out.DropFraction >= 1 {
		out.DropFraction = 0.2
	}
	if out.Logger == nil {
		out.Logger = log.GetLogger()
	}
	return &out
}

// Test は残差列に対して指定した不均一分散検定を実行する。
// residualsは回帰フィットの残差、Xは対応する説明変数行列。
func Test(residuals *mat.VecDense, X mat.Matrix, variant Variant, opts *Options) (*Result, error) {
	const op = "hetero.Test"

	o := opts.withDefaults()

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewValueError(op, "empty design matrix")
	}
	if residuals.Len() != n {
		return nil, errors.NewDimensionError(op, n, residuals.Len(), 0)
	}
	for i := 0; i < n; i++ {
		if err := errors.CheckScalar(op, residuals.AtVec(i), i); err != nil {
			return nil, err
		}
	}
	if o.SortDim < 0 || o.SortDim >= d {
		return nil, errors.NewValueError(op, fmt.Sprintf("sort dimension %d out of range [0,%d)", o.SortDim, d))
	}

	start := time.Now()
	var (
		res *Result
		err error
	)
	switch variant {
	case White:
		res, err = whiteTest(residuals, X)
	case BreuschPagan:
		res, err = breuschPaganTest(residuals, X)
	case GoldfeldQuandt:
		res, err = goldfeldQuandtTest(residuals, X, o)
	case DMW:
		res, err = dmwTest(residuals, X, o)
	default:
		return nil, errors.NewValueError(op, fmt.Sprintf("unknown test variant %d", int(variant)))
	}
	if err != nil {
		return nil, err
	}

	o.Logger.Info("heteroscedasticity test completed",
		log.VariantKey, variant.String(),
		log.SamplesKey, n,
		log.FeaturesKey, d,
		"statistic", res.Statistic,
		"p_value", res.PValue,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// squaredResiduals はe²のスライスと、後続の検証で使う合計を返す
func squaredResiduals(residuals *mat.VecDense) []float64 {
	n := residuals.Len()
	sq := make([]float64, n)
	for i := 0; i < n; i++ {
		e := residuals.AtVec(i)
		sq[i] = e * e
	}
	return sq
}

func varianceOf(v []float64) float64 {
	n := float64(len(v))
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / n
	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return ss / (n - 1)
}

func meanOf(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
