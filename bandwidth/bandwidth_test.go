package bandwidth

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/pkg/errors"
)

func uniformColumn(n int, rng *rand.Rand) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64()
	}
	return xs
}

func TestBandwidthValidate(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{name: "valid scalar", values: []float64{0.1}, wantErr: false},
		{name: "valid vector", values: []float64{0.1, 2.5}, wantErr: false},
		{name: "zero component", values: []float64{0.1, 0}, wantErr: true},
		{name: "negative component", values: []float64{-0.5}, wantErr: true},
		{name: "infinite component", values: []float64{math.Inf(1)}, wantErr: true},
		{name: "NaN component", values: []float64{math.NaN()}, wantErr: true},
		{name: "empty", values: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.values...)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBandwidthScale(t *testing.T) {
	b := New(0.4, 1.0)
	u := b.Scale(0.75)
	if u.Values[0] != 0.3 || u.Values[1] != 0.75 {
		t.Errorf("Scale(0.75) = %v", u.Values)
	}
	// 元のバンド幅は変更されない
	if b.Values[0] != 0.4 {
		t.Errorf("Scale mutated the receiver: %v", b.Values)
	}
}

func TestSilvermanShrinksWithN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var prev float64 = math.Inf(1)
	for _, n := range []int{50, 200, 800} {
		X := mat.NewDense(n, 1, uniformColumn(n, rng))
		b, err := Silverman(X)
		if err != nil {
			t.Fatalf("Silverman(n=%d): %v", n, err)
		}
		if err := b.Validate(); err != nil {
			t.Fatalf("invalid bandwidth: %v", err)
		}
		if b.Values[0] >= prev {
			t.Errorf("bandwidth should shrink with n: h(n=%d)=%v >= %v", n, b.Values[0], prev)
		}
		prev = b.Values[0]
	}
}

func TestSilvermanMatchesFormula(t *testing.T) {
	// 一様分布のロバストスケールはIQR/1.349 ≈ 0.37が標準偏差(≈0.29)を上回るため
	// 標準偏差が選ばれる。厳密値は乱数依存なので範囲だけ確認する。
	rng := rand.New(rand.NewSource(7))
	n := 500
	X := mat.NewDense(n, 1, uniformColumn(n, rng))
	b, err := Silverman(X)
	if err != nil {
		t.Fatal(err)
	}
	h := b.Values[0]
	// h = 1.06 σ̂ n^{-1/5}, σ̂ ≈ 0.29, n^{-1/5} ≈ 0.288 → ≈ 0.088
	if h < 0.05 || h > 0.15 {
		t.Errorf("h = %v outside plausible range for U(0,1), n=500", h)
	}
}

func TestScottSmallerThanSilverman(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	X := mat.NewDense(100, 2, nil)
	for i := 0; i < 100; i++ {
		X.Set(i, 0, rng.NormFloat64())
		X.Set(i, 1, rng.NormFloat64()*3)
	}

	sil, err := Silverman(X)
	if err != nil {
		t.Fatal(err)
	}
	sc, err := Scott(X)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 2; j++ {
		if sc.Values[j] >= sil.Values[j] {
			t.Errorf("dim %d: Scott %v should be below Silverman %v", j, sc.Values[j], sil.Values[j])
		}
	}
	// 次元別スケール: 広がりの大きい次元ほどバンド幅も大きい
	if sil.Values[1] <= sil.Values[0] {
		t.Errorf("anisotropic scale not reflected: %v", sil.Values)
	}
}

func TestSilvermanZeroVariance(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2})
	_, err := Silverman(X)
	if err == nil {
		t.Fatal("expected DegenerateVarianceError for constant input")
	}
	var degErr *errors.DegenerateVarianceError
	if !errors.As(err, &degErr) {
		t.Errorf("expected *DegenerateVarianceError, got %T: %v", err, err)
	}
}

func TestSilvermanTooFewSamples(t *testing.T) {
	X := mat.NewDense(1, 1, []float64{1})
	_, err := Silverman(X)
	var insuffErr *errors.InsufficientDataError
	if !errors.As(err, &insuffErr) {
		t.Errorf("expected *InsufficientDataError, got %v", err)
	}
}

func TestCVRecoversReasonableBandwidth(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 150
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i) / float64(n-1)
		ys[i] = math.Sin(2*math.Pi*xs[i]) + rng.NormFloat64()*0.2
	}
	X := mat.NewDense(n, 1, xs)
	y := mat.NewDense(n, 1, ys)

	ref, err := Silverman(X)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CV(X, y, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}

	// グリッド境界（0.1倍・10倍）に張り付かず参照値の近傍に収まる
	ratio := b.Values[0] / ref.Values[0]
	if ratio <= 0.1 || ratio >= 10 {
		t.Errorf("CV bandwidth hit the grid boundary: ratio=%v", ratio)
	}
}

func TestCVDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	n := 80
	xs := uniformColumn(n, rng)
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = xs[i]*xs[i] + rng.NormFloat64()*0.1
	}
	X := mat.NewDense(n, 1, xs)
	y := mat.NewDense(n, 1, ys)

	b1, err := CV(X, y, nil)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := CV(X, y, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b1.Values[0] != b2.Values[0] {
		t.Errorf("CV is not deterministic: %v vs %v", b1.Values, b2.Values)
	}
}

// 変数選択特性: 情報を持つ次元と純粋なノイズ次元を与えたとき、
// ノイズ次元のバンド幅は信号次元の10倍以上へ発散する
func TestCVPerDimensionVariableSelection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping coordinate-descent selection in short mode")
	}

	rng := rand.New(rand.NewSource(5))
	n := 120
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		signal := float64(i) / float64(n-1)
		noiseDim := rng.Float64()
		X.Set(i, 0, signal)
		X.Set(i, 1, noiseDim)
		y.Set(i, 0, math.Sin(2*math.Pi*signal)+rng.NormFloat64()*0.15)
	}

	b, err := CVPerDimension(X, y, &CVOptions{GridSize: 12})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}

	ratio := b.Values[1] / b.Values[0]
	if ratio < 10 {
		t.Errorf("noise dimension bandwidth should diverge: h_noise/h_signal = %v, want >= 10", ratio)
	}
}

func TestGeometricGrid(t *testing.T) {
	grid := geometricGrid(0.1, 10, 5)
	if len(grid) != 5 {
		t.Fatalf("len = %d", len(grid))
	}
	if math.Abs(grid[0]-0.1) > 1e-12 || math.Abs(grid[4]-10) > 1e-9 {
		t.Errorf("endpoints wrong: %v", grid)
	}
	// 等比であること
	for i := 1; i < 4; i++ {
		r1 := grid[i] / grid[i-1]
		r2 := grid[i+1] / grid[i]
		if math.Abs(r1-r2) > 1e-9 {
			t.Errorf("not geometric: %v", grid)
		}
	}
}

func TestPickSmallestNearOptimal(t *testing.T) {
	factors := []float64{0.5, 1.0, 2.0}
	// 1.0と0.5が1%以内の同点 → 小さい方を選ぶ
	scores := []float64{1.004, 1.0, 3.0}
	idx, err := pickSmallestNearOptimal(factors, scores, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("tie-break should prefer the smallest factor, got index %d", idx)
	}
}

func TestSmoothScoresRemovesIsolatedDip(t *testing.T) {
	// 先頭付近の孤立した落ち込みは移動平均で広い谷より高くなる
	scores := []float64{2.0, 0.5, 2.0, 1.0, 0.9, 1.0, 2.0}
	out := smoothScores(scores)
	if len(out) != len(scores) {
		t.Fatalf("len = %d, want %d", len(out), len(scores))
	}
	dip := out[1]
	valley := out[4]
	if dip <= valley {
		t.Errorf("isolated dip %v should exceed the broad valley %v after smoothing", dip, valley)
	}

	// 端点は存在する隣接点とだけ平均する
	if want := (scores[0] + scores[1]) / 2; math.Abs(out[0]-want) > 1e-12 {
		t.Errorf("left edge = %v, want %v", out[0], want)
	}

	// NaNはそのまま残り、隣接点の窓からは除外される
	withNaN := []float64{1.0, math.NaN(), 3.0}
	got := smoothScores(withNaN)
	if !math.IsNaN(got[1]) {
		t.Errorf("NaN score should stay NaN, got %v", got[1])
	}
	if got[0] != 1.0 || got[2] != 3.0 {
		t.Errorf("NaN neighbour should not contaminate the window: %v", got)
	}
}
