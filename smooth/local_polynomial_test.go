package smooth

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/bandwidth"
	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/errors"
)

func TestLocalPolynomialNegativeOrder(t *testing.T) {
	lp := NewLocalPolynomial(-1)
	err := lp.Fit(mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4}), mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4}))
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("expected *ValueError for negative order, got %v", err)
	}
}

func TestLocalPolynomialNotFitted(t *testing.T) {
	lp := NewLocalPolynomial(1)
	_, err := lp.Predict(mat.NewDense(1, 1, []float64{0}))
	var nfErr *errors.NotFittedError
	if !errors.As(err, &nfErr) {
		t.Errorf("expected *NotFittedError, got %v", err)
	}
}

// 次数0の局所多項式はNadaraya-Watson推定量と一致する
func TestLocalPolynomialOrderZeroMatchesNW(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	X, y := sineSample(80, 0.2, rng)
	bw := bandwidth.New(0.08)

	nw := NewNadarayaWatson(WithBandwidth(bw))
	if err := nw.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lp := NewLocalPolynomial(0, WithBandwidth(bw))
	if err := lp.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	query := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		query.Set(i, 0, 0.05+0.9*float64(i)/39)
	}
	pnw, err := nw.Predict(query)
	if err != nil {
		t.Fatal(err)
	}
	plp, err := lp.Predict(query)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		if diff := math.Abs(pnw.At(i, 0) - plp.At(i, 0)); diff > 1e-10 {
			t.Errorf("query %d: |NW - LP0| = %v", i, diff)
		}
	}
}

// 線形な真の関数 f(x)=x に対し、局所線形は境界バイアスをほぼ零にするが
// Nadaraya-Watsonは境界で顕著なバイアスを持つ
func TestLocalPolynomialBoundaryBias(t *testing.T) {
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		X.Set(i, 0, x)
		y.Set(i, 0, x) // ノイズなし
	}
	bw := bandwidth.New(0.1)
	boundary := mat.NewDense(1, 1, []float64{0})

	nw := NewNadarayaWatson(WithBandwidth(bw))
	if err := nw.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lp := NewLocalPolynomial(1, WithBandwidth(bw))
	if err := lp.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	pnw, err := nw.Predict(boundary)
	if err != nil {
		t.Fatal(err)
	}
	plp, err := lp.Predict(boundary)
	if err != nil {
		t.Fatal(err)
	}

	nwBias := math.Abs(pnw.At(0, 0) - 0)
	lpBias := math.Abs(plp.At(0, 0) - 0)
	if nwBias < 0.02 {
		t.Errorf("NW boundary bias %v unexpectedly small", nwBias)
	}
	if lpBias > 0.005 {
		t.Errorf("local linear boundary bias %v, want near zero", lpBias)
	}
	if lpBias >= nwBias {
		t.Errorf("local linear bias %v should beat NW bias %v", lpBias, nwBias)
	}
}

// 標本数が設計行列の列数を下回る点では次数フォールバックが起こり、
// 同じ入力に対して決定的に同じ結果を返す
func TestLocalPolynomialOrderFallback(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(nil)

	// 4点のみ・次数3 → 大域的には解けるが、コンパクトカーネルの
	// 局所窓に入る点数が不足しフォールバックする
	X := mat.NewDense(4, 1, []float64{0, 0.5, 1.0, 1.5})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})

	run := func() (*mat.Dense, []PredictionStatus) {
		lp := NewLocalPolynomial(2,
			WithKernel(kernel.Epanechnikov),
			WithBandwidth(bandwidth.New(0.6)),
		)
		if err := lp.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		pred, statuses, err := lp.PredictWithStatus(mat.NewDense(1, 1, []float64{0.1}))
		if err != nil {
			t.Fatal(err)
		}
		return pred, statuses
	}

	p1, s1 := run()
	p2, s2 := run()

	if s1[0] != StatusOrderFallback {
		t.Errorf("expected StatusOrderFallback, got %v", s1[0])
	}
	if s1[0] != s2[0] || p1.At(0, 0) != p2.At(0, 0) {
		t.Errorf("fallback not deterministic: %v/%v vs %v/%v", p1.At(0, 0), s1[0], p2.At(0, 0), s2[0])
	}

	found := false
	for _, w := range warned {
		var ofw *errors.OrderFallbackWarning
		if errors.As(w, &ofw) {
			found = true
		}
	}
	if !found {
		t.Error("expected OrderFallbackWarning to be reported")
	}
}

func TestLocalPolynomialLeverageAndScore(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	X, y := sineSample(150, 0.15, rng)

	lp := NewLocalPolynomial(1, WithBandwidth(bandwidth.New(0.08)))
	if err := lp.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	edf := 0.0
	for i, l := range lp.Leverage() {
		if l <= 0 || l > 1+1e-9 {
			t.Errorf("leverage[%d] = %v outside (0,1]", i, l)
		}
		edf += l
	}
	if math.Abs(edf-lp.EffectiveDF()) > 1e-9 {
		t.Errorf("EffectiveDF %v != sum of leverage %v", lp.EffectiveDF(), edf)
	}

	r2, err := lp.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if r2 < 0.8 {
		t.Errorf("R² = %v, expected a good in-sample fit", r2)
	}
}

func TestLocalPolynomialMultivariate(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	n := 300
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64()
		x1 := rng.Float64()
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		y.Set(i, 0, x0+2*x1+rng.NormFloat64()*0.05)
	}

	lp := NewLocalPolynomial(1, WithBandwidth(bandwidth.New(0.2, 0.2)))
	if err := lp.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := lp.Predict(mat.NewDense(1, 2, []float64{0.5, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := math.Abs(pred.At(0, 0) - 1.5); diff > 0.1 {
		t.Errorf("prediction at (0.5,0.5) off by %v", diff)
	}
}
