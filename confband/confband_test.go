package confband

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/npreg/dataset"
	"github.com/YuminosukeSato/npreg/pkg/errors"
)

func TestBuilderValidation(t *testing.T) {
	X, y := dataset.NonlinearHomoscedastic(50, 1)
	query := dataset.Linspace(0.2, 0.8, 5)

	cases := []func(*Builder){
		func(b *Builder) { b.Coverage = 0 },
		func(b *Builder) { b.Coverage = 1 },
		func(b *Builder) { b.Order = -1 },
		func(b *Builder) { b.NBootstrap = 1 },
		func(b *Builder) { b.UndersmoothFactor = 0 },
		func(b *Builder) { b.UndersmoothFactor = 1.5 },
	}
	for i, mutate := range cases {
		b := NewBuilder()
		mutate(b)
		_, err := b.Build(X, y, query)
		var valErr *errors.ValueError
		if !errors.As(err, &valErr) {
			t.Errorf("case %d: expected *ValueError, got %v", i, err)
		}
	}
}

func TestBuildDimensionMismatch(t *testing.T) {
	X, y := dataset.NonlinearHomoscedastic(50, 2)
	badQuery := mat.NewDense(5, 2, nil)

	_, err := NewBuilder().Build(X, y, badQuery)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("expected *DimensionError, got %v", err)
	}
}

func TestBandOrdering(t *testing.T) {
	X, y := dataset.Trumpet(150, 3, 0.8)
	query := dataset.Linspace(0.05, 0.95, 40)

	b := NewBuilder()
	b.NBootstrap = 200
	b.Seed = 9
	band, err := b.Build(X, y, query)
	if err != nil {
		t.Fatal(err)
	}

	for q := 0; q < 40; q++ {
		lo := band.Lower.AtVec(q)
		c := band.Center.AtVec(q)
		hi := band.Upper.AtVec(q)
		if !(lo <= c && c <= hi) {
			t.Errorf("query %d: band not ordered: %v / %v / %v", q, lo, c, hi)
		}
		if hi-lo <= 0 {
			t.Errorf("query %d: band has no width", q)
		}
	}
}

func TestBuildDeterministicGivenSeed(t *testing.T) {
	X, y := dataset.NonlinearHomoscedastic(100, 5)
	query := dataset.Linspace(0.1, 0.9, 10)

	build := func(seed int64) *Band {
		b := NewBuilder()
		b.NBootstrap = 100
		b.Seed = seed
		band, err := b.Build(X, y, query)
		if err != nil {
			t.Fatal(err)
		}
		return band
	}

	b1 := build(42)
	b2 := build(42)
	for q := 0; q < 10; q++ {
		if b1.Lower.AtVec(q) != b2.Lower.AtVec(q) || b1.Upper.AtVec(q) != b2.Upper.AtVec(q) {
			t.Fatalf("same seed produced different bands at query %d", q)
		}
	}

	b3 := build(43)
	identical := true
	for q := 0; q < 10; q++ {
		if b1.Lower.AtVec(q) != b3.Lower.AtVec(q) {
			identical = false
			break
		}
	}
	if identical {
		t.Error("different seeds produced identical bands")
	}
}

func TestHigherCoverageWidensBand(t *testing.T) {
	X, y := dataset.NonlinearHomoscedastic(120, 7)
	query := dataset.Linspace(0.1, 0.9, 15)

	width := func(coverage float64) float64 {
		b := NewBuilder()
		b.NBootstrap = 200
		b.Seed = 11
		b.Coverage = coverage
		band, err := b.Build(X, y, query)
		if err != nil {
			t.Fatal(err)
		}
		var total float64
		for q := 0; q < 15; q++ {
			total += band.Upper.AtVec(q) - band.Lower.AtVec(q)
		}
		return total
	}

	w80 := width(0.80)
	w99 := width(0.99)
	if w99 <= w80 {
		t.Errorf("99%% band (total width %v) should be wider than 80%% band (%v)", w99, w80)
	}
}

// 内部の問い合わせ点で真の関数がバンドにほぼ収まる
func TestBandContainsTruth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping coverage check in short mode")
	}

	X, y := dataset.NonlinearHomoscedastic(200, 13)
	nq := 50
	query := dataset.Linspace(0.1, 0.9, nq)

	b := NewBuilder()
	b.NBootstrap = 300
	b.Seed = 17
	band, err := b.Build(X, y, query)
	if err != nil {
		t.Fatal(err)
	}

	covered := 0
	for q := 0; q < nq; q++ {
		truth := math.Sin(2 * math.Pi * query.At(q, 0))
		if band.Lower.AtVec(q) <= truth && truth <= band.Upper.AtVec(q) {
			covered++
		}
	}
	if rate := float64(covered) / float64(nq); rate < 0.8 {
		t.Errorf("truth covered at %v of interior query points, want at least 0.8", rate)
	}
}
