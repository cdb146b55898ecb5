package kernel

import (
	"math"
	"testing"
)

var allKinds = []Kind{Gaussian, Epanechnikov, Uniform, Biweight}

func TestKernelSymmetry(t *testing.T) {
	us := []float64{0, 0.1, 0.5, 0.99, 1.0, 1.5, 3.0, 8.0}
	for _, k := range allKinds {
		for _, u := range us {
			if got, want := k.Weight(-u), k.Weight(u); got != want {
				t.Errorf("%v: K(-%v)=%v != K(%v)=%v", k, u, got, u, want)
			}
		}
	}
}

func TestKernelNonnegative(t *testing.T) {
	for _, k := range allKinds {
		for u := -10.0; u <= 10.0; u += 0.01 {
			if k.Weight(u) < 0 {
				t.Fatalf("%v: K(%v) = %v < 0", k, u, k.Weight(u))
			}
		}
	}
}

// 台形則による数値積分で ∫K(u)du ≈ 1 を確認する。
// コンパクトサポートのカーネルは±1の不連続点に格子を合わせて
// サポート区間そのものを積分する
func TestKernelNormalization(t *testing.T) {
	const steps = 200000

	support := map[Kind][2]float64{
		Gaussian:     {-12, 12},
		Epanechnikov: {-1, 1},
		Uniform:      {-1, 1},
		Biweight:     {-1, 1},
	}
	for _, k := range allKinds {
		lo, hi := support[k][0], support[k][1]
		h := (hi - lo) / steps
		sum := 0.5 * (k.Weight(lo) + k.Weight(hi))
		for i := 1; i < steps; i++ {
			sum += k.Weight(lo + float64(i)*h)
		}
		integral := sum * h
		if math.Abs(integral-1.0) > 1e-6 {
			t.Errorf("%v: integral = %v, want 1.0", k, integral)
		}
	}
}

func TestCompactSupport(t *testing.T) {
	for _, k := range []Kind{Epanechnikov, Uniform, Biweight} {
		for _, u := range []float64{1.0001, 2, 100, math.Inf(1)} {
			if k.Weight(u) != 0 {
				t.Errorf("%v: K(%v) = %v, want 0", k, u, k.Weight(u))
			}
		}
	}
}

func TestGaussianExtremeDistances(t *testing.T) {
	// 極端な距離でもNaNにならずアンダーフローで0になる
	for _, u := range []float64{50, 1000, 1e8} {
		w := Gaussian.Weight(u)
		if math.IsNaN(w) || w != 0 && w > 1e-300 {
			t.Errorf("Gaussian.Weight(%v) = %v, expected underflow toward 0", u, w)
		}
	}
}

func TestProductWeight(t *testing.T) {
	x := []float64{0.5, 0.5}
	x0 := []float64{0.4, 0.6}
	h := []float64{0.2, 0.2}

	want := Gaussian.Weight(0.5) * Gaussian.Weight(-0.5)
	got := Gaussian.ProductWeight(x, x0, h)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("ProductWeight = %v, want %v", got, want)
	}

	// コンパクトカーネルでは1次元でもサポート外なら積全体が0
	far := []float64{0.5, 5.0}
	if w := Epanechnikov.ProductWeight(far, x0, h); w != 0 {
		t.Errorf("expected 0 outside support, got %v", w)
	}
}

func TestNormalizedProductWeight(t *testing.T) {
	x := []float64{0.0}
	x0 := []float64{0.0}
	h := []float64{0.5}
	want := Gaussian.Weight(0) / 0.5
	if got := Gaussian.NormalizedProductWeight(x, x0, h); math.Abs(got-want) > 1e-15 {
		t.Errorf("NormalizedProductWeight = %v, want %v", got, want)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range allKinds {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), parsed, k)
		}
	}
	if _, err := ParseKind("triweight"); err == nil {
		t.Error("expected error for unknown kernel name")
	}
}
