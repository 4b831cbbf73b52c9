package manipulability

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func identityJacobian(n int) *mat.Dense {
	j := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		j.Set(i, i, 1)
	}
	return j
}

func TestAnalyzeIdentity(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)

	measures, err := analyzer.Analyze(identityJacobian(6))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, measures.NumDirections(), test.ShouldEqual, 6)
	test.That(t, measures.Passed(), test.ShouldBeTrue)
	for _, val := range measures.Eigenvalues() {
		test.That(t, val, test.ShouldAlmostEqual, 1, 1e-9)
	}
	// the eigenvectors of the identity are the standard basis, in some order
	for i := 0; i < measures.NumDirections(); i++ {
		vec, err := measures.Eigenvector(i)
		test.That(t, err, test.ShouldBeNil)
		maxAbs := 0.0
		for _, v := range vec {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
		test.That(t, maxAbs, test.ShouldAlmostEqual, 1, 1e-9)
	}

	t.Run("boundary equality passes", func(t *testing.T) {
		boundary, err := NewAnalyzer(WithThreshold(1))
		test.That(t, err, test.ShouldBeNil)
		measures, err := boundary.Analyze(identityJacobian(6))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, measures.Passed(), test.ShouldBeTrue)
	})
}

func TestAnalyzeSingularConfiguration(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)

	// an identity Jacobian with one zeroed row loses all velocity authority
	// along that task axis
	j := identityJacobian(6)
	j.Set(5, 5, 0)
	measures, err := analyzer.Analyze(j)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, measures.MinEigenvalue(), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, measures.MinEigenvalue(), test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, measures.Passed(), test.ShouldBeFalse)

	t.Run("fails for any positive threshold", func(t *testing.T) {
		tiny, err := NewAnalyzer(WithThreshold(1e-300))
		test.That(t, err, test.ShouldBeNil)
		measures, err := tiny.Analyze(j)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, measures.Passed(), test.ShouldBeFalse)
	})
}

func TestAnalyzeRankDeficientWide(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)

	// a 6x2 Jacobian spans at most 2 task dimensions, so the 6x6
	// manipulability matrix must have at least 4 zero eigenvalues
	j := mat.NewDense(6, 2, []float64{
		1, 0,
		0, 1,
		0, 0,
		0, 0,
		0, 0,
		0, 0,
	})
	measures, err := analyzer.Analyze(j)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, measures.NumDirections(), test.ShouldEqual, 6)
	vals := measures.Eigenvalues()
	for i := 0; i < 4; i++ {
		test.That(t, vals[i], test.ShouldAlmostEqual, 0, 1e-9)
	}
	test.That(t, measures.Passed(), test.ShouldBeFalse)
}

type emptyMatrix struct{}

func (emptyMatrix) Dims() (int, int) { return 0, 0 }

func (emptyMatrix) At(_, _ int) float64 { panic("empty matrix has no entries") }

func (m emptyMatrix) T() mat.Matrix { return m }

func TestAnalyzeInvalidInput(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)

	t.Run("nil jacobian", func(t *testing.T) {
		_, err := analyzer.Analyze(nil)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
	})

	t.Run("zero-dimension jacobian", func(t *testing.T) {
		_, err := analyzer.Analyze(emptyMatrix{})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
	})

	t.Run("NaN entry", func(t *testing.T) {
		j := identityJacobian(6)
		j.Set(2, 3, math.NaN())
		measures, err := analyzer.Analyze(j)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
		test.That(t, measures, test.ShouldBeNil)
	})

	t.Run("Inf entry", func(t *testing.T) {
		j := identityJacobian(6)
		j.Set(0, 0, math.Inf(1))
		_, err := analyzer.Analyze(j)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
	})
}

func TestAnalyzerOptions(t *testing.T) {
	t.Run("threshold must be positive", func(t *testing.T) {
		_, err := NewAnalyzer(WithThreshold(0))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
		_, err = NewAnalyzer(WithThreshold(-1))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("epsilon must be positive", func(t *testing.T) {
		_, err := NewAnalyzer(WithEpsilon(0))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidInput), test.ShouldBeTrue)
	})

	t.Run("threshold is what was configured", func(t *testing.T) {
		analyzer, err := NewAnalyzer(WithThreshold(0.25))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, analyzer.Threshold(), test.ShouldEqual, 0.25)
	})
}

func TestAnalyzeProperties(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	rSeed := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		j := mat.NewDense(6, 7, nil)
		for r := 0; r < 6; r++ {
			for c := 0; c < 7; c++ {
				j.Set(r, c, rSeed.NormFloat64())
			}
		}
		measures, err := analyzer.Analyze(j)
		test.That(t, err, test.ShouldBeNil)

		vals := measures.Eigenvalues()
		test.That(t, len(vals), test.ShouldEqual, measures.NumDirections())
		for i, val := range vals {
			test.That(t, val, test.ShouldBeGreaterThanOrEqualTo, 0)
			if i > 0 {
				test.That(t, val, test.ShouldBeGreaterThanOrEqualTo, vals[i-1])
			}
		}
		test.That(t, measures.Passed(), test.ShouldEqual, vals[0] >= analyzer.Threshold())

		// eigenvector columns are unit length and pairwise orthogonal
		for a := 0; a < measures.NumDirections(); a++ {
			vecA, err := measures.Eigenvector(a)
			test.That(t, err, test.ShouldBeNil)
			var norm float64
			for _, v := range vecA {
				norm += v * v
			}
			test.That(t, math.Sqrt(norm), test.ShouldAlmostEqual, 1, 1e-6)
			for b := a + 1; b < measures.NumDirections(); b++ {
				vecB, err := measures.Eigenvector(b)
				test.That(t, err, test.ShouldBeNil)
				var dot float64
				for i := range vecA {
					dot += vecA[i] * vecB[i]
				}
				test.That(t, math.Abs(dot), test.ShouldBeLessThan, 1e-6)
			}
		}
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	analyzer, err := NewAnalyzer()
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	rSeed := rand.New(rand.NewSource(7))
	data := make([]float64, 6*6)
	for i := range data {
		data[i] = rSeed.NormFloat64()
	}
	j := mat.NewDense(6, 6, data)

	first, err := analyzer.Analyze(j)
	test.That(t, err, test.ShouldBeNil)
	second, err := analyzer.Analyze(j)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, second.Eigenvalues(), test.ShouldResemble, first.Eigenvalues())
	test.That(t, second.Passed(), test.ShouldEqual, first.Passed())
	for i := 0; i < first.NumDirections(); i++ {
		vecFirst, err := first.Eigenvector(i)
		test.That(t, err, test.ShouldBeNil)
		vecSecond, err := second.Eigenvector(i)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, vecSecond, test.ShouldResemble, vecFirst)
	}
}
