package manipulability

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultThreshold = 1e-3
	defaultEpsilon   = 1e-9
)

// Analyzer computes the eigen-decomposition of a Jacobian's manipulability
// matrix and gates it against a conditioning threshold. It has no state between
// calls; its configuration is fixed at construction, so a single Analyzer is
// safe for concurrent use. To change thresholds at runtime, construct a new
// Analyzer rather than mutating one shared by in-flight calls.
type Analyzer struct {
	threshold float64
	epsilon   float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreshold sets the minimum acceptable smallest eigenvalue. Configurations
// whose smallest eigenvalue is below it are considered too close to a
// singularity. Must be positive.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

// WithEpsilon sets the tolerance for negative numerical residue in computed
// eigenvalues. Residue within epsilon of zero is clamped to zero; residue
// beyond it fails the analysis. Must be positive.
func WithEpsilon(epsilon float64) Option {
	return func(a *Analyzer) {
		a.epsilon = epsilon
	}
}

// NewAnalyzer returns an Analyzer with the default threshold (1e-3) and
// epsilon (1e-9) unless overridden.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{threshold: defaultThreshold, epsilon: defaultEpsilon}
	for _, opt := range opts {
		opt(a)
	}
	if a.threshold <= 0 || math.IsNaN(a.threshold) || math.IsInf(a.threshold, 0) {
		return nil, errors.Wrapf(ErrInvalidInput, "threshold must be a positive finite number, got %v", a.threshold)
	}
	if a.epsilon <= 0 || math.IsNaN(a.epsilon) || math.IsInf(a.epsilon, 0) {
		return nil, errors.Wrapf(ErrInvalidInput, "epsilon must be a positive finite number, got %v", a.epsilon)
	}
	return a, nil
}

// Threshold returns the configured conditioning threshold.
func (a *Analyzer) Threshold() float64 {
	return a.threshold
}

// Analyze decomposes the manipulability ellipsoid of the given Jacobian.
//
// The manipulability matrix is always formed as M = J·Jᵗ, so its eigenvectors
// live in task (Cartesian) space and Measures.Direction yields task-space
// directions. Eigenvalues come back in ascending order: index 0 is the weakest
// direction of the ellipsoid. The verdict is the min-eigenvalue gate,
// pass = (λ_min ≥ threshold), with boundary equality passing. The product of
// eigenvalues (Yoshikawa's manipulability index) is a known alternative gate
// and is deliberately not what this implements.
//
// Analyze does not retain j and performs no I/O or logging. Malformed input
// (nil, empty, or non-finite entries) fails with ErrInvalidInput; a
// decomposition that does not converge or violates positive semi-definiteness
// beyond epsilon fails with ErrNumerical. Neither failure is retried here:
// the computation is deterministic, so the caller must change the input.
func (a *Analyzer) Analyze(j mat.Matrix) (*Measures, error) {
	if j == nil {
		return nil, errors.Wrap(ErrInvalidInput, "jacobian is nil")
	}
	rows, cols := j.Dims()
	if rows < 1 || cols < 1 {
		return nil, errors.Wrapf(ErrInvalidInput, "jacobian must have at least one row and one column, got %dx%d", rows, cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := j.At(r, c); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(ErrInvalidInput, "jacobian entry (%d,%d) is not finite: %v", r, c, v)
			}
		}
	}

	// M = J·Jᵗ is symmetric, so only the upper triangle needs computing.
	m := mat.NewSymDense(rows, nil)
	for r := 0; r < rows; r++ {
		for k := r; k < rows; k++ {
			var sum float64
			for c := 0; c < cols; c++ {
				sum += j.At(r, c) * j.At(k, c)
			}
			m.SetSym(r, k, sum)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return nil, errors.Wrap(ErrNumerical, "eigen-decomposition did not converge")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	for i, v := range vals {
		if v < 0 {
			if v < -a.epsilon {
				return nil, errors.Wrapf(ErrNumerical, "eigenvalue %d is %g, beyond the PSD tolerance %g", i, v, a.epsilon)
			}
			vals[i] = 0
		}
	}

	// gonum returns ascending eigenvalues; clamping can only have touched the
	// low end, but verify rather than assume so the ordering invariant holds
	// regardless of the backing implementation.
	if !sort.Float64sAreSorted(vals) {
		vals, vecs = sortEigenPairs(vals, vecs)
	}

	return &Measures{
		eigenvalues:  vals,
		eigenvectors: &vecs,
		passed:       vals[0] >= a.threshold,
	}, nil
}

// sortEigenPairs orders eigenvalue/eigenvector pairs ascending by eigenvalue,
// breaking ties by original index so identical input yields identical output.
func sortEigenPairs(vals []float64, vecs mat.Dense) ([]float64, mat.Dense) {
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})

	sortedVals := make([]float64, n)
	rows, _ := vecs.Dims()
	var sortedVecs mat.Dense
	sortedVecs.ReuseAs(rows, n)
	col := make([]float64, rows)
	for dst, src := range order {
		sortedVals[dst] = vals[src]
		mat.Col(col, src, &vecs)
		sortedVecs.SetCol(dst, col)
	}
	return sortedVals, sortedVecs
}
