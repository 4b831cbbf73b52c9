// Package manipulability classifies how well-conditioned a manipulator
// configuration is from its Jacobian. The eigen-decomposition of the
// manipulability matrix J·Jᵗ describes the manipulability ellipsoid: each
// eigenvalue is the squared length of one semi-axis and each eigenvector the
// direction of that axis in task space. A configuration close to a kinematic
// singularity has a near-zero smallest eigenvalue, meaning the end effector
// has almost no velocity authority along that axis.
package manipulability

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Measures is the result of analyzing one configuration. It is immutable once
// returned: eigenvalues are in ascending order, eigenvector column i pairs with
// eigenvalue i, and the pass verdict is fixed at construction from the
// eigenvalues and the analyzer's threshold, so it can never disagree with them.
type Measures struct {
	eigenvalues  []float64
	eigenvectors *mat.Dense
	passed       bool
}

// Eigenvalues returns the eigenvalues of the manipulability matrix in ascending
// order. The returned slice is a copy and may be mutated freely.
func (m *Measures) Eigenvalues() []float64 {
	vals := make([]float64, len(m.eigenvalues))
	copy(vals, m.eigenvalues)
	return vals
}

// MinEigenvalue returns the smallest eigenvalue, the squared length of the
// ellipsoid's shortest semi-axis. This is the quantity gated by the threshold.
func (m *Measures) MinEigenvalue() float64 {
	return m.eigenvalues[0]
}

// NumDirections returns the number of eigenvector columns, equal to the number
// of eigenvalues.
func (m *Measures) NumDirections() int {
	return len(m.eigenvalues)
}

// Passed reports whether the configuration cleared the conditioning threshold.
func (m *Measures) Passed() bool {
	return m.passed
}

// Eigenvector returns a copy of eigenvector column i.
func (m *Measures) Eigenvector(i int) ([]float64, error) {
	if i < 0 || i >= m.NumDirections() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "eigenvector %d of %d", i, m.NumDirections())
	}
	rows, _ := m.eigenvectors.Dims()
	vec := make([]float64, rows)
	mat.Col(vec, i, m.eigenvectors)
	return vec, nil
}

// Direction returns the first three rows of eigenvector column i as a Cartesian
// direction. Only the translational axes are interpreted; if the task space has
// rotational rows beyond the first three they are intentionally excluded. The
// full eigenvector column is unit length, so the truncated direction has norm
// at most 1, reaching 1 only when the eigenvector has no rotational component.
// No normalization is performed here.
func (m *Measures) Direction(i int) (r3.Vector, error) {
	if i < 0 || i >= m.NumDirections() {
		return r3.Vector{}, errors.Wrapf(ErrIndexOutOfRange, "eigenvector %d of %d", i, m.NumDirections())
	}
	rows, _ := m.eigenvectors.Dims()
	if rows < 3 {
		return r3.Vector{}, errors.Wrapf(ErrInvalidInput, "task space has %d rows, need at least 3 for a Cartesian direction", rows)
	}
	return r3.Vector{
		X: m.eigenvectors.At(0, i),
		Y: m.eigenvectors.At(1, i),
		Z: m.eigenvectors.At(2, i),
	}, nil
}
