package manipulability

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned when a caller supplies a malformed Jacobian or
	// asks for a direction the result cannot provide. It indicates a caller bug;
	// the input should be fixed upstream rather than retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumerical is returned when the eigen-decomposition fails to converge or
	// produces eigenvalues violating positive semi-definiteness beyond tolerance.
	// Callers in a planning loop should treat this as a not-passing verdict
	// rather than crash.
	ErrNumerical = errors.New("numerical failure")

	// ErrIndexOutOfRange is returned when an eigenvector index does not exist.
	ErrIndexOutOfRange = errors.New("index out of range")
)
