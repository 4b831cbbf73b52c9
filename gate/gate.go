// Package gate decides whether candidate manipulator configurations are
// acceptable for planning, using the manipulability analyzer's verdict. A
// planner asks it to check single configurations, batches of candidates, or to
// sample until it finds one that clears the conditioning threshold.
package gate

import (
	"context"
	"math/rand"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/tacbot/manip/kinematics"
	"github.com/tacbot/manip/manipulability"
)

// ErrNoPassingConfiguration is returned when sampling exhausts its attempt
// budget without finding a configuration that passes the gate.
var ErrNoPassingConfiguration = errors.New("no passing configuration found")

// Analyzer is the subset of the manipulability analyzer the gate needs.
type Analyzer interface {
	Analyze(j mat.Matrix) (*manipulability.Measures, error)
}

// Verdict is the outcome of gating one configuration. Measures is nil when
// the analysis failed numerically and the configuration was conservatively
// judged not passing.
type Verdict struct {
	Inputs   []kinematics.Input
	Measures *manipulability.Measures
	Passed   bool
}

// Gate checks configurations of one model against one analyzer. It holds no
// mutable state and is safe for concurrent use.
type Gate struct {
	model    *kinematics.SerialModel
	analyzer Analyzer
	logger   golog.Logger
}

// NewGate wires a model and an analyzer together.
func NewGate(model *kinematics.SerialModel, analyzer Analyzer, logger golog.Logger) *Gate {
	return &Gate{model: model, analyzer: analyzer, logger: logger}
}

// Check gates a single configuration. Out-of-bounds or malformed inputs are an
// error, not a failing verdict: they mean the caller handed over a
// configuration that is not a candidate at all. A numerical failure inside the
// analysis, by contrast, yields a not-passing verdict rather than an error, so
// a planning loop degrades to rejecting the configuration instead of crashing.
func (g *Gate) Check(ctx context.Context, inputs []kinematics.Input) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.model.CheckInputs(inputs); err != nil {
		return nil, errors.Wrap(err, "cannot gate configuration")
	}
	jacobian, err := g.model.Jacobian(inputs)
	if err != nil {
		return nil, err
	}
	// the verdict owns its configuration; do not alias the caller's slice
	owned := make([]kinematics.Input, len(inputs))
	copy(owned, inputs)
	measures, err := g.analyzer.Analyze(jacobian)
	if err != nil {
		if errors.Is(err, manipulability.ErrNumerical) {
			g.logger.Debugw("manipulability analysis failed numerically, treating configuration as not passing",
				"model", g.model.Name(), "error", err)
			return &Verdict{Inputs: owned, Passed: false}, nil
		}
		return nil, err
	}
	return &Verdict{Inputs: owned, Measures: measures, Passed: measures.Passed()}, nil
}

// CheckBatch gates candidates concurrently, one goroutine per candidate; robot
// joint counts are small enough that decomposition takes microseconds, so no
// worker pool is warranted. Verdicts come back in candidate order. If any
// candidate errors, all collected errors are returned together and the
// verdicts are discarded.
func (g *Gate) CheckBatch(ctx context.Context, candidates [][]kinematics.Input) ([]*Verdict, error) {
	verdicts := make([]*Verdict, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		i, candidate := i, candidate
		goutils.PanicCapturingGo(func() {
			defer wg.Done()
			verdicts[i], errs[i] = g.Check(ctx, candidate)
		})
	}
	wg.Wait()

	var combined error
	for _, err := range errs {
		combined = multierr.Append(combined, err)
	}
	if combined != nil {
		return nil, combined
	}
	return verdicts, nil
}

// FindPassing samples in-bounds configurations until one passes the gate or
// maxAttempts is exhausted, in which case it returns
// ErrNoPassingConfiguration. A nil rSeed falls back to a fixed seed, matching
// the model's sampling behavior.
func (g *Gate) FindPassing(ctx context.Context, rSeed *rand.Rand, maxAttempts int) (*Verdict, error) {
	if maxAttempts < 1 {
		return nil, errors.Errorf("maxAttempts must be at least 1, got %d", maxAttempts)
	}
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdict, err := g.Check(ctx, g.model.RandomInputs(rSeed))
		if err != nil {
			return nil, err
		}
		if verdict.Passed {
			g.logger.Debugw("found passing configuration",
				"model", g.model.Name(), "attempt", attempt+1)
			return verdict, nil
		}
	}
	return nil, errors.Wrapf(ErrNoPassingConfiguration, "after %d attempts", maxAttempts)
}
