// manipcheck analyzes manipulator configurations for closeness to kinematic
// singularity, from a raw Jacobian file or from a kinematics model JSON plus a
// joint configuration.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"github.com/tacbot/manip/gate"
	"github.com/tacbot/manip/kinematics"
	"github.com/tacbot/manip/manipulability"
)

var app = &cli.App{
	Name:            "manipcheck",
	Usage:           "gate manipulator configurations on manipulability",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Value: 1e-3,
			Usage: "minimum acceptable smallest eigenvalue of the manipulability matrix",
		},
		&cli.Float64Flag{
			Name:  "epsilon",
			Value: 1e-9,
			Usage: "tolerance for negative numerical residue in eigenvalues",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "analyze",
			Usage:  "analyze a Jacobian from a JSON file",
			Action: AnalyzeAction,
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     "jacobian",
					Required: true,
					Usage:    "JSON file with rows, cols and row-major data",
				},
			},
		},
		{
			Name:   "check",
			Usage:  "gate one configuration of a kinematics model",
			Action: CheckAction,
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     "model",
					Required: true,
					Usage:    "kinematics model JSON file",
				},
				&cli.Float64SliceFlag{
					Name:     "joints",
					Required: true,
					Usage:    "joint positions, radians for revolute joints",
				},
			},
		},
		{
			Name:   "sample",
			Usage:  "sample configurations of a model until one passes the gate",
			Action: SampleAction,
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     "model",
					Required: true,
					Usage:    "kinematics model JSON file",
				},
				&cli.IntFlag{
					Name:  "attempts",
					Value: 100,
					Usage: "maximum configurations to try",
				},
				&cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed for sampling",
				},
			},
		},
	},
}

func newLogger(c *cli.Context) golog.Logger {
	if c.Bool("debug") {
		return golog.NewDebugLogger("manipcheck")
	}
	return golog.NewLogger("manipcheck")
}

func newAnalyzer(c *cli.Context) (*manipulability.Analyzer, error) {
	return manipulability.NewAnalyzer(
		manipulability.WithThreshold(c.Float64("threshold")),
		manipulability.WithEpsilon(c.Float64("epsilon")),
	)
}

// AnalyzeAction reads a Jacobian file and prints its manipulability measures.
func AnalyzeAction(c *cli.Context) error {
	analyzer, err := newAnalyzer(c)
	if err != nil {
		return err
	}
	jacobian, err := readJacobianFile(c.Path("jacobian"))
	if err != nil {
		return err
	}
	measures, err := analyzer.Analyze(jacobian)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, renderMeasures(measures))
	return exitOnFail(measures.Passed(), analyzer.Threshold(), measures.MinEigenvalue(), c)
}

// CheckAction gates one configuration of a model.
func CheckAction(c *cli.Context) error {
	analyzer, err := newAnalyzer(c)
	if err != nil {
		return err
	}
	model, err := kinematics.ParseModelJSONFile(c.Path("model"), "")
	if err != nil {
		return err
	}
	inputs := kinematics.FloatsToInputs(c.Float64Slice("joints"))
	verdict, err := gate.NewGate(model, analyzer, newLogger(c)).Check(c.Context, inputs)
	if err != nil {
		return err
	}
	if verdict.Measures != nil {
		fmt.Fprintln(c.App.Writer, renderMeasures(verdict.Measures))
		return exitOnFail(verdict.Passed, analyzer.Threshold(), verdict.Measures.MinEigenvalue(), c)
	}
	return cli.Exit("manipulability analysis failed numerically; configuration treated as not passing", 1)
}

// SampleAction samples model configurations until one passes.
func SampleAction(c *cli.Context) error {
	analyzer, err := newAnalyzer(c)
	if err != nil {
		return err
	}
	model, err := kinematics.ParseModelJSONFile(c.Path("model"), "")
	if err != nil {
		return err
	}
	//nolint:gosec
	rSeed := rand.New(rand.NewSource(c.Int64("seed")))
	verdict, err := gate.NewGate(model, analyzer, newLogger(c)).FindPassing(c.Context, rSeed, c.Int("attempts"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, renderConfiguration(model, verdict.Inputs))
	fmt.Fprintln(c.App.Writer, renderMeasures(verdict.Measures))
	return nil
}

func exitOnFail(passed bool, threshold, minEigenvalue float64, c *cli.Context) error {
	if passed {
		fmt.Fprintf(c.App.Writer, "PASS: smallest eigenvalue %g meets threshold %g\n", minEigenvalue, threshold)
		return nil
	}
	return cli.Exit(fmt.Sprintf("FAIL: smallest eigenvalue %g below threshold %g", minEigenvalue, threshold), 1)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
