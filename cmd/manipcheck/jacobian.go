package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/tacbot/manip/kinematics"
	"github.com/tacbot/manip/manipulability"
	"github.com/tacbot/manip/utils"
)

// jacobianFile is the on-disk form of a Jacobian: dimensions plus row-major data.
type jacobianFile struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func readJacobianFile(path string) (*mat.Dense, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read jacobian file")
	}
	return decodeJacobian(data)
}

func decodeJacobian(data []byte) (*mat.Dense, error) {
	var jf jacobianFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal jacobian file")
	}
	if jf.Rows < 1 || jf.Cols < 1 {
		return nil, errors.Errorf("jacobian dimensions must be positive, got %dx%d", jf.Rows, jf.Cols)
	}
	if len(jf.Data) != jf.Rows*jf.Cols {
		return nil, errors.Errorf("jacobian data has %d entries, want %d for a %dx%d matrix",
			len(jf.Data), jf.Rows*jf.Cols, jf.Rows, jf.Cols)
	}
	return mat.NewDense(jf.Rows, jf.Cols, jf.Data), nil
}

// renderMeasures prints one row per ellipsoid axis, weakest first. The axis
// length is the square root of the eigenvalue, the ellipsoid semi-axis itself.
func renderMeasures(m *manipulability.Measures) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Eigenvalue", "Axis Length", "Direction"})
	vals := m.Eigenvalues()
	for i := 0; i < m.NumDirections(); i++ {
		eig := vals[i]
		dirString := "n/a"
		if dir, err := m.Direction(i); err == nil {
			dirString = fmt.Sprintf("X:%.4f, Y:%.4f, Z:%.4f", dir.X, dir.Y, dir.Z)
		}
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.6g", eig),
			fmt.Sprintf("%.6g", math.Sqrt(eig)),
			dirString,
		})
	}
	return t.Render()
}

func renderConfiguration(model *kinematics.SerialModel, inputs []kinematics.Input) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Joint", "Position", "Degrees"})
	names := model.JointNames()
	types := model.JointTypes()
	for i, inp := range inputs {
		degrees := ""
		if types[i] == kinematics.JointTypeRevolute {
			degrees = fmt.Sprintf("%.2f", utils.RadToDeg(inp.Value))
		}
		t.AppendRow([]interface{}{names[i], fmt.Sprintf("%.6f", inp.Value), degrees})
	}
	return t.Render()
}
