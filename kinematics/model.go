// Package kinematics models a serial manipulator just far enough to supply
// Jacobians: an ordered chain of revolute and prismatic joints with fixed link
// offsets. The geometric Jacobian it produces maps joint velocities to
// end-effector spatial velocity, which is what the manipulability analyzer
// consumes.
package kinematics

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/tacbot/manip/utils"
)

// JointType distinguishes how a joint moves along its axis.
type JointType string

const (
	// JointTypeRevolute rotates about its axis.
	JointTypeRevolute JointType = "revolute"
	// JointTypePrismatic translates along its axis.
	JointTypePrismatic JointType = "prismatic"
)

// Joint describes one degree of freedom in a serial chain. Axis is expressed in
// the joint's local frame and must be nonzero; it is normalized to unit length
// when the model is built. Translation is the fixed link offset that follows
// the joint, also in the local frame.
type Joint struct {
	Name        string
	Type        JointType
	Axis        r3.Vector
	Translation r3.Vector
	Limit       Limit
}

// SerialModel is an immutable serial kinematic chain. Build one with
// NewSerialModel or from JSON with UnmarshalModelJSON; all methods are safe for
// concurrent use.
type SerialModel struct {
	name   string
	joints []Joint
}

// NewSerialModel validates the joint chain and returns a model. All validation
// faults are collected and reported together.
func NewSerialModel(name string, joints []Joint) (*SerialModel, error) {
	var errs error
	if len(joints) == 0 {
		errs = multierr.Append(errs, errors.New("model must have at least one joint"))
	}
	seen := map[string]bool{}
	for i, joint := range joints {
		if joint.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("joint %d has no name", i))
		} else if seen[joint.Name] {
			errs = multierr.Append(errs, errors.Errorf("duplicate joint name %q", joint.Name))
		}
		seen[joint.Name] = true
		if joint.Type != JointTypeRevolute && joint.Type != JointTypePrismatic {
			errs = multierr.Append(errs, errors.Errorf("joint %q has unsupported type %q", joint.Name, joint.Type))
		}
		if utils.Float64AlmostEqual(joint.Axis.Norm(), 0, 1e-10) {
			errs = multierr.Append(errs, errors.Errorf("joint %q has a zero axis", joint.Name))
		}
		if joint.Limit.Min > joint.Limit.Max {
			errs = multierr.Append(errs, errors.Errorf("joint %q limit min %f exceeds max %f", joint.Name, joint.Limit.Min, joint.Limit.Max))
		}
		for _, v := range []float64{
			joint.Axis.X, joint.Axis.Y, joint.Axis.Z,
			joint.Translation.X, joint.Translation.Y, joint.Translation.Z,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = multierr.Append(errs, errors.Errorf("joint %q axis or translation contains a non-finite value", joint.Name))
				break
			}
		}
		// Infinite limits are legal (an unlimited joint); NaN is not.
		if math.IsNaN(joint.Limit.Min) || math.IsNaN(joint.Limit.Max) {
			errs = multierr.Append(errs, errors.Errorf("joint %q limit contains a NaN value", joint.Name))
		}
	}
	if errs != nil {
		return nil, errs
	}

	owned := make([]Joint, len(joints))
	copy(owned, joints)
	for i := range owned {
		owned[i].Axis = owned[i].Axis.Normalize()
	}
	return &SerialModel{name: name, joints: owned}, nil
}

// Name returns the model name.
func (m *SerialModel) Name() string {
	return m.name
}

// DoF returns the limits of each joint in chain order.
func (m *SerialModel) DoF() []Limit {
	limits := make([]Limit, len(m.joints))
	for i, joint := range m.joints {
		limits[i] = joint.Limit
	}
	return limits
}

// JointNames returns the joint names in chain order.
func (m *SerialModel) JointNames() []string {
	names := make([]string, len(m.joints))
	for i, joint := range m.joints {
		names[i] = joint.Name
	}
	return names
}

// JointTypes returns the joint types in chain order.
func (m *SerialModel) JointTypes() []JointType {
	types := make([]JointType, len(m.joints))
	for i, joint := range m.joints {
		types[i] = joint.Type
	}
	return types
}

// CheckInputs verifies that inputs has one entry per joint and that every
// entry is finite and within its joint's limits.
func (m *SerialModel) CheckInputs(inputs []Input) error {
	if len(inputs) != len(m.joints) {
		return errors.Errorf("expected %d inputs, got %d", len(m.joints), len(inputs))
	}
	for i, inp := range inputs {
		if math.IsNaN(inp.Value) || math.IsInf(inp.Value, 0) {
			return errors.Errorf("joint %q input is not finite: %v", m.joints[i].Name, inp.Value)
		}
		if inp.Value < m.joints[i].Limit.Min || inp.Value > m.joints[i].Limit.Max {
			return errors.Errorf("joint %q input %f out of bounds [%f, %f]",
				m.joints[i].Name, inp.Value, m.joints[i].Limit.Min, m.joints[i].Limit.Max)
		}
	}
	return nil
}

// RandomInputs produces one in-bounds input per joint. Infinite limits are
// restricted to [-999, 999] to keep sampling meaningful.
func (m *SerialModel) RandomInputs(rSeed *rand.Rand) []Input {
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	inputs := make([]Input, 0, len(m.joints))
	for _, joint := range m.joints {
		l, u := joint.Limit.Min, joint.Limit.Max
		if l == math.Inf(-1) {
			l = -999
		}
		if u == math.Inf(1) {
			u = 999
		}
		inputs = append(inputs, Input{l + rSeed.Float64()*(u-l)})
	}
	return inputs
}

// EndEffectorPosition computes the world position of the end of the chain at
// the given configuration.
func (m *SerialModel) EndEffectorPosition(inputs []Input) (r3.Vector, error) {
	pos, _, _, _, err := m.forward(inputs)
	return pos, err
}

// Jacobian computes the 6×n geometric Jacobian at the given configuration.
// Rows 0-2 are the linear velocity map, rows 3-5 the angular. Column i is
// [z_i × (p_e − p_i); z_i] for a revolute joint and [z_i; 0] for a prismatic
// one, all in world coordinates.
func (m *SerialModel) Jacobian(inputs []Input) (*mat.Dense, error) {
	endPos, _, origins, axes, err := m.forward(inputs)
	if err != nil {
		return nil, err
	}
	jac := mat.NewDense(6, len(m.joints), nil)
	for i, joint := range m.joints {
		var linear, angular r3.Vector
		switch joint.Type {
		case JointTypeRevolute:
			linear = axes[i].Cross(endPos.Sub(origins[i]))
			angular = axes[i]
		case JointTypePrismatic:
			linear = axes[i]
		}
		jac.SetCol(i, []float64{linear.X, linear.Y, linear.Z, angular.X, angular.Y, angular.Z})
	}
	return jac, nil
}

// forward walks the chain once, returning the end-effector position and
// orientation plus each joint's world-frame origin and axis, which the
// Jacobian needs.
func (m *SerialModel) forward(inputs []Input) (r3.Vector, *mat.Dense, []r3.Vector, []r3.Vector, error) {
	if len(inputs) != len(m.joints) {
		return r3.Vector{}, nil, nil, nil, errors.Errorf("expected %d inputs, got %d", len(m.joints), len(inputs))
	}
	for i, inp := range inputs {
		if math.IsNaN(inp.Value) || math.IsInf(inp.Value, 0) {
			return r3.Vector{}, nil, nil, nil, errors.Errorf("joint %q input is not finite: %v", m.joints[i].Name, inp.Value)
		}
	}

	rot := identity3()
	var pos r3.Vector
	origins := make([]r3.Vector, len(m.joints))
	axes := make([]r3.Vector, len(m.joints))
	for i, joint := range m.joints {
		origins[i] = pos
		// Rotation about an axis leaves the axis itself fixed, so a revolute
		// joint's world axis can be taken before applying its own angle.
		axes[i] = rotate(rot, joint.Axis)
		switch joint.Type {
		case JointTypeRevolute:
			rot = matMul(rot, axisAngleMatrix(joint.Axis, inputs[i].Value))
		case JointTypePrismatic:
			pos = pos.Add(axes[i].Mul(inputs[i].Value))
		}
		pos = pos.Add(rotate(rot, joint.Translation))
	}
	return pos, rot, origins, axes, nil
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

func matMul(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func rotate(r *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}

// axisAngleMatrix builds the rotation matrix for a rotation of theta radians
// about the given unit axis, by the Rodrigues formula.
func axisAngleMatrix(axis r3.Vector, theta float64) *mat.Dense {
	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z
	return mat.NewDense(3, 3, []float64{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	})
}
