package kinematics

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

const planarModelJSON = `{
	"name": "planar2r",
	"joints": [
		{
			"name": "shoulder",
			"type": "revolute",
			"axis": {"z": 1},
			"translation": {"x": 1},
			"min": -3.14,
			"max": 3.14
		},
		{
			"name": "elbow",
			"type": "revolute",
			"axis": {"z": 1},
			"translation": {"x": 1}
		}
	]
}`

func TestUnmarshalModelJSON(t *testing.T) {
	model, err := UnmarshalModelJSON([]byte(planarModelJSON), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Name(), test.ShouldEqual, "planar2r")
	test.That(t, model.JointNames(), test.ShouldResemble, []string{"shoulder", "elbow"})

	limits := model.DoF()
	test.That(t, limits, test.ShouldHaveLength, 2)
	test.That(t, limits[0].Min, test.ShouldAlmostEqual, -3.14)
	test.That(t, limits[0].Max, test.ShouldAlmostEqual, 3.14)
	// absent bounds default to a full revolution either way
	test.That(t, limits[1].Min, test.ShouldAlmostEqual, -2*math.Pi)
	test.That(t, limits[1].Max, test.ShouldAlmostEqual, 2*math.Pi)

	t.Run("explicit name wins", func(t *testing.T) {
		named, err := UnmarshalModelJSON([]byte(planarModelJSON), "override")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, named.Name(), test.ShouldEqual, "override")
	})
}

func TestUnmarshalModelJSONErrors(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		_, err := UnmarshalModelJSON(nil, "")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrNoModelInformation), test.ShouldBeTrue)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := UnmarshalModelJSON([]byte(`{"joints": [`), "")
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("unsupported joint type", func(t *testing.T) {
		_, err := UnmarshalModelJSON([]byte(`{
			"name": "bad",
			"joints": [{"name": "j", "type": "helical", "axis": {"z": 1}}]
		}`), "")
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseModelJSONFile("nonexistent.json", "")
		test.That(t, err, test.ShouldNotBeNil)
	})
}
