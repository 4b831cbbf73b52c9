package kinematics

import (
	"encoding/json"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNoModelInformation is used when there is no model information.
var ErrNoModelInformation = errors.New("no model information")

// ModelConfigJSON represents all supported fields in a kinematics JSON file.
type ModelConfigJSON struct {
	Name   string        `json:"name"`
	Joints []JointConfig `json:"joints"`
}

// JointConfig is the JSON description of one joint in the chain.
type JointConfig struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Axis        VectorConfig `json:"axis"`
	Translation VectorConfig `json:"translation"`
	Min         *float64     `json:"min,omitempty"`
	Max         *float64     `json:"max,omitempty"`
}

// VectorConfig is the JSON form of a 3D vector.
type VectorConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ParseConfig converts a VectorConfig into an r3.Vector.
func (v VectorConfig) ParseConfig() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// UnmarshalModelJSON parses the given JSON data into a serial model. modelName
// sets the name of the model; the name from the JSON is used if it is empty.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*SerialModel, error) {
	// empty data probably means the caller read a file that has no model information
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}

	cfg := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	return cfg.ParseConfig(modelName)
}

// ParseModelJSONFile reads a kinematics JSON file from the given path and
// parses it into a serial model.
func ParseModelJSONFile(filename, modelName string) (*SerialModel, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}

// ParseConfig converts the ModelConfigJSON struct into a validated SerialModel
// with the name modelName.
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (*SerialModel, error) {
	if modelName == "" {
		modelName = cfg.Name
	}

	joints := make([]Joint, 0, len(cfg.Joints))
	for _, jc := range cfg.Joints {
		limit := Limit{Min: defaultLimit(jc.Min, -1), Max: defaultLimit(jc.Max, 1)}
		joints = append(joints, Joint{
			Name:        jc.Name,
			Type:        JointType(jc.Type),
			Axis:        jc.Axis.ParseConfig(),
			Translation: jc.Translation.ParseConfig(),
			Limit:       limit,
		})
	}
	return NewSerialModel(modelName, joints)
}

// defaultLimit substitutes ±2π for an absent bound, a full revolution in
// either direction.
func defaultLimit(bound *float64, sign float64) float64 {
	if bound != nil {
		return *bound
	}
	return sign * 2 * math.Pi
}
