// Package sensor holds the drone/payload profiles and the overlap and
// trigger formulas derived from them.
package sensor

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownSensor  = errors.New("unknown sensor")
	ErrInvalidProfile = errors.New("invalid sensor profile")
)

// Kind is the overlap sensor class of a payload.
type Kind string

const (
	KindRGB   Kind = "RGB"
	KindMS    Kind = "MS"
	KindLidar Kind = "LS"
)

// IsCamera reports whether the payload maps with a camera only.
func (k Kind) IsCamera() bool {
	return k == KindRGB || k == KindMS
}

// Enum is a DJI enum/sub-enum pair as written to droneInfo and payloadInfo.
type Enum struct {
	Value    int `yaml:"value"`
	SubValue int `yaml:"subValue"`
}

// Profile describes a drone/payload combination. A zero field of view means
// the value is unknown.
type Profile struct {
	Name          string    `yaml:"name"`
	Description   string    `yaml:"description"`
	Kind          Kind      `yaml:"kind"`
	SensorFactor  float64   `yaml:"sensorFactor"`
	Altitude      float64   `yaml:"altitude"`
	SideOverlap   float64   `yaml:"sideOverlap"`
	FrontOverlap  float64   `yaml:"frontOverlap"`
	HorizontalFOV float64   `yaml:"horizontalFov"`
	VerticalFOV   float64   `yaml:"verticalFov"`
	SecondaryHFOV float64   `yaml:"secondaryHfov"`
	SecondaryVFOV float64   `yaml:"secondaryVfov"`
	Coefficients  []float64 `yaml:"coefficients"`
	FlightSpeed   float64   `yaml:"flightSpeed"`
	LidarReturns  int       `yaml:"lidarReturns"`
	SamplingRate  int       `yaml:"samplingRate"`
	ScanningMode  string    `yaml:"scanningMode"`
	ImageFormat   string    `yaml:"imageFormat"`
	Drone         Enum      `yaml:"drone"`
	Payload       Enum      `yaml:"payload"`
}

// Validate checks the fields every formula depends on.
func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	case p.Kind != KindRGB && p.Kind != KindMS && p.Kind != KindLidar:
		return fmt.Errorf("%w: %s: kind %q", ErrInvalidProfile, p.Name, p.Kind)
	case len(p.Coefficients) != 2:
		return fmt.Errorf("%w: %s: need 2 spacing coefficients, got %d", ErrInvalidProfile, p.Name, len(p.Coefficients))
	case p.SensorFactor <= 0 && p.Altitude <= 0:
		return fmt.Errorf("%w: %s: neither sensor factor nor altitude", ErrInvalidProfile, p.Name)
	case p.SideOverlap < 0 || p.SideOverlap > 1 || p.FrontOverlap < 0 || p.FrontOverlap > 1:
		return fmt.Errorf("%w: %s: overlaps must be fractions", ErrInvalidProfile, p.Name)
	}
	return nil
}

// MappingVFOV is the vertical field of view used for trigger spacing: the
// camera itself for RGB/MS payloads, the secondary camera for LiDAR.
func (p Profile) MappingVFOV() float64 {
	if p.Kind.IsCamera() {
		return p.VerticalFOV
	}
	return p.SecondaryVFOV
}

var returnModes = map[int]string{
	0: "singleReturnFirst",
	1: "singleReturnStrongest",
	2: "dualReturn",
	3: "tripleReturn",
	4: "quadrupleReturn",
	5: "quintupleReturn",
}

// ReturnMode maps the numeric LiDAR return setting to the DJI name.
func ReturnMode(n int) (string, error) {
	mode, ok := returnModes[n]
	if !ok {
		return "", fmt.Errorf("lidar returns must be between 0 and 5, got %d", n)
	}
	return mode, nil
}

// Builtin returns the profiles shipped with the planner.
func Builtin() []Profile {
	return []Profile{
		{
			Name:          "m3m",
			Description:   "Mavic 3 Multispectral",
			Kind:          KindMS,
			SensorFactor:  21.6888427734375,
			SideOverlap:   0.9,
			FrontOverlap:  0.9,
			HorizontalFOV: 61.2,
			VerticalFOV:   48.1,
			SecondaryHFOV: 84,
			Coefficients:  []float64{-0.0119347, 1.19347},
			FlightSpeed:   3,
			SamplingRate:  240000,
			ScanningMode:  "nonRepetitive",
			ImageFormat:   "visable,narrow_band",
			Drone:         Enum{Value: 77, SubValue: 1},
			Payload:       Enum{Value: 68},
		},
		{
			Name:          "l2",
			Description:   "Zenmuse L2 LiDAR",
			Kind:          KindLidar,
			SensorFactor:  21.6888427734375,
			Altitude:      70,
			SideOverlap:   0.8,
			FrontOverlap:  0.75,
			HorizontalFOV: 70,
			VerticalFOV:   75,
			SecondaryHFOV: 84,
			Coefficients:  []float64{-0.01098424, 1.099605},
			FlightSpeed:   7,
			LidarReturns:  5,
			SamplingRate:  240000,
			ScanningMode:  "nonRepetitive",
			ImageFormat:   "visable",
			Drone:         Enum{Value: 89},
			Payload:       Enum{Value: 84},
		},
	}
}

// Catalogue is a set of profiles addressable by case-insensitive name.
type Catalogue struct {
	profiles map[string]Profile
}

// NewCatalogue returns a catalogue holding the built-in profiles.
func NewCatalogue() *Catalogue {
	c := &Catalogue{profiles: make(map[string]Profile)}
	for _, p := range Builtin() {
		c.profiles[p.Name] = p
	}
	return c
}

type catalogueFile struct {
	Sensors []Profile `yaml:"sensors"`
}

// LoadCatalogue returns the built-in profiles extended, or overridden, by
// the profiles in the YAML file at path. An empty path yields the built-ins.
func LoadCatalogue(path string) (*Catalogue, error) {
	c := NewCatalogue()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensor catalogue: %w", err)
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sensor catalogue %s: %w", path, err)
	}
	for _, p := range file.Sensors {
		p.Name = strings.ToLower(p.Name)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		c.profiles[p.Name] = p
	}
	return c, nil
}

// Lookup returns the profile with the given name.
func (c *Catalogue) Lookup(name string) (Profile, error) {
	p, ok := c.profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (choose from %s)", ErrUnknownSensor, name, strings.Join(c.Names(), ", "))
	}
	return p, nil
}

// Names returns the sorted profile names.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
