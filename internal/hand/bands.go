// Package hand maps sampled HAND values (meters above nearest drainage) to
// risk category labels via an ordered table of bands.
package hand

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Band is one category range. A value belongs to the band when it is strictly
// greater than Above and no higher band matched first; the boundary value
// itself falls into the band below.
type Band struct {
	Label string  `yaml:"label" mapstructure:"label"`
	Above float64 `yaml:"above" mapstructure:"above"`
}

// Bands is the full category table: ranges checked highest-first, a floor
// label for values at or below the lowest threshold, and a label for points
// the raster has no data for.
type Bands struct {
	Ranges  []Band `yaml:"ranges" mapstructure:"ranges"`
	Floor   string `yaml:"floor" mapstructure:"floor"`
	Unknown string `yaml:"unknown" mapstructure:"unknown"`
}

// Default returns the standard HAND risk bands. Lower HAND means closer to
// drainage and higher flood risk.
func Default() Bands {
	return Bands{
		Ranges: []Band{
			{Label: "Very Low", Above: 25},
			{Label: "Low", Above: 10},
			{Label: "Moderate", Above: 5},
			{Label: "High", Above: 0},
		},
		Floor:   "Very High",
		Unknown: "Unknown",
	}
}

// Validate checks that the band table partitions the real line: at least one
// range, strictly decreasing thresholds, and no empty labels.
func (b Bands) Validate() error {
	if len(b.Ranges) == 0 {
		return eris.New("bands: at least one range is required")
	}
	if b.Floor == "" {
		return eris.New("bands: floor label is required")
	}
	if b.Unknown == "" {
		return eris.New("bands: unknown label is required")
	}
	prev := b.Ranges[0].Above
	for i, r := range b.Ranges {
		if r.Label == "" {
			return eris.Errorf("bands: range %d has an empty label", i)
		}
		if i > 0 && r.Above >= prev {
			return eris.Errorf("bands: thresholds must be strictly decreasing (range %d: %v >= %v)", i, r.Above, prev)
		}
		prev = r.Above
	}
	return nil
}

// Categorize maps a sampled value to its category label. A nil value (no data
// at the point) maps to the Unknown label. Every real value matches exactly
// one band: the first range whose threshold it strictly exceeds, or the floor.
func (b Bands) Categorize(v *float64) string {
	if v == nil {
		return b.Unknown
	}
	for _, r := range b.Ranges {
		if *v > r.Above {
			return r.Label
		}
	}
	return b.Floor
}

// String renders the table for the bands subcommand.
func (b Bands) String() string {
	out := ""
	for i, r := range b.Ranges {
		if i == 0 {
			out += fmt.Sprintf("value > %g\t%s\n", r.Above, r.Label)
		} else {
			out += fmt.Sprintf("%g < value <= %g\t%s\n", r.Above, b.Ranges[i-1].Above, r.Label)
		}
	}
	out += fmt.Sprintf("value <= %g\t%s\n", b.Ranges[len(b.Ranges)-1].Above, b.Floor)
	out += fmt.Sprintf("no data\t%s\n", b.Unknown)
	return out
}

// LoadFile reads a band table from a YAML file and validates it.
func LoadFile(path string) (Bands, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bands{}, eris.Wrap(err, "bands: read file")
	}

	var b Bands
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bands{}, eris.Wrap(err, "bands: parse yaml")
	}
	if b.Unknown == "" {
		b.Unknown = Default().Unknown
	}
	if err := b.Validate(); err != nil {
		return Bands{}, err
	}
	return b, nil
}
