// Package regiondata serves the province, city and district lists behind
// the cascading region selects.
package regiondata

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livehooks/internal/errors"
)

//go:embed regions.yaml
var builtin []byte

// Dataset is an ordered province → city → district tree.
type Dataset struct {
	Provinces []Province `yaml:"provinces"`

	index map[string]*Province
}

// Province is a top-level region.
type Province struct {
	Name   string `yaml:"name"`
	Cities []City `yaml:"cities"`
}

// City belongs to a province.
type City struct {
	Name      string   `yaml:"name"`
	Districts []string `yaml:"districts"`
}

// Builtin returns the embedded demo dataset.
func Builtin() *Dataset {
	ds, err := Parse(builtin)
	if err != nil {
		panic("regiondata: builtin dataset: " + err.Error())
	}
	return ds
}

// Load reads a YAML dataset from path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigRead).WithDetail(path).Wrap(err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes and validates a YAML dataset. Names must be non-empty and
// unique among their siblings.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	if err := ds.build(); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (d *Dataset) build() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.CodeConfigInvalid).WithDetailf(format, args...)
	}
	d.index = make(map[string]*Province, len(d.Provinces))
	for i := range d.Provinces {
		p := &d.Provinces[i]
		if p.Name == "" {
			return invalid("province %d has no name", i)
		}
		if _, dup := d.index[p.Name]; dup {
			return invalid("duplicate province %q", p.Name)
		}
		d.index[p.Name] = p

		cities := make(map[string]bool, len(p.Cities))
		for j, c := range p.Cities {
			if c.Name == "" {
				return invalid("%s: city %d has no name", p.Name, j)
			}
			if cities[c.Name] {
				return invalid("%s: duplicate city %q", p.Name, c.Name)
			}
			cities[c.Name] = true
		}
	}
	return nil
}

// ProvinceNames returns the province names in dataset order.
func (d *Dataset) ProvinceNames() []string {
	out := make([]string, len(d.Provinces))
	for i, p := range d.Provinces {
		out[i] = p.Name
	}
	return out
}

// Cities returns the city names of province.
func (d *Dataset) Cities(province string) ([]string, bool) {
	p, ok := d.index[province]
	if !ok {
		return nil, false
	}
	out := make([]string, len(p.Cities))
	for i, c := range p.Cities {
		out[i] = c.Name
	}
	return out, true
}

// Districts returns the district names of city in province.
func (d *Dataset) Districts(province, city string) ([]string, bool) {
	p, ok := d.index[province]
	if !ok {
		return nil, false
	}
	for _, c := range p.Cities {
		if c.Name == city {
			return append([]string(nil), c.Districts...), true
		}
	}
	return nil, false
}
