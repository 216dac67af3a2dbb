package overlay

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlCatalogue is the on-disk YAML form of a Catalogue:
//
//	rules:
//	  - point: {name: base}
//	  - linear: {prefix: lmax, values: [1000, 2000], directives: ["l_max_scalar = {v}"]}
//	  - cross: {fixed: ["get_transfer= T"], params: {hubble: [62, 67]}}
//	  - joint: {names: [a, b], columns: [{key: "transfer_redshift(1)", values: [1, 0.7]}]}
//	  - grid: {prefix: g, params: {ombh2: [0.022], omch2: [0.1, 0.12]}}
type yamlCatalogue struct {
	Rules []yamlRule `yaml:"rules"`
}

// yamlRule holds exactly one rule variant.
type yamlRule struct {
	Point  *yamlPoint  `yaml:"point,omitempty"`
	Linear *yamlLinear `yaml:"linear,omitempty"`
	Cross  *yamlCross  `yaml:"cross,omitempty"`
	Joint  *yamlJoint  `yaml:"joint,omitempty"`
	Grid   *yamlGrid   `yaml:"grid,omitempty"`
}

type yamlPoint struct {
	Name       string   `yaml:"name"`
	Directives []string `yaml:"directives"`
}

type yamlLinear struct {
	Prefix     string   `yaml:"prefix"`
	Values     []string `yaml:"values"`
	Directives []string `yaml:"directives"`
}

type yamlCross struct {
	Fixed     []string             `yaml:"fixed"`
	Params    map[string][]float64 `yaml:"params"`
	Precision int                  `yaml:"precision"`
}

type yamlColumn struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

type yamlJoint struct {
	Names    []string     `yaml:"names"`
	Fixed    []string     `yaml:"fixed"`
	Columns  []yamlColumn `yaml:"columns"`
	Trailing []string     `yaml:"trailing"`
}

type yamlGrid struct {
	Prefix    string               `yaml:"prefix"`
	Fixed     []string             `yaml:"fixed"`
	Params    map[string][]float64 `yaml:"params"`
	Precision int                  `yaml:"precision"`
}

// ParseYAML decodes a YAML rule catalogue. Sweep values are kept as the text
// written in the document, so "0.95" names an overlay "...0.95".
func ParseYAML(data []byte) (Catalogue, error) {
	var doc yamlCatalogue
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalogue{}, err
	}

	cat := Catalogue{Rules: make([]Rule, 0, len(doc.Rules))}
	for i, r := range doc.Rules {
		rule, err := r.rule()
		if err != nil {
			return Catalogue{}, fmt.Errorf("rules[%d]: %w", i, err)
		}
		cat.Rules = append(cat.Rules, rule)
	}
	return cat, nil
}

func (r yamlRule) rule() (Rule, error) {
	var rules []Rule
	if r.Point != nil {
		rules = append(rules, Point{Name: r.Point.Name, Directives: r.Point.Directives})
	}
	if r.Linear != nil {
		rules = append(rules, Linear{Prefix: r.Linear.Prefix, Values: r.Linear.Values, Directives: r.Linear.Directives})
	}
	if r.Cross != nil {
		rules = append(rules, Cross{Fixed: r.Cross.Fixed, Params: r.Cross.Params, Precision: r.Cross.Precision})
	}
	if r.Joint != nil {
		j := Joint{Names: r.Joint.Names, Fixed: r.Joint.Fixed, Trailing: r.Joint.Trailing}
		for _, c := range r.Joint.Columns {
			j.Columns = append(j.Columns, Column{Key: c.Key, Values: c.Values})
		}
		rules = append(rules, j)
	}
	if r.Grid != nil {
		rules = append(rules, Grid{Prefix: r.Grid.Prefix, Fixed: r.Grid.Fixed, Params: r.Grid.Params, Precision: r.Grid.Precision})
	}

	switch len(rules) {
	case 0:
		return nil, fmt.Errorf("rule must set one of point, linear, cross, joint, grid")
	case 1:
		return rules[0], nil
	default:
		return nil, fmt.Errorf("rule sets %d variants, want exactly one", len(rules))
	}
}
