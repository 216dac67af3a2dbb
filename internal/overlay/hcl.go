package overlay

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// HCL catalogues list one block per rule, in generation order:
//
//	point "base" {}
//
//	linear "lmax" {
//	  values     = [1000, 2000]
//	  directives = ["l_max_scalar = {v}", "k_eta_max_scalar  = {v*2.5}"]
//	}
//
//	cross {
//	  fixed  = ["get_transfer= T"]
//	  params = { hubble = [62, 67], w = [-1, -0.9] }
//	}
//
//	joint {
//	  names = ["tranfer_redshifts", "tranfer_redshifts2"]
//	  column "transfer_redshift(1)" { values = [1, 0.7] }
//	}
//
//	grid "g" {
//	  params = { ombh2 = [0.022], omch2 = [0.1, 0.12] }
//	}

type hclPoint struct {
	Directives []string `hcl:"directives,optional"`
}

type hclLinear struct {
	Values     hcl.Expression `hcl:"values"`
	Directives []string       `hcl:"directives"`
}

type hclCross struct {
	Fixed     []string       `hcl:"fixed,optional"`
	Params    hcl.Expression `hcl:"params"`
	Precision int            `hcl:"precision,optional"`
}

type hclColumn struct {
	Key    string         `hcl:"key,label"`
	Values hcl.Expression `hcl:"values"`
}

type hclJoint struct {
	Names    []string     `hcl:"names"`
	Fixed    []string     `hcl:"fixed,optional"`
	Columns  []*hclColumn `hcl:"column,block"`
	Trailing []string     `hcl:"trailing,optional"`
}

type hclGrid struct {
	Fixed     []string       `hcl:"fixed,optional"`
	Params    hcl.Expression `hcl:"params"`
	Precision int            `hcl:"precision,optional"`
}

// ParseHCL decodes an HCL rule catalogue. Blocks are interpreted in source
// order so the generated overlay order follows the file.
func ParseHCL(data []byte, filename string) (Catalogue, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return Catalogue{}, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return Catalogue{}, fmt.Errorf("unexpected HCL body type %T", file.Body)
	}
	if len(body.Attributes) > 0 {
		return Catalogue{}, fmt.Errorf("top-level attributes are not allowed; declare rules as blocks")
	}

	cat := Catalogue{Rules: make([]Rule, 0, len(body.Blocks))}
	for _, block := range body.Blocks {
		rule, err := decodeHCLBlock(block)
		if err != nil {
			return Catalogue{}, fmt.Errorf("%s: %w", block.DefRange().String(), err)
		}
		cat.Rules = append(cat.Rules, rule)
	}
	return cat, nil
}

func decodeHCLBlock(block *hclsyntax.Block) (Rule, error) {
	label := func() (string, error) {
		if len(block.Labels) != 1 {
			return "", fmt.Errorf("%s block needs exactly one label", block.Type)
		}
		return block.Labels[0], nil
	}

	switch block.Type {
	case "point":
		name, err := label()
		if err != nil {
			return nil, err
		}
		var p hclPoint
		if diags := gohcl.DecodeBody(block.Body, nil, &p); diags.HasErrors() {
			return nil, diags
		}
		return Point{Name: name, Directives: p.Directives}, nil

	case "linear":
		prefix, err := label()
		if err != nil {
			return nil, err
		}
		var l hclLinear
		if diags := gohcl.DecodeBody(block.Body, nil, &l); diags.HasErrors() {
			return nil, diags
		}
		values, err := scalarStrings(l.Values)
		if err != nil {
			return nil, fmt.Errorf("values: %w", err)
		}
		return Linear{Prefix: prefix, Values: values, Directives: l.Directives}, nil

	case "cross":
		var c hclCross
		if diags := gohcl.DecodeBody(block.Body, nil, &c); diags.HasErrors() {
			return nil, diags
		}
		params, err := floatLists(c.Params)
		if err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		return Cross{Fixed: c.Fixed, Params: params, Precision: c.Precision}, nil

	case "joint":
		var j hclJoint
		if diags := gohcl.DecodeBody(block.Body, nil, &j); diags.HasErrors() {
			return nil, diags
		}
		rule := Joint{Names: j.Names, Fixed: j.Fixed, Trailing: j.Trailing}
		for _, c := range j.Columns {
			values, err := scalarStrings(c.Values)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Key, err)
			}
			rule.Columns = append(rule.Columns, Column{Key: c.Key, Values: values})
		}
		return rule, nil

	case "grid":
		prefix, err := label()
		if err != nil {
			return nil, err
		}
		var g hclGrid
		if diags := gohcl.DecodeBody(block.Body, nil, &g); diags.HasErrors() {
			return nil, diags
		}
		params, err := floatLists(g.Params)
		if err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		return Grid{Prefix: prefix, Fixed: g.Fixed, Params: params, Precision: g.Precision}, nil
	}
	return nil, fmt.Errorf("unknown rule block %q", block.Type)
}

// scalarStrings evaluates a list of numbers or strings and renders each
// element as text. Numbers keep their shortest decimal form, so 0.95 stays
// "0.95" and 1000 stays "1000".
func scalarStrings(expr hcl.Expression) ([]string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.IsKnown() || val.IsNull() || !val.CanIterateElements() {
		return nil, fmt.Errorf("expected a list")
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		switch {
		case elem.IsNull():
			return nil, fmt.Errorf("null element")
		case elem.Type() == cty.Number:
			out = append(out, elem.AsBigFloat().Text('f', -1))
		case elem.Type() == cty.String:
			out = append(out, elem.AsString())
		default:
			return nil, fmt.Errorf("element of type %s is neither number nor string", elem.Type().FriendlyName())
		}
	}
	return out, nil
}

// floatLists evaluates an object of number lists, e.g. { hubble = [62, 67] }.
func floatLists(expr hcl.Expression) (map[string][]float64, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	want := cty.Map(cty.List(cty.Number))
	converted, err := convert.Convert(val, want)
	if err != nil {
		return nil, err
	}
	var out map[string][]float64
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, err
	}
	return out, nil
}
