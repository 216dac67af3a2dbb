package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var wantSmall = []Overlay{
	{Name: "base", Directives: []string{}},
	{Name: "lmax1000", Directives: []string{"l_max_scalar = 1000", "k_eta_max_scalar  = 2500"}},
	{Name: "lmax2500", Directives: []string{"l_max_scalar = 2500", "k_eta_max_scalar  = 6250"}},
	{Name: "accuracy_boost0.95", Directives: []string{"accuracy_boost = 0.95"}},
	{Name: "accuracy_boost1.1", Directives: []string{"accuracy_boost = 1.1"}},
	{Name: "tranfer_redshifts", Directives: []string{
		"get_scalar_cls=F", "transfer_num_redshifts=2",
		"transfer_redshift(1)=1", "transfer_redshift(2)=0.7",
		"transfer_filename(2)=transfer_out2.dat",
	}},
	{Name: "tranfer_redshifts2", Directives: []string{
		"get_scalar_cls=F", "transfer_num_redshifts=2",
		"transfer_redshift(1)=0.7", "transfer_redshift(2)=0",
		"transfer_filename(2)=transfer_out2.dat",
	}},
	{Name: "hubble_62.000", Directives: []string{"get_transfer= T", "hubble = 62"}},
	{Name: "hubble_67.000", Directives: []string{"get_transfer= T", "hubble = 67"}},
	{Name: "scalar_nrun1_-0.015", Directives: []string{"get_transfer= T", "scalar_nrun(1) = -0.015"}},
}

func TestLoadCatalogue_Formats(t *testing.T) {
	for _, file := range []string{"small.yaml", "small.hcl"} {
		t.Run(file, func(t *testing.T) {
			cat, err := LoadCatalogue(filepath.Join("testdata", file))
			require.NoError(t, err)

			got, err := cat.Generate()
			require.NoError(t, err)
			if diff := cmp.Diff(wantSmall, got); diff != "" {
				t.Errorf("generated overlays mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadCatalogue_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "reading rule catalogue"},
		{"unknown extension", write("rules.json", "{}"), "unsupported rule catalogue extension"},
		{"yaml rule without variant", write("empty.yaml", "rules:\n  - {}\n"), "must set one of"},
		{"yaml rule with two variants", write("two.yaml", "rules:\n  - point: {name: a}\n    linear: {prefix: b}\n"), "exactly one"},
		{"yaml duplicate names", write("dup.yaml", "rules:\n  - point: {name: a}\n  - point: {name: a}\n"), "duplicate overlay name"},
		{"yaml no rules", write("none.yaml", "rules: []\n"), "no rules"},
		{"hcl unknown block", write("bad.hcl", "sweep \"x\" {}\n"), "unknown rule block"},
		{"hcl missing label", write("nolabel.hcl", "point {}\n"), "exactly one label"},
		{"hcl top-level attribute", write("attr.hcl", "x = 1\n"), "top-level attributes"},
		{"hcl syntax error", write("syntax.hcl", "point \"a\" {\n"), "parsing rule catalogue"},
		{"hcl bad params", write("params.hcl", "cross {\n  params = { w = [\"x\"] }\n}\n"), "params: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalogue(tt.path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
