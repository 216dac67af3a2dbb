package overlay

// Default returns the built-in CAMB regression catalogue.
//
// Directive spacing is kept exactly as the parameter files have always been
// written; the executable's ini reader tolerates it and changing it would
// change the generated files.
func Default() Catalogue {
	transfer := []string{"get_scalar_cls=F", "get_transfer= T"}
	all := []string{"get_scalar_cls=T", "get_tensor_cls = T", "get_transfer= T"}

	return Catalogue{Rules: []Rule{
		Point{Name: "base"},

		Linear{
			Prefix: "lmax",
			Values: []string{"1000", "2000", "2500", "3000", "4500", "6000"},
			Directives: []string{
				"l_max_scalar = {v}",
				"k_eta_max_scalar  = {v*2.5}",
			},
		},
		Linear{
			Prefix: "nonlin_lmax",
			Values: []string{"1000", "2000", "2500", "3000", "4500"},
			Directives: []string{
				"do_nonlinear =2",
				"get_transfer= T",
				"l_max_scalar = {v}",
				"k_eta_max_scalar  = {v*2.5}",
			},
		},
		Linear{
			Prefix: "tensor_lmax",
			Values: []string{"400", "600", "1000"},
			Directives: []string{
				"get_tensor_cls = T",
				"l_max_tensor = {v}",
				"k_eta_max_tensor  = {v*2}",
			},
		},

		Point{Name: "tensoronly", Directives: []string{"get_scalar_cls=F", "get_tensor_cls = T"}},
		Point{Name: "tensor_tranfer", Directives: []string{"get_scalar_cls=F", "get_tensor_cls = T", "get_transfer= T", "transfer_high_precision = T"}},
		Point{Name: "tranfer_only", Directives: with(transfer, "transfer_high_precision = F")},
		Point{Name: "tranfer_highprec", Directives: with(transfer, "transfer_high_precision = T")},

		Point{Name: "all", Directives: with(all)},
		Point{Name: "all_nonlin1", Directives: with(all, "do_nonlinear=1")},
		Point{Name: "all_nonlin2", Directives: with(all, "do_nonlinear=2")},
		Point{Name: "all_nonlinhigh", Directives: with(all, "do_nonlinear=2", "transfer_high_precision = T")},
		Point{Name: "tranfer_delta10", Directives: with(transfer, "transfer_high_precision = T", "transfer_k_per_logint =10")},

		Joint{
			Names: []string{"tranfer_redshifts", "tranfer_redshifts2"},
			Fixed: with(transfer, "transfer_num_redshifts=2"),
			Columns: []Column{
				{Key: "transfer_redshift(1)", Values: []string{"1", "0.7"}},
				{Key: "transfer_redshift(2)", Values: []string{"0.7", "0"}},
			},
			Trailing: []string{"transfer_filename(2)=transfer_out2.dat", "transfer_matterpower(2)=matterpower2.dat"},
		},

		Point{Name: "tranfer_nonu", Directives: with(transfer, "transfer_power_var = 8")},

		Point{Name: "zre", Directives: []string{"re_use_optical_depth = F", "re_redshift  = 8.5"}},
		Point{Name: "nolens", Directives: []string{"lensing = F"}},
		Point{Name: "noderived", Directives: []string{"derived_parameters = F"}},
		Point{Name: "no_rad_trunc", Directives: []string{"do_late_rad_truncation   = F"}},

		Linear{
			Prefix:     "accuracy_boost",
			Values:     []string{"0.95", "1.1", "1.5", "2.2"},
			Directives: []string{"accuracy_boost = {v}"},
		},
		Linear{
			Prefix:     "l_accuracy_boost",
			Values:     []string{"1", "1.5", "2"},
			Directives: []string{"l_accuracy_boost = {v}"},
		},
		Point{Name: "acc", Directives: []string{"l_accuracy_boost =2", "accuracy_boost=2"}},
		Point{Name: "accsamp", Directives: []string{"l_accuracy_boost =2", "accuracy_boost=2", "l_sample_boost = 1.5"}},

		Point{Name: "mu_massless", Directives: []string{"omnuh2 =0"}},
		Linear{
			Prefix:     "mu_mass",
			Values:     []string{"0", "0.01", "0.03", "0.1"},
			Directives: []string{"omnuh2 ={v/100}", "massive_neutrinos  = 3"},
		},
		Point{Name: "mu_masssplit", Directives: []string{
			"omnuh2 =0.03",
			"massive_neutrinos = 1 1",
			"nu_mass_fractions=0.2 0.8",
			"nu_mass_degeneracies = 1 1",
			"nu_mass_eigenstates = 2",
			"massless_neutrinos = 1.046",
		}},

		Linear{
			Prefix: "acclens_ketamax",
			Values: []string{"10000", "14000", "20000", "40000"},
			Directives: []string{
				"do_nonlinear = 2",
				"l_max_scalar  = 6000",
				"k_eta_max_scalar  = {v}",
				"accurate_BB = F",
			},
		},
		Linear{
			Prefix: "acclensBB_ketamax",
			Values: []string{"10000", "14000", "20000", "40000"},
			Directives: []string{
				"do_nonlinear = 2",
				"l_max_scalar = 2500",
				"k_eta_max_scalar  = {v}",
				"accurate_BB = T",
			},
		},

		Cross{
			Fixed: []string{"get_transfer= T", "do_nonlinear=1", "transfer_high_precision = T"},
			Params: map[string][]float64{
				"ombh2":                    {0.0219, 0.0226, 0.0253},
				"omch2":                    {0.1, 0.08, 0.15},
				"omk":                      {0, -0.03, 0.04, 0.001, -0.001},
				"hubble":                   {62, 67, 71, 78},
				"w":                        {-1.2, -1, -0.98, -0.75},
				"helium_fraction":          {0.21, 0.23, 0.27},
				"scalar_spectral_index(1)": {0.94, 0.98},
				"scalar_nrun(1)":           {-0.015, 0, 0.03},
				"re_optical_depth":         {0.03, 0.05, 0.08, 0.11},
			},
		},
	}}
}

// with returns a fresh slice holding base followed by extra.
func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
