package confounds

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/motion"
)

// sourceTable builds an fMRIPrep-like confounds table with n rows.
func sourceTable(t *testing.T, n int) *models.Table {
	t.Helper()
	names := append(motion.Columns(),
		WhiteMatterColumn, CSFColumn, GlobalSignalColumn,
		"cosine00", "cosine01",
		"a_comp_cor_00", "a_comp_cor_01", "a_comp_cor_02", "a_comp_cor_03",
		"a_comp_cor_04", "a_comp_cor_05", "a_comp_cor_06",
	)
	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, n)
		for i := range cols[j] {
			cols[j][i] = float64((i+1)*(j+2)%7) + 0.1*float64(j)
		}
	}
	tbl, err := models.NewTable(names, cols)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func compCorMeta() ComponentMetadata {
	return ComponentMetadata{
		"a_comp_cor_00": {Mask: TissueWM, VarianceExplained: 0.1, Retained: true},
		"a_comp_cor_01": {Mask: TissueWM, VarianceExplained: 0.4, Retained: true},
		"a_comp_cor_02": {Mask: TissueWM, VarianceExplained: 0.3, Retained: true},
		"a_comp_cor_03": {Mask: TissueWM, VarianceExplained: 0.2, Retained: true},
		"a_comp_cor_04": {Mask: TissueWM, VarianceExplained: 0.05, Retained: true},
		"a_comp_cor_05": {Mask: TissueCSF, VarianceExplained: 0.5, Retained: false},
		"a_comp_cor_06": {Mask: TissueCSF, VarianceExplained: 0.2, Retained: true},
		"c_comp_cor_00": {Mask: "combined", VarianceExplained: 0.9, Retained: true},
	}
}

func TestPresetColumnCounts(t *testing.T) {
	const n = 20
	src := Source{
		Confounds:  sourceTable(t, n),
		Components: compCorMeta(),
		AROMA: &AROMAComponents{
			Mixing: mat.NewDense(n, 3, nil),
			Noise:  []int{0, 2},
		},
	}
	tests := []struct {
		preset Preset
		want   int // without trend and intercept
	}{
		{Preset24P, 24},
		{Preset27P, 27},
		{Preset36P, 36},
		{PresetACompCor, 12 + 5 + 2},
		{PresetACompCorGSR, 12 + 1 + 5 + 2},
		{PresetAROMA, 2 + 3},
		{PresetAROMAGSR, 3 + 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			out, err := Assemble(src, Options{Preset: tt.preset}, nil)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if got := out.NumColumns(); got != tt.want+2 {
				t.Fatalf("got %d columns, want %d", got, tt.want+2)
			}
			cols := out.Columns()
			if cols[len(cols)-2] != models.TrendColumn || cols[len(cols)-1] != models.InterceptColumn {
				t.Fatalf("last columns = %v, want trend and intercept", cols[len(cols)-2:])
			}
			if out.Rows() != n {
				t.Fatalf("rows = %d, want %d", out.Rows(), n)
			}
		})
	}
}

func TestPresetNoneIsEmpty(t *testing.T) {
	out, err := Assemble(Source{Confounds: sourceTable(t, 10)}, Options{Preset: PresetNone}, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.NumColumns() != 0 || out.Rows() != 10 {
		t.Fatalf("got %d×%d, want 10×0", out.Rows(), out.NumColumns())
	}
}

func TestCustomConfounds(t *testing.T) {
	custom, _ := models.NewTable([]string{"my_reg"}, [][]float64{{1, 2, 3, 4, 5}})

	out, err := Assemble(Source{}, Options{Preset: PresetCustom, Custom: custom}, nil)
	if err != nil {
		t.Fatalf("custom only: %v", err)
	}
	if got := out.Columns(); len(got) != 3 || got[0] != "my_reg" {
		t.Fatalf("columns = %v", got)
	}

	out, err = Assemble(Source{Confounds: sourceTable(t, 5)}, Options{Preset: Preset24P, Custom: custom}, nil)
	if err != nil {
		t.Fatalf("24P + custom: %v", err)
	}
	if !out.Has("my_reg") || out.NumColumns() != 27 {
		t.Fatalf("24P + custom gave %d columns %v", out.NumColumns(), out.Columns())
	}

	if _, err := Assemble(Source{Confounds: sourceTable(t, 5)}, Options{Preset: PresetCustom}, nil); !errors.Is(err, models.ErrMissingData) {
		t.Fatalf("custom without table: err = %v, want ErrMissingData", err)
	}

	short, _ := models.NewTable([]string{"my_reg"}, [][]float64{{1, 2}})
	if _, err := Assemble(Source{Confounds: sourceTable(t, 5)}, Options{Preset: Preset24P, Custom: short}, nil); !errors.Is(err, models.ErrDataShape) {
		t.Fatalf("short custom: err = %v, want ErrDataShape", err)
	}
}

func TestExpansionTerms(t *testing.T) {
	src, _ := models.NewTable([]string{"x"}, [][]float64{{1, 3, 2}})
	out, err := expand(src, []string{"x"}, fullExpansion)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string][]float64{
		"x":                    {1, 3, 2},
		"x_derivative1":        {0, 2, -1},
		"x_power2":             {1, 9, 4},
		"x_derivative1_power2": {0, 4, 1},
	}
	for name, w := range want {
		got, err := out.Column(name)
		if err != nil {
			t.Fatalf("Column(%q): %v", name, err)
		}
		for i := range w {
			if math.Abs(got[i]-w[i]) > 1e-12 {
				t.Errorf("%s[%d] = %g, want %g", name, i, got[i], w[i])
			}
		}
	}
}

func TestSelectCompCor(t *testing.T) {
	names, err := SelectCompCor(compCorMeta(), sourceTable(t, 4), MaxCompCorPerTissue)
	if err != nil {
		t.Fatalf("SelectCompCor: %v", err)
	}
	want := []string{"a_comp_cor_01", "a_comp_cor_02", "a_comp_cor_03", "a_comp_cor_00", "a_comp_cor_06"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	meta := ComponentMetadata{"a_comp_cor_99": {Mask: TissueCSF, VarianceExplained: 1, Retained: true}}
	if _, err := SelectCompCor(meta, sourceTable(t, 4), 4); !errors.Is(err, models.ErrMissingData) {
		t.Fatalf("err = %v, want ErrMissingData", err)
	}
}

func TestAROMASplit(t *testing.T) {
	a := &AROMAComponents{Mixing: mat.NewDense(4, 3, nil), Noise: []int{1}}
	tbl, err := a.Table(4)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	want := []string{"aroma_motion_01", "signal__aroma_00", "signal__aroma_02"}
	got := tbl.Columns()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}

	a.Noise = []int{3}
	if _, err := a.Table(4); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("bad index: err = %v, want ErrConfiguration", err)
	}
	a.Noise = nil
	if _, err := a.Table(5); !errors.Is(err, models.ErrDataShape) {
		t.Fatalf("row mismatch: err = %v, want ErrDataShape", err)
	}
}

func TestParsePreset(t *testing.T) {
	for _, p := range Presets {
		if got, err := ParsePreset(string(p)); err != nil || got != p {
			t.Errorf("ParsePreset(%q) = %q, %v", p, got, err)
		}
	}
	if _, err := ParsePreset("48P"); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
