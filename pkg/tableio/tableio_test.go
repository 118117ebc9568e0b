package tableio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

func TestDecodeTSVMissingValues(t *testing.T) {
	in := "trans_x\ttrans_x_derivative1\n0.1\tn/a\n0.3\t0.2\n"
	tbl, err := DecodeTSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeTSV: %v", err)
	}
	if tbl.Rows() != 2 || tbl.NumColumns() != 2 {
		t.Fatalf("shape = %d×%d, want 2×2", tbl.Rows(), tbl.NumColumns())
	}
	d, _ := tbl.Column("trans_x_derivative1")
	if d[0] != 0 || d[1] != 0.2 {
		t.Fatalf("derivative = %v, want [0 0.2]", d)
	}
}

func TestDecodeTSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", models.ErrMissingData},
		{"ragged", "a\tb\n1\t2\n3\n", models.ErrDataShape},
		{"not a number", "a\n1\nx\n", models.ErrDataShape},
		{"duplicate header", "a\ta\n1\t2\n", models.ErrDataShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTSV(strings.NewReader(tt.in)); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.tsv")
	want, _ := models.NewTable([]string{"framewise_displacement", "exact_3"}, [][]float64{{0, 1, 0, 0}, {1, 1, 0, 0}})
	if err := WriteTSV(path, want); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(raw), "framewise_displacement\texact_3\n") {
		t.Fatalf("header = %q", strings.SplitN(string(raw), "\n", 2)[0])
	}
	got, err := ReadTSV(path)
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	for _, name := range want.Columns() {
		a, _ := want.Column(name)
		b, _ := got.Column(name)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s[%d] = %g, want %g", name, i, b[i], a[i])
			}
		}
	}
}

func TestNpyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signal.npy")
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	if err := WriteNpy(path, m); err != nil {
		t.Fatalf("WriteNpy: %v", err)
	}
	got, err := ReadNpy(path)
	if err != nil {
		t.Fatalf("ReadNpy: %v", err)
	}
	if !mat.Equal(got, m) {
		t.Fatalf("got %v, want %v", mat.Formatted(got), mat.Formatted(m))
	}
}

func TestReadNpyColumnMajor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fortran.npy")
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	w.Shape = []int{3, 2}
	w.ColumnMajor = true
	// Column 0 is 1, 2, 3 and column 1 is 4, 5, 6.
	if err := w.WriteFloat64([]float64{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("WriteFloat64: %v", err)
	}
	got, err := ReadNpy(path)
	if err != nil {
		t.Fatalf("ReadNpy: %v", err)
	}
	want := mat.NewDense(3, 2, []float64{1, 4, 2, 5, 3, 6})
	if !mat.Equal(got, want) {
		t.Fatalf("got %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestReadMatrixAndIndices(t *testing.T) {
	dir := t.TempDir()
	mixing := filepath.Join(dir, "mixing.tsv")
	os.WriteFile(mixing, []byte("1\t2\t3\n4  5  6\n"), 0o644)
	m, err := ReadMatrixTSV(mixing)
	if err != nil {
		t.Fatalf("ReadMatrixTSV: %v", err)
	}
	if r, c := m.Dims(); r != 2 || c != 3 || m.At(1, 2) != 6 {
		t.Fatalf("matrix = %v", mat.Formatted(m))
	}

	idx := filepath.Join(dir, "noise.csv")
	os.WriteFile(idx, []byte("1,4, 7\n"), 0o644)
	got, err := ReadIndexList(idx)
	if err != nil {
		t.Fatalf("ReadIndexList: %v", err)
	}
	want := []int{0, 3, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
}

func TestSidecars(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "confounds.json")
	os.WriteFile(meta, []byte(`{
  "a_comp_cor_00": {"Mask": "WM", "Method": "aCompCor", "Retained": true, "VarianceExplained": 0.3},
  "cosine00": {"Method": "cosine"}
}`), 0o644)
	comps, err := ReadComponentMetadata(meta)
	if err != nil {
		t.Fatalf("ReadComponentMetadata: %v", err)
	}
	if c := comps["a_comp_cor_00"]; c.Mask != "WM" || !c.Retained || c.VarianceExplained != 0.3 {
		t.Fatalf("component = %+v", c)
	}

	out := filepath.Join(dir, "alff.json")
	if err := WriteSidecar(out, map[string]any{"Units": "arbitrary"}); err != nil {
		t.Fatalf("WriteSidecar: %v", err)
	}
	raw, _ := os.ReadFile(out)
	if !strings.Contains(string(raw), `"Units": "arbitrary"`) {
		t.Fatalf("sidecar = %s", raw)
	}
}
