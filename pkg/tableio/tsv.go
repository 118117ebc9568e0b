// Package tableio reads and writes the on-disk forms of the tables,
// matrices and metadata the pipeline exchanges with upstream and
// downstream tools: tab-separated tables, NumPy .npy matrices and JSON
// sidecars.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// MissingValue is how fMRIPrep writes undefined entries, such as the
// first row of a derivative column. It is read as 0.
const MissingValue = "n/a"

// ReadTSV reads a tab-separated table with a header row.
func ReadTSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	t, err := DecodeTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DecodeTSV parses a tab-separated table with a header row from r.
func DecodeTSV(r io.Reader) (*models.Table, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty table: %w", models.ErrMissingData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = append([]string(nil), header...)
	cols := make([][]float64, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, err, models.ErrDataShape)
		}
		for j, field := range rec {
			v, err := parseField(field)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[j], err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	for j := range cols {
		if cols[j] == nil {
			cols[j] = []float64{}
		}
	}
	return models.NewTable(header, cols)
}

// WriteTSV writes t with a header row.
func WriteTSV(path string, t *models.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if err := EncodeTSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// EncodeTSV writes t to w as tab-separated text.
func EncodeTSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	cols := make([][]float64, t.NumColumns())
	for j := range cols {
		cols[j] = t.ColumnAt(j)
	}
	rec := make([]string, len(cols))
	for i := 0; i < t.Rows(); i++ {
		for j, c := range cols {
			rec[j] = strconv.FormatFloat(c[i], 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMatrixTSV reads a headerless table of numbers separated by tabs or
// spaces, such as an ICA mixing matrix.
func ReadMatrixTSV(path string) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix: %w", err)
	}
	var (
		values []float64
		rows   int
		cols   = -1
	)
	for n, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if cols >= 0 && len(fields) != cols {
			return nil, fmt.Errorf("%s line %d has %d values, want %d: %w", path, n+1, len(fields), cols, models.ErrDataShape)
		}
		cols = len(fields)
		for _, field := range fields {
			v, err := parseField(field)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, n+1, err)
			}
			values = append(values, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s: empty matrix: %w", path, models.ErrMissingData)
	}
	return mat.NewDense(rows, cols, values), nil
}

// ReadIndexList reads a comma-separated list of 1-based indices, as written
// for ICA-AROMA noise components, and returns them 0-based.
func ReadIndexList(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index list: %w", err)
	}
	var out []int
	for _, field := range strings.Split(strings.TrimSpace(string(data)), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("%s: index %q: %w", path, field, models.ErrDataShape)
		}
		out = append(out, v-1)
	}
	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == MissingValue {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, models.ErrDataShape)
	}
	return v, nil
}
