package indexer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

// IndexFile is the name of the combined index inside the index dir.
const IndexFile = "index.json"

const flatDir = "flat"

// Output file suffixes appended to the source file name.
const (
	MonthlySuffix = ".monthly.csv"
	StatusSuffix  = ".status.csv"
	ProjectSuffix = ".project.json"
)

var baseHeader = []string{
	"Year", "Month", "Sheet_Name", "Financial_Type", "Item_Code", "Trade", "Is_Category_Header",
}

// financialColumnHeader trails the status output so the value columns keep
// their positions.
const financialColumnHeader = "Financial_Column"

// FlatHeader returns the column order of the flattened output of a kind.
func FlatHeader(kind models.SheetKind) []string {
	header := append([]string(nil), baseHeader...)
	for _, c := range models.ColumnsFor(kind) {
		header = append(header, string(c))
	}
	if kind == models.KindStatus {
		header = append(header, financialColumnHeader)
	}
	return header
}

// outputName maps a source path to its flattened output path, relative to
// the index dir and slash separated.
func outputName(sourcePath, suffix string) string {
	return path.Join(flatDir, sourcePath) + suffix
}

// WriteFlat writes records of one sheet kind as CSV. Records of the other
// kind are rejected.
func WriteFlat(w io.Writer, kind models.SheetKind, records []models.FinancialRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FlatHeader(kind)); err != nil {
		return err
	}

	row := make([]string, 0, len(baseHeader)+len(models.ColumnsFor(kind)))
	for _, rec := range records {
		if rec.Values.Kind() != kind {
			return fmt.Errorf("record %s/%q is %s, want %s", rec.SheetName, rec.ItemCode, rec.Values.Kind(), kind)
		}
		row = append(row[:0],
			strconv.Itoa(rec.Year),
			strconv.Itoa(rec.Month),
			string(rec.SheetName),
			rec.FinancialType,
			rec.ItemCode,
			rec.Trade,
			strconv.FormatBool(rec.IsCategoryHeader),
		)
		for _, v := range rec.Values.Amounts() {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if kind == models.KindStatus {
			row = append(row, string(rec.FinancialColumn))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadFlat parses a flattened output. The sheet kind is taken from the
// header, which must match FlatHeader exactly.
func ReadFlat(r io.Reader) ([]models.FinancialRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var kind models.SheetKind
	switch {
	case slices.Equal(header, FlatHeader(models.KindMonthly)):
		kind = models.KindMonthly
	case slices.Equal(header, FlatHeader(models.KindStatus)):
		kind = models.KindStatus
	default:
		return nil, fmt.Errorf("unrecognized flat header %v", header)
	}
	cr.FieldsPerRecord = len(header)

	var records []models.FinancialRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseFlatRow(kind, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseFlatRow(kind models.SheetKind, row []string) (models.FinancialRecord, error) {
	var rec models.FinancialRecord
	var err error

	if rec.Year, err = strconv.Atoi(row[0]); err != nil {
		return rec, fmt.Errorf("year: %w", err)
	}
	if rec.Month, err = strconv.Atoi(row[1]); err != nil {
		return rec, fmt.Errorf("month: %w", err)
	}
	if rec.SheetName, err = models.ParseSheetName(row[2]); err != nil {
		return rec, err
	}
	if rec.SheetName.Kind() != kind {
		return rec, fmt.Errorf("sheet %q in %s output", rec.SheetName, kind)
	}
	rec.FinancialType = row[3]
	rec.ItemCode = row[4]
	rec.Trade = row[5]
	if rec.IsCategoryHeader, err = strconv.ParseBool(row[6]); err != nil {
		return rec, fmt.Errorf("is_category_header: %w", err)
	}

	columns := models.ColumnsFor(kind)
	amounts := make([]float64, len(columns))
	for i, cell := range row[len(baseHeader) : len(baseHeader)+len(columns)] {
		if amounts[i], err = strconv.ParseFloat(cell, 64); err != nil {
			return rec, fmt.Errorf("%s: %w", columns[i], err)
		}
	}
	if kind == models.KindMonthly {
		var fixed [14]float64
		copy(fixed[:], amounts)
		rec.Values = models.NewMonthlyValues(fixed)
	} else {
		var fixed [4]float64
		copy(fixed[:], amounts)
		rec.Values = models.NewStatusValues(fixed)
		if rec.FinancialColumn, err = models.ParseColumn(kind, row[len(baseHeader)+len(columns)]); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ReadFlatFile reads a flattened output from disk.
func ReadFlatFile(name string) ([]models.FinancialRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadFlat(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return records, nil
}

func writeFlatFile(name string, kind models.SheetKind, records []models.FinancialRecord) error {
	var buf bytes.Buffer
	if err := WriteFlat(&buf, kind, records); err != nil {
		return err
	}
	return writeFileAtomic(name, buf.Bytes())
}

// ReadProjectInfo reads a project-info output.
func ReadProjectInfo(name string) (models.ProjectInfo, error) {
	var info models.ProjectInfo
	data, err := os.ReadFile(name)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("%s: %w", name, err)
	}
	return info, nil
}

func writeProjectFile(name string, info models.ProjectInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(name, append(data, '\n'))
}

// LoadIndex reads the combined index of an index dir. A missing index
// returns an error satisfying errors.Is(err, fs.ErrNotExist).
func LoadIndex(dir string) (*models.Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}
	var idx models.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode %s: %w", IndexFile, err)
	}
	if idx.Version != models.IndexVersion {
		return nil, fmt.Errorf("%s: version %q, want %q", IndexFile, idx.Version, models.IndexVersion)
	}
	return &idx, nil
}

// SaveIndex writes the combined index of an index dir.
func SaveIndex(dir string, idx *models.Index) error {
	data, err := encodeIndex(idx)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, IndexFile), data)
}

func encodeIndex(idx *models.Index) ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFileAtomic replaces name through a temp file in the same directory,
// so readers see either the old or the new content.
func writeFileAtomic(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}
