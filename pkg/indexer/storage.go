package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
)

// Period is one reporting month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before reports whether p precedes o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// SourceFile is one workbook offered by a Storage.
type SourceFile struct {
	// Path is relative to the storage root, slash separated.
	Path    string
	Year    int
	Month   int
	Name    string
	Size    int64
	ModTime time.Time
}

// Period returns the reporting month of the file.
func (f SourceFile) Period() Period {
	return Period{Year: f.Year, Month: f.Month}
}

// Storage lists and opens source workbooks, local or remote.
type Storage interface {
	// Root identifies the source tree in the persisted index.
	Root() string
	// ListPeriods returns the periods holding source files, oldest first.
	ListPeriods(ctx context.Context) ([]Period, error)
	// ListFiles returns the workbooks of one period, ordered by path.
	ListFiles(ctx context.Context, period Period) ([]SourceFile, error)
	// Open returns the content of a workbook.
	Open(ctx context.Context, file SourceFile) (io.ReadCloser, error)
}

// LocalStorage reads a root/YYYY/MM/*.xls[x] tree. Month folders may be
// named 1..12 or zero padded.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a storage rooted at dir.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{root: dir}
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) ListPeriods(ctx context.Context) ([]Period, error) {
	years, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list source root %s: %w", s.root, err)
	}

	seen := make(map[Period]bool)
	var periods []Period
	for _, y := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		year, ok := parseYearDir(y)
		if !ok {
			continue
		}
		months, err := os.ReadDir(filepath.Join(s.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("list year %s: %w", y.Name(), err)
		}
		for _, m := range months {
			month, ok := parseMonthDir(m)
			if !ok {
				continue
			}
			p := Period{Year: year, Month: month}
			if !seen[p] {
				seen[p] = true
				periods = append(periods, p)
			}
		}
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

func (s *LocalStorage) ListFiles(ctx context.Context, period Period) ([]SourceFile, error) {
	years, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list source root %s: %w", s.root, err)
	}

	var files []SourceFile
	for _, y := range years {
		if year, ok := parseYearDir(y); !ok || year != period.Year {
			continue
		}
		months, err := os.ReadDir(filepath.Join(s.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("list year %s: %w", y.Name(), err)
		}
		for _, m := range months {
			if month, ok := parseMonthDir(m); !ok || month != period.Month {
				continue
			}
			entries, err := os.ReadDir(filepath.Join(s.root, y.Name(), m.Name()))
			if err != nil {
				return nil, fmt.Errorf("list period %s: %w", period, err)
			}
			for _, e := range entries {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if e.IsDir() || !parser.IsSpreadsheet(e.Name()) {
					continue
				}
				info, err := e.Info()
				if err != nil {
					return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
				}
				files = append(files, SourceFile{
					Path:    path.Join(y.Name(), m.Name(), e.Name()),
					Year:    period.Year,
					Month:   period.Month,
					Name:    e.Name(),
					Size:    info.Size(),
					ModTime: info.ModTime(),
				})
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *LocalStorage) Open(ctx context.Context, file SourceFile) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.root, filepath.FromSlash(file.Path)))
}

func parseYearDir(e os.DirEntry) (int, bool) {
	if !e.IsDir() || len(e.Name()) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(e.Name())
	if err != nil || year < 1900 {
		return 0, false
	}
	return year, true
}

func parseMonthDir(e os.DirEntry) (int, bool) {
	name := e.Name()
	if !e.IsDir() || name == "" || len(name) > 2 || strings.HasPrefix(name, ".") {
		return 0, false
	}
	month, err := strconv.Atoi(name)
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return month, true
}
