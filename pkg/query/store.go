// Package query answers filtered lookups and named presets over the records
// persisted by the indexer.
package query

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"go.uber.org/zap"
)

// Snapshot is an immutable record set. Records are ordered by period,
// oldest first, and by document order inside a period.
type Snapshot struct {
	records    []models.FinancialRecord
	projects   []models.ProjectInfo
	periods    []indexer.Period
	generation string
}

// NewSnapshot orders records by period, keeping their relative order
// otherwise.
func NewSnapshot(records []models.FinancialRecord, projects []models.ProjectInfo, generation string) *Snapshot {
	recs := append([]models.FinancialRecord(nil), records...)
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})

	projs := append([]models.ProjectInfo(nil), projects...)
	sort.SliceStable(projs, func(i, j int) bool {
		a, b := projs[i], projs[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.ProjectCode < b.ProjectCode
	})

	var periods []indexer.Period
	for _, rec := range recs {
		p := indexer.Period{Year: rec.Year, Month: rec.Month}
		if len(periods) == 0 || periods[len(periods)-1] != p {
			periods = append(periods, p)
		}
	}

	return &Snapshot{records: recs, projects: projs, periods: periods, generation: generation}
}

// LoadSnapshot reads the index and the flattened outputs of every
// successfully extracted file in an index dir.
func LoadSnapshot(dir string) (*Snapshot, error) {
	idx, err := indexer.LoadIndex(dir)
	if err != nil {
		return nil, err
	}

	var (
		records  []models.FinancialRecord
		projects []models.ProjectInfo
	)
	for _, entry := range idx.Files {
		if entry.Status != models.StatusOK {
			continue
		}
		for _, out := range entry.Outputs {
			name := filepath.Join(dir, filepath.FromSlash(out))
			switch {
			case strings.HasSuffix(out, indexer.ProjectSuffix):
				info, err := indexer.ReadProjectInfo(name)
				if err != nil {
					return nil, err
				}
				projects = append(projects, info)
			default:
				recs, err := indexer.ReadFlatFile(name)
				if err != nil {
					return nil, err
				}
				records = append(records, recs...)
			}
		}
	}

	generation := indexer.HashContent([]byte(fmt.Sprintf("%s/%d/%d",
		idx.GeneratedAt.UTC().Format(time.RFC3339Nano), idx.RecordCount, len(idx.Files))))
	return NewSnapshot(records, projects, generation), nil
}

// Generation identifies the snapshot. It changes whenever the index does.
func (s *Snapshot) Generation() string {
	return s.generation
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Store serves queries from the current snapshot. It is safe for
// concurrent use; Swap replaces the snapshot without blocking readers for
// longer than a pointer copy.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates a store over an in-memory record set.
func NewStore(records []models.FinancialRecord, projects []models.ProjectInfo, generation string) *Store {
	return &Store{snap: NewSnapshot(records, projects, generation)}
}

// InitOptions configures Initialize.
type InitOptions struct {
	// IndexDir holds the persisted index. Defaults to the indexer's dir.
	IndexDir string
	// Indexer builds the index when it is missing or Refresh is set.
	Indexer *indexer.Indexer
	// Refresh runs a reindex before loading.
	Refresh bool
	Logger  *zap.Logger
}

// Initialize loads the persisted index into a new Store, reindexing first
// when the index is missing or a refresh is requested.
func Initialize(ctx context.Context, opts InitOptions) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dir := opts.IndexDir
	if dir == "" && opts.Indexer != nil {
		dir = opts.Indexer.IndexDir()
	}
	if dir == "" {
		return nil, errors.New("query: no index dir")
	}

	_, err := indexer.LoadIndex(dir)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return nil, fmt.Errorf("load index: %w", err)
	}

	if missing || opts.Refresh {
		if opts.Indexer == nil {
			return nil, fmt.Errorf("query: no index in %s and no indexer to build one", dir)
		}
		report, err := opts.Indexer.Reindex(ctx)
		if err != nil {
			return nil, fmt.Errorf("reindex: %w", err)
		}
		log.Info("index built",
			zap.String("run_id", report.RunID),
			zap.Int("records", report.Records),
			zap.Int("failed", report.Failed))
	}

	snap, err := LoadSnapshot(dir)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	log.Info("store loaded", zap.String("index_dir", dir), zap.Int("records", snap.Len()),
		zap.String("generation", snap.Generation()))
	return &Store{snap: snap}, nil
}

// Swap replaces the served snapshot.
func (s *Store) Swap(snap *Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Reload swaps in the snapshot currently persisted in dir.
func (s *Store) Reload(dir string) error {
	snap, err := LoadSnapshot(dir)
	if err != nil {
		return err
	}
	s.Swap(snap)
	return nil
}

func (s *Store) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Generation identifies the served snapshot.
func (s *Store) Generation() string {
	return s.snapshot().generation
}

// Periods lists the periods holding records, oldest first.
func (s *Store) Periods() []indexer.Period {
	return append([]indexer.Period(nil), s.snapshot().periods...)
}

// LatestPeriod returns the most recent period with records.
func (s *Store) LatestPeriod() (indexer.Period, bool) {
	periods := s.snapshot().periods
	if len(periods) == 0 {
		return indexer.Period{}, false
	}
	return periods[len(periods)-1], true
}

// Projects returns the project info of every indexed workbook, ordered by
// period then project code.
func (s *Store) Projects() []models.ProjectInfo {
	return append([]models.ProjectInfo(nil), s.snapshot().projects...)
}

// Project returns the most recent project info with the given code.
func (s *Store) Project(code string) (models.ProjectInfo, bool) {
	projects := s.snapshot().projects
	for i := len(projects) - 1; i >= 0; i-- {
		if strings.EqualFold(projects[i].ProjectCode, code) {
			return projects[i], true
		}
	}
	return models.ProjectInfo{}, false
}
