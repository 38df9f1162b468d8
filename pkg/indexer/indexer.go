// Package indexer scans the source tree, extracts changed workbooks in
// parallel and persists the combined index and per-file flattened outputs.
package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/finstruct-go/pkg/finstruct"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/parser"
	"github.com/ukaji3/finstruct-go/pkg/metrics"
	"go.uber.org/zap"
)

// Options configures an Indexer.
type Options struct {
	// IndexDir receives index.json and the flattened outputs.
	IndexDir string
	// Workers is the number of files extracted in parallel. Zero means
	// runtime.NumCPU().
	Workers int
	// Force re-extracts every file, including cached failures.
	Force bool
	// Extract is passed to every workbook extraction.
	Extract finstruct.Options
	Logger  *zap.Logger
	// Now stamps extraction times. Defaults to time.Now.
	Now func() time.Time
}

// Indexer owns the persisted index. Runs on one Indexer are serialized.
type Indexer struct {
	storage Storage
	opts    Options
	log     *zap.Logger
	mu      sync.Mutex
}

// New creates an Indexer reading from storage.
func New(storage Storage, opts Options) *Indexer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{storage: storage, opts: opts, log: log}
}

// IndexDir returns the directory holding the persisted outputs.
func (ix *Indexer) IndexDir() string {
	return ix.opts.IndexDir
}

type job struct {
	file SourceFile
	prev *models.SourceIndexEntry
}

type fileResult struct {
	entry   models.SourceIndexEntry
	outcome string
	// cached is set when the previous outputs or failure were reused.
	cached bool
	// abandoned is set when the run was cancelled before the file was
	// brought up to date. Its previous entry and outputs stay as they were.
	abandoned bool
}

// Reindex brings the index up to date with the source tree. Unchanged files
// are skipped, changed and new files are re-extracted, and files that
// disappeared are pruned. A file that fails to extract is recorded as failed
// and the run continues. If ctx is cancelled, no further file is dispatched,
// files whose read was cut short keep their previous entry and outputs, the
// index is saved with what completed, and ctx.Err() is returned together
// with the partial report.
func (ix *Indexer) Reindex(ctx context.Context) (*models.IndexReport, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	start := time.Now()
	report := &models.IndexReport{RunID: uuid.NewString()}
	log := ix.log.With(zap.String("run_id", report.RunID))

	if err := os.MkdirAll(ix.opts.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	prev, err := LoadIndex(ix.opts.IndexDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("discarding unreadable index", zap.Error(err))
		}
		prev = nil
	}
	prevByPath := make(map[string]models.SourceIndexEntry)
	if prev != nil {
		for _, e := range prev.Files {
			prevByPath[e.Path] = e
		}
	}

	files, err := ix.listFiles(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("reindex started", zap.Int("files", len(files)), zap.Int("workers", ix.opts.Workers), zap.Bool("force", ix.opts.Force))

	jobs := make(chan job)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < ix.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- ix.process(ctx, log, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			j := job{file: f}
			if e, ok := prevByPath[f.Path]; ok {
				j.prev = &e
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make(map[string]models.SourceIndexEntry, len(files))
	for res := range results {
		if res.abandoned {
			continue
		}
		entries[res.entry.Path] = res.entry
		metrics.ReindexFiles.WithLabelValues(res.outcome).Inc()
		if res.cached {
			report.Skipped++
		} else {
			report.Reextracted++
		}
	}

	runErr := ctx.Err()
	listed := make(map[string]bool, len(files))
	for _, f := range files {
		listed[f.Path] = true
	}
	for p, e := range prevByPath {
		if _, done := entries[p]; done {
			continue
		}
		if runErr != nil {
			// Not reached before cancellation: keep the previous state.
			entries[p] = e
			continue
		}
		if !listed[p] {
			ix.removeOutputs(log, e.Outputs)
			report.Removed++
			metrics.ReindexFiles.WithLabelValues(metrics.FileRemoved).Inc()
			log.Info("source removed", zap.String("path", p))
		}
	}

	next := &models.Index{
		Version:    models.IndexVersion,
		SourceRoot: ix.storage.Root(),
		Files:      make([]models.SourceIndexEntry, 0, len(entries)),
	}
	for _, e := range entries {
		next.Files = append(next.Files, e)
	}
	sort.Slice(next.Files, func(i, j int) bool { return next.Files[i].Path < next.Files[j].Path })

	for _, e := range next.Files {
		report.Scanned++
		report.Issues += e.IssueCount
		if e.Status == models.StatusOK {
			report.Succeeded++
			next.RecordCount += e.ExtractedRecordCount
		} else {
			report.Failed++
			report.Failures = append(report.Failures, models.FileFailure{Path: e.Path, Reason: e.Error})
		}
	}
	report.Records = next.RecordCount

	written, err := ix.saveIfChanged(prev, next)
	if err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	report.Duration = time.Since(start)
	metrics.ReindexDuration.Observe(report.Duration.Seconds())
	metrics.IndexedRecords.Set(float64(report.Records))

	log.Info("reindex finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("reextracted", report.Reextracted),
		zap.Int("removed", report.Removed),
		zap.Int("records", report.Records),
		zap.Bool("index_written", written),
		zap.Duration("duration", report.Duration),
	)
	return report, runErr
}

func (ix *Indexer) listFiles(ctx context.Context) ([]SourceFile, error) {
	periods, err := ix.storage.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	var files []SourceFile
	for _, p := range periods {
		pf, err := ix.storage.ListFiles(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("list files of %s: %w", p, err)
		}
		files = append(files, pf...)
	}
	return files, nil
}

// process brings one file up to date. The size and modification time are
// checked first; the content hash is only computed when they differ.
func (ix *Indexer) process(ctx context.Context, log *zap.Logger, j job) fileResult {
	f := j.file
	flog := log.With(zap.String("path", f.Path), zap.Int("year", f.Year), zap.Int("month", f.Month))

	if j.prev != nil && !ix.opts.Force && metadataMatches(j.prev.ContentFingerprint, f) {
		if res, ok := ix.reuse(*j.prev); ok {
			flog.Debug("unchanged")
			return res
		}
	}

	if ctx.Err() != nil {
		return fileResult{abandoned: true}
	}
	data, err := ix.read(ctx, f)
	if err != nil {
		if ctx.Err() != nil {
			flog.Debug("abandoned by cancellation", zap.Error(err))
			return fileResult{abandoned: true}
		}
		return ix.fail(flog, j, fingerprintOf(f, ""), err)
	}
	fp := fingerprintOf(f, HashContent(data))

	if j.prev != nil && !ix.opts.Force && j.prev.ContentFingerprint.Hash == fp.Hash {
		prev := *j.prev
		prev.ContentFingerprint = fp
		if res, ok := ix.reuse(prev); ok {
			flog.Debug("touched but unchanged")
			return res
		}
	}

	entry, err := ix.extract(flog, f, data)
	if err != nil {
		return ix.fail(flog, j, fp, err)
	}
	entry.ContentFingerprint = fp
	if j.prev != nil {
		ix.removeOutputs(flog, staleOutputs(j.prev.Outputs, entry.Outputs))
	}

	flog.Info("extracted", zap.Int("records", entry.ExtractedRecordCount), zap.Int("issues", entry.IssueCount))
	return fileResult{entry: entry, outcome: metrics.FileExtracted}
}

// reuse returns the previous state of an unchanged file. Failures stay
// cached; successful entries need their outputs on disk.
func (ix *Indexer) reuse(prev models.SourceIndexEntry) (fileResult, bool) {
	if prev.Status == models.StatusFailed {
		return fileResult{entry: prev, outcome: metrics.FileFailed, cached: true}, true
	}
	if !ix.outputsExist(prev.Outputs) {
		return fileResult{}, false
	}
	return fileResult{entry: prev, outcome: metrics.FileSkipped, cached: true}, true
}

func (ix *Indexer) read(ctx context.Context, f SourceFile) ([]byte, error) {
	rc, err := ix.storage.Open(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrFileUnreadable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrFileUnreadable, err)
	}
	return data, nil
}

// extract replaces the outputs of one file. On error no new output is left
// behind.
func (ix *Indexer) extract(log *zap.Logger, f SourceFile, data []byte) (models.SourceIndexEntry, error) {
	wb, err := parser.OpenWorkbook(f.Name, bytes.NewReader(data))
	if err != nil {
		return models.SourceIndexEntry{}, err
	}
	defer wb.Close()

	opts := ix.opts.Extract
	if opts.Logger == nil {
		opts.Logger = log
	} else {
		opts.Logger = opts.Logger.With(zap.String("path", f.Path))
	}

	book, err := finstruct.ExtractWorkbook(wb, f.Name, f.Year, f.Month, opts)
	if err != nil {
		return models.SourceIndexEntry{}, err
	}

	var outputs []string
	write := func(name string, fn func(string) error) error {
		if err := fn(ix.abs(name)); err != nil {
			ix.removeOutputs(log, outputs)
			return fmt.Errorf("write %s: %w", name, err)
		}
		outputs = append(outputs, name)
		return nil
	}

	for _, kind := range []models.SheetKind{models.KindMonthly, models.KindStatus} {
		records := book.RecordsOfKind(kind)
		if len(records) == 0 {
			continue
		}
		suffix := MonthlySuffix
		if kind == models.KindStatus {
			suffix = StatusSuffix
		}
		err := write(outputName(f.Path, suffix), func(name string) error {
			return writeFlatFile(name, kind, records)
		})
		if err != nil {
			return models.SourceIndexEntry{}, err
		}
	}

	if book.Project != nil {
		info := *book.Project
		info.SourcePath = f.Path
		err := write(outputName(f.Path, ProjectSuffix), func(name string) error {
			return writeProjectFile(name, info)
		})
		if err != nil {
			return models.SourceIndexEntry{}, err
		}
	}

	return models.SourceIndexEntry{
		Path:                 f.Path,
		Year:                 f.Year,
		Month:                f.Month,
		ExtractedRecordCount: len(book.Records()),
		IssueCount:           book.IssueCount(),
		LastExtractedAt:      ix.opts.Now().UTC(),
		Status:               models.StatusOK,
		Outputs:              outputs,
	}, nil
}

// fail records a failed extraction. The file's previous records are
// withdrawn along with their outputs.
func (ix *Indexer) fail(log *zap.Logger, j job, fp models.Fingerprint, err error) fileResult {
	if j.prev != nil {
		ix.removeOutputs(log, j.prev.Outputs)
	}
	log.Warn("extraction failed", zap.Error(err))
	return fileResult{
		entry: models.SourceIndexEntry{
			Path:               j.file.Path,
			Year:               j.file.Year,
			Month:              j.file.Month,
			ContentFingerprint: fp,
			LastExtractedAt:    ix.opts.Now().UTC(),
			Status:             models.StatusFailed,
			Error:              err.Error(),
		},
		outcome: metrics.FileFailed,
	}
}

// saveIfChanged writes next unless it equals prev apart from the
// generation time, which keeps repeated runs byte-identical.
func (ix *Indexer) saveIfChanged(prev, next *models.Index) (bool, error) {
	if prev != nil {
		next.GeneratedAt = prev.GeneratedAt
		before, err := encodeIndex(prev)
		if err != nil {
			return false, err
		}
		after, err := encodeIndex(next)
		if err != nil {
			return false, err
		}
		if bytes.Equal(before, after) {
			return false, nil
		}
	}
	next.GeneratedAt = ix.opts.Now().UTC()
	return true, SaveIndex(ix.opts.IndexDir, next)
}

func (ix *Indexer) abs(name string) string {
	return filepath.Join(ix.opts.IndexDir, filepath.FromSlash(name))
}

func (ix *Indexer) outputsExist(names []string) bool {
	for _, name := range names {
		if _, err := os.Stat(ix.abs(name)); err != nil {
			return false
		}
	}
	return true
}

func (ix *Indexer) removeOutputs(log *zap.Logger, names []string) {
	for _, name := range names {
		if err := os.Remove(ix.abs(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("remove output", zap.String("output", name), zap.Error(err))
		}
	}
}

func staleOutputs(old, current []string) []string {
	keep := make(map[string]bool, len(current))
	for _, name := range current {
		keep[name] = true
	}
	var stale []string
	for _, name := range old {
		if !keep[name] {
			stale = append(stale, name)
		}
	}
	return stale
}
