package indexer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/finstruct-go/internal/fixture"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"go.uber.org/zap/zaptest"
)

// recordsPerBook is what one fixture workbook yields: four monthly sheets
// plus one status record per financial type column.
var recordsPerBook = 4*len(fixture.Rows) + fixture.StatusRecordsPerRow*len(fixture.Rows)

var baseTime = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func writeSource(t *testing.T, root, rel string, opts fixture.Options, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, fixture.Write(path, opts))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func sourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSource(t, root, "2025/12/P-001.xlsx", fixture.Default(), baseTime)

	second := fixture.Default()
	second.ProjectCode = "P-002"
	second.Factor = 2
	writeSource(t, root, "2025/12/P-002.xlsx", second, baseTime)

	writeSource(t, root, "2026/1/P-001.xlsx", fixture.Default(), baseTime)
	return root
}

func newIndexer(t *testing.T, storage Storage, opts Options) *Indexer {
	t.Helper()
	if opts.IndexDir == "" {
		opts.IndexDir = t.TempDir()
	}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	opts.Logger = zaptest.NewLogger(t)
	opts.Now = func() time.Time { return baseTime.Add(time.Hour) }
	return New(storage, opts)
}

func TestReindexBuildsIndex(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 3, report.Reextracted)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 3*recordsPerBook, report.Records)
	assert.Equal(t, 3, report.Issues, "one unparsed complete date per book")

	idx, err := LoadIndex(ix.IndexDir())
	require.NoError(t, err)
	assert.Equal(t, root, idx.SourceRoot)
	assert.Equal(t, 3*recordsPerBook, idx.RecordCount)
	require.Len(t, idx.Files, 3)
	assert.Equal(t, "2025/12/P-001.xlsx", idx.Files[0].Path)
	assert.Equal(t, "2026/1/P-001.xlsx", idx.Files[2].Path)
	assert.Equal(t, 1, idx.Files[2].Month)

	entry := idx.Files[0]
	assert.Equal(t, models.StatusOK, entry.Status)
	assert.NotEmpty(t, entry.ContentFingerprint.Hash)
	assert.Equal(t, []string{
		"flat/2025/12/P-001.xlsx.monthly.csv",
		"flat/2025/12/P-001.xlsx.status.csv",
		"flat/2025/12/P-001.xlsx.project.json",
	}, entry.Outputs)

	records, err := ReadFlatFile(filepath.Join(ix.IndexDir(), "flat/2025/12/P-001.xlsx.monthly.csv"))
	require.NoError(t, err)
	require.Len(t, records, 4*len(fixture.Rows))
	assert.Equal(t, "  -V.O. / C.E.", records[2].Trade)

	info, err := ReadProjectInfo(filepath.Join(ix.IndexDir(), "flat/2025/12/P-001.xlsx.project.json"))
	require.NoError(t, err)
	assert.Equal(t, "2025/12/P-001.xlsx", info.SourcePath)
	assert.Equal(t, "P-001", info.ProjectCode)
}

func TestReindexIsIdempotent(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})

	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	first := snapshot(t, ix.IndexDir())

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reextracted)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 3*recordsPerBook, report.Records)

	assert.Equal(t, first, snapshot(t, ix.IndexDir()))
}

func TestReindexPartialFailure(t *testing.T) {
	root := sourceTree(t)
	broken := filepath.Join(root, "2025", "12", "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("this is not a workbook"), 0o644))

	ix := newIndexer(t, NewLocalStorage(root), Options{})
	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "2025/12/broken.xlsx", report.Failures[0].Path)
	assert.NotEmpty(t, report.Failures[0].Reason)
	assert.Equal(t, 3*recordsPerBook, report.Records)

	// The failure is cached until the file changes.
	report, err = ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reextracted)
	assert.Equal(t, 1, report.Failed)

	// A repaired file is picked up.
	writeSource(t, root, "2025/12/broken.xlsx", fixture.Default(), baseTime.Add(time.Minute))
	report, err = ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reextracted)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 4*recordsPerBook, report.Records)
}

func TestReindexDetectsChanges(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	changed := fixture.Default()
	changed.Factor = 3
	writeSource(t, root, "2025/12/P-001.xlsx", changed, baseTime.Add(time.Hour))

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reextracted)
	assert.Equal(t, 2, report.Skipped)

	records, err := ReadFlatFile(filepath.Join(ix.IndexDir(), "flat/2025/12/P-001.xlsx.monthly.csv"))
	require.NoError(t, err)
	assert.InDelta(t, fixture.MonthlyTotal(100, 3), records[1].Amount(), 1e-9)
}

func TestReindexTouchedFileIsNotReextracted(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	touched := filepath.Join(root, "2025", "12", "P-002.xlsx")
	later := baseTime.Add(24 * time.Hour)
	require.NoError(t, os.Chtimes(touched, later, later))

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reextracted)
	assert.Equal(t, 3, report.Skipped)

	idx, err := LoadIndex(ix.IndexDir())
	require.NoError(t, err)
	assert.Equal(t, later.UnixNano(), idx.Files[1].ContentFingerprint.ModTime)
}

func TestReindexPrunesRemovedFiles(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "2026", "1", "P-001.xlsx")))

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2*recordsPerBook, report.Records)
	assert.NoFileExists(t, filepath.Join(ix.IndexDir(), "flat/2026/1/P-001.xlsx.monthly.csv"))
}

func TestReindexForce(t *testing.T) {
	root := sourceTree(t)
	dir := t.TempDir()
	_, err := newIndexer(t, NewLocalStorage(root), Options{IndexDir: dir}).Reindex(context.Background())
	require.NoError(t, err)

	report, err := newIndexer(t, NewLocalStorage(root), Options{IndexDir: dir, Force: true}).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Reextracted)
	assert.Equal(t, 0, report.Skipped)
}

func TestReindexRestoresMissingOutputs(t *testing.T) {
	root := sourceTree(t)
	ix := newIndexer(t, NewLocalStorage(root), Options{})
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	output := filepath.Join(ix.IndexDir(), "flat/2025/12/P-002.xlsx.status.csv")
	require.NoError(t, os.Remove(output))

	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reextracted)
	assert.FileExists(t, output)
}

func TestReindexDiscardsCorruptIndex(t *testing.T) {
	root := sourceTree(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("{"), 0o644))

	report, err := newIndexer(t, NewLocalStorage(root), Options{IndexDir: dir}).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Reextracted)

	_, err = LoadIndex(dir)
	assert.NoError(t, err)
}

func TestReindexCancelled(t *testing.T) {
	root := sourceTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newIndexer(t, NewLocalStorage(root), Options{}).Reindex(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingStorage cancels the run once the source tree has been listed,
// or when a file is opened.
type cancellingStorage struct {
	*LocalStorage
	cancel       context.CancelFunc
	afterListing Period
	onOpen       bool
}

func (s *cancellingStorage) ListFiles(ctx context.Context, period Period) ([]SourceFile, error) {
	files, err := s.LocalStorage.ListFiles(ctx, period)
	if period == s.afterListing {
		s.cancel()
	}
	return files, err
}

func (s *cancellingStorage) Open(ctx context.Context, file SourceFile) (io.ReadCloser, error) {
	if s.onOpen {
		s.cancel()
	}
	return s.LocalStorage.Open(ctx, file)
}

func TestReindexCancelledMidRunKeepsPreviousEntries(t *testing.T) {
	tests := []struct {
		name    string
		storage func(root string, cancel context.CancelFunc) Storage
	}{
		{"after listing", func(root string, cancel context.CancelFunc) Storage {
			return &cancellingStorage{LocalStorage: NewLocalStorage(root), cancel: cancel, afterListing: Period{Year: 2026, Month: 1}}
		}},
		{"while opening", func(root string, cancel context.CancelFunc) Storage {
			return &cancellingStorage{LocalStorage: NewLocalStorage(root), cancel: cancel, onOpen: true}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := sourceTree(t)
			dir := t.TempDir()
			_, err := newIndexer(t, NewLocalStorage(root), Options{IndexDir: dir}).Reindex(context.Background())
			require.NoError(t, err)
			before := snapshot(t, dir)

			changed := fixture.Default()
			changed.Factor = 3
			writeSource(t, root, "2025/12/P-001.xlsx", changed, baseTime.Add(time.Hour))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			ix := newIndexer(t, tt.storage(root, cancel), Options{IndexDir: dir, Workers: 1})

			report, err := ix.Reindex(ctx)
			assert.ErrorIs(t, err, context.Canceled)
			require.NotNil(t, report)
			assert.Equal(t, 0, report.Failed)
			assert.Equal(t, 0, report.Reextracted)
			assert.Equal(t, 3, report.Succeeded)

			idx, err := LoadIndex(dir)
			require.NoError(t, err)
			require.Len(t, idx.Files, 3)
			entry := idx.Files[0]
			assert.Equal(t, "2025/12/P-001.xlsx", entry.Path)
			assert.Equal(t, models.StatusOK, entry.Status)
			assert.Empty(t, entry.Error)
			for _, out := range entry.Outputs {
				assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(out)))
			}
			assert.Equal(t, before, snapshot(t, dir))
		})
	}
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Root() string {
	return m.Called().String(0)
}

func (m *mockStorage) ListPeriods(ctx context.Context) ([]Period, error) {
	args := m.Called(ctx)
	periods, _ := args.Get(0).([]Period)
	return periods, args.Error(1)
}

func (m *mockStorage) ListFiles(ctx context.Context, period Period) ([]SourceFile, error) {
	args := m.Called(ctx, period)
	files, _ := args.Get(0).([]SourceFile)
	return files, args.Error(1)
}

func (m *mockStorage) Open(ctx context.Context, file SourceFile) (io.ReadCloser, error) {
	args := m.Called(ctx, file)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func TestReindexWithMockStorage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, fixture.Write(src, fixture.Default()))

	period := Period{Year: 2025, Month: 3}
	good := SourceFile{Path: "2025/03/report.xlsx", Year: 2025, Month: 3, Name: "report.xlsx", Size: 10, ModTime: baseTime}
	gone := SourceFile{Path: "2025/03/gone.xlsx", Year: 2025, Month: 3, Name: "gone.xlsx", Size: 10, ModTime: baseTime}

	storage := new(mockStorage)
	storage.On("Root").Return("drive://reports")
	storage.On("ListPeriods", mock.Anything).Return([]Period{period}, nil)
	storage.On("ListFiles", mock.Anything, period).Return([]SourceFile{good, gone}, nil)
	storage.On("Open", mock.Anything, good).Return(mustOpen(t, src), nil)
	storage.On("Open", mock.Anything, gone).Return(nil, errors.New("404 not found"))

	ix := newIndexer(t, storage, Options{Workers: 1})
	report, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0].Reason, "404 not found")
	assert.Contains(t, report.Failures[0].Reason, "file unreadable")
	storage.AssertExpectations(t)

	idx, err := LoadIndex(ix.IndexDir())
	require.NoError(t, err)
	assert.Equal(t, "drive://reports", idx.SourceRoot)
}

func TestReindexListingError(t *testing.T) {
	storage := new(mockStorage)
	storage.On("ListPeriods", mock.Anything).Return(nil, errors.New("token expired"))

	_, err := newIndexer(t, storage, Options{}).Reindex(context.Background())
	assert.ErrorContains(t, err, "token expired")
	storage.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func mustOpen(t *testing.T, path string) io.ReadCloser {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	return f
}

// snapshot reads every file under dir keyed by relative path.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}
