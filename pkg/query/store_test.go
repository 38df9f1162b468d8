package query

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/finstruct-go/internal/fixture"
	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/indexer"
	"go.uber.org/zap/zaptest"
)

func sourceRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{"2025/11/P-001.xlsx", "2025/12/P-001.xlsx"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, fixture.Write(path, fixture.Default()))
	}
	return root
}

func TestInitializeBuildsMissingIndex(t *testing.T) {
	ix := indexer.New(indexer.NewLocalStorage(sourceRoot(t)), indexer.Options{
		IndexDir: t.TempDir(),
		Logger:   zaptest.NewLogger(t),
	})

	store, err := Initialize(context.Background(), InitOptions{Indexer: ix, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []indexer.Period{{Year: 2025, Month: 11}, {Year: 2025, Month: 12}}, store.Periods())
	latest, ok := store.LatestPeriod()
	require.True(t, ok)
	assert.Equal(t, indexer.Period{Year: 2025, Month: 12}, latest)
	assert.NotEmpty(t, store.Generation())

	projects := store.Projects()
	require.Len(t, projects, 2)
	assert.Equal(t, "2025/11/P-001.xlsx", projects[0].SourcePath)

	p, ok := store.Project("p-001")
	require.True(t, ok)
	assert.Equal(t, 12, p.Month)
	_, ok = store.Project("P-999")
	assert.False(t, ok)

	res, err := store.WIPGrossProfit(2025, 12)
	require.NoError(t, err)
	assert.Equal(t, "47.25", res.Total.String())

	trades, err := store.Query(Filter{Year: 2025, Month: 11, SheetName: models.SheetProjection, ItemCode: "1.2"})
	require.NoError(t, err)
	require.Len(t, trades.Records, 1)
	assert.Equal(t, "  -V.O. / C.E.", trades.Records[0].Trade)
}

func TestInitializeRequiresIndexerWhenMissing(t *testing.T) {
	_, err := Initialize(context.Background(), InitOptions{IndexDir: t.TempDir()})
	assert.ErrorContains(t, err, "no indexer")

	_, err = Initialize(context.Background(), InitOptions{})
	assert.Error(t, err)
}

func TestInitializeExistingIndexAndReload(t *testing.T) {
	root := sourceRoot(t)
	dir := t.TempDir()
	ix := indexer.New(indexer.NewLocalStorage(root), indexer.Options{IndexDir: dir})
	_, err := ix.Reindex(context.Background())
	require.NoError(t, err)

	store, err := Initialize(context.Background(), InitOptions{IndexDir: dir})
	require.NoError(t, err)
	before := store.Generation()
	assert.Len(t, store.Periods(), 2)

	require.NoError(t, os.Remove(filepath.Join(root, "2025", "11", "P-001.xlsx")))
	_, err = ix.Reindex(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Reload(dir))
	assert.NotEqual(t, before, store.Generation())
	assert.Equal(t, []indexer.Period{{Year: 2025, Month: 12}}, store.Periods())
}

func TestStoreSwapWhileQuerying(t *testing.T) {
	store := NewStore(reportRecords(2025, 1, 1, WIPFinancialType), nil, "g1")
	next := NewSnapshot(reportRecords(2025, 2, 1, WIPFinancialType), nil, "g2")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res, err := store.Query(Filter{SheetName: models.SheetCashFlow})
				assert.NoError(t, err)
				assert.Len(t, res.Records, 7)
			}
		}()
	}
	store.Swap(next)
	wg.Wait()

	assert.Equal(t, "g2", store.Generation())
	latest, _ := store.LatestPeriod()
	assert.Equal(t, 2, latest.Month)
}

func TestEmptyStore(t *testing.T) {
	store := NewStore(nil, []models.ProjectInfo{project("P-002", 2025, 1), project("P-001", 2025, 1)}, "g")
	_, ok := store.LatestPeriod()
	assert.False(t, ok)
	assert.Empty(t, store.Periods())
	assert.Equal(t, "P-001", store.Projects()[0].ProjectCode)
}
