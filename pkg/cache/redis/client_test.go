package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
	"github.com/ukaji3/finstruct-go/pkg/query"
)

func TestKey(t *testing.T) {
	f := query.Filter{Year: 2025, Month: 2, SheetName: models.SheetProjection, Trade: "Gross Profit"}

	key := Key("abc123", f)
	assert.True(t, strings.HasPrefix(key, "finstruct:query:abc123:"), key)
	assert.Len(t, strings.TrimPrefix(key, "finstruct:query:abc123:"), 16)

	assert.Equal(t, key, Key("abc123", f), "stable")
	assert.Equal(t, key, Key("abc123", query.Filter{
		Year: 2025, Month: 2, SheetName: "projection", Trade: "  Gross Profit ",
	}), "normalized filters share a key")

	assert.NotEqual(t, key, Key("def456", f), "generation is part of the key")

	other := f
	other.Month = 3
	assert.NotEqual(t, key, Key("abc123", other))

	// Field boundaries are delimited.
	a := Key("g", query.Filter{ItemCode: "1", Trade: "2"})
	b := Key("g", query.Filter{ItemCode: "12"})
	assert.NotEqual(t, a, b)
}

func unreachable(t *testing.T, log *zap.Logger) *Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := Wrap(rdb, time.Minute, log)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestQueryFallsBackWhenRedisIsDown(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := unreachable(t, zap.New(core))

	store := query.NewStore([]models.FinancialRecord{{
		Year: 2025, Month: 2, SheetName: models.SheetProjection,
		ItemCode: "3", Trade: "Gross Profit", IsCategoryHeader: true,
		Values: models.NewMonthlyValues([14]float64{13: 540}),
	}}, nil, "gen-1")

	res, err := c.Query(context.Background(), store, query.Filter{Year: 2025, SheetName: "projection"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "gen-1", res.Generation)

	assert.Equal(t, 1, logs.FilterMessage("query cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("query cache write failed").Len())
}

func TestQueryInvalidFilterSkipsCache(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := unreachable(t, zap.New(core))
	store := query.NewStore(nil, nil, "gen-1")

	_, err := c.Query(context.Background(), store, query.Filter{Month: 13})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
	assert.Zero(t, logs.Len())
}

func TestGetError(t *testing.T) {
	c := unreachable(t, nil)

	var dst query.Result
	hit, err := c.Get(context.Background(), Key("g", query.Filter{}), &dst)
	assert.False(t, hit)
	assert.Error(t, err)
}
