package contentmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Run("Known type", func(t *testing.T) {
		m, ok := Resolve("trendingStockBrief")
		assert.True(t, ok)
		assert.Equal(t, "briefBody", m.BodyField)
		assert.Equal(t, "briefTitle", m.Title)
		assert.Equal(t, "tickerSymbol", m.Ticker)
	})

	t.Run("Report uses its own body field", func(t *testing.T) {
		m, ok := Resolve("premiumReport")
		assert.True(t, ok)
		assert.Equal(t, "reportBody", m.BodyField)
		assert.Empty(t, m.Ticker)
	})

	t.Run("Weekly earnings carries a tickers list", func(t *testing.T) {
		m, ok := Resolve("earningsRecapWeekly")
		assert.True(t, ok)
		assert.Equal(t, "tickers", m.Tickers)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, ok := Resolve("blogPost")
		assert.False(t, ok)
	})
}

func TestTypeIDs(t *testing.T) {
	ids := TypeIDs()
	assert.Len(t, ids, 9)
	for _, id := range ids {
		_, ok := Resolve(id)
		assert.True(t, ok, id)
	}
}
