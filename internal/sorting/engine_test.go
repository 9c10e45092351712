package sorting

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

func symbols(stocks []*models.Stock) []string {
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.Symbol
	}
	return out
}

func randomStocks(n int, seed uint64) []*models.Stock {
	rng := rand.New(rand.NewPCG(seed, seed))
	sectors := []string{"Technology", "Energy", "Healthcare", "financials"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]*models.Stock, n)
	for i := range out {
		out[i] = &models.Stock{
			ID:            fmt.Sprintf("id-%d", i),
			Symbol:        fmt.Sprintf("S%04d", rng.IntN(10000)),
			Name:          fmt.Sprintf("Company %d", rng.IntN(500)),
			Sector:        sectors[rng.IntN(len(sectors))],
			CurrentPrice:  float64(rng.IntN(50)) + 0.25,
			Volume:        int64(rng.IntN(1_000_000)),
			MarketCap:     int64(rng.IntN(100)) * 1_000_000,
			ChangePercent: float64(rng.IntN(200)-100) / 10,
			LastUpdated:   base.Add(time.Duration(rng.IntN(1000)) * time.Hour),
		}
	}
	return out
}

func TestSort(t *testing.T) {
	t.Run("symbol_asc with every algorithm", func(t *testing.T) {
		records := []*models.Stock{{Symbol: "B"}, {Symbol: "A"}, {Symbol: "C"}}

		for _, alg := range []string{"quick", "merge", "heap", "bubble"} {
			result, err := Sort(records, "symbol_asc", alg)
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B", "C"}, symbols(result.Sorted), alg)
			assert.Equal(t, Algorithm(alg), result.Algorithm)
			assert.Equal(t, 3, result.Count)
		}
		assert.Equal(t, []string{"B", "A", "C"}, symbols(records), "input must not be modified")
	})

	t.Run("every criterion and algorithm yields an ordered permutation", func(t *testing.T) {
		records := randomStocks(120, 9)

		for name, c := range registry {
			compare := c.Comparator()
			for _, alg := range []Algorithm{Quick, Merge, Heap, Bubble} {
				result, err := Sort(records, name, string(alg))
				require.NoError(t, err)
				assert.True(t, slices.IsSortedFunc(result.Sorted, compare), "%s/%s", name, alg)
				assert.ElementsMatch(t, records, result.Sorted)
			}
		}
	})

	t.Run("merge and bubble are stable", func(t *testing.T) {
		records := randomStocks(80, 10)
		for _, alg := range []string{"merge", "bubble"} {
			result, err := Sort(records, "sector_desc", alg)
			require.NoError(t, err)

			index := make(map[*models.Stock]int, len(records))
			for i, r := range records {
				index[r] = i
			}
			for i := 1; i < len(result.Sorted); i++ {
				prev, cur := result.Sorted[i-1], result.Sorted[i]
				if prev.Sector == cur.Sector {
					assert.Less(t, index[prev], index[cur], alg)
				}
			}
		}
	})

	t.Run("smart sort dispatches by size", func(t *testing.T) {
		cases := map[int]Algorithm{5: Bubble, 10: Bubble, 11: Quick, 500: Quick, 1000: Quick, 1001: Merge, 5000: Merge}
		for n, want := range cases {
			result, err := Sort(randomStocks(n, uint64(n)), "price_asc", "")
			require.NoError(t, err)
			assert.Equal(t, want, result.Algorithm, "n=%d", n)

			result, err = Sort(randomStocks(n, uint64(n)), "price_asc", "smart")
			require.NoError(t, err)
			assert.Equal(t, want, result.Algorithm, "n=%d", n)
		}
	})

	t.Run("invalid criterion", func(t *testing.T) {
		_, err := Sort(randomStocks(3, 1), "dividend_asc", "")
		assert.ErrorIs(t, err, ErrInvalidCriterion)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		_, err := Sort(randomStocks(3, 1), "price_asc", "timsort")
		assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	})
}

func TestComparators(t *testing.T) {
	t.Run("strings use collation rather than byte order", func(t *testing.T) {
		records := []*models.Stock{{Name: "banana"}, {Name: "Cherry"}, {Name: "apple"}}
		result, err := Sort(records, "name_asc", "merge")
		require.NoError(t, err)

		names := []string{}
		for _, s := range result.Sorted {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"apple", "banana", "Cherry"}, names)
	})

	t.Run("missing date sorts as the epoch", func(t *testing.T) {
		records := []*models.Stock{
			{Symbol: "NEW", LastUpdated: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			{Symbol: "OLD", LastUpdated: time.Date(1960, 5, 1, 0, 0, 0, 0, time.UTC)},
			{Symbol: "NONE"},
		}
		result, err := Sort(records, "date_asc", "bubble")
		require.NoError(t, err)
		assert.Equal(t, []string{"OLD", "NONE", "NEW"}, symbols(result.Sorted))
	})

	t.Run("descending reverses numeric order", func(t *testing.T) {
		records := []*models.Stock{
			{Symbol: "A", MarketCap: 10},
			{Symbol: "B"},
			{Symbol: "C", MarketCap: 30},
		}
		result, err := Sort(records, "marketCap_desc", "heap")
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "A", "B"}, symbols(result.Sorted))
	})
}

func TestMultiSort(t *testing.T) {
	records := []*models.Stock{
		{Symbol: "D", Sector: "Energy", CurrentPrice: 50},
		{Symbol: "A", Sector: "Technology", CurrentPrice: 100},
		{Symbol: "C", Sector: "Energy", CurrentPrice: 75},
		{Symbol: "B", Sector: "Technology", CurrentPrice: 100},
		{Symbol: "E", Sector: "Energy", CurrentPrice: 75},
	}

	sorted, err := MultiSort(records, []string{"sector_asc", "price_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "E", "D", "A", "B"}, symbols(sorted))

	sorted, err = MultiSort(records, []string{"price_desc", "symbol_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "E", "C", "D"}, symbols(sorted))

	_, err = MultiSort(records, []string{"sector_asc", "bogus"})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
}

func TestBenchmark(t *testing.T) {
	t.Run("includes bubble for 50 records", func(t *testing.T) {
		timings, err := Benchmark(randomStocks(50, 5), "price_asc")
		require.NoError(t, err)
		assert.Len(t, timings, 4)
		assert.Contains(t, timings, Bubble)
	})

	t.Run("omits bubble for 200 records", func(t *testing.T) {
		timings, err := Benchmark(randomStocks(200, 6), "volume_desc")
		require.NoError(t, err)
		assert.Len(t, timings, 3)
		assert.NotContains(t, timings, Bubble)
		for alg, ms := range timings {
			assert.GreaterOrEqual(t, ms, 0.0, alg)
		}
	})

	t.Run("invalid criterion", func(t *testing.T) {
		_, err := Benchmark(randomStocks(5, 1), "nope")
		assert.ErrorIs(t, err, ErrInvalidCriterion)
	})
}

func TestListCriteria(t *testing.T) {
	groups := ListCriteria()

	assert.Equal(t, []string{"price_asc", "price_desc"}, groups["price"])
	assert.Equal(t, []string{"symbol_asc", "symbol_desc", "name_asc", "name_desc", "sector_asc", "sector_desc"}, groups["alphabetical"])

	total := 0
	for _, names := range groups {
		for _, n := range names {
			_, err := ParseCriterion(n)
			assert.NoError(t, err)
		}
		total += len(names)
	}
	assert.Equal(t, len(registry), total)
	assert.Equal(t, 16, total)
}
