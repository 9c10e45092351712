// Package sorting ranks stock records with a small set of classic sorting
// algorithms. It exists to demonstrate their complexity classes; MultiSort
// uses the standard library's stable sort.
package sorting

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// ErrInvalidAlgorithm is returned for an algorithm name that is not known.
var ErrInvalidAlgorithm = errors.New("invalid sort algorithm")

// Algorithm names a sorting implementation.
type Algorithm string

const (
	Quick  Algorithm = "quick"
	Merge  Algorithm = "merge"
	Heap   Algorithm = "heap"
	Bubble Algorithm = "bubble"
	// Smart picks one of the others by input size.
	Smart Algorithm = "smart"
)

const (
	smartBubbleMax = 10
	smartQuickMax  = 1000

	// benchmarkBubbleMax keeps bubble sort out of benchmarks on large inputs.
	benchmarkBubbleMax = 100
)

// Result is the outcome of Sort.
type Result struct {
	Sorted    []*models.Stock `json:"sorted"`
	Criterion string          `json:"criterion"`
	Algorithm Algorithm       `json:"algorithm"`
	Count     int             `json:"count"`
	ElapsedMs float64         `json:"elapsed_ms"`
}

// ParseAlgorithm resolves an algorithm name. The empty string means Smart.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return Smart, nil
	case Quick, Merge, Heap, Bubble, Smart:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, name)
	}
}

// SelectAlgorithm is the smart-sort dispatch rule: bubble for up to 10
// records, quick up to 1000, merge beyond that.
func SelectAlgorithm(n int) Algorithm {
	switch {
	case n <= smartBubbleMax:
		return Bubble
	case n <= smartQuickMax:
		return Quick
	default:
		return Merge
	}
}

func run[T any](a Algorithm, items []T, cmp func(a, b T) int) []T {
	switch a {
	case Quick:
		return QuickSort(items, cmp)
	case Merge:
		return MergeSort(items, cmp)
	case Heap:
		return HeapSort(items, cmp)
	case Bubble:
		return BubbleSort(items, cmp)
	}
	panic(fmt.Sprintf("sorting: unknown algorithm %q", a))
}

// Sort orders records by the named criterion with the named algorithm, or
// with smart dispatch when algorithm is empty or "smart". The input slice
// is not modified.
func Sort(records []*models.Stock, criterion, algorithm string) (*Result, error) {
	c, err := ParseCriterion(criterion)
	if err != nil {
		return nil, err
	}
	alg, err := ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if alg == Smart {
		alg = SelectAlgorithm(len(records))
	}

	compare := c.Comparator()
	start := time.Now()
	sorted := run(alg, records, compare)
	elapsed := time.Since(start)

	return &Result{
		Sorted:    sorted,
		Criterion: c.String(),
		Algorithm: alg,
		Count:     len(sorted),
		ElapsedMs: float64(elapsed.Nanoseconds()) / 1e6,
	}, nil
}

// MultiSort orders records by the first criterion, breaking ties with each
// following criterion in turn. The sort is stable.
func MultiSort(records []*models.Stock, criteria []string) ([]*models.Stock, error) {
	parsed, err := ParseCriteria(criteria)
	if err != nil {
		return nil, err
	}

	comparators := make([]func(a, b *models.Stock) int, len(parsed))
	for i, c := range parsed {
		comparators[i] = c.Comparator()
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b *models.Stock) int {
		for _, compare := range comparators {
			if r := compare(a, b); r != 0 {
				return r
			}
		}
		return 0
	})
	return out, nil
}

// BenchmarkAlgorithms lists the algorithms Benchmark runs for n records.
func BenchmarkAlgorithms(n int) []Algorithm {
	algs := []Algorithm{Quick, Merge, Heap}
	if n <= benchmarkBubbleMax {
		algs = append(algs, Bubble)
	}
	return algs
}

// Benchmark sorts the same records with each algorithm and reports the
// wall-clock milliseconds taken, rounded to two decimals. Bubble sort only
// runs for 100 records or fewer.
func Benchmark(records []*models.Stock, criterion string) (map[Algorithm]float64, error) {
	c, err := ParseCriterion(criterion)
	if err != nil {
		return nil, err
	}

	compare := c.Comparator()
	timings := make(map[Algorithm]float64, 4)
	for _, alg := range BenchmarkAlgorithms(len(records)) {
		start := time.Now()
		run(alg, records, compare)
		ms := float64(time.Since(start).Nanoseconds()) / 1e6
		timings[alg] = math.Round(ms*100) / 100
	}
	return timings, nil
}
