package sorting

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/stock-forecast-service/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrInvalidCriterion is returned for a sort key outside the registry.
var ErrInvalidCriterion = errors.New("invalid sort criterion")

// Field is a sortable stock attribute.
type Field int

const (
	FieldPrice Field = iota
	FieldVolume
	FieldMarketCap
	FieldSymbol
	FieldName
	FieldSector
	FieldDate
	FieldChangePercent
)

var fieldNames = map[Field]string{
	FieldPrice:         "price",
	FieldVolume:        "volume",
	FieldMarketCap:     "marketCap",
	FieldSymbol:        "symbol",
	FieldName:          "name",
	FieldSector:        "sector",
	FieldDate:          "date",
	FieldChangePercent: "changePercent",
}

func (f Field) String() string { return fieldNames[f] }

// Direction is ascending or descending order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Criterion is a field plus direction, named like "price_asc".
type Criterion struct {
	Field     Field
	Direction Direction
}

func (c Criterion) String() string { return c.Field.String() + "_" + c.Direction.String() }

var registry = func() map[string]Criterion {
	m := make(map[string]Criterion, 2*len(fieldNames))
	for f := range fieldNames {
		for _, d := range []Direction{Ascending, Descending} {
			c := Criterion{Field: f, Direction: d}
			m[c.String()] = c
		}
	}
	return m
}()

// ParseCriterion resolves a criterion name such as "marketCap_desc".
func ParseCriterion(name string) (Criterion, error) {
	c, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return Criterion{}, fmt.Errorf("%w: %q", ErrInvalidCriterion, name)
	}
	return c, nil
}

// ParseCriteria resolves every name, failing on the first unknown one.
func ParseCriteria(names []string) ([]Criterion, error) {
	out := make([]Criterion, 0, len(names))
	for _, n := range names {
		c, err := ParseCriterion(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var categories = []struct {
	name   string
	fields []Field
}{
	{"price", []Field{FieldPrice}},
	{"volume", []Field{FieldVolume}},
	{"fundamentals", []Field{FieldMarketCap}},
	{"alphabetical", []Field{FieldSymbol, FieldName, FieldSector}},
	{"time", []Field{FieldDate}},
	{"performance", []Field{FieldChangePercent}},
}

// ListCriteria groups every criterion name by category.
func ListCriteria() map[string][]string {
	out := make(map[string][]string, len(categories))
	for _, cat := range categories {
		for _, f := range cat.fields {
			for _, d := range []Direction{Ascending, Descending} {
				out[cat.name] = append(out[cat.name], Criterion{Field: f, Direction: d}.String())
			}
		}
	}
	return out
}

// Comparator returns the ordering function for c. Strings are collated for
// English; a missing date sorts as the Unix epoch. The returned function
// holds a collator and must not be shared between goroutines.
func (c Criterion) Comparator() func(a, b *models.Stock) int {
	base := c.Field.comparator()
	if c.Direction == Descending {
		return func(a, b *models.Stock) int { return base(b, a) }
	}
	return base
}

var epoch = time.Unix(0, 0).UTC()

func dateOrEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}

func (f Field) comparator() func(a, b *models.Stock) int {
	switch f {
	case FieldPrice:
		return func(a, b *models.Stock) int { return cmp.Compare(a.CurrentPrice, b.CurrentPrice) }
	case FieldVolume:
		return func(a, b *models.Stock) int { return cmp.Compare(a.Volume, b.Volume) }
	case FieldMarketCap:
		return func(a, b *models.Stock) int { return cmp.Compare(a.MarketCap, b.MarketCap) }
	case FieldChangePercent:
		return func(a, b *models.Stock) int { return cmp.Compare(a.ChangePercent, b.ChangePercent) }
	case FieldDate:
		return func(a, b *models.Stock) int { return dateOrEpoch(a.LastUpdated).Compare(dateOrEpoch(b.LastUpdated)) }
	case FieldSymbol:
		col := collate.New(language.English)
		return func(a, b *models.Stock) int { return col.CompareString(a.Symbol, b.Symbol) }
	case FieldName:
		col := collate.New(language.English)
		return func(a, b *models.Stock) int { return col.CompareString(a.Name, b.Name) }
	case FieldSector:
		col := collate.New(language.English)
		return func(a, b *models.Stock) int { return col.CompareString(a.Sector, b.Sector) }
	}
	panic(fmt.Sprintf("sorting: no comparator for field %d", f))
}
