package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
	"notireport/pkg/contracts/domain"
)

// Dimension is a categorical key records can be grouped by
type Dimension string

const (
	DimensionNone     Dimension = ""
	DimensionMonth    Dimension = "month"
	DimensionNotifier Dimension = "notifier"
	DimensionStatus   Dimension = "status"
)

// Options configures one aggregation. FilterValues, when set, names exactly
// two ColKey values; every other value is dropped before counting and both
// named values always appear as columns. FilterMonth (1..12) keeps only
// records visados in that month and is applied first.
type Options struct {
	RowKey       Dimension
	ColKey       Dimension
	FilterValues []string
	FilterMonth  int
	RowHeader    string
}

// Validate checks the option combination
func (o Options) Validate() error {
	if o.RowKey == DimensionNone {
		return fmt.Errorf("row key is required")
	}
	if o.ColKey != DimensionNone && o.ColKey == o.RowKey {
		return fmt.Errorf("row and column keys must differ")
	}
	if o.FilterMonth < 0 || o.FilterMonth > 12 {
		return fmt.Errorf("filter month must be between 1 and 12, got %d", o.FilterMonth)
	}
	if len(o.FilterValues) > 0 {
		if o.ColKey == DimensionNone {
			return fmt.Errorf("filter values require a column key")
		}
		if len(o.FilterValues) != 2 || o.FilterValues[0] == o.FilterValues[1] ||
			o.FilterValues[0] == "" || o.FilterValues[1] == "" {
			return fmt.Errorf("filter values must name exactly two distinct values")
		}
	}
	return nil
}

// Aggregator groups records into CountTables
type Aggregator struct {
	logger *slog.Logger
	months MonthNamer
	lang   language.Tag
}

// NewAggregator creates an aggregator rendering month names in locale
func NewAggregator(logger *slog.Logger, locale string) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	lang := language.Spanish
	if locale == "en" {
		lang = language.English
	}
	return &Aggregator{
		logger: logger.With("component", "aggregator"),
		months: NewMonthNamer(locale),
		lang:   lang,
	}
}

// Months exposes the month namer used for row labels
func (a *Aggregator) Months() MonthNamer { return a.months }

// Aggregate counts records by opts.RowKey and, when set, opts.ColKey. It
// returns EmptyDatasetError when no record survives the filters.
func (a *Aggregator) Aggregate(records []domain.Record, opts Options) (*CountTable, error) {
	if err := opts.Validate(); err != nil {
		return nil, apperrors.NewConfigError("invalid aggregation options", err)
	}

	var keep map[string]bool
	if len(opts.FilterValues) == 2 {
		keep = map[string]bool{opts.FilterValues[0]: true, opts.FilterValues[1]: true}
	}

	type pair struct{ row, col string }
	var (
		pairs   []pair
		rowSeen = make(map[string]bool)
		colSeen = make(map[string]bool)
	)

	for _, rec := range records {
		if opts.FilterMonth != 0 && rec.Month() != opts.FilterMonth {
			continue
		}
		row := keyOf(rec, opts.RowKey)
		col := ""
		if opts.ColKey != DimensionNone {
			col = keyOf(rec, opts.ColKey)
			if keep != nil && !keep[col] {
				continue
			}
			colSeen[col] = true
		}
		rowSeen[row] = true
		pairs = append(pairs, pair{row, col})
	}

	if len(pairs) == 0 {
		scope := opts.RowHeader
		if opts.FilterMonth != 0 {
			scope = fmt.Sprintf("%s (%s)", scope, a.months.Name(opts.FilterMonth))
		}
		return nil, &apperrors.EmptyDatasetError{Scope: scope}
	}

	rowKeys := a.orderKeys(opts.RowKey, rowSeen)
	var colKeys []string
	if opts.ColKey != DimensionNone {
		if keep != nil {
			colKeys = append(colKeys, opts.FilterValues...)
		} else {
			colKeys = a.orderKeys(opts.ColKey, colSeen)
		}
	}

	rowLabels := make([]string, len(rowKeys))
	labelOf := make(map[string]string, len(rowKeys))
	for i, k := range rowKeys {
		rowLabels[i] = a.label(opts.RowKey, k)
		labelOf[k] = rowLabels[i]
	}

	table := newCountTable(opts.RowHeader, rowLabels, colKeys)
	for _, p := range pairs {
		table.add(labelOf[p.row], p.col)
	}

	a.logger.Debug("aggregated",
		slog.String("row_key", string(opts.RowKey)),
		slog.String("col_key", string(opts.ColKey)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("columns", len(table.Columns)),
		slog.Int("grand_total", table.GrandTotal()))

	return table, nil
}

// keyOf extracts the raw bucket key. Months are stored as their number so
// ordering stays calendar based until labels are rendered.
func keyOf(rec domain.Record, d Dimension) string {
	switch d {
	case DimensionMonth:
		return strconv.Itoa(rec.Month())
	case DimensionNotifier:
		return valueOrMissing(rec.Value(domain.ColumnNotificador))
	case DimensionStatus:
		return valueOrMissing(rec.Value(domain.ColumnEstadoInforme))
	}
	return config.LabelMissingValue
}

func valueOrMissing(v string) string {
	if v == "" {
		return config.LabelMissingValue
	}
	return v
}

func (a *Aggregator) label(d Dimension, key string) string {
	if d == DimensionMonth {
		m, _ := strconv.Atoi(key)
		return a.months.Name(m)
	}
	return key
}

// orderKeys sorts months by calendar and text keys by locale collation.
// The missing-value bucket always sorts last.
func (a *Aggregator) orderKeys(d Dimension, seen map[string]bool) []string {
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}

	if d == DimensionMonth {
		sort.Slice(keys, func(i, j int) bool {
			mi, _ := strconv.Atoi(keys[i])
			mj, _ := strconv.Atoi(keys[j])
			if mi == 0 || mj == 0 {
				return mj == 0 && mi != 0
			}
			return mi < mj
		})
		return keys
	}

	coll := collate.New(a.lang, collate.IgnoreCase)
	sort.SliceStable(keys, func(i, j int) bool {
		mi, mj := keys[i] == config.LabelMissingValue, keys[j] == config.LabelMissingValue
		if mi || mj {
			return mj && !mi
		}
		if c := coll.CompareString(keys[i], keys[j]); c != 0 {
			return c < 0
		}
		return keys[i] < keys[j]
	})
	return keys
}

// TopValues returns the n most frequent values of d, ties broken by collation
func (a *Aggregator) TopValues(records []domain.Record, d Dimension, n int) []string {
	counts := make(map[string]int)
	for _, rec := range records {
		k := keyOf(rec, d)
		if k == config.LabelMissingValue {
			continue
		}
		counts[k]++
	}
	seen := make(map[string]bool, len(counts))
	for k := range counts {
		seen[k] = true
	}
	keys := a.orderKeys(d, seen)
	sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
