package operations

import (
	"fmt"

	"notireport/internal/charts"
	"notireport/internal/config"
	"notireport/internal/dataprocessing"
	apperrors "notireport/internal/errors"
	"notireport/internal/exporter"
	"notireport/internal/validation"
	"notireport/pkg/contracts/domain"
)

const (
	axisMonth  = "Mes"
	axisCount  = "Número de Datos"
	axisStatus = "Estado"
)

type chartKind int

const (
	chartBar chartKind = iota
	chartPie
)

type chartPlan struct {
	kind   chartKind
	anchor string
	counts *dataprocessing.CountTable
	spec   charts.Spec
	image  []byte
}

// sheetPlan is one table sheet with the charts anchored on it
type sheetPlan struct {
	table  exporter.Table
	counts *dataprocessing.CountTable
	charts []*chartPlan
}

// Selection holds the per-run inputs captured before aggregation
type Selection struct {
	Month     int
	Notifiers []string
}

type planFunc func(agg *dataprocessing.Aggregator, ds *domain.Dataset, sel Selection) ([]*sheetPlan, error)

// Variant describes one report layout
type Variant struct {
	ID              domain.VariantID
	Description     string
	DefaultFilename string
	Inputs          []domain.FileKind
	SupportsMonth   bool
	// ComparesPair marks variants fed by exactly two notifiers
	ComparesPair bool
	// Sheets are read from workbook inputs, in order
	Sheets []string
	// Columns must exist in the input header
	Columns []string
	// DelimitedColumns replaces Columns for delimited text input when set
	DelimitedColumns []string
	// EverySheet requires Columns on each sheet instead of their union
	EverySheet bool
	// ExtendsInput writes the report into the uploaded workbook
	ExtendsInput bool

	plan planFunc
}

// Accepts reports whether kind can feed the variant
func (v Variant) Accepts(kind domain.FileKind) bool {
	for _, k := range v.Inputs {
		if k == kind {
			return true
		}
	}
	return false
}

// Requirements returns the structural checks for an input of kind
func (v Variant) Requirements(kind domain.FileKind) validation.Requirements {
	req := validation.Requirements{Columns: v.Columns}
	if kind == domain.FileKindDelimited && len(v.DelimitedColumns) > 0 {
		req.Columns = v.DelimitedColumns
	}
	if kind == domain.FileKindWorkbook {
		req.Sheets = v.Sheets
		req.EverySheet = v.EverySheet
	}
	return req
}

// Catalog is the set of known variants in presentation order
type Catalog struct {
	variants []Variant
	byID     map[domain.VariantID]int
}

// NewCatalog indexes variants by id
func NewCatalog(variants ...Variant) *Catalog {
	c := &Catalog{variants: variants, byID: make(map[domain.VariantID]int, len(variants))}
	for i, v := range variants {
		c.byID[v.ID] = i
	}
	return c
}

// DefaultCatalog returns the built-in report variants
func DefaultCatalog() *Catalog {
	sources := []string{config.SheetDTO, config.SheetPCL}
	return NewCatalog(
		Variant{
			ID:              domain.VariantDTOPCLMonth,
			Description:     "Conteo mensual por hoja DTO y PCL con gráfico de notificadores por mes",
			DefaultFilename: config.FilenameDTOPCL,
			Inputs:          []domain.FileKind{domain.FileKindWorkbook},
			SupportsMonth:   true,
			Sheets:          sources,
			Columns:         []string{domain.ColumnFechaVisado, domain.ColumnNotificador},
			// Flat exports name one column per source sheet
			DelimitedColumns: sources,
			EverySheet:       true,
			ExtendsInput:     true,
			plan:             planMonthSheets,
		},
		Variant{
			ID:              domain.VariantStatusByNotifier,
			Description:     "Estado del informe por notificador con gráficos de barras y torta",
			DefaultFilename: config.FilenameStatus,
			Inputs:          []domain.FileKind{domain.FileKindWorkbook, domain.FileKindDelimited},
			SupportsMonth:   true,
			Sheets:          sources,
			Columns:         []string{domain.ColumnEstadoInforme, domain.ColumnNotificador},
			plan:            planStatusTable,
		},
		Variant{
			ID:              domain.VariantNotifierComparison,
			Description:     "Comparativo mensual entre dos notificadores",
			DefaultFilename: config.FilenameComparison,
			Inputs:          []domain.FileKind{domain.FileKindWorkbook, domain.FileKindDelimited},
			SupportsMonth:   true,
			ComparesPair:    true,
			Sheets:          sources,
			Columns:         []string{domain.ColumnFechaVisado, domain.ColumnNotificador},
			plan:            planComparison,
		},
	)
}

// Get looks a variant up by id
func (c *Catalog) Get(id domain.VariantID) (Variant, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Variant{}, false
	}
	return c.variants[i], true
}

// All returns the variants in presentation order
func (c *Catalog) All() []Variant {
	return append([]Variant(nil), c.variants...)
}

func planMonthSheets(agg *dataprocessing.Aggregator, ds *domain.Dataset, sel Selection) ([]*sheetPlan, error) {
	sheets := []struct{ source, table string }{
		{config.SheetDTO, config.SheetMonthDTO},
		{config.SheetPCL, config.SheetMonthPCL},
	}

	plans := make([]*sheetPlan, 0, len(sheets))
	for _, s := range sheets {
		records := ds.FromSource(s.source)

		counts, err := agg.Aggregate(records, dataprocessing.Options{
			RowKey:      dataprocessing.DimensionMonth,
			FilterMonth: sel.Month,
			RowHeader:   s.table,
		})
		if err != nil {
			return nil, err
		}
		table, err := exporter.SummaryTable(s.table, config.LabelMonthHeader, counts)
		if err != nil {
			return nil, err
		}

		byNotifier, err := agg.Aggregate(records, dataprocessing.Options{
			RowKey:      dataprocessing.DimensionMonth,
			ColKey:      dataprocessing.DimensionNotifier,
			FilterMonth: sel.Month,
			RowHeader:   s.table,
		})
		if err != nil {
			return nil, err
		}

		plans = append(plans, &sheetPlan{
			table:  table,
			counts: counts,
			charts: []*chartPlan{{
				kind:   chartBar,
				anchor: config.AnchorMonthBar,
				counts: byNotifier,
				spec: charts.Spec{
					Title:       fmt.Sprintf("Conteo de %s por MES - %s", domain.ColumnNotificador, s.source),
					XLabel:      axisMonth,
					YLabel:      axisCount,
					LegendTitle: domain.ColumnNotificador,
				},
			}},
		})
	}
	return plans, nil
}

func planStatusTable(agg *dataprocessing.Aggregator, ds *domain.Dataset, sel Selection) ([]*sheetPlan, error) {
	counts, err := agg.Aggregate(ds.Records, dataprocessing.Options{
		RowKey:      dataprocessing.DimensionStatus,
		ColKey:      dataprocessing.DimensionNotifier,
		FilterMonth: sel.Month,
		RowHeader:   config.LabelStatusHeader,
	})
	if err != nil {
		return nil, err
	}
	table, err := exporter.CrossTable(config.SheetStatusTable, counts)
	if err != nil {
		return nil, err
	}

	return []*sheetPlan{{
		table:  table,
		counts: counts,
		charts: []*chartPlan{
			{
				kind:   chartBar,
				anchor: config.AnchorStatusBar,
				counts: counts,
				spec: charts.Spec{
					Title:       fmt.Sprintf("%s por %s", config.LabelStatusHeader, domain.ColumnNotificador),
					XLabel:      axisStatus,
					YLabel:      axisCount,
					LegendTitle: domain.ColumnNotificador,
				},
			},
			{
				kind:   chartPie,
				anchor: config.AnchorStatusPie,
				counts: counts,
				spec:   charts.Spec{Title: fmt.Sprintf("Distribución de %s", config.LabelStatusHeader)},
			},
		},
	}}, nil
}

func planComparison(agg *dataprocessing.Aggregator, ds *domain.Dataset, sel Selection) ([]*sheetPlan, error) {
	if len(sel.Notifiers) != 2 {
		return nil, &apperrors.UnsupportedVariantError{
			Variant: string(domain.VariantNotifierComparison),
			Reason:  "the input has fewer than two notifiers to compare",
		}
	}

	counts, err := agg.Aggregate(ds.Records, dataprocessing.Options{
		RowKey:       dataprocessing.DimensionMonth,
		ColKey:       dataprocessing.DimensionNotifier,
		FilterValues: sel.Notifiers,
		FilterMonth:  sel.Month,
		RowHeader:    config.LabelMonthColumn,
	})
	if err != nil {
		return nil, err
	}
	table, err := exporter.CrossTable(config.SheetComparison, counts)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s vs %s", sel.Notifiers[0], sel.Notifiers[1])
	if sel.Month > 0 {
		title = fmt.Sprintf("%s - %s", title, agg.Months().Name(sel.Month))
	}

	return []*sheetPlan{{
		table:  table,
		counts: counts,
		charts: []*chartPlan{
			{
				kind:   chartBar,
				anchor: config.AnchorComparisonBar,
				counts: counts,
				spec:   charts.Spec{Title: title, XLabel: axisMonth, YLabel: axisCount, LegendTitle: domain.ColumnNotificador},
			},
			{
				kind:   chartPie,
				anchor: config.AnchorComparisonPie,
				counts: counts,
				spec:   charts.Spec{Title: title, ByColumn: true},
			},
		},
	}}, nil
}
