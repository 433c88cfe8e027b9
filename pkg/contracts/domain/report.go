package domain

// VariantID identifies a report layout
type VariantID string

const (
	VariantDTOPCLMonth        VariantID = "dto-pcl-mes"
	VariantStatusByNotifier   VariantID = "estado-notificador"
	VariantNotifierComparison VariantID = "comparativo-notificador"
)

// AllVariants lists the variants in presentation order
func AllVariants() []VariantID {
	return []VariantID{VariantDTOPCLMonth, VariantStatusByNotifier, VariantNotifierComparison}
}

// Valid reports whether v is a known variant
func (v VariantID) Valid() bool {
	for _, known := range AllVariants() {
		if v == known {
			return true
		}
	}
	return false
}

// RunState is a step of the report pipeline
type RunState string

const (
	StateAwaitingFile    RunState = "AWAITING_FILE"
	StateValidating      RunState = "VALIDATING"
	StateFailed          RunState = "FAILED"
	StateReading         RunState = "READING"
	StateAggregating     RunState = "AGGREGATING"
	StateRenderingCharts RunState = "RENDERING_CHARTS"
	StateWritingReport   RunState = "WRITING_REPORT"
	StateReadyForHandoff RunState = "READY_FOR_HANDOFF"
)

// IsTerminal returns true for states that end a run
func (s RunState) IsTerminal() bool {
	return s == StateFailed || s == StateReadyForHandoff
}

// ReportSummary describes a generated workbook
type ReportSummary struct {
	Variant     VariantID      `json:"variant"`
	Filename    string         `json:"filename"`
	Sheets      []string       `json:"sheets"`
	Records     int            `json:"records"`
	GrandTotals map[string]int `json:"grand_totals"`
	Skipped     []SkippedRow   `json:"skipped,omitempty"`
	Bytes       int            `json:"bytes"`
}
