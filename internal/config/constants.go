package config

// Application info
const (
	AppName = "notireport"
)

// Upload limits
const (
	DefaultMaxUploadBytes int64 = 32 << 20
)

// DefaultPalette is the ordered chart palette, cycled when categories exceed it
var DefaultPalette = []string{"#FFB897", "#B8E6A7", "#809bce", "#64a09d", "#CBE6FF"}

// Table styling shared by every report sheet
const (
	HeaderFill       = "D9D9D9"
	TotalFill        = "A6A6A6"
	BorderColor      = "000000"
	ColumnWidthPad   = 2
	ExcelMaxSheetLen = 31
)

// Sheet names
const (
	SheetDTO             = "DTO"
	SheetPCL             = "PCL"
	SheetBase            = "BASE"
	SheetMonthDTO        = "TABLA MES DTO"
	SheetMonthPCL        = "TABLA MES PCL"
	SheetStatusTable     = "Tabla Procesada"
	SheetComparison      = "COMPARATIVO"
	DefaultWorkbookSheet = "Sheet1"
)

// Table labels
const (
	LabelMonthHeader   = "FECHA VISADO"
	LabelMonthColumn   = "MES"
	LabelStatusHeader  = "ESTADO INFORME"
	LabelTotal         = "TOTAL"
	LabelPercentage    = "PORCENTAJE"
	LabelTotalGeneral  = "TOTAL GENERAL"
	LabelTotalPercent  = "TOTAL %"
	LabelGrandTotalRow = "Total general"
	LabelMissingValue  = "(SIN DATO)"
	FullPercentage     = "100.0%"
)

// Chart anchors. Month sheets carry their chart beside the three-column
// table; pivot layouts stack charts below the table starting at row 20.
const (
	AnchorMonthBar      = "E5"
	AnchorStatusBar     = "A20"
	AnchorStatusPie     = "L20"
	AnchorComparisonBar = "A20"
	AnchorComparisonPie = "L20"
)

// Default output filenames
const (
	FilenameDTOPCL     = "informe_dto_pcl.xlsx"
	FilenameStatus     = "informe_estado_informe.xlsx"
	FilenameComparison = "informe_comparativo.xlsx"
)

// Chart sizing in inches
const (
	ChartMinWidth       = 16.0
	ChartMinHeight      = 8.0
	ChartWidthPerGroup  = 1.3
	ChartHeightPerLabel = 1.0
	ChartDPI            = 100

	// ChartImageScale shrinks embedded PNGs so a bar chart spans about ten columns
	ChartImageScale = 0.5
)
