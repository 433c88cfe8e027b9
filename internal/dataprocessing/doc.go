// Package dataprocessing turns notification spreadsheets into count tables.
//
// # Architecture
//
//  1. Parser: reads workbook sheets or delimited text into a domain.Dataset
//  2. Aggregator: groups records by one or two dimensions into a CountTable
//  3. CountTable / PercentageTable: totals and two-decimal shares
//
// # Usage
//
//	parser := dataprocessing.NewParser(logger, ',')
//	ds, err := parser.ParseWorkbook(r, []string{"DTO", "PCL"})
//
//	agg := dataprocessing.NewAggregator(logger, "es")
//	table, err := agg.Aggregate(ds.Records, dataprocessing.Options{
//	    RowKey: dataprocessing.DimensionMonth,
//	    ColKey: dataprocessing.DimensionNotifier,
//	})
//	pct, err := table.Percentages()
//
// # Ordering
//
// Month rows follow the calendar and are rendered as capitalized names only
// when the table is built. Text keys sort by locale collation. Records with
// no value for a dimension land in the "(SIN DATO)" bucket, which always
// sorts last.
package dataprocessing
