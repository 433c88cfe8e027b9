package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter exports report tables as CSV files under a directory
type CSVWriter struct {
	dir       string
	delimiter rune
	logger    *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir
func NewCSVWriter(logger *slog.Logger, dir string, delimiter rune) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVWriter{dir: dir, delimiter: delimiter, logger: logger.With("component", "csv_writer")}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to filePath, relative paths resolving under the
// writer's directory
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	writer.Comma = w.delimiter

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// WriteTable exports t as <sheet>.csv with a BOM and returns the file path
func (w *CSVWriter) WriteTable(t Table) (string, error) {
	records := t.Records()
	name := TableFilename(t.Sheet)
	if err := w.WriteCSV(name, WriteOptions{
		Headers:   records[0],
		Records:   records[1:],
		BOMPrefix: true,
	}); err != nil {
		return "", err
	}
	return w.resolvePath(name), nil
}

// TableFilename derives a file name from a sheet name
func TableFilename(sheet string) string {
	name := strings.ToLower(strings.TrimSpace(sheet))
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|', '%':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "tabla"
	}
	return name + ".csv"
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}
