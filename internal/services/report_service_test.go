package services

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notireport/internal/config"
	apperrors "notireport/internal/errors"
	"notireport/internal/operations"
	"notireport/internal/shared/testutil"
	"notireport/pkg/contracts/domain"
)

func newTestReportService(t *testing.T, outputDir string) (*ReportService, *testutil.BufferedSlogHandler) {
	t.Helper()
	cfg := config.Default().Report
	cfg.OutputDir = outputDir
	logger, handler := testutil.NewTestLogger()
	p, err := operations.NewPipeline(cfg, logger, nil)
	require.NoError(t, err)
	return NewReportService(p, cfg, logger), handler
}

func TestReportServiceGenerateAndSave(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestReportService(t, dir)

	res, err := svc.Generate(context.Background(), operations.Request{
		Variant:  domain.VariantStatusByNotifier,
		Filename: "in.xlsx",
		Input:    bytes.NewReader(testutil.StandardWorkbook(t)),
	})
	require.NoError(t, err)

	path, err := svc.Save(context.Background(), res, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.FilenameStatus), path)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, saved)

	csvDir := filepath.Join(dir, "csv")
	paths, err := svc.ExportTables(context.Background(), res, csvDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.FileExists(t, filepath.Join(csvDir, "tabla_procesada.csv"))
}

func TestReportServiceGenerateLogsRejection(t *testing.T) {
	svc, handler := newTestReportService(t, t.TempDir())

	_, err := svc.Generate(context.Background(), operations.Request{
		Variant:  domain.VariantStatusByNotifier,
		Filename: "in.txt",
		Input:    bytes.NewReader([]byte("A,B\n1,2\n")),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "report rejected")
}

func TestReportServiceVariants(t *testing.T) {
	svc, _ := newTestReportService(t, "")

	variants := svc.Variants()
	require.Len(t, variants, 3)
	assert.Equal(t, domain.VariantDTOPCLMonth, variants[0].ID)
	assert.Equal(t, []string{"xlsx"}, variants[0].Inputs)
	assert.Equal(t, []string{"xlsx", "csv"}, variants[1].Inputs)
	assert.True(t, svc.HasVariants())
	assert.True(t, svc.HasVariant(domain.VariantNotifierComparison))
	assert.False(t, svc.HasVariant("x"))
}

func TestHealthService(t *testing.T) {
	svc, _ := newTestReportService(t, "")
	logger, _ := testutil.NewTestLogger()

	t.Run("ready", func(t *testing.T) {
		hs := NewHealthService(svc, t.TempDir(), logger)
		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "ready", status.Services["reports"].Status)
		assert.Equal(t, "ready", status.Services["storage"].Status)
	})

	t.Run("output directory blocked by a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		hs := NewHealthService(svc, filepath.Join(blocker, "sub"), logger)
		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "not_ready", status.Status)
		assert.Equal(t, "not_ready", status.Services["storage"].Status)
	})

	t.Run("no reports", func(t *testing.T) {
		hs := NewHealthService(nil, "", logger)
		assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
	})

	t.Run("liveness", func(t *testing.T) {
		hs := NewHealthService(svc, "", logger)
		status := hs.HealthCheck(context.Background())
		assert.Equal(t, "ok", status.Status)
		assert.Contains(t, status.Runtime, "go_version")
	})
}
