//go:build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/fgeck/gobackup-homelab/internal/services/archiver"
	"github.com/fgeck/gobackup-homelab/internal/services/orchestrator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getArchiverPath(t *testing.T) string {
	t.Helper()

	path := os.Getenv("TEST_ARCHIVER_PATH")
	if path == "" {
		t.Skip("TEST_ARCHIVER_PATH not set")
	}
	if _, err := exec.LookPath(path); err != nil {
		t.Skipf("archiver %s not runnable: %v", path, err)
	}
	return path
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func writeTestData(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("test data for archive"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("more test data"), 0o600))
}

func TestArchive_Integration(t *testing.T) {
	exe := getArchiverPath(t)

	src := filepath.Join(t.TempDir(), "docs")
	writeTestData(t, src)
	output := filepath.Join(t.TempDir(), "docs_docs_test.7z")

	svc := archiver.New(testLogger())
	result, err := svc.Archive(context.Background(), src, output, exe)

	require.NoError(t, err)
	require.Nil(t, result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Greater(t, result.SizeBytes, int64(0))
	assert.FileExists(t, output)
}

func TestArchive_MissingSource_Integration(t *testing.T) {
	exe := getArchiverPath(t)

	output := filepath.Join(t.TempDir(), "missing.7z")

	svc := archiver.New(testLogger())
	result, err := svc.Archive(context.Background(), filepath.Join(t.TempDir(), "nope"), output, exe)

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.NotEqual(t, 0, result.ExitCode)
}

func TestOrchestrator_AllStrategies_Integration(t *testing.T) {
	exe := getArchiverPath(t)

	root := t.TempDir()
	src := filepath.Join(root, "data", "docs")
	writeTestData(t, src)

	settings := models.Settings{
		Destination:      filepath.Join(root, "backups"),
		TimestampFormat:  "%Y%m%d_%H%M%S",
		ArchiverPath:     exe,
		ArchiveExtension: "7z",
	}
	tasks := []models.TaskDescriptor{
		{Name: "full", Source: src, Strategy: models.StrategyFull, Run: true},
		{Name: "archive", Source: src, Strategy: models.StrategyArchive, Run: true},
		{Name: "mirror", Source: src, Strategy: models.StrategyIncremental, Run: true},
	}

	svc := orchestrator.New(testLogger())
	summary, err := svc.Run(context.Background(), tasks, settings, "")

	require.NoError(t, err)
	assert.False(t, summary.HasFailures())
	assert.Len(t, summary.Succeeded(), 3)
	for _, r := range summary.Results {
		_, err := os.Stat(r.Destination)
		assert.NoError(t, err, r.Task.Name)
	}
}
