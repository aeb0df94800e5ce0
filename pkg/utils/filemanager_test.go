package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("Pedido;Valor\nA1;10.00\n"), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b.csv", "a.XLSX", "notes.txt", ".hidden.csv", "~$a.xlsx"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "dir.csv"), 0755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.XLSX"),
		filepath.Join(fm.InputDir, "b.csv"),
	}, files)
}

func TestDiscoverInputFilesMissingDir(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "nope"), "", "", "")
	_, err := fm.DiscoverInputFiles()
	require.ErrorContains(t, err, "failed to scan input directory")
}

func TestWriteOutputFile(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteOutputFile("LOJA.xml", []byte("<charges/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "LOJA.xml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<charges/>", string(data))

	entries, err := os.ReadDir(fm.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	src := filepath.Join(fm.InputDir, "loja.csv")
	touch(t, src)

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "loja.csv"), archived)
	assert.NoFileExists(t, src)
	assert.FileExists(t, archived)
}

func TestArchiveTimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true
	fm.Now = func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }

	out, err := fm.WriteOutputFile("m.xml", []byte("x"))
	require.NoError(t, err)

	archived, err := fm.ArchiveOutputFile(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "2024", "01", "15", "m.xml"), archived)
	assert.FileExists(t, out)
	assert.FileExists(t, archived)
}

func TestGenerateOutputFileName(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

	name := GenerateOutputFileName("{profile}_{original}_{timestamp}.xml", now,
		map[string]string{"profile": "LOJA", "original": "pedidos_maio"})
	assert.Equal(t, "LOJA_pedidos_maio_20240115_143022.xml", name)

	name = GenerateOutputFileName("{date}-{time}", now, nil)
	assert.Equal(t, "20240115-143022.xml", name)

	name = GenerateOutputFileName("{profile}_{uuid}.xml", now, map[string]string{"profile": "../x"})
	assert.Regexp(t, regexp.MustCompile(`^__x_[0-9a-f-]{36}\.xml$`), name)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "pedidos.maio", BaseName("/in/pedidos.maio.csv"))
}

func TestSummary(t *testing.T) {
	start := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	summary := ProcessingSummary{
		StartTime:         start,
		EndTime:           start.Add(3 * time.Second),
		TotalFiles:        2,
		SuccessfulFiles:   1,
		FailedFiles:       1,
		PayloadsGenerated: 5,
		ProcessedFiles:    []ProcessedFileInfo{{InputFile: "a.csv", Profile: "LOJA", Payloads: 5}},
		FailedFilesList:   []FailedFileInfo{{InputFile: "b.csv", ErrorMessage: "no matching profile"}},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatSummary(&buf, summary))
	out := buf.String()
	assert.Contains(t, out, "Duration:       3s")
	assert.Contains(t, out, "Payloads Generated: 5")
	assert.Contains(t, out, "Profile:      LOJA")
	assert.Contains(t, out, "Error: no matching profile")

	dir := t.TempDir()
	path, err := WriteSummaryLog(summary, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processing_summary_20240115_140003.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	oldFile := filepath.Join(dir, "2024", "old.csv")
	newFile := filepath.Join(dir, "new.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(oldFile), 0755))
	touch(t, oldFile)
	touch(t, newFile)
	require.NoError(t, os.Chtimes(oldFile, now.AddDate(0, 0, -40), now.AddDate(0, 0, -40)))
	require.NoError(t, os.Chtimes(newFile, now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)))

	removed, err := CleanOldArchives(dir, 30*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)

	removed, err = CleanOldArchives(filepath.Join(dir, "missing"), time.Hour, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
