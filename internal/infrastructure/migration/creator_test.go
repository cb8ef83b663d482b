package migration

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add uploads table", "add_uploads_table"},
		{"Add-Uploads-Table", "add_uploads_table"},
		{"ADD__UPLOADS__TABLE", "add_uploads_table"},
		{"Index 123", "index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add region index", "speeds up region filters")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.Equal(t, "add_region_index", mf.Name)
	assert.Equal(t, filepath.Join(dir, mf.Version+"_add_region_index.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- speeds up region filters")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{mf.Version + "_add_region_index"}, names)
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations_MissingDir(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations("")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_identity", "000002_create_sales"}, names)
}

func TestEmbeddedMigrations_Source(t *testing.T) {
	src, err := iofs.New(embedded, embeddedDir)
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	r, _, err := src.ReadUp(next)
	require.NoError(t, err)
	defer r.Close()
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	body := string(raw)

	for _, table := range []string{"uploads", "fact_records", "summaries"} {
		assert.Contains(t, body, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, body, "ON DELETE CASCADE")
}
