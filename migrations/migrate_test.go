package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "00001_create_catalog.sql", names[0])
	assert.Equal(t, "00002_create_upload_jobs.sql", names[1])
}

func TestMigrationsHaveUpAndDown(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			body, err := migrationFS.ReadFile(migrationsDir + "/" + name)
			require.NoError(t, err)
			assert.True(t, strings.Contains(string(body), "-- +goose Up"))
			assert.True(t, strings.Contains(string(body), "-- +goose Down"))
		})
	}
}

func TestCatalogMigrationConstraints(t *testing.T) {
	body, err := migrationFS.ReadFile(migrationsDir + "/00001_create_catalog.sql")
	require.NoError(t, err)
	sql := string(body)

	assert.Contains(t, sql, "ON DELETE SET NULL")
	assert.Contains(t, sql, "ON DELETE CASCADE")
	assert.Contains(t, sql, "ON DELETE RESTRICT")
	assert.Contains(t, sql, "UNIQUE (procedure_id, material_id)")
}
