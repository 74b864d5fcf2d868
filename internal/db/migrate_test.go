package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"010_tables.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
		"notes_x.sql":    {Data: []byte("SELECT 0;")},
		"seed.sql":       {Data: []byte("SELECT 0;")},
	}

	migrations, err := LoadMigrations(files)
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_first.sql", migrations[0].Name)
	assert.Equal(t, "SELECT 1;", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
}

func TestEmbeddedMigrations_CarryInvariantIndexes(t *testing.T) {
	m := NewMigrator(nil)
	migrations, err := LoadMigrations(m.files)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	var all string
	for _, mig := range migrations {
		all += mig.SQL
	}
	assert.Contains(t, all, "admissions_one_active_per_patient")
	assert.Contains(t, all, "bed_allocations_open_bed_idx")
	assert.Contains(t, all, "bed_allocations_open_admission_idx")
}
