package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Ordered(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_sales.sql":  {Data: []byte("CREATE TABLE sales ();")},
		"m/0001_ledger.sql": {Data: []byte("CREATE TABLE accounts ();")},
		"m/README.md":       {Data: []byte("notes")},
	}

	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0001_ledger", got[0].Version)
	assert.Equal(t, "0002_sales", got[1].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := loadMigrations(migrationFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_ledger", got[0].Version)
	assert.Contains(t, got[0].SQL, "CREATE TABLE accounts")
}
