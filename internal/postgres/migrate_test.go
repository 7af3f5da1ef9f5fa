package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "0001_ledger", migrations[0].Version)
	for _, table := range []string{"cases", "invoices", "invoice_sequences", "payments"} {
		assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: "0001_ledger"}, {Version: "0002_audit"}, {Version: "0003_receipts"}}

	assert.Equal(t, all, pendingMigrations(all, nil))
	assert.Equal(t, []Migration{{Version: "0002_audit"}, {Version: "0003_receipts"}}, pendingMigrations(all, []string{"0001_ledger"}))
	assert.Equal(t, []Migration{{Version: "0002_audit"}}, pendingMigrations(all, []string{"0003_receipts", "0001_ledger"}))
	assert.Empty(t, pendingMigrations(all, []string{"0001_ledger", "0002_audit", "0003_receipts"}))
}

func TestMigrate_DryRunOnlyReads(t *testing.T) {
	conn, err := sql.Open("postgres", "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	db := &DB{DB: sqlx.NewDb(conn, "postgres")}

	var out bytes.Buffer
	_, err = db.Migrate(context.Background(), true, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check schema_migrations")
	assert.Empty(t, out.String())

	_, err = db.Migrate(context.Background(), false, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create schema_migrations")
}
