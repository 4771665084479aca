package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// newTestDatabase connects to TEST_DATABASE_URL, applies the schema and empties every table.
// Tests are skipped when no database is configured.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	truncateAllTables(t, db)
	return db
}

func truncateAllTables(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		TRUNCATE TABLE attendance_records, biometric_imports, employee_schedules,
			biometric_devices, employees, sites CASCADE
	`)
	require.NoError(t, err)
}

// seedDirectory inserts one site with a device, one employee and a Mon-Fri 08:00-17:00 schedule.
func seedDirectory(t *testing.T, db *database.DB) {
	t.Helper()

	ctx := context.Background()
	stmts := []string{
		`INSERT INTO sites (id, name) VALUES ('site-a', 'Makati')`,
		`INSERT INTO biometric_devices (device_id, site_id) VALUES ('1', 'site-a')`,
		`INSERT INTO employees (id, first_name, last_name) VALUES ('emp-angelo', 'Angelo', 'Nodado')`,
		`INSERT INTO employees (id, first_name, last_name, is_active) VALUES ('emp-left', 'Former', 'Staff', FALSE)`,
		`INSERT INTO employee_schedules (id, employee_id, site_id, scheduled_time_in, scheduled_time_out,
			grace_period_minutes, work_days, effective_from)
		 VALUES ('sch-angelo', 'emp-angelo', 'site-a', '08:00', '17:00', 30, '{1,2,3,4,5}', '2024-01-01')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}
