// Package testutil starts throwaway backing services for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/volunteer-slot-sync/internal/config"
	"github.com/iliyamo/volunteer-slot-sync/internal/database"
)

const (
	mysqlPassword = "slots_pass"
	mysqlDatabase = "volunteer_slots"
)

// StartMySQL launches a MySQL container and returns a pool opened through
// database.Open. The pool and container are released by t.Cleanup.
func StartMySQL(t *testing.T) *sql.DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { terminate(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Enabled: true,
		User:    "root",
		Pass:    mysqlPassword,
		Host:    host,
		Port:    mappedPort.Port(),
		Name:    mysqlDatabase,
	}
	var db *sql.DB
	waitFor(ctx, t, "mysql", func() error {
		var err error
		db, err = database.Open(cfg)
		return err
	})
	t.Cleanup(func() { _ = db.Close() })
	return db
}
