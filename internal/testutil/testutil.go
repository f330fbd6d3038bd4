package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"coursehub/internal/db"
	"coursehub/internal/security"
)

func init() {
	security.UseMinCost()
}

// OpenInMemoryDB opens a migrated in-memory SQLite database private to the
// test and closes it when the test ends.
func OpenInMemoryDB(t *testing.T) *db.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := db.Init("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}
