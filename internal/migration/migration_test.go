package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	versions, err := migrationVersions(embeddedMigrations)
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "000001", versions[0])
}

func TestMigrationVersionsRejectsUnpaired(t *testing.T) {
	_, err := migrationVersions(fstest.MapFS{
		"migrations/000001_init.up.sql":          {Data: []byte("CREATE TABLE a (id INT);")},
		"migrations/000001_init.down.sql":        {Data: []byte("DROP TABLE a;")},
		"migrations/000002_complaints.up.sql":    {Data: []byte("CREATE TABLE b (id INT);")},
		"migrations/000003_commissions.down.sql": {Data: []byte("DROP TABLE c;")},
	})
	assert.ErrorContains(t, err, "000002 has no down script")
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	_, err := RunMigrations(nil)
	assert.Error(t, err)
}
