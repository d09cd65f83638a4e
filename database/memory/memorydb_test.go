package memory

import (
	"testing"

	"github.com/bnb-chain/zkbnb-nctree/database"
	"github.com/bnb-chain/zkbnb-nctree/database/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.TreeDB {
			return NewMemoryDB()
		})
	})
}
