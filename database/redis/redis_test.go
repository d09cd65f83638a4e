// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bnb-chain/zkbnb-nctree/database"
	"github.com/bnb-chain/zkbnb-nctree/database/dbtest"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.TreeDB {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatal(err)
			}
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})
			return &Database{
				db: client,
			}
		})
	})
}

func TestRedisWithNamespace(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.TreeDB {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatal(err)
			}
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})

			return WrapWithNamespace(&Database{
				db: client,
			}, "test")
		})
	})
}

func TestRedisFromConfig(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.TreeDB {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatal(err)
			}
			db, err := New(DefaultRedisConfig(mr.Addr()))
			if err != nil {
				t.Fatal(err)
			}
			return WrapWithNamespace(db, "wallet")
		})
	})
}

func TestRedisCommandLog(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	db, err := New(DefaultRedisConfig(mr.Addr()), WithCommandLog(logger))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set([]byte("wallet:sapling"), []byte{0x01}))
	b := db.NewBatch()
	require.NoError(t, b.Set([]byte("subtree:sapling:count"), []byte{0x00}))
	require.NoError(t, b.Write())

	var cmds []interface{}
	pipelines := 0
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "Redis command":
			cmds = append(cmds, entry.Data["cmd"])
		case "Redis pipeline":
			pipelines++
		}
	}
	assert.Contains(t, cmds, "set")
	assert.Equal(t, 1, pipelines)
}
