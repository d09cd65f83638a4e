package main

import (
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bnb-chain/zkbnb-nctree/database"
	wrappedLevelDB "github.com/bnb-chain/zkbnb-nctree/database/leveldb"
	"github.com/bnb-chain/zkbnb-nctree/database/memory"
	wrappedRedis "github.com/bnb-chain/zkbnb-nctree/database/redis"
)

const namespace = "nctree"

type backendConfig struct {
	kind      string
	dataDir   string
	redisAddr string
	cacheMB   int
	handles   int
}

// openDB opens the configured key-value backend. The returned cleanup
// closes anything started alongside it.
func openDB(cfg backendConfig) (database.TreeDB, func(), error) {
	switch cfg.kind {
	case "memory":
		return memory.NewMemoryDB(), func() {}, nil
	case "leveldb":
		if cfg.dataDir == "" {
			db, err := leveldb.Open(storage.NewMemStorage(), nil)
			if err != nil {
				return nil, nil, err
			}
			return wrappedLevelDB.WrapWithNamespace(wrappedLevelDB.NewFromExistLevelDB(db), namespace), func() {}, nil
		}
		db, err := wrappedLevelDB.New(cfg.dataDir, cfg.cacheMB, cfg.handles, false)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open leveldb at %s", cfg.dataDir)
		}
		return wrappedLevelDB.WrapWithNamespace(db, namespace), func() {}, nil
	case "redis":
		db, err := wrappedRedis.New(wrappedRedis.DefaultRedisConfig(cfg.redisAddr), wrappedRedis.WithCommandLog(log))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "connect to redis at %s", cfg.redisAddr)
		}
		return wrappedRedis.WrapWithNamespace(db, namespace), func() {}, nil
	case "miniredis":
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		db, err := wrappedRedis.New(wrappedRedis.DefaultRedisConfig(mr.Addr()), wrappedRedis.WithCommandLog(log))
		if err != nil {
			mr.Close()
			return nil, nil, err
		}
		return wrappedRedis.WrapWithNamespace(db, namespace), mr.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown database backend %q", cfg.kind)
	}
}
