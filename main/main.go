// nctree replays, inspects and rewinds wallet note commitment state kept in
// one of the supported key-value backends.
package main

import (
	"encoding/binary"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pbnjay/memory"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	nctree "github.com/bnb-chain/zkbnb-nctree"
	"github.com/bnb-chain/zkbnb-nctree/database"
	"github.com/bnb-chain/zkbnb-nctree/metrics/prometheus"
	"github.com/bnb-chain/zkbnb-nctree/store"
	"github.com/bnb-chain/zkbnb-nctree/wallet"
)

var log = logrus.WithField("prefix", "main")

type session struct {
	wallet   *wallet.Wallet
	wallets  *store.WalletStore
	subtrees *store.SubtreeIndex
	db       database.TreeDB
	cleanup  func()
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
	s.cleanup()
}

func main() {
	var (
		poolName       string
		backend        backendConfig
		logLevel       string
		debugAddr      string
		maxCheckpoints int
		collector      *prometheus.Collector
	)

	rootCmd := &cobra.Command{
		Use:   "nctree",
		Short: "Incremental note commitment tree tooling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if debugAddr != "" {
				collector = prometheus.NewCollector()
				http.Handle("/metrics", promhttp.Handler())
				go func() {
					log.WithField("addr", debugAddr).Info("Serving pprof and metrics")
					if err := http.ListenAndServe(debugAddr, nil); err != nil {
						log.WithError(err).Error("Debug server stopped")
					}
				}()
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&poolName, "pool", "sapling", "shielded pool: sapling or orchard")
	flags.StringVar(&backend.kind, "db", "leveldb", "database backend: memory, leveldb, redis or miniredis")
	flags.StringVar(&backend.dataDir, "datadir", "", "leveldb directory (in-memory leveldb if empty)")
	flags.StringVar(&backend.redisAddr, "redis-addr", "127.0.0.1:6379", "redis address")
	flags.IntVar(&backend.cacheMB, "leveldb-cache", 64, "leveldb cache in megabytes")
	flags.IntVar(&backend.handles, "leveldb-handles", 64, "leveldb open file handles")
	flags.StringVar(&logLevel, "log-level", "info", "log level")
	flags.StringVar(&debugAddr, "debug-addr", "", "serve pprof and prometheus metrics on this address")
	flags.IntVar(&maxCheckpoints, "max-checkpoints", wallet.MaxCheckpoints, "block checkpoints retained")

	open := func() (*session, error) {
		pool, err := nctree.ParsePool(poolName)
		if err != nil {
			return nil, err
		}
		db, cleanup, err := openDB(backend)
		if err != nil {
			return nil, err
		}
		opts := []wallet.Option{wallet.WithMaxCheckpoints(maxCheckpoints)}
		if collector != nil {
			opts = append(opts, wallet.WithMetrics(collector))
		}
		w, err := wallet.New(pool, opts...)
		if err != nil {
			db.Close()
			cleanup()
			return nil, err
		}
		s := &session{
			wallet:  w,
			wallets: store.NewWalletStore(db),
			db:      db,
			cleanup: cleanup,
		}
		if s.subtrees, err = store.NewSubtreeIndex(db, pool, 0); err != nil {
			s.close()
			return nil, err
		}
		if _, err := s.wallets.Load(w); err != nil {
			s.close()
			return nil, err
		}
		return s, nil
	}

	rootCmd.AddCommand(
		replayCmd(open),
		inspectCmd(open),
		rewindCmd(open),
		verifyCmd(open),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type opener func() (*session, error)

// syntheticBundle is a transaction with deterministic commitments derived
// from its block coordinates.
type syntheticBundle struct {
	hasher  nctree.Hasher
	height  uint32
	txIdx   uint32
	outputs uint32
}

func (b syntheticBundle) commitment(out uint32) [nctree.HashSize]byte {
	var seed [12]byte
	binary.BigEndian.PutUint32(seed[0:], b.height)
	binary.BigEndian.PutUint32(seed[4:], b.txIdx)
	binary.BigEndian.PutUint32(seed[8:], out)
	return b.hasher.HashToNode(seed[:])
}

func (b syntheticBundle) Commitments() [][nctree.HashSize]byte {
	cms := make([][nctree.HashSize]byte, b.outputs)
	for i := range cms {
		cms[i] = b.commitment(uint32(i))
	}
	return cms
}

func replayCmd(open opener) *cobra.Command {
	var (
		from     uint32
		blocks   uint32
		txs      uint32
		outputs  uint32
		ownEvery uint32
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Append synthetic blocks of note commitments and persist the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.close()

			w := s.wallet
			hasher, err := nctree.NewHasher(w.Pool())
			if err != nil {
				return err
			}
			start := from
			if last, ok := w.LastCheckpoint(); ok {
				start = last + 1
			}
			began := time.Now()
			for height := start; height < start+blocks; height++ {
				if !w.Checkpoint(height) {
					return fmt.Errorf("checkpoint %d rejected", height)
				}
				for tx := uint32(0); tx < txs; tx++ {
					b := syntheticBundle{hasher: hasher, height: height, txIdx: tx, outputs: outputs}
					if ownEvery == 0 || (height*txs+tx)%ownEvery != 0 {
						result, err := w.AppendBundle(height, tx, b)
						if err != nil {
							return err
						}
						if err := s.subtrees.Observe(result, height); err != nil {
							return err
						}
						continue
					}
					txid := wallet.TxID(b.commitment(outputs))
					w.CreatePositions(height, txid)
					for out := uint32(0); out < outputs; out++ {
						result, err := w.AppendSingle(height, txid, tx, out, b.commitment(out), out == 0)
						if err != nil {
							return err
						}
						if err := s.subtrees.Observe(result, height); err != nil {
							return err
						}
					}
				}
			}
			pruned := w.GarbageCollect()
			if err := s.wallets.Save(w); err != nil {
				return err
			}
			root, _ := w.Root(0)
			log.WithFields(logrus.Fields{
				"blocks":   blocks,
				"size":     w.Tree().Size(),
				"root":     root,
				"pruned":   pruned,
				"subtrees": s.subtrees.Count(),
				"elapsed":  time.Since(began),
			}).Info("Replay complete")
			return nil
		},
	}
	cmd.Flags().Uint32Var(&from, "from", 1, "first block height when no state is stored")
	cmd.Flags().Uint32Var(&blocks, "blocks", 100, "number of blocks")
	cmd.Flags().Uint32Var(&txs, "txs", 4, "transactions per block")
	cmd.Flags().Uint32Var(&outputs, "outputs", 2, "outputs per transaction")
	cmd.Flags().Uint32Var(&ownEvery, "own-every", 7, "every nth transaction belongs to the wallet (0 for none)")
	return cmd
}

func inspectCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored note commitment state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.close()

			w := s.wallet
			tree := w.Tree()
			root, _ := w.Root(0)
			out := cmd.OutOrStdout()
			saved, err := s.wallets.Saved(w.Pool())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "pool:            %s\n", w.Pool())
			fmt.Fprintf(out, "saved state:     %t\n", saved)
			fmt.Fprintf(out, "leaves:          %d\n", tree.Size())
			fmt.Fprintf(out, "root:            %s\n", root)
			if last, ok := w.LastCheckpoint(); ok {
				fmt.Fprintf(out, "last checkpoint: %d (%d retained)\n", last, tree.CheckpointCount())
			} else {
				fmt.Fprintf(out, "last checkpoint: none\n")
			}
			fmt.Fprintf(out, "marked notes:    %d\n", len(tree.Marked()))
			fmt.Fprintf(out, "transactions:    %d\n", len(w.Transactions()))
			if latest, ok, err := s.subtrees.Latest(); err != nil {
				return err
			} else if ok {
				fmt.Fprintf(out, "subtrees:        %d (latest %s at height %d)\n", s.subtrees.Count(), latest.Root, latest.CompletingHeight)
			}
			usage := tree.DynamicMemoryUsage()
			fmt.Fprintf(out, "memory:          %d bytes (%.6f%% of %d system)\n",
				usage, float64(usage)*100/float64(memory.TotalMemory()), memory.TotalMemory())
			return nil
		},
	}
}

func rewindCmd(open opener) *cobra.Command {
	var to uint32
	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "Rewind the stored state to a block height",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.close()

			height, err := s.wallet.Rewind(to)
			if err != nil {
				return err
			}
			if err := s.subtrees.TruncateAbove(height); err != nil {
				return err
			}
			if err := s.wallets.Save(s.wallet); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rewound to %d, %d leaves\n", height, s.wallet.Tree().Size())
			return nil
		},
	}
	cmd.Flags().Uint32Var(&to, "to", 0, "target block height")
	cmd.MarkFlagRequired("to")
	return cmd
}

func verifyCmd(open opener) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every marked note's witness against the current root",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.close()

			pool, err := ants.NewPool(workers)
			if err != nil {
				return err
			}
			defer pool.Release()

			began := time.Now()
			if err := s.wallet.Tree().VerifyWitnesses(pool); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d witnesses in %s\n", len(s.wallet.Tree().Marked()), time.Since(began))
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 8, "verification workers")
	return cmd
}
