package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jcalabro/fastset"
	"github.com/jcalabro/fastset/prommetrics"
)

var runCmd = cobra.Command{
	Use:   "run",
	Short: "Load keys into sets concurrently and verify every operation",
	Long: "Loads integer keys (the last column of each line of --file, or a synthetic\n" +
		"sequence), then runs concurrent adds, lookups, a full iteration, an\n" +
		"exclusive-add race between two sets and an Erase drain, checking each\n" +
		"phase against a reference bitmap.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.String("file", "", "Key file; the last column of each line is used")
	flags.Int("limit", 1_000_000, "Maximum number of keys")
	flags.Int("workers", 0, "Worker goroutines (default GOMAXPROCS)")
	flags.Int("partition-bits", -1, "log2 of the partition count (-1 derives it from GOMAXPROCS)")
	flags.Int("capacity-bits", 0, "log2 of the initial buckets per partition (0 is the default)")
	flags.Int("erase-batch", 4096, "Keys removed per Erase call")
	flags.Bool("bytes", false, "Store keys as decimal byte strings instead of int64")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	for key, flag := range map[string]string{
		ConfRunFile:          "file",
		ConfRunLimit:         "limit",
		ConfRunEraseBatch:    "erase-batch",
		ConfRunBytes:         "bytes",
		ConfSetPartitionBits: "partition-bits",
		ConfSetCapacityBits:  "capacity-bits",
		ConfMetricsAddr:      "metrics-addr",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(&runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	workers := viper.GetInt(ConfRunWorkers)
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		workers = n
	}
	workers = max(workers, 1)

	ids, err := loadKeys(viper.GetString(ConfRunFile), viper.GetInt(ConfRunLimit))
	if err != nil {
		return err
	}
	ref := roaring64.New()
	for _, id := range ids {
		ref.Add(uint64(id))
	}
	log.Info("Loaded keys",
		"keys", len(ids),
		"distinct", ref.GetCardinality(),
		"workers", workers)

	reg := prometheus.NewRegistry()
	collector, err := prommetrics.New(reg, "fastbench")
	if err != nil {
		return err
	}
	if addr := viper.GetString(ConfMetricsAddr); addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		log.Info("Serving metrics", ConfMetricsAddr, addr)
	}

	opts := append(setOptionsFromEnv(), fastset.WithMetrics(collector))
	b := &bench{
		workers:    workers,
		eraseBatch: max(viper.GetInt(ConfRunEraseBatch), 1),
		ref:        ref,
	}

	if viper.GetBool(ConfRunBytes) {
		keys := make([][]byte, len(ids))
		for i, id := range ids {
			keys[i] = strconv.AppendInt(nil, id, 10)
		}
		return runPhases(ctx, b, keys, func() *fastset.BytesSet {
			return fastset.NewBytesSet(opts...)
		}, func(k []byte) (int64, error) {
			return strconv.ParseInt(string(k), 10, 64)
		})
	}
	return runPhases(ctx, b, ids, func() *fastset.Int64Set {
		return fastset.NewInt64Set(opts...)
	}, func(k int64) (int64, error) {
		return k, nil
	})
}

type bench struct {
	workers    int
	eraseBatch int
	ref        *roaring64.Bitmap
}

// fanOut runs fn over keys split into b.workers strided shards.
func fanOut[K any](ctx context.Context, b *bench, keys []K, fn func(worker int, k K) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := range b.workers {
		g.Go(func() error {
			for i := w; i < len(keys); i += b.workers {
				if (i/b.workers)%4096 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				if err := fn(w, keys[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func timed(phase string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	log.Info("Phase complete", "phase", phase, "elapsed", time.Since(start))
	return nil
}

func runPhases[K any](ctx context.Context, b *bench, keys []K, newSet func() *fastset.Set[K], idOf func(K) (int64, error)) error {
	want := b.ref.GetCardinality()
	s := newSet()
	defer s.Close()

	err := timed("add", func() error {
		if err := fanOut(ctx, b, keys, func(_ int, k K) error {
			s.Add(k)
			return nil
		}); err != nil {
			return err
		}
		if got := s.Size(); got != want {
			return fmt.Errorf("size %d, want %d", got, want)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = timed("contains", func() error {
		return fanOut(ctx, b, keys, func(_ int, k K) error {
			if !s.Contains(k) {
				return fmt.Errorf("key %v missing", k)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	err = timed("iterate", func() error {
		seen := roaring64.New()
		for k := range s.All() {
			id, err := idOf(k)
			if err != nil {
				return err
			}
			if !b.ref.Contains(uint64(id)) {
				return fmt.Errorf("iterator yielded unknown key %d", id)
			}
			if !seen.CheckedAdd(uint64(id)) {
				return fmt.Errorf("iterator yielded %d twice", id)
			}
		}
		if got := seen.GetCardinality(); got != s.Size() {
			return fmt.Errorf("iterated %d keys, size %d", got, s.Size())
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = timed("exclusive", func() error {
		left, right := newSet(), newSet()
		defer left.Close()
		defer right.Close()

		// Even workers claim into left, odd workers into right. Every key is
		// offered twice.
		if err := fanOut(ctx, b, slices.Concat(keys, keys), func(w int, k K) error {
			if w%2 == 0 {
				left.AddExclusive(k, right)
			} else {
				right.AddExclusive(k, left)
			}
			return nil
		}); err != nil {
			return err
		}
		if got := left.Size() + right.Size(); got != want {
			return fmt.Errorf("claimed %d keys, want %d", got, want)
		}
		for _, k := range keys {
			if left.Contains(k) == right.Contains(k) {
				return fmt.Errorf("key %v held by both or neither set", k)
			}
		}
		log.Debug("Exclusive split", "left", left.Size(), "right", right.Size())
		if n := left.AddAll(right); n != right.Size() {
			return fmt.Errorf("merge added %d keys, want %d", n, right.Size())
		}
		return nil
	})
	if err != nil {
		return err
	}

	return timed("erase", func() error {
		it := s.Iterator()
		defer it.Close()
		var erased uint64
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := s.Erase(it, b.eraseBatch)
			erased += uint64(n)
			if n == 0 {
				break
			}
		}
		if erased != want || s.Size() != 0 {
			return fmt.Errorf("erased %d of %d keys, %d left", erased, want, s.Size())
		}
		return nil
	})
}
