package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/password"
)

const (
	loadEmail    = "load@example.com"
	loadPassword = "L0ad-Test!Harbor-42"
)

type tokenPair struct {
	access  string
	refresh string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of sessions to open through Login")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if _, err := engine.Seed(ctx, adminauth.SeedConfig{AdminEmail: loadEmail, AdminPassword: loadPassword}); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	pairs := make([]tokenPair, *sessions)
	fmt.Printf("opening %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range pairs {
		res, err := engine.Login(ctx, loadEmail, loadPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		pairs[i] = tokenPair{access: res.AccessToken, refresh: res.RefreshToken}
	}
	fmt.Printf("opened in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, len(pairs), 7919, func(idx int) error {
		_, err := engine.Authenticate(ctx, pairs[idx].access)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, len(pairs), 6151, func(idx int) error {
		_, err := engine.Refresh(ctx, pairs[idx].refresh)
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: authenticate_ok=%d refresh_ok=%d audit_dropped=%d\n",
		snap.Counters[adminauth.MetricAuthenticateSuccess],
		snap.Counters[adminauth.MetricRefreshSuccess],
		engine.AuditDropped(),
	)
}

// buildEngine uses cheap hashing parameters and disables rate limiting so
// the phases measure token and session work only.
func buildEngine(client redis.UniversalClient) (*adminauth.Engine, error) {
	cfg := adminauth.DefaultConfig()
	cfg.JWT.Secret = []byte("loadtest-secret-0123456789abcdef!!")
	cfg.Password.Argon2 = password.Argon2Params{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.RateLimit.Enabled = false
	cfg.Audit.DropIfFull = true

	return adminauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAuditSink(adminauth.NoOpSink{}).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

func runPhase(ops, concurrency, n int, seed int64, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(n))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
