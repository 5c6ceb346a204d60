// Command goadmit-loadtest hammers the admission facade and reports latency
// percentiles plus the over-admission count for a contended window.
//
// It runs two phases against miniredis (or REDIS_ADDR):
//
//	throughput — concurrent Admit calls spread over many distinct clients
//	            with a window wide enough that nothing is denied, measuring
//	            the decision path itself.
//	contention — every worker shares one client identifier against a small
//	            window; anything admitted beyond the limit is an atomicity
//	            bug and is reported as overshoot.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAdmit "github.com/jcyrus/goAdmit"
)

func main() {
	var (
		ops         = flag.Int("ops", 200000, "admissions in the throughput phase")
		concurrency = flag.Int("concurrency", 256, "concurrent workers")
		clients     = flag.Int("clients", 10000, "distinct client identifiers in the throughput phase")
		limit       = flag.Int("limit", 100, "window limit for the contention phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *ops <= 0 || *concurrency <= 0 || *clients <= 0 || *limit <= 0 {
		fmt.Fprintln(os.Stderr, "ops, concurrency, clients, and limit must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	cfg := goAdmit.DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Throttle.Windows["throughput"] = goAdmit.ThrottleWindow{
		TTL:   time.Hour,
		Limit: *ops + 1,
	}
	cfg.Throttle.Windows["contention"] = goAdmit.ThrottleWindow{
		TTL:   time.Hour,
		Limit: *limit,
	}

	engine, err := goAdmit.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	throughput := runThroughputPhase(engine, *ops, *concurrency, *clients)
	overshoot, admitted := runContentionPhase(engine, *concurrency, *limit)

	fmt.Println("---- results ----")
	printStats("throughput", throughput)
	fmt.Printf("contention: admitted=%d limit=%d overshoot=%d\n", admitted, *limit, overshoot)
	if overshoot > 0 {
		fmt.Fprintln(os.Stderr, "FAIL: window over-admitted under contention")
		os.Exit(1)
	}
}

func runThroughputPhase(engine *goAdmit.Engine, ops, concurrency, clients int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		denials   int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	ctx := context.Background()
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(clients)

				t0 := time.Now()
				d := engine.Admit(ctx, goAdmit.AdmissionRequest{
					IP:        clientIP(idx),
					UserAgent: fmt.Sprintf("loadtest-agent-%d", idx%32),
					Purpose:   "throughput",
				})
				elapsed := time.Since(t0)

				if !d.Allowed {
					atomic.AddInt64(&denials, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return computeStats(time.Since(start), latencies, denials)
}

// runContentionPhase drives 4x the limit through one shared client and
// counts admissions. The window must admit exactly the limit.
func runContentionPhase(engine *goAdmit.Engine, concurrency, limit int) (overshoot int64, admitted int64) {
	var (
		wg     sync.WaitGroup
		cursor int64
	)

	ops := limit * 4
	ctx := context.Background()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				d := engine.Admit(ctx, goAdmit.AdmissionRequest{
					IP:        "203.0.113.200",
					UserAgent: "loadtest-shared",
					Purpose:   "contention",
				})
				if d.Allowed {
					atomic.AddInt64(&admitted, 1)
				}
			}
		}()
	}
	wg.Wait()

	if admitted > int64(limit) {
		overshoot = admitted - int64(limit)
	}
	return overshoot, admitted
}

// clientIP spreads indices over 198.18.0.0/15, reserved for benchmarking.
func clientIP(idx int) string {
	return fmt.Sprintf("198.18.%d.%d", (idx/250)%128, idx%250+1)
}

type phaseStats struct {
	total   time.Duration
	ops     int
	denials int64
	p50     time.Duration
	p95     time.Duration
	p99     time.Duration
	opsPerS float64
}

func computeStats(total time.Duration, samples []time.Duration, denials int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		denials: denials,
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d denials=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.denials,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
