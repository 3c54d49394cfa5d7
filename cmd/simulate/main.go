package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appflows/booking-flow/internal/config"
	"github.com/appflows/booking-flow/internal/flow"
	"github.com/appflows/booking-flow/internal/gateway"
	"github.com/appflows/booking-flow/internal/schedule"
)

// The simulator drives complete scheduling flows through the real client
// stack: flow state machine, HTTP gateway, api-server. Booking conflicts
// under concurrency are expected and counted separately from errors.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DaysAhead   int
	Email       string
	Password    string
	HTTPTimeout time.Duration
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Availability OperationMetrics
	Booking      OperationMetrics
	EmptyDays    int64
}

type Simulator struct {
	config    SimConfig
	gw        *gateway.Client
	providers []flow.Provider
	metrics   Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("flow simulator starting")

	cfg := loadSimConfig()

	log.Printf("config: duration=%s workers=%d days_ahead=%d api=%s",
		cfg.Duration, cfg.Workers, cfg.DaysAhead, cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	session, err := gateway.SignIn(ctx, cfg.APIBaseURL, cfg.HTTPTimeout, cfg.Email, cfg.Password)
	cancel()
	if err != nil {
		log.Fatalf("sign in: %v", err)
	}

	gw := gateway.NewClient(cfg.APIBaseURL, session, cfg.HTTPTimeout)

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	providers, err := gw.ListProviders(ctx)
	cancel()
	if err != nil {
		log.Fatalf("list providers: %v", err)
	}
	if len(providers) == 0 {
		log.Fatal("no providers, run the seed command first")
	}

	log.Printf("loaded %d providers", len(providers))

	sim := &Simulator{
		config:    cfg,
		gw:        gw,
		providers: providers,
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  baseCfg.APIBaseURL,
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		DaysAhead:   getInt("SIM_DAYS_AHEAD", 14),
		Email:       getEnv("SIM_EMAIL", "demo@booking.local"),
		Password:    getEnv("SIM_PASSWORD", "123456"),
		HTTPTimeout: baseCfg.HTTPTimeout,
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.runFlow(ctx, rng)
		}
	}
}

// runFlow executes one complete scheduling flow: seed a provider and date,
// wait for the day grid, pick a free hour, submit.
func (s *Simulator) runFlow(ctx context.Context, rng *rand.Rand) {
	provider := s.providers[rng.Intn(len(s.providers))]
	date := flow.DateOf(time.Now().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead)))

	flowCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	updates := make(chan flow.Snapshot, 16)
	fetchErrs := make(chan error, 16)

	f := flow.New(s.gw, flow.Options{
		ProviderID: provider.ID,
		Date:       date,
		OnUpdate:   func(snap flow.Snapshot) { updates <- snap },
		OnError:    func(err error) { fetchErrs <- err },
	})
	go f.Run(flowCtx)

	start := time.Now()
	var snap flow.Snapshot

	for snap.Availability == nil {
		select {
		case <-flowCtx.Done():
			s.metrics.Availability.Record(time.Since(start), false, false)
			return
		case <-fetchErrs:
			s.metrics.Availability.Record(time.Since(start), false, false)
			return
		case got := <-updates:
			if len(got.Availability) > 0 {
				snap = got
			}
		}
	}
	s.metrics.Availability.Record(time.Since(start), true, false)

	free := freeHours(snap)
	if len(free) == 0 {
		atomic.AddInt64(&s.metrics.EmptyDays, 1)
		return
	}

	f.SelectHour(free[rng.Intn(len(free))])

	start = time.Now()
	_, err := f.Submit(flowCtx)
	latency := time.Since(start)

	if err == nil {
		s.metrics.Booking.Record(latency, true, false)
		return
	}

	// The submitter collapses failure kinds; the status code embedded in
	// the gateway error text is the only conflict signal left.
	conflict := strings.Contains(err.Error(), "api error 409")
	s.metrics.Booking.Record(latency, false, conflict)
}

func freeHours(snap flow.Snapshot) []int {
	var hours []int
	for _, bucket := range [][]schedule.DisplaySlot{snap.Morning, snap.Afternoon} {
		for _, slot := range bucket {
			if slot.Available {
				hours = append(hours, slot.Hour)
			}
		}
	}
	return hours
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	if n := atomic.LoadInt64(&s.metrics.EmptyDays); n > 0 {
		fmt.Printf("Fully booked days skipped: %d\n", n)
	}
	fmt.Println()

	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Booking", &s.metrics.Booking)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failures := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failures > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failures, float64(failures)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
