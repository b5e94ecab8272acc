// Package netstatus implements the Network Status Aggregator (C10): a
// parallel fan-out over cluster-nodes/version/epoch/performance/vote-accounts
// with a per-field TTL cache and stale-value fallback, producing a composite
// health report.
package netstatus

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/shubhamdubey02/solana-telemetry/internal/solanarpc"
)

// Per-field TTLs, per spec §3.
const (
	ttlNodes       = 5 * time.Minute
	ttlVotes       = 5 * time.Minute
	ttlPerformance = 1 * time.Minute
	ttlVersion     = 1 * time.Hour
	ttlEpoch       = 1 * time.Minute
)

// Per-field fetch timeouts, per spec §4.10. The distilled spec gives no
// explicit timeout for "version"; 3s is chosen to match epoch/performance,
// the other lightweight single-RPC fields.
const (
	timeoutNodes       = 5 * time.Second
	timeoutVotes       = 4 * time.Second
	timeoutEpoch       = 3 * time.Second
	timeoutPerformance = 3 * time.Second
	timeoutVersion     = 3 * time.Second
	timeoutOverall     = 10 * time.Second
)

const (
	keyNodes       = "nodes"
	keyVersion     = "version"
	keyEpoch       = "epoch"
	keyPerformance = "performance"
	keyVotes       = "votes"
)

// Status is the composite classification, per spec §4.10.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// FieldFailure records one field's fetch failure for the composite report.
type FieldFailure struct {
	Field string
	Err   string
}

// Report is the comprehensive status result. Fields default to their zero
// value ("unknown"/0) when unavailable, so callers never need to branch on
// absence (spec §4.10).
type Report struct {
	Status    Status
	Failures  []FieldFailure
	Timestamp time.Time

	Nodes       []solanarpc.ClusterNode
	Version     solanarpc.VersionInfo
	Epoch       solanarpc.EpochInfo
	Performance []solanarpc.PerformanceSample
	Votes       solanarpc.VoteAccounts
	Local       LocalHealth

	Summary Summary
}

// Summary holds the derived metrics computed from the raw field data.
type Summary struct {
	TotalNodes             int
	RPCNodesAvailable      int
	RPCAvailabilityPercent float64
	LatestVersion          string
	VersionDistribution    map[string]int

	CurrentEpoch   uint64
	EpochProgress  float64
	SlotHeight     uint64

	SlotsPerSecond float64
	AvgSlotTimeMS  float64
	TPS            float64

	ActiveValidators      int
	DelinquentValidators  int
	TotalStakeLamports    uint64
	Top10StakePercent     float64
	Top20StakePercent     float64
}

// Aggregator is the C10 component, built over a Query layer.
type Aggregator struct {
	query *solanarpc.Query
	cache *fieldCache
}

func NewAggregator(query *solanarpc.Query) *Aggregator {
	return &Aggregator{query: query, cache: newFieldCache()}
}

// GetComprehensiveStatus assembles the composite report. When summaryOnly is
// true, Nodes/Performance/Votes raw payloads are omitted from the result
// (Summary is always populated) to keep the response small, per spec §4.10.
func (a *Aggregator) GetComprehensiveStatus(ctx context.Context, summaryOnly bool) Report {
	ctx, cancel := context.WithTimeout(ctx, timeoutOverall)
	defer cancel()

	report := Report{Timestamp: time.Now()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		nodes, failed := fetchField(gctx, a.cache, keyNodes, ttlNodes, timeoutNodes, func(c context.Context) ([]solanarpc.ClusterNode, error) {
			return a.query.GetClusterNodes(c)
		})
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			report.Failures = append(report.Failures, *failed)
		} else {
			report.Nodes = nodes
		}
		return nil
	})

	g.Go(func() error {
		version, failed := fetchField(gctx, a.cache, keyVersion, ttlVersion, timeoutVersion, func(c context.Context) (solanarpc.VersionInfo, error) {
			return a.query.GetVersion(c)
		})
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			report.Failures = append(report.Failures, *failed)
		} else {
			report.Version = version
		}
		return nil
	})

	g.Go(func() error {
		epoch, failed := fetchField(gctx, a.cache, keyEpoch, ttlEpoch, timeoutEpoch, func(c context.Context) (solanarpc.EpochInfo, error) {
			return a.query.GetEpochInfo(c)
		})
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			report.Failures = append(report.Failures, *failed)
		} else {
			report.Epoch = epoch
		}
		return nil
	})

	g.Go(func() error {
		perf, failed := fetchField(gctx, a.cache, keyPerformance, ttlPerformance, timeoutPerformance, func(c context.Context) ([]solanarpc.PerformanceSample, error) {
			return a.query.GetRecentPerformanceSamples(c, 5)
		})
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			report.Failures = append(report.Failures, *failed)
		} else {
			report.Performance = perf
		}
		return nil
	})

	g.Go(func() error {
		votes, failed := fetchField(gctx, a.cache, keyVotes, ttlVotes, timeoutVotes, func(c context.Context) (solanarpc.VoteAccounts, error) {
			return a.query.GetVoteAccounts(c)
		})
		mu.Lock()
		defer mu.Unlock()
		if failed != nil {
			report.Failures = append(report.Failures, *failed)
		} else {
			report.Votes = votes
		}
		return nil
	})

	g.Go(func() error {
		local := sampleLocalHealth(gctx)
		mu.Lock()
		defer mu.Unlock()
		report.Local = local
		return nil
	})

	_ = g.Wait() // every goroutine above captures its own error into report.Failures; never aborts siblings

	report.Summary = computeSummary(report)
	report.Status = classify(len(report.Failures))

	if summaryOnly {
		report.Nodes = nil
		report.Performance = nil
		report.Votes = solanarpc.VoteAccounts{}
	}
	return report
}

func classify(failures int) Status {
	switch {
	case failures == 0:
		return StatusHealthy
	case failures <= 2:
		return StatusDegraded
	default:
		return StatusError
	}
}

// fetchField implements the per-field cache/fetch/fallback sequence from
// spec §4.10: fresh cache hit short-circuits, otherwise a live fetch is
// attempted under timeout, falling back to a stale cached value on failure.
func fetchField[T any](ctx context.Context, cache *fieldCache, key string, ttl, timeout time.Duration, fetch func(context.Context) (T, error)) (T, *FieldFailure) {
	var zero T

	if cached, fresh := cache.get(key, ttl); fresh {
		if v, ok := cached.(T); ok {
			return v, nil
		}
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fetch(fctx)
	if err == nil {
		cache.set(key, result)
		return result, nil
	}

	log.Warn("netstatus: field fetch failed", "field", key, "err", err)
	if stale, ok := cache.getStale(key); ok {
		if v, ok := stale.(T); ok {
			return v, nil
		}
	}
	return zero, &FieldFailure{Field: key, Err: err.Error()}
}

func computeSummary(report Report) Summary {
	s := Summary{LatestVersion: "unknown", VersionDistribution: map[string]int{}}

	var rpcNodes int
	for _, n := range report.Nodes {
		v := "unknown"
		if n.Version != nil {
			v = *n.Version
		}
		s.VersionDistribution[v]++
		if n.RPC != nil && *n.RPC != "" {
			rpcNodes++
		}
	}
	s.TotalNodes = len(report.Nodes)
	s.RPCNodesAvailable = rpcNodes
	if s.TotalNodes > 0 {
		s.RPCAvailabilityPercent = float64(rpcNodes) / float64(s.TotalNodes) * 100
	}
	s.LatestVersion = latestSemver(s.VersionDistribution)

	s.CurrentEpoch = report.Epoch.Epoch
	s.SlotHeight = report.Epoch.AbsoluteSlot
	if report.Epoch.SlotsInEpoch > 0 {
		s.EpochProgress = float64(report.Epoch.SlotIndex) / float64(report.Epoch.SlotsInEpoch) * 100
	}

	var totalSlots, totalTxs uint64
	var totalTime float64
	for _, sample := range report.Performance {
		if sample.NumSlots == 0 || sample.SamplePeriodSecs == 0 {
			continue
		}
		totalSlots += sample.NumSlots
		totalTxs += sample.NumTransactions
		totalTime += float64(sample.SamplePeriodSecs)
	}
	if totalTime > 0 {
		s.SlotsPerSecond = float64(totalSlots) / totalTime
		if s.SlotsPerSecond > 0 {
			s.AvgSlotTimeMS = 1000 / s.SlotsPerSecond
		}
		s.TPS = float64(totalTxs) / totalTime
	}

	all := append(append([]solanarpc.VoteAccount{}, report.Votes.Current...), report.Votes.Delinquent...)
	s.ActiveValidators = len(report.Votes.Current)
	s.DelinquentValidators = len(report.Votes.Delinquent)
	for _, v := range all {
		s.TotalStakeLamports += v.ActivatedStake
	}
	if s.TotalStakeLamports > 0 {
		sort.Slice(all, func(i, j int) bool { return all[i].ActivatedStake > all[j].ActivatedStake })
		s.Top10StakePercent = stakeShare(all, 10, s.TotalStakeLamports)
		s.Top20StakePercent = stakeShare(all, 20, s.TotalStakeLamports)
	}

	return s
}

func stakeShare(sorted []solanarpc.VoteAccount, n int, total uint64) float64 {
	if n > len(sorted) {
		n = len(sorted)
	}
	var sum uint64
	for _, v := range sorted[:n] {
		sum += v.ActivatedStake
	}
	return float64(sum) / float64(total) * 100
}

// latestSemver picks the numerically largest dotted-numeric version among
// non-"unknown" keys, per spec §4.10.
func latestSemver(distribution map[string]int) string {
	best := "unknown"
	var bestParts []int
	for v := range distribution {
		if v == "unknown" || v == "" {
			continue
		}
		parts := parseSemverParts(v)
		if parts == nil {
			continue
		}
		if bestParts == nil || compareSemver(parts, bestParts) > 0 {
			bestParts = parts
			best = v
		}
	}
	return best
}

func parseSemverParts(v string) []int {
	fields := strings.Split(v, ".")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func compareSemver(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}
	return len(a) - len(b)
}
