package netstatus

import (
	"testing"

	"github.com/shubhamdubey02/solana-telemetry/internal/solanarpc"
)

func strPtr(s string) *string { return &s }

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Status{
		0: StatusHealthy,
		1: StatusDegraded,
		2: StatusDegraded,
		3: StatusError,
		5: StatusError,
	}
	for failures, want := range cases {
		if got := classify(failures); got != want {
			t.Errorf("classify(%d) = %v, want %v", failures, got, want)
		}
	}
}

func TestComputeSummaryRPCAvailability(t *testing.T) {
	report := Report{
		Nodes: []solanarpc.ClusterNode{
			{Pubkey: "a", RPC: strPtr("1.2.3.4:8899"), Version: strPtr("1.18.0")},
			{Pubkey: "b", RPC: nil, Version: strPtr("1.18.0")},
		},
	}
	s := computeSummary(report)
	if s.TotalNodes != 2 {
		t.Fatalf("TotalNodes = %d, want 2", s.TotalNodes)
	}
	if s.RPCNodesAvailable != 1 {
		t.Fatalf("RPCNodesAvailable = %d, want 1", s.RPCNodesAvailable)
	}
	if s.RPCAvailabilityPercent != 50 {
		t.Fatalf("RPCAvailabilityPercent = %v, want 50", s.RPCAvailabilityPercent)
	}
}

func TestComputeSummaryEpochProgress(t *testing.T) {
	report := Report{Epoch: solanarpc.EpochInfo{Epoch: 10, SlotIndex: 25, SlotsInEpoch: 100, AbsoluteSlot: 500}}
	s := computeSummary(report)
	if s.CurrentEpoch != 10 {
		t.Fatalf("CurrentEpoch = %d, want 10", s.CurrentEpoch)
	}
	if s.EpochProgress != 25 {
		t.Fatalf("EpochProgress = %v, want 25", s.EpochProgress)
	}
	if s.SlotHeight != 500 {
		t.Fatalf("SlotHeight = %d, want 500", s.SlotHeight)
	}
}

func TestComputeSummaryThroughput(t *testing.T) {
	report := Report{Performance: []solanarpc.PerformanceSample{
		{NumSlots: 60, NumTransactions: 6000, SamplePeriodSecs: 60},
	}}
	s := computeSummary(report)
	if s.SlotsPerSecond != 1 {
		t.Fatalf("SlotsPerSecond = %v, want 1", s.SlotsPerSecond)
	}
	if s.TPS != 100 {
		t.Fatalf("TPS = %v, want 100", s.TPS)
	}
	if s.AvgSlotTimeMS != 1000 {
		t.Fatalf("AvgSlotTimeMS = %v, want 1000", s.AvgSlotTimeMS)
	}
}

func TestComputeSummaryStakeConcentration(t *testing.T) {
	report := Report{Votes: solanarpc.VoteAccounts{
		Current: []solanarpc.VoteAccount{
			{VotePubkey: "v1", ActivatedStake: 700},
			{VotePubkey: "v2", ActivatedStake: 200},
			{VotePubkey: "v3", ActivatedStake: 100},
		},
	}}
	s := computeSummary(report)
	if s.ActiveValidators != 3 {
		t.Fatalf("ActiveValidators = %d, want 3", s.ActiveValidators)
	}
	if s.TotalStakeLamports != 1000 {
		t.Fatalf("TotalStakeLamports = %d, want 1000", s.TotalStakeLamports)
	}
	if s.Top10StakePercent != 100 {
		t.Fatalf("Top10StakePercent = %v, want 100 (only 3 validators exist)", s.Top10StakePercent)
	}
}

func TestLatestSemverPicksNumericallyLargest(t *testing.T) {
	dist := map[string]int{"1.18.2": 5, "1.9.0": 1, "unknown": 2, "2.0.0": 1}
	if got := latestSemver(dist); got != "2.0.0" {
		t.Fatalf("latestSemver = %q, want 2.0.0", got)
	}
}

func TestLatestSemverAllUnknown(t *testing.T) {
	if got := latestSemver(map[string]int{"unknown": 3}); got != "unknown" {
		t.Fatalf("latestSemver = %q, want unknown", got)
	}
}

func TestCompareSemver(t *testing.T) {
	if compareSemver([]int{1, 18, 2}, []int{1, 9, 0}) <= 0 {
		t.Fatal("1.18.2 should compare greater than 1.9.0")
	}
	if compareSemver([]int{2, 0}, []int{2, 0, 1}) >= 0 {
		t.Fatal("2.0 should compare less than 2.0.1 (shorter wins the tie only by length)")
	}
}
