package programs

import (
	"testing"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

func TestClassifyKnownPrograms(t *testing.T) {
	cases := map[string]solana.ProgramKind{
		System:    solana.ProgramSystem,
		TokenV1:   solana.ProgramToken,
		Token2022: solana.ProgramToken2022,
		Jupiter:   solana.ProgramDEX,
		Pyth:      solana.ProgramOracle,
		MemoV1:    solana.ProgramMemo,
	}
	for id, want := range cases {
		kind, ok := Classify(id)
		if !ok {
			t.Errorf("Classify(%q) reported unknown, want known %v", id, want)
		}
		if kind != want {
			t.Errorf("Classify(%q) = %v, want %v", id, kind, want)
		}
	}
}

func TestClassifyUnknownProgram(t *testing.T) {
	kind, ok := Classify("NotAProgramId11111111111111111111111111111")
	if ok {
		t.Fatal("expected ok=false for an unregistered program ID")
	}
	if kind != solana.ProgramOther {
		t.Fatalf("kind = %v, want ProgramOther", kind)
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown(TokenV1) {
		t.Fatal("TokenV1 must be known")
	}
	if IsKnown("NotAProgramId11111111111111111111111111111") {
		t.Fatal("an unregistered program ID must not be known")
	}
}

func TestMembershipPredicates(t *testing.T) {
	if !IsDEX(Jupiter) {
		t.Error("Jupiter should be classified as a DEX")
	}
	if IsDEX(TokenV1) {
		t.Error("TokenV1 should not be classified as a DEX")
	}
	if !IsNFTMarketplace(AuctionHouse) {
		t.Error("AuctionHouse should be classified as an NFT marketplace")
	}
	if !IsLending(KaminoLending) {
		t.Error("KaminoLending should be classified as lending")
	}
	if !IsOracle(Pyth) {
		t.Error("Pyth should be classified as an oracle")
	}
	if !IsGovernance(SPLGovernance) {
		t.Error("SPLGovernance should be classified as governance")
	}
	if !IsMetadata(MetaplexTokenMetadata) {
		t.Error("MetaplexTokenMetadata should be classified as metadata")
	}
}

func TestDenyListContainsWrappedSOL(t *testing.T) {
	if _, ok := DenyList["So11111111111111111111111111111111111111112"]; !ok {
		t.Fatal("wrapped SOL must be on the deny-list")
	}
}
