package decode

import (
	"testing"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

func TestInstructionIndexedShape(t *testing.T) {
	accountKeys := []string{"progA", "acctB", "acctC"}
	idx := 0
	raw := RawInstruction{
		ProgramIDIndex: &idx,
		AccountIndices: []int{1, 2},
		Data:           []byte{0x01},
	}

	var stats Stats
	ix, ok := Instruction(raw, accountKeys, &stats)
	if !ok {
		t.Fatal("expected ok=true for a valid indexed instruction")
	}
	if ix.ProgramID != "progA" {
		t.Fatalf("ProgramID = %q, want progA", ix.ProgramID)
	}
	if len(ix.Accounts) != 2 || ix.Accounts[0] != "acctB" || ix.Accounts[1] != "acctC" {
		t.Fatalf("Accounts = %v, want [acctB acctC]", ix.Accounts)
	}
	if stats.Rejected != 0 || stats.DroppedIndices != 0 {
		t.Fatalf("stats = %+v, want zero", stats)
	}
}

func TestInstructionOutOfRangeIndexDropped(t *testing.T) {
	accountKeys := []string{"progA"}
	raw := RawInstruction{
		ProgramID:      "progA",
		AccountIndices: []int{5},
	}

	var stats Stats
	ix, ok := Instruction(raw, accountKeys, &stats)
	if !ok {
		t.Fatal("expected ok=true: inline ProgramID was still valid")
	}
	if len(ix.Accounts) != 0 {
		t.Fatalf("Accounts = %v, want empty (out-of-range index dropped)", ix.Accounts)
	}
	if stats.DroppedIndices != 1 {
		t.Fatalf("DroppedIndices = %d, want 1", stats.DroppedIndices)
	}
}

func TestInstructionUnresolvableProgramIDRejected(t *testing.T) {
	var stats Stats
	_, ok := Instruction(RawInstruction{}, nil, &stats)
	if ok {
		t.Fatal("expected ok=false when no program ID shape is populated")
	}
	if stats.Rejected != 1 {
		t.Fatalf("Rejected = %d, want 1", stats.Rejected)
	}
}

func TestInstructionLegacyAccountIndexShape(t *testing.T) {
	accountKeys := []string{"a", "b", "legacyProg"}
	raw := RawInstruction{LegacyAccountIndices: []int{0, 2}}

	var stats Stats
	ix, ok := Instruction(raw, accountKeys, &stats)
	if !ok {
		t.Fatal("expected ok=true: legacy shape resolves via the last index")
	}
	if ix.ProgramID != "legacyProg" {
		t.Fatalf("ProgramID = %q, want legacyProg", ix.ProgramID)
	}
}

func TestClassifyKnownProgram(t *testing.T) {
	ix := solana.Instruction{ProgramID: programs.TokenV1}
	if got := Classify(ix); got != solana.ProgramToken {
		t.Fatalf("Classify(TokenV1) = %v, want ProgramToken", got)
	}
}

func TestClassifyHeuristicFallback(t *testing.T) {
	ix := solana.Instruction{
		ProgramID: "SomeUnknownProgramId11111111111111111111111",
		Parsed:    &solana.ParsedInstruction{Type: "tokenSwapExactIn"},
	}
	if got := Classify(ix); got != solana.ProgramDEX {
		t.Fatalf("Classify(unknown+swap heuristic) = %v, want ProgramDEX", got)
	}
}

func TestClassifyUnknownFallsToOther(t *testing.T) {
	ix := solana.Instruction{ProgramID: "TotallyUnknownProgram1111111111111111111111"}
	if got := Classify(ix); got != solana.ProgramOther {
		t.Fatalf("Classify(unknown, no heuristic match) = %v, want ProgramOther", got)
	}
}

func TestValidMintAddressRejectsKnownProgram(t *testing.T) {
	if ValidMintAddress(programs.System) {
		t.Fatal("the system program ID must never validate as a mint address")
	}
}

func TestValidMintAddressRejectsDenyList(t *testing.T) {
	for addr := range programs.DenyList {
		if ValidMintAddress(addr) {
			t.Fatalf("deny-listed address %q must never validate as a mint address", addr)
		}
	}
}

func TestValidMintAddressRejectsMalformedBase58(t *testing.T) {
	if ValidMintAddress("not-base58!!!") {
		t.Fatal("malformed base58 must never validate")
	}
	if ValidMintAddress("") {
		t.Fatal("empty string must never validate")
	}
}

func TestValidMintAddressAcceptsOrdinaryMint(t *testing.T) {
	// A real, well-known SPL token mint (Serum's SRM) that is neither a
	// known program ID nor on the built-in deny-list.
	const srm = "SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt"
	if !ValidMintAddress(srm) {
		t.Fatalf("expected %q to validate as an ordinary mint address", srm)
	}
}
