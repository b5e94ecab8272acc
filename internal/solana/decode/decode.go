// Package decode implements the Instruction Decoder (C7): it normalizes the
// three instruction shapes a Solana RPC endpoint can hand back into the one
// solana.Instruction shape the rest of the system reads, and classifies
// program IDs against the closed set in package programs.
package decode

import (
	"strings"

	"github.com/mr-tron/base58"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// RawInstruction is the union of wire shapes the decoder accepts, populated
// by the JSON-RPC response adapter ahead of calling Instruction. Exactly one
// of the account-resolution fields is expected to be set; Parsed may be set
// independently of which one is.
type RawInstruction struct {
	// Shape 1: indexed accounts into the enclosing message's account_keys.
	ProgramIDIndex *int
	AccountIndices []int

	// Shape 2: inline programId + accounts strings.
	ProgramID string
	Accounts  []string

	// Legacy compatibility shape: accounts[last] indexes into account_keys.
	LegacyAccountIndices []int

	Data   []byte
	Parsed *solana.ParsedInstruction
}

// Stats accumulates decode-time rejection counters, read by the calling
// handler for its per-block statistics (spec §4.7: "dropped ... never an
// exception").
type Stats struct {
	Rejected      int
	DroppedIndices int
}

// Instruction normalizes one raw instruction against the enclosing
// transaction's account_keys table. It never returns an error: malformed
// instructions increment stats and are reported via the boolean ok.
func Instruction(raw RawInstruction, accountKeys []string, stats *Stats) (solana.Instruction, bool) {
	programID, ok := resolveProgramID(raw, accountKeys, stats)
	if !ok {
		stats.Rejected++
		return solana.Instruction{}, false
	}

	accounts := resolveAccounts(raw, accountKeys, stats)

	return solana.Instruction{
		ProgramID: programID,
		Accounts:  accounts,
		Data:      raw.Data,
		Parsed:    raw.Parsed,
	}, true
}

func resolveProgramID(raw RawInstruction, accountKeys []string, stats *Stats) (string, bool) {
	if raw.ProgramIDIndex != nil {
		idx := *raw.ProgramIDIndex
		if idx >= 0 && idx < len(accountKeys) {
			return accountKeys[idx], true
		}
		stats.DroppedIndices++
		return "", false
	}
	if raw.ProgramID != "" {
		return raw.ProgramID, true
	}
	// Legacy compatibility shape: last entry of accounts indexes a key.
	if n := len(raw.LegacyAccountIndices); n > 0 {
		idx := raw.LegacyAccountIndices[n-1]
		if idx >= 0 && idx < len(accountKeys) {
			return accountKeys[idx], true
		}
		stats.DroppedIndices++
	}
	return "", false
}

func resolveAccounts(raw RawInstruction, accountKeys []string, stats *Stats) []string {
	if len(raw.Accounts) > 0 {
		return raw.Accounts
	}
	accounts := make([]string, 0, len(raw.AccountIndices))
	for _, idx := range raw.AccountIndices {
		if idx < 0 || idx >= len(accountKeys) {
			stats.DroppedIndices++
			continue
		}
		accounts = append(accounts, accountKeys[idx])
	}
	return accounts
}

// Classify resolves an instruction's program to its ProgramKind, falling
// back to instruction-data heuristics and then to ProgramOther per spec
// §4.7 ("unknown programs are categorized by instruction-data heuristics").
func Classify(ix solana.Instruction) solana.ProgramKind {
	if kind, ok := programs.Classify(ix.ProgramID); ok {
		return kind
	}
	return classifyByHeuristic(ix)
}

// classifyByHeuristic applies substring matches over instruction data and
// the parsed instruction_type, for programs outside the closed set.
func classifyByHeuristic(ix solana.Instruction) solana.ProgramKind {
	needle := strings.ToLower(ix.InstructionType())
	switch {
	case strings.Contains(needle, "swap"):
		return solana.ProgramDEX
	case strings.Contains(needle, "mint"):
		return solana.ProgramToken
	case strings.Contains(needle, "stake"):
		return solana.ProgramStake
	case strings.Contains(needle, "vote"):
		return solana.ProgramVote
	case strings.Contains(needle, "proposal"), strings.Contains(needle, "governance"):
		return solana.ProgramGovernance
	}
	return solana.ProgramOther
}

// ValidMintAddress implements the validity predicate of spec §4.8: base58
// decoded length 32, not in the deny-list, not a known system/program ID,
// and not an obvious program-ID pattern (long runs of the base58 '1'
// padding character, used by system-reserved addresses).
func ValidMintAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	if _, denied := programs.DenyList[addr]; denied {
		return false
	}
	if programs.IsKnown(addr) {
		return false
	}
	if looksLikeProgramPattern(addr) {
		return false
	}
	return true
}

// looksLikeProgramPattern flags addresses that are mostly the base58 '1'
// padding character, a common shape for reserved system addresses that
// aren't otherwise in the closed program set.
func looksLikeProgramPattern(addr string) bool {
	ones := strings.Count(addr, "1")
	return ones >= len(addr)-4 && len(addr) > 8
}

// IsPumpSuffixed re-exports solana.IsPumpSuffixed for callers that only
// import this package.
func IsPumpSuffixed(addr string) bool { return solana.IsPumpSuffixed(addr) }
