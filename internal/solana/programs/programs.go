// Package programs holds the closed set of well-known Solana program IDs
// and the classifier over it, per spec §3/§4.7. Addresses are lifted
// verbatim from the original Python implementation's
// backend/app/utils/programidextractor.py.
package programs

import "github.com/shubhamdubey02/solana-telemetry/internal/solana"

// System / consensus programs.
const (
	System          = "11111111111111111111111111111111"
	Vote            = "Vote111111111111111111111111111111111111111"
	Stake           = "Stake11111111111111111111111111111111111111"
	StakeConfig     = "StakeConfig11111111111111111111111111111111"
	BPFLoader2      = "BPFLoader2111111111111111111111111111111111"
	ComputeBudget   = "ComputeBudget111111111111111111111111111111"
	BPFLoaderUpgrd  = "BPFLoaderUpgradeab1e11111111111111111111111"
)

// Token programs.
const (
	TokenV1                  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022                = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenAccount   = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// Metadata / NFT programs.
const (
	MetaplexTokenMetadata = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	CandyMachine          = "cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ"
	AuctionHouse          = "hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk"
	TensorSwap            = "TSWAPaqyCSx2KABk68Shruf4rp7CxcNi8hAsbdwmHbN"
)

// DeFi / DEX / lending programs.
const (
	Jupiter           = "JUP6LkbZbjS1jKKwapdHF3G3kVhEmMYPV6Ma9QyGNPp"
	OrcaWhirlpool     = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	RaydiumAMM        = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	RaydiumCMMM       = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	RaydiumConcAMM    = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PhoenixDEX        = "PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY"
	Maestro           = "MaestroAAe9ge5HTc64VbBQZ6fP77pwvrhM8i1XWSAx"
	KaminoLending     = "KLend2g3cP87fffoy8q1mQqGKjrxjC8boSyAYavgmjD"
)

// Oracle programs.
const (
	Pyth       = "pythWSnswVUd12oZpeFP8e9CVaEqJg25g1Vtc2biRsT"
	Switchboard = "DcpnfYk9NBFkd8N6Fy6zQxjBpRXHzJuQE5G7DRtYKo3d"
)

// Memo programs.
const (
	MemoV1 = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
	MemoV2 = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
)

// Governance programs. Unlike the others these vary per-DAO in practice;
// the set here covers the realm program most commonly seen on mainnet.
const (
	SPLGovernance = "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"
)

var kindByProgram = map[string]solana.ProgramKind{
	System:        solana.ProgramSystem,
	ComputeBudget: solana.ProgramSystem,
	BPFLoader2:    solana.ProgramSystem,
	BPFLoaderUpgrd: solana.ProgramSystem,

	Vote:        solana.ProgramVote,
	Stake:       solana.ProgramStake,
	StakeConfig: solana.ProgramStake,

	TokenV1:   solana.ProgramToken,
	Token2022: solana.ProgramToken2022,

	AssociatedTokenAccount: solana.ProgramATA,

	MetaplexTokenMetadata: solana.ProgramMetadata,
	CandyMachine:          solana.ProgramMetadata,
	AuctionHouse:          solana.ProgramNFTMarketplace,
	TensorSwap:            solana.ProgramNFTMarketplace,

	Jupiter:        solana.ProgramDEX,
	OrcaWhirlpool:  solana.ProgramDEX,
	RaydiumAMM:     solana.ProgramDEX,
	RaydiumCMMM:    solana.ProgramDEX,
	RaydiumConcAMM: solana.ProgramDEX,
	PhoenixDEX:     solana.ProgramDEX,
	Maestro:        solana.ProgramDEX,
	KaminoLending:  solana.ProgramLending,

	Pyth:        solana.ProgramOracle,
	Switchboard: solana.ProgramOracle,

	MemoV1: solana.ProgramMemo,
	MemoV2: solana.ProgramMemo,

	SPLGovernance: solana.ProgramGovernance,
}

// Classify maps a program ID to its closed ProgramKind. Unknown programs
// return (ProgramOther, false); the caller (the instruction decoder) applies
// the instruction-data and co-occurrence heuristics from spec §4.7 before
// settling on "other".
func Classify(programID string) (solana.ProgramKind, bool) {
	kind, ok := kindByProgram[programID]
	if !ok {
		return solana.ProgramOther, false
	}
	return kind, true
}

// IsKnown reports whether programID is a member of the closed set at all
// (used by the mint-address validity predicate in spec §4.8 to reject
// addresses that are themselves known program IDs).
func IsKnown(programID string) bool {
	_, ok := kindByProgram[programID]
	return ok
}

// DEX, NFTMarketplace, Lending, Oracle, Governance, Memo return the set of
// program IDs of that kind, for handlers that dispatch on membership
// (spec §4.9's "triggered by known DEX/AMM program IDs" etc).
func ofKind(kind solana.ProgramKind) map[string]struct{} {
	out := make(map[string]struct{})
	for id, k := range kindByProgram {
		if k == kind {
			out[id] = struct{}{}
		}
	}
	return out
}

var (
	dexSet        = ofKind(solana.ProgramDEX)
	nftSet        = ofKind(solana.ProgramNFTMarketplace)
	lendingSet    = ofKind(solana.ProgramLending)
	oracleSet     = ofKind(solana.ProgramOracle)
	governanceSet = ofKind(solana.ProgramGovernance)
	metadataSet   = ofKind(solana.ProgramMetadata)
)

func IsDEX(programID string) bool        { _, ok := dexSet[programID]; return ok }
func IsNFTMarketplace(programID string) bool { _, ok := nftSet[programID]; return ok }
func IsLending(programID string) bool     { _, ok := lendingSet[programID]; return ok }
func IsOracle(programID string) bool      { _, ok := oracleSet[programID]; return ok }
func IsGovernance(programID string) bool  { _, ok := governanceSet[programID]; return ok }
func IsMetadata(programID string) bool    { _, ok := metadataSet[programID]; return ok }

// DenyList is the built-in deny-list from spec §4.8's validity predicate:
// wrapped SOL, major stablecoins, and well-known program addresses are
// never emitted as "new mint" candidates even if they satisfy the other
// criteria.
var DenyList = map[string]struct{}{
	"So11111111111111111111111111111111111111112": {}, // Wrapped SOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {}, // USDT
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {}, // BONK (major, pre-existing)
}
