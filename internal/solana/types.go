// Package solana holds the normalized wire model shared by the RPC query
// layer and the extractor handlers. Everything here is encoding-agnostic:
// callers decode whatever shape an endpoint returned into these structs
// exactly once, and the rest of the system only ever sees one shape.
package solana

// Commitment is the confidence level requested on a query.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Block is the normalized block payload. The source may have been "raw" or
// "jsonParsed" encoding; by the time a Block reaches a handler both look
// identical.
type Block struct {
	Slot         uint64
	BlockTime    *int64
	ParentSlot   *uint64
	BlockHeight  *uint64
	Transactions []Tx
}

// Tx is a normalized transaction.
type Tx struct {
	Signatures []string
	Message    Message
	Meta       Meta
}

// Message carries the account table and instruction list for a transaction.
type Message struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Meta is the execution metadata attached to a transaction.
type Meta struct {
	Err                  any
	Status               string
	LogMessages          []string
	PreBalances          []uint64
	PostBalances         []uint64
	PreTokenBalances     []TokenBalance
	PostTokenBalances    []TokenBalance
	InnerInstructions    []InnerInstructionGroup
	ComputeUnitsConsumed *uint64
}

// Failed reports whether the transaction's on-chain execution errored.
// A failed transaction still counts toward block statistics but is skipped
// for transaction-level extraction per spec §4.5 edge cases.
func (m Meta) Failed() bool {
	return m.Err != nil
}

// TokenBalance is one entry of pre/post_token_balances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string
	Decimals     int
}

// InnerInstructionGroup is the set of instructions invoked by one top-level
// instruction, in the order the runtime emitted them.
type InnerInstructionGroup struct {
	Index        int
	Instructions []Instruction
}

// Instruction is a normalized instruction: whichever of the three wire
// shapes in spec §3/§4.7 it arrived as, this is the only shape the rest of
// the system reads.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Data      []byte
	Parsed    *ParsedInstruction
}

// ParsedInstruction is the solver-provided `{type, info}` shape, preserved
// when the endpoint returned "jsonParsed" encoding.
type ParsedInstruction struct {
	Type string
	Info map[string]any
}

// InstructionType returns the parsed instruction_type if present, used as a
// classification shortcut ahead of raw discriminator decoding.
func (i Instruction) InstructionType() string {
	if i.Parsed == nil {
		return ""
	}
	return i.Parsed.Type
}

// MintLocation records where in a transaction a mint address was observed.
type MintLocation string

const (
	LocationMain              MintLocation = "main"
	LocationInner             MintLocation = "inner"
	LocationTokenBalanceDelta MintLocation = "token_balance_delta"
)

// MintRecord is one detected new-mint event, per spec §3.
type MintRecord struct {
	Address        string
	SourceMarker   string
	Program        ProgramKind
	Slot           uint64
	BlockTime      *int64
	Location       MintLocation
	IsPumpSuffixed bool
}

// ProgramKind is the closed classification of a program ID, per spec §3.
type ProgramKind string

const (
	ProgramSystem        ProgramKind = "system"
	ProgramToken         ProgramKind = "token"
	ProgramToken2022     ProgramKind = "token2022"
	ProgramATA           ProgramKind = "ata"
	ProgramMetadata      ProgramKind = "metadata"
	ProgramNFTMarketplace ProgramKind = "nft_marketplace"
	ProgramDEX           ProgramKind = "dex"
	ProgramLending       ProgramKind = "lending"
	ProgramOracle        ProgramKind = "oracle"
	ProgramGovernance    ProgramKind = "governance"
	ProgramVote          ProgramKind = "vote"
	ProgramStake         ProgramKind = "stake"
	ProgramMemo          ProgramKind = "memo"
	ProgramOther         ProgramKind = "other"
)

// PumpSuffix is the literal, case-sensitive suffix that flags a "pump" token.
// Per spec §9 Open Questions, this is the single authoritative rule: an
// exact suffix match on the raw base58 string, nothing looser.
const PumpSuffix = "pump"

// IsPumpSuffixed reports whether addr ends with the literal suffix "pump".
func IsPumpSuffixed(addr string) bool {
	return len(addr) > len(PumpSuffix) && addr[len(addr)-len(PumpSuffix):] == PumpSuffix
}
