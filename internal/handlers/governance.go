package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// GovernanceOpKind is the closed classification of a governance instruction,
// per spec §4.9.
type GovernanceOpKind string

const (
	GovernanceProposalCreate GovernanceOpKind = "proposal_create"
	GovernanceVoteCast       GovernanceOpKind = "vote_cast"
	GovernanceComment        GovernanceOpKind = "comment"
	GovernanceExecution      GovernanceOpKind = "execution"
	GovernanceConfigChange   GovernanceOpKind = "config_change"
	GovernanceUnknown        GovernanceOpKind = "unknown"
)

var governanceParsedTypes = map[string]GovernanceOpKind{
	"createproposal":    GovernanceProposalCreate,
	"proposal":          GovernanceProposalCreate,
	"castvote":          GovernanceVoteCast,
	"vote":              GovernanceVoteCast,
	"comment":            GovernanceComment,
	"addsignatory":      GovernanceComment,
	"executetransaction": GovernanceExecution,
	"execute":           GovernanceExecution,
	"setgovernanceconfig": GovernanceConfigChange,
	"setrealmconfig":    GovernanceConfigChange,
}

// GovernanceOperation is one classified governance instruction.
type GovernanceOperation struct {
	Kind     GovernanceOpKind
	Voter    string // accounts[0] by convention, when the op is a vote
	Accounts []string
}

// GovernanceBlockResult is the governance extractor's per-block output.
type GovernanceBlockResult struct {
	Slot            uint64
	Operations      []GovernanceOperation
	KindCounts      map[GovernanceOpKind]int
	UniqueVoters    map[string]struct{}
	Statistics      Stats
}

// GovernanceHandler implements the governance auxiliary extractor (spec
// §4.9): triggered by governance program IDs.
type GovernanceHandler struct {
	stats *Stats
}

var _ Handler = (*GovernanceHandler)(nil)

func NewGovernanceHandler() *GovernanceHandler { return &GovernanceHandler{stats: NewStats()} }

func (h *GovernanceHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("governance", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *GovernanceHandler) processBlock(block *solana.Block) GovernanceBlockResult {
	h.stats.IncrementTotal()
	result := GovernanceBlockResult{
		Slot:         block.Slot,
		KindCounts:   map[GovernanceOpKind]int{},
		UniqueVoters: map[string]struct{}{},
	}
	if block == nil {
		h.stats.IncrementFailure()
		return result
	}

	for _, tx := range block.Transactions {
		if IsVote(tx) || tx.Meta.Failed() {
			h.stats.IncrementSkipped()
			continue
		}
		for _, ix := range tx.Message.Instructions {
			h.classify(ix, &result)
		}
	}

	h.stats.IncrementSuccess()
	result.Statistics = h.stats.Snapshot()
	return result
}

func (h *GovernanceHandler) classify(ix solana.Instruction, result *GovernanceBlockResult) {
	kind, known := programs.Classify(ix.ProgramID)
	if !known || kind != solana.ProgramGovernance {
		return
	}

	op := GovernanceOperation{Kind: GovernanceUnknown, Accounts: ix.Accounts}
	if t := strings.ToLower(ix.InstructionType()); t != "" {
		if k, ok := governanceParsedTypes[t]; ok {
			op.Kind = k
		}
	}
	if op.Kind == GovernanceUnknown {
		h.stats.RecordInstructionError()
		return
	}
	if op.Kind == GovernanceVoteCast && len(ix.Accounts) > 0 {
		op.Voter = ix.Accounts[0]
		result.UniqueVoters[op.Voter] = struct{}{}
	}

	result.Operations = append(result.Operations, op)
	result.KindCounts[op.Kind]++
}

func (h *GovernanceHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("governance handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *GovernanceHandler) GetResults() any { return h.stats.Snapshot() }
func (h *GovernanceHandler) Reset()          { h.stats.Reset() }
