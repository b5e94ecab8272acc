package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// ValidatorOpKind classifies a vote/stake instruction, per spec §4.9.
type ValidatorOpKind string

const (
	ValidatorVote           ValidatorOpKind = "vote"
	ValidatorStakeDelegate  ValidatorOpKind = "stake_delegate"
	ValidatorStakeDeactivate ValidatorOpKind = "stake_deactivate"
	ValidatorStakeWithdraw  ValidatorOpKind = "stake_withdraw"
	ValidatorStakeSplit     ValidatorOpKind = "stake_split"
	ValidatorUnknown        ValidatorOpKind = "unknown"
)

var validatorParsedTypes = map[string]ValidatorOpKind{
	"vote":           ValidatorVote,
	"votestate":      ValidatorVote,
	"votestateupdate": ValidatorVote,
	"delegate":       ValidatorStakeDelegate,
	"delegatestake":  ValidatorStakeDelegate,
	"deactivate":     ValidatorStakeDeactivate,
	"withdraw":       ValidatorStakeWithdraw,
	"split":          ValidatorStakeSplit,
}

// ValidatorOperation is one classified vote/stake instruction, keyed by the
// validator or stake account it targets.
type ValidatorOperation struct {
	Kind      ValidatorOpKind
	Validator string
	Accounts  []string
}

// ValidatorBlockResult is the validator/stake extractor's per-block output.
// "Active vs delinquent" and "stake deltas" are population-level metrics
// computed by the Network Status Aggregator (C10) from getVoteAccounts, not
// per-block; this extractor contributes the per-block operation histogram
// half of spec §4.9's validator/stake bullet.
type ValidatorBlockResult struct {
	Slot                uint64
	Operations          []ValidatorOperation
	PerValidatorOpCounts map[string]map[ValidatorOpKind]int
	Statistics          Stats
}

// ValidatorHandler implements the validator/stake auxiliary extractor (spec
// §4.9): triggered by vote/stake/stake-config programs.
type ValidatorHandler struct {
	stats *Stats
}

var _ Handler = (*ValidatorHandler)(nil)

func NewValidatorHandler() *ValidatorHandler { return &ValidatorHandler{stats: NewStats()} }

func (h *ValidatorHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("validator", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *ValidatorHandler) processBlock(block *solana.Block) ValidatorBlockResult {
	h.stats.IncrementTotal()
	result := ValidatorBlockResult{Slot: block.Slot, PerValidatorOpCounts: map[string]map[ValidatorOpKind]int{}}
	if block == nil {
		h.stats.IncrementFailure()
		return result
	}

	for _, tx := range block.Transactions {
		// unlike the other extractors, vote transactions are the primary
		// signal here, not noise to be skipped.
		if tx.Meta.Failed() {
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

func (h *ValidatorHandler) classify(ix solana.Instruction, result *ValidatorBlockResult) {
	kind, known := programs.Classify(ix.ProgramID)
	if !known || (kind != solana.ProgramVote && kind != solana.ProgramStake) {
		return
	}

	op := ValidatorOperation{Kind: ValidatorUnknown, Accounts: ix.Accounts}
	if kind == solana.ProgramVote {
		op.Kind = ValidatorVote
	} else if t := strings.ToLower(ix.InstructionType()); t != "" {
		if k, ok := validatorParsedTypes[t]; ok {
			op.Kind = k
		}
	}
	if op.Kind == ValidatorUnknown {
		h.stats.RecordInstructionError()
		return
	}
	if len(ix.Accounts) > 0 {
		op.Validator = ix.Accounts[0]
	}

	result.Operations = append(result.Operations, op)
	if op.Validator != "" {
		counts, ok := result.PerValidatorOpCounts[op.Validator]
		if !ok {
			counts = map[ValidatorOpKind]int{}
			result.PerValidatorOpCounts[op.Validator] = counts
		}
		counts[op.Kind]++
	}
}

func (h *ValidatorHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("validator handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *ValidatorHandler) GetResults() any { return h.stats.Snapshot() }
func (h *ValidatorHandler) Reset()          { h.stats.Reset() }
