package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/decode"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// Token-program instruction discriminators, decoded as the first byte of
// the instruction's base58-decoded data (spec §9 Open Questions: this
// implementation requires base58, not the ASCII-character reading the
// original Python source's `data.startswith("0")` suggests).
const (
	discInitializeMint  = 0x00
	discInitializeMint2 = 0x08
)

// Metadata-program discriminators for the two instructions the mint
// extractor treats as secondary confirmation of a new mint.
const (
	discCreateMetadataAccount   = 16
	discCreateMetadataAccountV2 = 33
	discCreateMetadataAccountV3 = 42
	discCreateMasterEdition     = 10
	discCreateMasterEditionV3   = 17
)

var metadataCreateDiscs = map[byte]struct{}{
	discCreateMetadataAccount:   {},
	discCreateMetadataAccountV2: {},
	discCreateMetadataAccountV3: {},
	discCreateMasterEdition:     {},
	discCreateMasterEditionV3:   {},
}

// secondaryConfirmationPhrases are the log-message substrings spec §4.8
// treats as a secondary confirmation of mint creation.
var secondaryConfirmationPhrases = []string{
	"initialize mint",
	"create mint",
	"token mint",
	"creating mint",
}

const ataInitLogPrefix = "Initialize the associated token account"

// MintOperation is one detected new-mint event, wrapping the normalized
// solana.MintRecord (spec §3) with the originating instruction's account
// list kept alongside for diagnostics.
type MintOperation struct {
	solana.MintRecord
	Accounts []string

	// Confirmed is set when the same transaction's log messages also
	// contain one of the secondary-confirmation phrases (spec §4.8); it
	// never gates emission, only corroborates it.
	Confirmed bool
}

// MintBlockResult is the mint extractor's per-block output (spec §4.8).
type MintBlockResult struct {
	Slot               uint64
	MintAddresses      []string
	PumpTokenAddresses []string
	MintOperations     []MintOperation
	Statistics         Stats
}

// MintHandler implements C8: the Mint Extractor.
type MintHandler struct {
	stats *Stats
}

var _ Handler = (*MintHandler)(nil)

func NewMintHandler() *MintHandler {
	return &MintHandler{stats: NewStats()}
}

func (h *MintHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("mint", h.stats, func() (Envelope[any], error) {
		result := h.processBlock(block)
		return Ok[any](result), nil
	})
}

func (h *MintHandler) processBlock(block *solana.Block) MintBlockResult {
	h.stats.IncrementTotal()

	if block == nil {
		h.stats.IncrementFailure()
		return MintBlockResult{}
	}
	result := MintBlockResult{Slot: block.Slot}

	mintSet := map[string]struct{}{}
	pumpSet := map[string]struct{}{}

	addOp := func(op MintOperation) {
		if !decode.ValidMintAddress(op.Address) {
			return
		}
		op.IsPumpSuffixed = solana.IsPumpSuffixed(op.Address)

		if _, dup := mintSet[op.Address]; !dup {
			mintSet[op.Address] = struct{}{}
			result.MintAddresses = append(result.MintAddresses, op.Address)
		}
		if op.IsPumpSuffixed {
			if _, dup := pumpSet[op.Address]; !dup {
				pumpSet[op.Address] = struct{}{}
				result.PumpTokenAddresses = append(result.PumpTokenAddresses, op.Address)
			}
		}
		result.MintOperations = append(result.MintOperations, op)
	}

	for _, tx := range block.Transactions {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.stats.RecordTransactionError()
				}
			}()

			if IsVote(tx) {
				h.stats.IncrementSkipped()
				return
			}
			if tx.Meta.Failed() {
				// still counted toward block stats, but skipped for
				// transaction-level extraction (spec §4.5 edge case).
				h.stats.IncrementSkipped()
				return
			}

			startIdx := len(result.MintOperations)
			h.extractFromInstructions(tx.Message.Instructions, block, solana.LocationMain, &addOp)
			for _, group := range tx.Meta.InnerInstructions {
				h.extractFromInstructions(group.Instructions, block, solana.LocationInner, &addOp)
			}
			h.extractFromBalanceDeltas(tx, block, &addOp)
			if h.hasSecondaryConfirmation(tx) {
				for i := startIdx; i < len(result.MintOperations); i++ {
					result.MintOperations[i].Confirmed = true
				}
			}
		}()
	}

	h.stats.IncrementSuccess()
	result.Statistics = h.stats.Snapshot()
	return result
}

func (h *MintHandler) extractFromInstructions(ixs []solana.Instruction, block *solana.Block, location solana.MintLocation, addOp *func(MintOperation)) {
	for _, ix := range ixs {
		op, ok := h.mintFromInstruction(ix, block)
		if !ok {
			continue
		}
		op.Location = location
		(*addOp)(op)
	}
}

func (h *MintHandler) mintFromInstruction(ix solana.Instruction, block *solana.Block) (MintOperation, bool) {
	kind, known := programs.Classify(ix.ProgramID)
	if !known {
		return MintOperation{}, false
	}

	switch kind {
	case solana.ProgramToken, solana.ProgramToken2022:
		if len(ix.Data) == 0 || len(ix.Accounts) == 0 {
			h.stats.RecordInstructionError()
			return MintOperation{}, false
		}
		disc := ix.Data[0]
		if disc != discInitializeMint && disc != discInitializeMint2 {
			return MintOperation{}, false
		}
		return MintOperation{
			MintRecord: solana.MintRecord{
				Address:      ix.Accounts[0],
				SourceMarker: "initialize_mint",
				Program:      kind,
				Slot:         block.Slot,
				BlockTime:    block.BlockTime,
			},
			Accounts: ix.Accounts,
		}, true

	case solana.ProgramMetadata:
		if len(ix.Data) == 0 || len(ix.Accounts) < 2 {
			h.stats.RecordInstructionError()
			return MintOperation{}, false
		}
		if _, ok := metadataCreateDiscs[ix.Data[0]]; !ok {
			return MintOperation{}, false
		}
		return MintOperation{
			MintRecord: solana.MintRecord{
				Address:      ix.Accounts[1],
				SourceMarker: "metadata_create",
				Program:      kind,
				Slot:         block.Slot,
				BlockTime:    block.BlockTime,
			},
			Accounts: ix.Accounts,
		}, true

	case solana.ProgramATA:
		if len(ix.Accounts) < 3 {
			h.stats.RecordInstructionError()
			return MintOperation{}, false
		}
		return MintOperation{
			MintRecord: solana.MintRecord{
				Address:      ix.Accounts[2],
				SourceMarker: "ata_create",
				Program:      kind,
				Slot:         block.Slot,
				BlockTime:    block.BlockTime,
			},
			Accounts: ix.Accounts,
		}, true
	}

	return MintOperation{}, false
}

func (h *MintHandler) extractFromBalanceDeltas(tx solana.Tx, block *solana.Block, addOp *func(MintOperation)) {
	pre := make(map[string]struct{}, len(tx.Meta.PreTokenBalances))
	for _, b := range tx.Meta.PreTokenBalances {
		pre[b.Mint] = struct{}{}
	}
	for _, b := range tx.Meta.PostTokenBalances {
		if _, existed := pre[b.Mint]; existed {
			continue
		}
		(*addOp)(MintOperation{
			MintRecord: solana.MintRecord{
				Address:      b.Mint,
				SourceMarker: "balance_delta",
				Program:      solana.ProgramToken,
				Slot:         block.Slot,
				BlockTime:    block.BlockTime,
				Location:     solana.LocationTokenBalanceDelta,
			},
		})
	}
}

// hasSecondaryConfirmation reports whether tx's log messages contain one of
// the secondary-confirmation phrases (spec §4.8). Log messages alone cannot
// name a mint address, so this never adds a MintOperation on its own; it
// only corroborates operations already detected from instructions or
// balance deltas in the same transaction.
func (h *MintHandler) hasSecondaryConfirmation(tx solana.Tx) bool {
	for _, line := range tx.Meta.LogMessages {
		if strings.HasPrefix(line, ataInitLogPrefix) {
			continue
		}
		lower := strings.ToLower(line)
		for _, phrase := range secondaryConfirmationPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

func (h *MintHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("mint handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *MintHandler) GetResults() any {
	return h.stats.Snapshot()
}

func (h *MintHandler) Reset() {
	h.stats.Reset()
}
