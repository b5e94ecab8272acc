package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// NFTOpKind is the closed classification of an NFT-program instruction,
// per spec §4.9.
type NFTOpKind string

const (
	NFTOpMint         NFTOpKind = "mint"
	NFTOpTransfer     NFTOpKind = "transfer"
	NFTOpBurn         NFTOpKind = "burn"
	NFTOpMetadataEdit NFTOpKind = "metadata_update"
	NFTOpSale         NFTOpKind = "sale"
	NFTOpListing      NFTOpKind = "listing"
	NFTOpDelisting    NFTOpKind = "delisting"
	NFTOpUnknown      NFTOpKind = "unknown"
)

// nftParsedTypes maps the jsonParsed `instruction_type` value, when present,
// onto the closed NFTOpKind set.
var nftParsedTypes = map[string]NFTOpKind{
	"mint":              NFTOpMint,
	"mintnft":           NFTOpMint,
	"transfer":          NFTOpTransfer,
	"burn":              NFTOpBurn,
	"burnnft":           NFTOpBurn,
	"updatemetadata":    NFTOpMetadataEdit,
	"updatemetadataaccountv2": NFTOpMetadataEdit,
	"buy":               NFTOpSale,
	"executesale":       NFTOpSale,
	"sell":              NFTOpListing,
	"list":              NFTOpListing,
	"delist":            NFTOpDelisting,
	"cancel":            NFTOpDelisting,
}

// NFTOperation is one classified NFT instruction.
type NFTOperation struct {
	Kind         NFTOpKind
	ProgramID    string
	Accounts     []string
	MarketplaceVolumeLamports uint64
}

// NFTBlockResult is the NFT extractor's per-block output.
type NFTBlockResult struct {
	Slot           uint64
	Operations     []NFTOperation
	KindCounts     map[NFTOpKind]int
	MarketplaceVolumeLamports uint64
	Statistics     Stats
}

// NFTHandler implements the NFT operations auxiliary extractor (spec §4.9):
// triggered by the metadata/candy-machine/auction-house programs.
type NFTHandler struct {
	stats *Stats
}

var _ Handler = (*NFTHandler)(nil)

func NewNFTHandler() *NFTHandler { return &NFTHandler{stats: NewStats()} }

func (h *NFTHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("nft", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *NFTHandler) processBlock(block *solana.Block) NFTBlockResult {
	h.stats.IncrementTotal()
	result := NFTBlockResult{Slot: block.Slot, KindCounts: map[NFTOpKind]int{}}
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
			h.classifyAndRecord(ix, tx, &result)
		}
		for _, group := range tx.Meta.InnerInstructions {
			for _, ix := range group.Instructions {
				h.classifyAndRecord(ix, tx, &result)
			}
		}
	}

	h.stats.IncrementSuccess()
	result.Statistics = h.stats.Snapshot()
	return result
}

func (h *NFTHandler) classifyAndRecord(ix solana.Instruction, tx solana.Tx, result *NFTBlockResult) {
	kind, known := programs.Classify(ix.ProgramID)
	if !known || (kind != solana.ProgramMetadata && kind != solana.ProgramNFTMarketplace) {
		return
	}

	op := NFTOperation{Kind: NFTOpUnknown, ProgramID: ix.ProgramID, Accounts: ix.Accounts}
	if t := strings.ToLower(ix.InstructionType()); t != "" {
		if k, ok := nftParsedTypes[t]; ok {
			op.Kind = k
		}
	}
	if op.Kind == NFTOpUnknown && kind == solana.ProgramNFTMarketplace {
		// marketplace programs without a parsed type default to sale intent,
		// confirmed below via the lamport-delta check.
		op.Kind = NFTOpSale
	}
	if op.Kind == NFTOpUnknown {
		h.stats.RecordInstructionError()
		return
	}

	if op.Kind == NFTOpSale {
		vol, ok := sellerLamportIncrease(tx, ix.Accounts)
		if ok && vol > 0 {
			op.MarketplaceVolumeLamports = vol
			result.MarketplaceVolumeLamports += vol
		} else {
			op.Kind = NFTOpListing
		}
	}

	result.Operations = append(result.Operations, op)
	result.KindCounts[op.Kind]++
}

// sellerLamportIncrease computes a marketplace-volume estimate: the largest
// positive lamport delta among an instruction's accounts, on the premise
// that a completed sale increases the seller's SOL balance (spec §4.9).
func sellerLamportIncrease(tx solana.Tx, accounts []string) (uint64, bool) {
	if len(tx.Meta.PreBalances) != len(tx.Meta.PostBalances) {
		return 0, false
	}
	accIdx := map[string]int{}
	for i, k := range tx.Message.AccountKeys {
		accIdx[k] = i
	}

	var best uint64
	found := false
	for _, a := range accounts {
		idx, ok := accIdx[a]
		if !ok || idx >= len(tx.Meta.PreBalances) {
			continue
		}
		pre, post := tx.Meta.PreBalances[idx], tx.Meta.PostBalances[idx]
		if post > pre {
			delta := post - pre
			if delta > best {
				best = delta
				found = true
			}
		}
	}
	return best, found
}

func (h *NFTHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("nft handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *NFTHandler) GetResults() any { return h.stats.Snapshot() }
func (h *NFTHandler) Reset()          { h.stats.Reset() }
