package handlers

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/decode"
)

// Token-program instruction discriminators this extractor recognizes beyond
// the mint-creation pair already handled by MintHandler.
const (
	discTransfer        = 0x03
	discTransferChecked = 0x0C
	discMintTo          = 0x07
	discMintToChecked   = 0x0E
	discBurn            = 0x08
	discBurnChecked     = 0x0F
)

// TokenMintSummary is the per-mint rollup token transfer/mint/burn tracking
// accumulates (spec §4.9).
type TokenMintSummary struct {
	Mint              string
	TransferCount     int
	MintCount         int
	BurnCount         int
	VolumeTransferred uint64
	SupplyMinted      uint64
	SupplyBurned      uint64
	Senders           map[string]struct{}
	Receivers         map[string]struct{}
	Authorities       map[string]struct{}
}

// TokenBlockResult is the token extractor's per-block output.
type TokenBlockResult struct {
	Slot       uint64
	Mints      map[string]*TokenMintSummary
	Statistics Stats
}

// TokenHandler implements the token transfer/mint/burn auxiliary extractor
// named in spec §4.9.
type TokenHandler struct {
	stats *Stats
}

var _ Handler = (*TokenHandler)(nil)

func NewTokenHandler() *TokenHandler {
	return &TokenHandler{stats: NewStats()}
}

func (h *TokenHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("tokens", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *TokenHandler) processBlock(block *solana.Block) TokenBlockResult {
	h.stats.IncrementTotal()
	result := TokenBlockResult{Slot: block.Slot, Mints: map[string]*TokenMintSummary{}}
	if block == nil {
		h.stats.IncrementFailure()
		return result
	}

	for _, tx := range block.Transactions {
		if IsVote(tx) {
			h.stats.IncrementSkipped()
			continue
		}
		if tx.Meta.Failed() {
			h.stats.IncrementSkipped()
			continue
		}
		h.scanInstructions(tx.Message.Instructions, result.Mints)
		for _, group := range tx.Meta.InnerInstructions {
			h.scanInstructions(group.Instructions, result.Mints)
		}
		h.scanBalanceDeltas(tx, result.Mints)
	}

	h.stats.IncrementSuccess()
	result.Statistics = h.stats.Snapshot()
	return result
}

func (h *TokenHandler) scanInstructions(ixs []solana.Instruction, mints map[string]*TokenMintSummary) {
	for _, ix := range ixs {
		kind := decode.Classify(ix)
		if kind != solana.ProgramToken && kind != solana.ProgramToken2022 {
			continue
		}
		if len(ix.Data) == 0 || len(ix.Accounts) == 0 {
			h.stats.RecordInstructionError()
			continue
		}
		disc := ix.Data[0]
		switch disc {
		case discTransfer, discTransferChecked:
			if len(ix.Accounts) < 2 {
				h.stats.RecordInstructionError()
				continue
			}
			// SPL Token "Transfer" carries no mint account; TransferChecked
			// does (accounts[1]). Without a mint we attribute the transfer
			// to the source account as a best-effort key, matching the
			// original implementation's fallback.
			mint := ix.Accounts[0]
			if disc == discTransferChecked && len(ix.Accounts) >= 2 {
				mint = ix.Accounts[1]
			}
			s := summaryFor(mints, mint)
			s.TransferCount++
			s.Senders[ix.Accounts[0]] = struct{}{}
			if len(ix.Accounts) > 2 {
				s.Receivers[ix.Accounts[2]] = struct{}{}
			} else if len(ix.Accounts) > 1 {
				s.Receivers[ix.Accounts[1]] = struct{}{}
			}
			if amount, ok := transferAmount(ix.Data); ok {
				s.VolumeTransferred += amount
			}

		case discMintTo, discMintToChecked:
			if len(ix.Accounts) < 3 {
				h.stats.RecordInstructionError()
				continue
			}
			mint := ix.Accounts[0]
			s := summaryFor(mints, mint)
			s.MintCount++
			s.Authorities[ix.Accounts[2]] = struct{}{}

		case discBurn, discBurnChecked:
			if len(ix.Accounts) < 3 {
				h.stats.RecordInstructionError()
				continue
			}
			mint := ix.Accounts[1]
			s := summaryFor(mints, mint)
			s.BurnCount++
			s.Authorities[ix.Accounts[2]] = struct{}{}
		}
	}
}

func (h *TokenHandler) scanBalanceDeltas(tx solana.Tx, mints map[string]*TokenMintSummary) {
	pre := map[int]solana.TokenBalance{}
	for _, b := range tx.Meta.PreTokenBalances {
		pre[b.AccountIndex] = b
	}
	for _, post := range tx.Meta.PostTokenBalances {
		preBal, existed := pre[post.AccountIndex]
		if !existed || preBal.Mint != post.Mint {
			continue
		}
		delta, ok := amountDelta(preBal.Amount, post.Amount)
		if !ok {
			continue
		}
		if delta == 0 {
			continue
		}
		s := summaryFor(mints, post.Mint)
		if delta > 0 {
			s.SupplyMinted += uint64(delta)
		} else {
			s.SupplyBurned += uint64(-delta)
		}
	}
}

// summaryFor does not gate on decode.ValidMintAddress: balance/transfer
// activity on a non-validated address is legitimate wire data, just not
// reported as a "new mint" elsewhere. The validity predicate gates address
// *emission* for MintHandler, not activity tracking here.
func summaryFor(mints map[string]*TokenMintSummary, mint string) *TokenMintSummary {
	s, ok := mints[mint]
	if !ok {
		s = &TokenMintSummary{
			Mint:        mint,
			Senders:     map[string]struct{}{},
			Receivers:   map[string]struct{}{},
			Authorities: map[string]struct{}{},
		}
		mints[mint] = s
	}
	return s
}

// transferAmount reads the little-endian u64 amount common to Transfer and
// TransferChecked instruction data: a one-byte discriminator followed by
// the amount, per the SPL Token program's instruction layout.
func transferAmount(data []byte) (uint64, bool) {
	if len(data) < 9 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[1:9]), true
}

// amountDelta parses two decimal-string token amounts and returns post-pre.
func amountDelta(pre, post string) (int64, bool) {
	p, okP := parseUintString(pre)
	q, okQ := parseUintString(post)
	if !okP || !okQ {
		return 0, false
	}
	return int64(q) - int64(p), true
}

func parseUintString(s string) (uint64, bool) {
	if s == "" {
		return 0, true
	}
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	return v, true
}

func (h *TokenHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("token handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *TokenHandler) GetResults() any { return h.stats.Snapshot() }
func (h *TokenHandler) Reset()          { h.stats.Reset() }

// TopMintsByVolume ranks result mints by transferred volume descending,
// for reporting surfaces that want a leaderboard rather than the full map.
func TopMintsByVolume(result TokenBlockResult, n int) []*TokenMintSummary {
	out := make([]*TokenMintSummary, 0, len(result.Mints))
	for _, s := range result.Mints {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VolumeTransferred > out[j].VolumeTransferred })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
