package solanarpc

import (
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/decode"
)

// wireBlock mirrors the getBlock "json" encoding response shape closely
// enough to decode either raw or jsonParsed transactions; normalizeBlock
// converts it into the one solana.Block shape the rest of the system reads.
type wireBlock struct {
	BlockTime    *int64          `json:"blockTime"`
	BlockHeight  *uint64         `json:"blockHeight"`
	ParentSlot   *uint64         `json:"parentSlot"`
	Transactions []wireTxWrapper `json:"transactions"`
}

type wireTxWrapper struct {
	Transaction wireTx   `json:"transaction"`
	Meta        wireMeta `json:"meta"`
}

type wireTx struct {
	Signatures []string   `json:"signatures"`
	Message    wireMessage `json:"message"`
}

type wireMessage struct {
	AccountKeys  []wireAccountKey `json:"accountKeys"`
	Instructions []wireIx         `json:"instructions"`
}

// wireAccountKey tolerates both a bare base58 string and the jsonParsed
// `{pubkey, signer, writable}` object shape.
type wireAccountKey struct {
	asString string
}

func (k *wireAccountKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.asString = s
		return nil
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.asString = obj.Pubkey
	return nil
}

type wireIx struct {
	ProgramIDIndex *int     `json:"programIdIndex"`
	ProgramID      string   `json:"programId"`
	Accounts       []int    `json:"accounts"`
	Data           string   `json:"data"`
	Parsed         *wireParsed `json:"parsed"`
	Program        string   `json:"program"`
}

type wireParsed struct {
	Type string         `json:"type"`
	Info map[string]any `json:"info"`
}

type wireInnerIxGroup struct {
	Index        int      `json:"index"`
	Instructions []wireIx `json:"instructions"`
}

type wireTokenBalance struct {
	AccountIndex int    `json:"accountIndex"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	UITokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int    `json:"decimals"`
	} `json:"uiTokenAmount"`
}

type wireMeta struct {
	Err                  json.RawMessage    `json:"err"`
	LogMessages          []string           `json:"logMessages"`
	PreBalances          []uint64           `json:"preBalances"`
	PostBalances         []uint64           `json:"postBalances"`
	PreTokenBalances     []wireTokenBalance `json:"preTokenBalances"`
	PostTokenBalances    []wireTokenBalance `json:"postTokenBalances"`
	InnerInstructions    []wireInnerIxGroup `json:"innerInstructions"`
	ComputeUnitsConsumed *uint64            `json:"computeUnitsConsumed"`
}

// normalizeBlock converts the wire shape into solana.Block. A block whose
// transactions field is absent but whose blockTime is set is synthesized as
// an empty-transactions block rather than discarded (spec §4.5 edge case).
func normalizeBlock(slot uint64, w *wireBlock) solana.Block {
	b := solana.Block{
		Slot:        slot,
		BlockTime:   w.BlockTime,
		ParentSlot:  w.ParentSlot,
		BlockHeight: w.BlockHeight,
	}
	for _, txw := range w.Transactions {
		b.Transactions = append(b.Transactions, normalizeTx(txw))
	}
	return b
}

func normalizeTx(txw wireTxWrapper) solana.Tx {
	accountKeys := make([]string, len(txw.Transaction.Message.AccountKeys))
	for i, k := range txw.Transaction.Message.AccountKeys {
		accountKeys[i] = k.asString
	}

	var stats decode.Stats
	instructions := make([]solana.Instruction, 0, len(txw.Transaction.Message.Instructions))
	for _, wix := range txw.Transaction.Message.Instructions {
		ix, ok := normalizeInstruction(wix, accountKeys, &stats)
		if ok {
			instructions = append(instructions, ix)
		}
	}

	var innerGroups []solana.InnerInstructionGroup
	for _, g := range txw.Meta.InnerInstructions {
		group := solana.InnerInstructionGroup{Index: g.Index}
		for _, wix := range g.Instructions {
			ix, ok := normalizeInstruction(wix, accountKeys, &stats)
			if ok {
				group.Instructions = append(group.Instructions, ix)
			}
		}
		innerGroups = append(innerGroups, group)
	}

	return solana.Tx{
		Signatures: txw.Transaction.Signatures,
		Message: solana.Message{
			AccountKeys:  accountKeys,
			Instructions: instructions,
		},
		Meta: solana.Meta{
			Err:                  decodeErr(txw.Meta.Err),
			LogMessages:          txw.Meta.LogMessages,
			PreBalances:          txw.Meta.PreBalances,
			PostBalances:         txw.Meta.PostBalances,
			PreTokenBalances:     normalizeTokenBalances(txw.Meta.PreTokenBalances),
			PostTokenBalances:    normalizeTokenBalances(txw.Meta.PostTokenBalances),
			InnerInstructions:    innerGroups,
			ComputeUnitsConsumed: txw.Meta.ComputeUnitsConsumed,
		},
	}
}

func normalizeInstruction(wix wireIx, accountKeys []string, stats *decode.Stats) (solana.Instruction, bool) {
	raw := decode.RawInstruction{
		ProgramIDIndex: wix.ProgramIDIndex,
		AccountIndices: wix.Accounts,
		ProgramID:      wix.ProgramID,
		Data:           decodeInstructionData(wix.Data),
	}
	if wix.Parsed != nil {
		raw.Parsed = &solana.ParsedInstruction{Type: wix.Parsed.Type, Info: wix.Parsed.Info}
	}
	// legacy compatibility shape: accounts[last] indexes account_keys when
	// neither programIdIndex nor programId is set.
	if raw.ProgramIDIndex == nil && raw.ProgramID == "" {
		raw.LegacyAccountIndices = wix.Accounts
	}
	return decode.Instruction(raw, accountKeys, stats)
}

func normalizeTokenBalances(in []wireTokenBalance) []solana.TokenBalance {
	out := make([]solana.TokenBalance, 0, len(in))
	for _, tb := range in {
		out = append(out, solana.TokenBalance{
			AccountIndex: tb.AccountIndex,
			Mint:         tb.Mint,
			Owner:        tb.Owner,
			Amount:       tb.UITokenAmount.Amount,
			Decimals:     tb.UITokenAmount.Decimals,
		})
	}
	return out
}

func decodeErr(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}

// decodeInstructionData decodes base58 instruction data, the encoding used
// by the "json"/raw transactionDetails this query layer requests (spec §9
// Open Questions: the discriminator is the first byte of the base58- or
// base64-decoded data, and this implementation requires base58, matching
// the "json" encoding requested in getBlockParams).
func decodeInstructionData(s string) []byte {
	if s == "" {
		return nil
	}
	if b, err := base58.Decode(s); err == nil {
		return b
	}
	return nil
}
