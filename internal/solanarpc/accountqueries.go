package solanarpc

import (
	"context"
	"encoding/base64"
)

// TokenSupply mirrors getTokenSupply's result.value.
type TokenSupply struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount *float64 `json:"uiAmount"`
}

// AccountInfo mirrors getAccountInfo's result.value, data left as the raw
// base64 payload (callers needing parsed mint/token-account fields decode
// it themselves via internal/solana/decode).
type AccountInfo struct {
	Lamports  uint64 `json:"lamports"`
	Owner     string `json:"owner"`
	Executable bool  `json:"executable"`
	RentEpoch uint64 `json:"rentEpoch"`
	DataB64   string `json:"-"`
}

type rawAccountInfo struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Data       []string `json:"data"`
}

// TokenAccount mirrors one getTokenAccountsByOwner entry.
type TokenAccount struct {
	Pubkey string
	Mint   string
	Amount string
}

// GetTokenSupply issues getTokenSupply for mint.
func (q *Query) GetTokenSupply(ctx context.Context, mint string) (TokenSupply, error) {
	var raw struct {
		Value TokenSupply `json:"value"`
	}
	if err := q.call(ctx, &raw, "getTokenSupply", mint); err != nil {
		return TokenSupply{}, err
	}
	return raw.Value, nil
}

// GetAccountInfo issues getAccountInfo with base64 encoding.
func (q *Query) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var raw struct {
		Value *rawAccountInfo `json:"value"`
	}
	params := map[string]any{"encoding": "base64"}
	if err := q.call(ctx, &raw, "getAccountInfo", address, params); err != nil {
		return nil, err
	}
	if raw.Value == nil {
		return nil, nil
	}
	info := &AccountInfo{
		Lamports:   raw.Value.Lamports,
		Owner:      raw.Value.Owner,
		Executable: raw.Value.Executable,
		RentEpoch:  raw.Value.RentEpoch,
	}
	if len(raw.Value.Data) > 0 {
		info.DataB64 = raw.Value.Data[0]
	}
	return info, nil
}

// DecodedData returns the account's data payload decoded from base64.
func (a *AccountInfo) DecodedData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.DataB64)
}

// GetTokenAccountsByOwner issues getTokenAccountsByOwner filtered to mint.
func (q *Query) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	var raw struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							TokenAmount struct {
								Amount string `json:"amount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	params := map[string]any{"mint": mint}
	opts := map[string]any{"encoding": "jsonParsed"}
	if err := q.call(ctx, &raw, "getTokenAccountsByOwner", owner, params, opts); err != nil {
		return nil, err
	}

	out := make([]TokenAccount, 0, len(raw.Value))
	for _, v := range raw.Value {
		out = append(out, TokenAccount{
			Pubkey: v.Pubkey,
			Mint:   v.Account.Data.Parsed.Info.Mint,
			Amount: v.Account.Data.Parsed.Info.TokenAmount.Amount,
		})
	}
	return out, nil
}
