package solanarpc

import (
	"encoding/json"
	"fmt"
)

// rawSlotResult unifies the two shapes getSlot has been observed to return:
// a bare integer, or a `{result:int}` envelope (spec §9: "unify int and
// {result:int} at ingress"). go-ethereum's rpc.Client already strips the
// outer {jsonrpc,id,result} JSON-RPC envelope, so in practice only the bare
// form reaches here; the tolerant unmarshaling is kept so a misbehaving
// endpoint that nests an extra "result" layer inside its result payload
// still decodes instead of failing ParseError.
type rawSlotResult struct {
	Value  *uint64 `json:"-"`
	nested *uint64
}

func (r *rawSlotResult) UnmarshalJSON(data []byte) error {
	var bare uint64
	if err := json.Unmarshal(data, &bare); err == nil {
		r.Value = &bare
		return nil
	}

	var wrapped struct {
		Result uint64 `json:"result"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		r.nested = &wrapped.Result
		return nil
	}

	return fmt.Errorf("getSlot: unrecognized result shape: %s", data)
}

func (r *rawSlotResult) slot() (uint64, error) {
	if r.Value != nil {
		return *r.Value, nil
	}
	if r.nested != nil {
		return *r.nested, nil
	}
	return 0, fmt.Errorf("getSlot: empty result")
}
