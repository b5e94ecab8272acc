package solanarpc

import "context"

// ClusterNode mirrors one getClusterNodes entry.
type ClusterNode struct {
	Pubkey       string  `json:"pubkey"`
	Gossip       string  `json:"gossip"`
	TPU          string  `json:"tpu"`
	RPC          *string `json:"rpc"`
	Version      *string `json:"version"`
	FeatureSet   *uint32 `json:"featureSet"`
	ShredVersion uint16  `json:"shredVersion"`
}

// VersionInfo mirrors getVersion.
type VersionInfo struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// EpochInfo mirrors getEpochInfo.
type EpochInfo struct {
	Epoch        uint64 `json:"epoch"`
	SlotIndex    uint64 `json:"slotIndex"`
	SlotsInEpoch uint64 `json:"slotsInEpoch"`
	AbsoluteSlot uint64 `json:"absoluteSlot"`
	BlockHeight  uint64 `json:"blockHeight"`
}

// PerformanceSample mirrors one getRecentPerformanceSamples entry.
type PerformanceSample struct {
	Slot              uint64 `json:"slot"`
	NumSlots          uint64 `json:"numSlots"`
	NumTransactions   uint64 `json:"numTransactions"`
	SamplePeriodSecs  uint32 `json:"samplePeriodSecs"`
}

// VoteAccount mirrors one getVoteAccounts current/delinquent entry.
type VoteAccount struct {
	VotePubkey       string `json:"votePubkey"`
	NodePubkey       string `json:"nodePubkey"`
	ActivatedStake   uint64 `json:"activatedStake"`
	Commission       uint8  `json:"commission"`
	LastVote         uint64 `json:"lastVote"`
	EpochCredits     [][]uint64 `json:"epochCredits"`
}

// VoteAccounts mirrors the getVoteAccounts response shape.
type VoteAccounts struct {
	Current    []VoteAccount `json:"current"`
	Delinquent []VoteAccount `json:"delinquent"`
}

func (q *Query) GetClusterNodes(ctx context.Context) ([]ClusterNode, error) {
	var nodes []ClusterNode
	if err := q.call(ctx, &nodes, "getClusterNodes"); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (q *Query) GetVersion(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	if err := q.call(ctx, &v, "getVersion"); err != nil {
		return VersionInfo{}, err
	}
	return v, nil
}

func (q *Query) GetEpochInfo(ctx context.Context) (EpochInfo, error) {
	var e EpochInfo
	if err := q.call(ctx, &e, "getEpochInfo"); err != nil {
		return EpochInfo{}, err
	}
	return e, nil
}

func (q *Query) GetRecentPerformanceSamples(ctx context.Context, limit int) ([]PerformanceSample, error) {
	if limit <= 0 {
		limit = 5
	}
	var samples []PerformanceSample
	if err := q.call(ctx, &samples, "getRecentPerformanceSamples", limit); err != nil {
		return nil, err
	}
	return samples, nil
}

func (q *Query) GetVoteAccounts(ctx context.Context) (VoteAccounts, error) {
	var v VoteAccounts
	if err := q.call(ctx, &v, "getVoteAccounts"); err != nil {
		return VoteAccounts{}, err
	}
	return v, nil
}
