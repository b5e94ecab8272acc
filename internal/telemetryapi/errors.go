package telemetryapi

import "errors"

var (
	errInvalidBlocks     = errors.New("blocks must be an integer between 1 and 20")
	errMissingMint       = errors.New("mint address is required")
	errMintNotFound      = errors.New("mint account not found")
	errInvalidTimeframe  = errors.New("timeframe must be one of 1h, 24h, 7d")
)
