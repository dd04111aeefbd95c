package domain

// ChainID identifies the indexed ledger (e.g. "gravity-bridge-3").
type ChainID string

const (
	ChainIDGravity ChainID = "gravity-bridge-3"

	// DefaultPrefix is the bech32 account prefix of the gravity chain.
	DefaultPrefix = "gravity"
)
