package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureStatus is the chain-reported status of a submitted transaction.
// This is our domain model, independent of the RPC response format.
// A nil *SignatureStatus means the network has not seen the signature yet.
type SignatureStatus struct {
	Slot               uint64
	ConfirmationStatus rpc.ConfirmationStatusType
	Err                interface{} // non-nil when the chain rejected the transaction
}

// Terminal reports whether the status will not change with further polling.
func (s *SignatureStatus) Terminal() bool {
	if s == nil {
		return false
	}
	if s.Err != nil {
		return true
	}
	return s.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		s.ConfirmationStatus == rpc.ConfirmationStatusFinalized
}

// TokenAccount is an SPL token account owned by some wallet.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// TokenSupply is the total supply of a mint, in raw (undecimaled) units.
type TokenSupply struct {
	Amount   uint64
	Decimals uint8
}

// TokenHolding is one entry from a largest-accounts query, in raw units.
type TokenHolding struct {
	Address solana.PublicKey
	Amount  uint64
}

// Concentration describes how much of a token's supply sits with its
// largest holders, as percentages of total supply. It is an advisory risk
// signal: lookups that fail produce a nil *Concentration, never an error.
type Concentration struct {
	Top5Pct    float64 `json:"top5_pct"`
	Top10Pct   float64 `json:"top10_pct"`
	LargestPct float64 `json:"largest_pct"`
}
