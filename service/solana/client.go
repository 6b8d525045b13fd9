package solana

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// RPCClient is an interface for the Solana RPC operations the relay needs.
// It is deliberately narrow and returns domain types so the RPC layer can
// be mocked in tests without hitting real Solana nodes.
type RPCClient interface {
	// SendTransaction submits signed wire bytes and returns the signature
	// the network will know the transaction by.
	SendTransaction(ctx context.Context, signedTx []byte) (solana.Signature, error)

	// SignatureStatus returns the current status of a signature, or
	// (nil, nil) when the network has not seen it yet.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	// Balance returns an account's lamport balance.
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// TokenAccountsByOwner returns the owner's token accounts for a mint.
	TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)

	// TokenSupply returns a mint's total supply and decimal count.
	TokenSupply(ctx context.Context, mint solana.PublicKey) (*TokenSupply, error)

	// TokenLargestAccounts returns the largest accounts of a mint,
	// ordered largest first.
	TokenLargestAccounts(ctx context.Context, mint solana.PublicKey) ([]TokenHolding, error)

	// LatestBlockhash returns a recent blockhash usable for building
	// transactions.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}
