package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// sendMaxRetries is forwarded to the RPC node so its own leader-forwarding
// retries stay bounded; the relay's retry policy lives in the Submitter.
const sendMaxRetries = uint(3)

// realRPCClient adapts the actual solana-go RPC client to our RPCClient
// interface. This adapter is the only code that touches RPC response
// formats; everything above it works with domain types.
type realRPCClient struct {
	client *rpc.Client
}

// NewRPCClient creates a new RPCClient that wraps the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCClient(rpcURL string) RPCClient {
	return &realRPCClient{
		client: rpc.New(rpcURL),
	}
}

func (r *realRPCClient) SendTransaction(ctx context.Context, signedTx []byte) (solana.Signature, error) {
	maxRetries := sendMaxRetries
	return r.client.SendRawTransactionWithOpts(ctx, signedTx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
}

func (r *realRPCClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	res, err := r.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("nil pointer in GetSignatureStatuses")
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		// The network has not seen the signature yet.
		return nil, nil
	}
	st := res.Value[0]
	return &SignatureStatus{
		Slot:               st.Slot,
		ConfirmationStatus: st.ConfirmationStatus,
		Err:                st.Err,
	}, nil
}

func (r *realRPCClient) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := r.client.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, errors.New("nil pointer in GetBalance")
	}
	return res.Value, nil
}

func (r *realRPCClient) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	res, err := r.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("nil pointer in GetTokenAccountsByOwner")
	}

	accounts := make([]TokenAccount, 0, len(res.Value))
	for _, entry := range res.Value {
		if entry == nil || entry.Account.Data == nil {
			continue
		}
		var acc token.Account
		if err := bin.NewBinDecoder(entry.Account.Data.GetBinary()).Decode(&acc); err != nil {
			return nil, fmt.Errorf("failed to decode token account %s: %w", entry.Pubkey, err)
		}
		accounts = append(accounts, TokenAccount{
			Address: entry.Pubkey,
			Mint:    acc.Mint,
			Owner:   acc.Owner,
			Amount:  acc.Amount,
		})
	}
	return accounts, nil
}

func (r *realRPCClient) TokenSupply(ctx context.Context, mint solana.PublicKey) (*TokenSupply, error) {
	res, err := r.client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, errors.New("nil pointer in GetTokenSupply")
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable supply amount %q: %w", res.Value.Amount, err)
	}
	return &TokenSupply{
		Amount:   amount,
		Decimals: res.Value.Decimals,
	}, nil
}

func (r *realRPCClient) TokenLargestAccounts(ctx context.Context, mint solana.PublicKey) ([]TokenHolding, error) {
	res, err := r.client.GetTokenLargestAccounts(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("nil pointer in GetTokenLargestAccounts")
	}

	holdings := make([]TokenHolding, 0, len(res.Value))
	for _, entry := range res.Value {
		if entry == nil {
			continue
		}
		amount, err := strconv.ParseUint(entry.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable holding amount %q: %w", entry.Amount, err)
		}
		holdings = append(holdings, TokenHolding{
			Address: entry.Address,
			Amount:  amount,
		})
	}
	return holdings, nil
}

func (r *realRPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := r.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, err
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, errors.New("nil pointer in GetLatestBlockhash")
	}
	return res.Value.Blockhash, nil
}
