package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/solana"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB, far above any serialized transaction
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer

	defaultListLimit = 50
	maxListLimit     = 500
)

// Valid base58 characters (no 0, O, I, l).
var validBase58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// handleGetWallet reports whether the relay can sign, and with what key.
// GET /api/v1/wallet
func handleGetWallet(svc RelayService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"configured": svc.WalletConfigured(),
		}
		if pub, ok := svc.WalletPublicKey(); ok {
			resp["public_key"] = pub
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleSubmit runs the full sign-submit-confirm flow for a base64-encoded
// transaction. Failed submissions are still 200: the outcome JSON is the
// answer. Only malformed requests and a missing wallet are HTTP errors.
// POST /api/v1/submissions
func handleSubmit(svc RelayService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !svc.WalletConfigured() {
			writeError(w, "relay wallet not configured", http.StatusServiceUnavailable)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Transaction string `json:"transaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode submit request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if req.Transaction == "" {
			writeError(w, "transaction is required", http.StatusBadRequest)
			return
		}
		if _, err := base64.StdEncoding.DecodeString(req.Transaction); err != nil {
			logger.Debug("invalid transaction encoding", "error", err)
			writeError(w, "transaction must be base64-encoded", http.StatusBadRequest)
			return
		}

		outcome := svc.SubmitAndConfirm(r.Context(), req.Transaction)
		writeJSON(w, outcome, http.StatusOK)
	})
}

// handleListSubmissions lists recent journal rows, newest first.
// GET /api/v1/submissions?limit=N
func handleListSubmissions(journal Journal, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			if n > maxListLimit {
				n = maxListLimit
			}
			limit = n
		}

		subs, err := journal.ListSubmissions(r.Context(), int32(limit))
		if err != nil {
			logger.Error("failed to list submissions", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]submissionResponse, len(subs))
		for i, sub := range subs {
			resp[i] = submissionToResponse(sub)
		}
		writeJSON(w, map[string]interface{}{"submissions": resp}, http.StatusOK)
	})
}

// handleGetSubmission returns the journal row for a signature.
// GET /api/v1/submissions/{signature}
func handleGetSubmission(journal Journal, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateSignature(signature); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		sub, err := journal.GetSubmissionBySignature(r.Context(), signature)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "submission not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get submission", "signature", signature, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, submissionToResponse(sub), http.StatusOK)
	})
}

// handleGetStatus runs a live one-shot status sweep for a signature,
// bypassing the journal entirely.
// GET /api/v1/submissions/{signature}/status
func handleGetStatus(checker StatusChecker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateSignature(signature); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		status, err := checker.CheckStatus(r.Context(), signature)
		if err != nil {
			logger.Error("failed to check signature status", "signature", signature, "error", err)
			writeError(w, "status check failed: all endpoints unavailable", http.StatusBadGateway)
			return
		}

		resp := map[string]interface{}{
			"signature": signature,
			"state":     status.State,
			"slot":      status.Slot,
		}
		if status.ChainErr != nil {
			resp["error"] = fmt.Sprintf("%v", status.ChainErr)
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleGetBalance returns a wallet's lamport balance.
// GET /api/v1/wallets/{address}/balance
func handleGetBalance(reader ChainReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		lamports, err := reader.Balance(r.Context(), address)
		if err != nil {
			logger.Error("failed to get balance", "address", address, "error", err)
			writeError(w, "balance lookup failed: all endpoints unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":  address,
			"lamports": lamports,
		}, http.StatusOK)
	})
}

// handleGetTokenBalance returns a wallet's raw token amount for a mint,
// summed across all of its token accounts.
// GET /api/v1/wallets/{address}/tokens/{mint}/balance
func handleGetTokenBalance(reader ChainReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		mint := r.PathValue("mint")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateMint(mint); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		amount, err := reader.TokenBalance(r.Context(), address, mint)
		if err != nil {
			logger.Error("failed to get token balance", "address", address, "mint", mint, "error", err)
			writeError(w, "token balance lookup failed: all endpoints unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address": address,
			"mint":    mint,
			"amount":  amount,
		}, http.StatusOK)
	})
}

// handleGetTokenAccount resolves a wallet's token account for a mint.
// GET /api/v1/wallets/{address}/tokens/{mint}/account
func handleGetTokenAccount(reader ChainReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		mint := r.PathValue("mint")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateMint(mint); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		account, err := reader.AssociatedTokenAccount(r.Context(), address, mint)
		if err != nil {
			if errors.Is(err, solana.ErrNoTokenAccount) {
				writeError(w, "no token account for mint", http.StatusNotFound)
				return
			}
			logger.Error("failed to resolve token account", "address", address, "mint", mint, "error", err)
			writeError(w, "token account lookup failed: all endpoints unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address": address,
			"mint":    mint,
			"account": account,
		}, http.StatusOK)
	})
}

// handleGetTokenDecimals returns a mint's decimal count.
// GET /api/v1/tokens/{mint}/decimals
func handleGetTokenDecimals(reader ChainReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		decimals, err := reader.TokenDecimals(r.Context(), mint)
		if err != nil {
			logger.Error("failed to get token decimals", "mint", mint, "error", err)
			writeError(w, "decimals lookup failed: all endpoints unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]interface{}{
			"mint":     mint,
			"decimals": decimals,
		}, http.StatusOK)
	})
}

// handleGetConcentration returns holder concentration for a mint. A null
// concentration is a valid answer: the lookup is advisory and degrades to
// "unknown" rather than failing the request.
// GET /api/v1/tokens/{mint}/concentration
func handleGetConcentration(conc ConcentrationSource, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")
		if err := validateMint(mint); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, map[string]interface{}{
			"mint":          mint,
			"concentration": conc.Get(r.Context(), mint),
		}, http.StatusOK)
	})
}

// submissionResponse is the JSON shape of a journal row.
type submissionResponse struct {
	ID        string  `json:"id"`
	Signature *string `json:"signature"`
	Signer    string  `json:"signer"`
	Endpoint  string  `json:"endpoint,omitempty"`
	Status    string  `json:"status"`
	Slot      *int64  `json:"slot"`
	Attempts  int32   `json:"attempts"`
	Error     *string `json:"error"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func submissionToResponse(sub *db.Submission) submissionResponse {
	return submissionResponse{
		ID:        sub.ID.String(),
		Signature: sub.Signature,
		Signer:    sub.Signer,
		Endpoint:  sub.Endpoint,
		Status:    sub.Status,
		Slot:      sub.Slot,
		Attempts:  sub.Attempts,
		Error:     sub.Error,
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sub.UpdatedAt.Format(time.RFC3339),
	}
}

func validateAddress(address string) error {
	if address == "" {
		return errors.New("address is required")
	}
	if len(address) > maxAddressLength {
		return errors.New("address too long")
	}
	if !validBase58Regex.MatchString(address) {
		return errors.New("address must be base58-encoded")
	}
	return nil
}

func validateMint(mint string) error {
	if mint == "" {
		return errors.New("mint is required")
	}
	if len(mint) > maxAddressLength {
		return errors.New("mint too long")
	}
	if !validBase58Regex.MatchString(mint) {
		return errors.New("mint must be base58-encoded")
	}
	return nil
}

func validateSignature(signature string) error {
	if signature == "" {
		return errors.New("signature is required")
	}
	if !validBase58Regex.MatchString(signature) {
		return errors.New("signature must be base58-encoded")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]string{"error": message}, status)
}
