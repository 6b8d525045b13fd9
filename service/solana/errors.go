package solana

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// TransactionFailedError means the chain itself rejected the transaction.
// It is terminal and never retried. The raw chain error payload is carried
// so callers can diagnose the rejection.
type TransactionFailedError struct {
	Signature string
	ChainErr  interface{}
}

func (e *TransactionFailedError) Error() string {
	payload, err := json.Marshal(e.ChainErr)
	if err != nil {
		return fmt.Sprintf("transaction %s failed on chain: %v", e.Signature, e.ChainErr)
	}
	return fmt.Sprintf("transaction %s failed on chain: %s", e.Signature, payload)
}

// rateLimitPatterns match the ways RPC providers express throttling: the
// HTTP status surfaces in the error text as "429", and some providers only
// put a marker phrase in the JSON-RPC error message.
var rateLimitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b429\b`),
	regexp.MustCompile(`(?i)too many requests`),
	regexp.MustCompile(`(?i)rate[ -]?limit`),
}

// isRateLimited classifies an RPC error as a rate-limit rejection.
// Rate limiting is the only condition that warrants retrying the same
// endpoint; everything else either fails fast or rotates endpoints.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range rateLimitPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}
