package generation

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/istimaa-app/istimaa/pkg/llm"
)

// failureKind determines what a provider failure does to its daily quota
// and whether a local retry is worthwhile.
type failureKind int

const (
	// failureTimeout keeps the quota; the request may well have been fine.
	failureTimeout failureKind = iota
	// failureQuota zeroes the quota for the rest of the day.
	failureQuota
	// failurePermanent (auth, bad request) also zeroes the quota; the
	// provider will keep rejecting identical requests.
	failurePermanent
	// failureTransient keeps the quota and is worth a local retry.
	failureTransient
)

// quota-exhaustion message patterns, checked when the status code alone is
// not conclusive
var quotaPatterns = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"resource_exhausted",
	"too many requests",
}

// classifyFailure maps a provider error to its quota consequence. Status
// codes are authoritative; message substrings are the fallback for vendors
// that report quota problems under a generic status.
func classifyFailure(err error) failureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return failureQuota
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return failurePermanent
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return failureTransient
		}

		body := strings.ToLower(statusErr.Body)
		for _, pattern := range quotaPatterns {
			if strings.Contains(body, pattern) {
				return failureQuota
			}
		}
		return failurePermanent
	}

	// Connection resets, DNS failures and the like
	return failureTransient
}
