package minimax

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
)

// MiniMax base_resp status codes that need distinct handling.
const (
	statusCodeRateLimit     = 1002 // request rate limit reached
	statusCodeAuthFailed    = 1004 // authentication failed
	statusCodeNoBalance     = 1008 // insufficient balance
	statusCodeTokenLimit    = 1039 // token-per-minute limit reached
	statusCodeInvalidParams = 2013 // invalid request parameters
)

// classifyBaseResp maps a non-zero base_resp status code onto the generation
// error taxonomy. Only the throttling codes produce a rate-limit kind, since
// that kind is the one that tightens the adaptive limiter.
func classifyBaseResp(resp baseResp) error {
	if resp.StatusCode == 0 {
		return nil
	}
	msg := fmt.Sprintf("minimax status %d: %s", resp.StatusCode, resp.StatusMsg)
	switch resp.StatusCode {
	case statusCodeRateLimit, statusCodeTokenLimit:
		return generation.NewError(generation.KindRateLimit, msg, nil)
	case statusCodeAuthFailed, statusCodeNoBalance:
		return generation.NewError(generation.KindConfiguration, msg, nil)
	case statusCodeInvalidParams:
		return generation.NewError(generation.KindValidation, msg, nil)
	default:
		return generation.NewError(generation.KindGeneric, msg, nil)
	}
}

// classifyHTTPStatus maps a non-2xx HTTP response onto the taxonomy.
func classifyHTTPStatus(status int, body string) error {
	msg := fmt.Sprintf("minimax HTTP %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return generation.NewError(generation.KindRateLimit, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return generation.NewError(generation.KindConfiguration, msg, nil)
	case status == http.StatusBadRequest:
		return generation.NewError(generation.KindValidation, msg, nil)
	default:
		return generation.NewError(generation.KindGeneric, msg, nil)
	}
}

// classifyTransport maps request transport failures (DNS, connect, deadline)
// onto the taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return generation.NewError(generation.KindTimeout, "minimax request deadline exceeded", err)
	}
	return generation.NewError(generation.KindNetwork, "minimax request failed", err)
}
