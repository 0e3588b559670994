package providers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"

	errx "github.com/techchat/server/internal/core/error"
)

// Failure is the pipeline's view of an adapter error.
type Failure int

const (
	FailureOther Failure = iota
	FailureCredential
	FailureQuota
	FailureEmpty
)

func (f Failure) String() string {
	switch f {
	case FailureCredential:
		return "credential_rejected"
	case FailureQuota:
		return "quota_exceeded"
	case FailureEmpty:
		return "empty_response"
	default:
		return "other"
	}
}

var (
	credentialMarkers = []string{
		"forbidden",
		"unauthorized",
		"permission_denied",
		"invalid api key",
		"incorrect api key",
		"api key not valid",
		"api key was reported as leaked",
	}
	quotaMarkers = []string{
		"quota",
		"resource_exhausted",
	}
	// Vendor SDK errors for a call that succeeded without usable output,
	// e.g. a Gemini prompt blocked by safety settings has no candidates.
	emptyResultMarkers = []string{
		"gemini result is empty",
		"empty choices",
	}
	statusPattern = regexp.MustCompile(`(?i)(?:status code:?|error)\s*(\d{3})\b`)
)

// Classify maps an adapter error to a Failure. Credential checks win over
// quota checks; timeouts and anything unrecognized are FailureOther.
func Classify(err error) Failure {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, errx.ErrEmptyResponse) || isEmptyResult(err) {
		return FailureEmpty
	}

	status := statusCode(err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return FailureCredential
	}

	text := strings.ToLower(err.Error())
	for _, m := range credentialMarkers {
		if strings.Contains(text, m) {
			return FailureCredential
		}
	}
	if status == http.StatusTooManyRequests {
		return FailureQuota
	}
	for _, m := range quotaMarkers {
		if strings.Contains(text, m) {
			return FailureQuota
		}
	}
	return FailureOther
}

// statusCode extracts an HTTP status from known error types, then from the
// error text ("status code: 401", "Error 403, ...").
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	if s := errx.StatusOf(err); s != 0 {
		return s
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			return n
		}
	}
	return 0
}

// isEmptyResult reports whether err is a vendor's "no output" error.
func isEmptyResult(err error) bool {
	text := strings.ToLower(err.Error())
	for _, m := range emptyResultMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// generateError wraps a vendor error, folding empty-result errors into
// errx.ErrEmptyResponse.
func generateError(vendor string, err error) error {
	if isEmptyResult(err) {
		return fmt.Errorf("%s generate: %w: %w", vendor, errx.ErrEmptyResponse, err)
	}
	return fmt.Errorf("%s generate: %w", vendor, err)
}
