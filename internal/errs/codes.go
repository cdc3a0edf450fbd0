package errs

import (
	"regexp"
	"strings"
)

// Code identifies an error category at the CLI/JSON boundary.
type Code string

const (
	CodeUsage             Code = "USAGE_ERROR"
	CodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternal          Code = "INTERNAL"
)

// ErrorResponse is the JSON wire shape for reporting errors.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the classified error payload.
type ErrorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse classifies err and builds the wire shape for it.
func NewErrorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{Error: ErrorBody{Code: CodeInternal}}
	}
	return ErrorResponse{Error: ErrorBody{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}}
}

// Phrases cobra emits for malformed invocations. Typed UsageErrors are
// preferred at the point of origin; this heuristic only covers errors whose
// origin we do not control.
var usagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`unknown command`),
	regexp.MustCompile(`unknown flag`),
	regexp.MustCompile(`unknown shorthand`),
	regexp.MustCompile(`requires at least \d+ arg`),
	regexp.MustCompile(`accepts at most \d+ arg`),
	regexp.MustCompile(`accepts between \d+ and \d+ arg`),
	regexp.MustCompile(`accepts \d+ arg`),
	regexp.MustCompile(`invalid argument ".*" for`),
}

func isUsageMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range usagePatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

func isWorkspaceMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "no active workspace") ||
		strings.Contains(lower, "workspace not found") ||
		strings.Contains(lower, "no workspace")
}

// GetErrorCode classifies err. Typed kinds take precedence over message text;
// message heuristics only apply to untyped errors.
func GetErrorCode(err error) Code {
	if err == nil {
		return CodeInternal
	}
	if IsUsage(err) {
		return CodeUsage
	}
	if IsWorkspace(err) {
		return CodeWorkspaceNotFound
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case isUsageMessage(msg):
		return CodeUsage
	case isWorkspaceMessage(msg):
		return CodeWorkspaceNotFound
	case strings.Contains(lower, "invalid"):
		return CodeInvalidInput
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "timeout"):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// GetExitCode maps err to the CLI process exit status: nil is 0, usage errors
// (typed or cobra-phrased) are 2, everything else is 1.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if IsUsage(err) || isUsageMessage(err.Error()) {
		return 2
	}
	return 1
}
