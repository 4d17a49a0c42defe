package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/elee1766/quorum/src/apiclient"
	"github.com/elee1766/quorum/src/app"
	"github.com/elee1766/quorum/src/config"
	"github.com/elee1766/quorum/src/dispatch"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
	"github.com/elee1766/quorum/src/synth"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
	ExitUpstream    = 9 // Provider answered with something unusable
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())

	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var (
		apiErr     *apiclient.APIError
		validation config.ValidationError
		netErr     net.Error
	)

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, apiclient.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &apiErr) && apiErr.IsAuthError():
		return ExitAuth
	case errors.Is(err, dispatch.ErrNoCredentials),
		errors.Is(err, synth.ErrNoSynthesizer),
		errors.Is(err, synth.ErrNoResponses),
		errors.As(err, &validation):
		return ExitConfig
	case errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, session.ErrUnknownModel),
		errors.Is(err, app.ErrEnvCredential):
		return ExitUsage
	case errors.Is(err, dispatch.ErrUnparsable), errors.Is(err, provider.ErrMalformedPayload), errors.As(err, &apiErr):
		return ExitUpstream
	case errors.As(err, &netErr):
		return ExitNetwork
	default:
		return ExitError
	}
}

// FatalError logs a fatal error and exits
func FatalError(logger *slog.Logger, err error) {
	NewErrorHandler(logger).HandleError(err)
}
