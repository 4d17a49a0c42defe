package apiclient

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds configuration for the provider client
type Config struct {
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // Per-call timeout, zero means defaultTimeout
	HTTPClient *http.Client  // Optional transport override
	CacheTTL   time.Duration // How long resolved model lists stay fresh
	UserAgent  string        // Sent on every request when set
}
