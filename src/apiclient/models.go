package apiclient

import (
	"context"
	"net/http"

	"github.com/elee1766/quorum/src/provider"
)

// ResolveModels asks the provider which models it offers.
//
// A fresh cached list is returned without a request. It never fails: without a listing endpoint or credential, or when the call
// or the parse goes wrong, or the filtered list is empty, the static fallback
// catalog is returned instead.
func (c *Client) ResolveModels(ctx context.Context, d provider.Descriptor, credential string) []provider.Model {
	logger := c.logger.With("method", "ResolveModels", "provider", d.ID)

	if !d.CanListModels() || credential == "" {
		return d.FallbackModels()
	}
	if models, ok := c.modelCache.Get(d.ID); ok {
		logger.Debug("using cached models", "count", len(models), "cached_providers", c.modelCache.GetCacheStats().ValidEntries)
		return models
	}
	url, _ := d.ListURL(credential)

	headers := map[string]string{}
	if d.ListHeaders != nil {
		headers = d.ListHeaders(credential)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	raw, err := c.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		logger.Warn("failed to fetch models, using fallback", "error", err)
		return d.FallbackModels()
	}

	models, err := d.ParseModels(raw)
	if err != nil {
		logger.Warn("failed to parse models, using fallback", "error", err)
		return d.FallbackModels()
	}
	if len(models) == 0 {
		logger.Info("provider listed no usable models, using fallback")
		return d.FallbackModels()
	}

	c.modelCache.Put(d.ID, models)
	logger.Debug("resolved models", "count", len(models))
	return models
}

// ForgetModels drops the cached list so the next ResolveModels asks the
// provider again. Call it whenever the credential changes.
func (c *Client) ForgetModels(id provider.ID) {
	c.modelCache.Remove(id)
}
