// Package provider describes the fixed set of LLM backends quorum talks to.
//
// Each backend is a Descriptor: a bag of plain functions that build the
// endpoint, headers and body for a call and pull the answer back out of the
// decoded payload. Descriptors hold no mutable state.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies one of the built-in providers
type ID string

const (
	ChatGPT  ID = "chatgpt"
	Gemini   ID = "gemini"
	Claude   ID = "claude"
	Kimi     ID = "kimi"
	Grok     ID = "grok"
	DeepSeek ID = "deepseek"
)

// Order is the canonical provider order. It doubles as the default
// synthesis priority.
var Order = []ID{ChatGPT, Gemini, Claude, Kimi, Grok, DeepSeek}

// ParseFailure is returned by response parsers when the payload does not
// have the expected shape.
const ParseFailure = "Error parsing response"

// IsParseFailure reports whether text is the parse sentinel
func IsParseFailure(text string) bool {
	return text == ParseFailure
}

// ErrUnknownProvider is returned for ids outside Order
var ErrUnknownProvider = errors.New("unknown provider")

// ParseID converts a user-supplied name into an ID
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Order {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownProvider, s, strings.Join(Names(), ", "))
}

// Names returns the provider ids as strings, in canonical order
func Names() []string {
	out := make([]string, len(Order))
	for i, id := range Order {
		out[i] = string(id)
	}
	return out
}

// Model is a selectable model of a provider
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lookup finds a model by exact id
func Lookup(models []Model, id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Endpoint builds a URL from the provider base URL, the credential and the
// selected model. Most providers ignore the last two.
type Endpoint func(base, credential, model string) string

// Static returns an Endpoint that always resolves to base+path
func Static(path string) Endpoint {
	return func(base, _, _ string) string {
		return base + path
	}
}

// Descriptor is the per-backend strategy table
type Descriptor struct {
	ID           ID
	Name         string
	BaseURL      string
	Endpoint     Endpoint
	ListEndpoint Endpoint // nil when the backend has no model listing
	DefaultModel string
	Fallback     []Model

	Headers     func(credential string) map[string]string
	ListHeaders func(credential string) map[string]string
	Body        func(model, prompt string) any
	Parse       func(raw []byte) string
	ParseModels func(raw []byte) ([]Model, error)
}

// WithBaseURL returns a copy of the descriptor pointed at another origin.
func (d Descriptor) WithBaseURL(base string) Descriptor {
	d.BaseURL = strings.TrimRight(base, "/")
	return d
}

// URL resolves the completion endpoint
func (d Descriptor) URL(credential, model string) string {
	return d.Endpoint(d.BaseURL, credential, model)
}

// ListURL resolves the model listing endpoint. The second value is false
// when the provider has none.
func (d Descriptor) ListURL(credential string) (string, bool) {
	if d.ListEndpoint == nil {
		return "", false
	}
	return d.ListEndpoint(d.BaseURL, credential, ""), true
}

// CanListModels reports whether dynamic model discovery is possible
func (d Descriptor) CanListModels() bool {
	return d.ListEndpoint != nil && d.ParseModels != nil
}

// FallbackModels returns a copy of the static catalog
func (d Descriptor) FallbackModels() []Model {
	out := make([]Model, len(d.Fallback))
	copy(out, d.Fallback)
	return out
}

func bearer(credential string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + credential,
		"Content-Type":  "application/json",
	}
}

func bearerOnly(credential string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + credential,
	}
}
