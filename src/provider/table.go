package provider

import "fmt"

// Table maps every built-in provider to its descriptor
type Table map[ID]Descriptor

// Builtin returns a fresh table of the six built-in providers
func Builtin() Table {
	return Table{
		ChatGPT:  chatGPT(),
		Gemini:   gemini(),
		Claude:   claude(),
		Kimi:     kimi(),
		Grok:     grok(),
		DeepSeek: deepSeek(),
	}
}

// Get returns the descriptor for id
func (t Table) Get(id ID) (Descriptor, error) {
	d, ok := t[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q is not registered", ErrUnknownProvider, id)
	}
	return d, nil
}

// MustGet is Get for ids known to be in the table
func (t Table) MustGet(id ID) Descriptor {
	d, err := t.Get(id)
	if err != nil {
		panic(err)
	}
	return d
}

// Ordered returns the table's descriptors in canonical order
func (t Table) Ordered() []Descriptor {
	out := make([]Descriptor, 0, len(t))
	for _, id := range Order {
		if d, ok := t[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// WithBaseURLs returns a copy of the table with the given origins applied.
// Empty overrides are ignored.
func (t Table) WithBaseURLs(overrides map[ID]string) Table {
	out := make(Table, len(t))
	for id, d := range t {
		if base := overrides[id]; base != "" {
			d = d.WithBaseURL(base)
		}
		out[id] = d
	}
	return out
}

// DisplayName returns the provider's display name, or the raw id if unknown
func (t Table) DisplayName(id ID) string {
	if d, ok := t[id]; ok {
		return d.Name
	}
	return string(id)
}
