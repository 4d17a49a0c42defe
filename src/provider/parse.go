package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedPayload is returned when a payload is not valid JSON
var ErrMalformedPayload = errors.New("malformed JSON payload")

// textAt returns a parser that reads a string at the given gjson path.
// Missing, non-string or empty values yield ParseFailure.
func textAt(path string) func(raw []byte) string {
	return func(raw []byte) string {
		if !gjson.ValidBytes(raw) {
			return ParseFailure
		}
		v := gjson.GetBytes(raw, path)
		if v.Type != gjson.String || v.Str == "" {
			return ParseFailure
		}
		return v.Str
	}
}

// modelArray walks the array at path and converts each element with
// convert. Elements for which convert returns ok=false are skipped.
// Duplicate ids keep their first occurrence.
func modelArray(path string, convert func(gjson.Result) (Model, bool)) func(raw []byte) ([]Model, error) {
	return func(raw []byte) ([]Model, error) {
		if !gjson.ValidBytes(raw) {
			return nil, ErrMalformedPayload
		}
		arr := gjson.GetBytes(raw, path)
		if !arr.IsArray() {
			return nil, fmt.Errorf("expected array at %q", path)
		}

		var models []Model
		seen := make(map[string]bool)
		arr.ForEach(func(_, value gjson.Result) bool {
			m, ok := convert(value)
			if !ok || m.ID == "" || seen[m.ID] {
				return true
			}
			seen[m.ID] = true
			models = append(models, m)
			return true
		})
		return models, nil
	}
}

// idAsName is the converter used by backends whose listing only carries ids
func idAsName(value gjson.Result) (Model, bool) {
	id := value.Get("id").String()
	return Model{ID: id, Name: id}, true
}

// idMatching keeps models whose id contains any of the given substrings
func idMatching(substrings ...string) func(gjson.Result) (Model, bool) {
	return func(value gjson.Result) (Model, bool) {
		id := value.Get("id").String()
		for _, s := range substrings {
			if strings.Contains(id, s) {
				return Model{ID: id, Name: id}, true
			}
		}
		return Model{}, false
	}
}
