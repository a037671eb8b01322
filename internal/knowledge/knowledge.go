// Package knowledge serves the hostel's reference resources addressed by
// brikette:// URIs and extracts summaries and snippets from them.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"guestmail/internal/category"
)

const Scheme = "brikette://"

// Well-known resource URIs.
const (
	URIFAQ         = "brikette://faq"
	URIPolicies    = "brikette://policies"
	URIRooms       = "brikette://rooms"
	URIPricingMenu = "brikette://pricing/menu"
)

// MaxSummaryChars caps a resource summary.
const MaxSummaryChars = 240

// MinSnippetChars is the shortest string leaf treated as a snippet.
const MinSnippetChars = 20

// ExcludedSummary replaces the summary of a resource that is never injected.
const ExcludedSummary = "(variable data, excluded from drafts)"

var (
	ErrInvalidURI = errors.New("invalid knowledge uri")
	ErrNotFound   = errors.New("knowledge resource not found")
)

// injectable lists the URIs whose content may be quoted into a draft.
var injectable = map[string]struct{}{
	URIFAQ:      {},
	URIPolicies: {},
	URIRooms:    {},
}

// IsInjectable reports whether content from uri may appear in a draft.
func IsInjectable(uri string) bool {
	_, ok := injectable[uri]
	return ok
}

// Store reads resources from Dir, one JSON file per URI path.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Resource is a decoded knowledge document.
type Resource struct {
	URI  string
	Data any
}

// Path maps a brikette:// URI onto the store directory.
func (s *Store) Path(uri string) (string, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	rel := strings.Trim(strings.TrimPrefix(uri, Scheme), "/")
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	for _, part := range strings.Split(rel, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
		}
	}
	return filepath.Join(s.Dir, filepath.FromSlash(rel)+".json"), nil
}

// Read loads and decodes the resource at uri.
func (s *Store) Read(uri string) (*Resource, error) {
	path, err := s.Path(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("parse %s: %w", uri, err)
	}
	return &Resource{URI: uri, Data: decoded}, nil
}

// URIsForCategory lists the resources relevant to a scenario category.
func URIsForCategory(raw string) []string {
	uris := []string{URIFAQ, URIPolicies, URIRooms}
	switch category.Normalize(raw) {
	case category.FAQ, category.Payment, category.Prepayment:
		uris = append(uris, URIPricingMenu)
	}
	return uris
}

// Summarize renders a short description of a resource. Resources that are not
// injectable are summarized as excluded.
func Summarize(r *Resource) string {
	if r == nil {
		return ""
	}
	if !IsInjectable(r.URI) {
		return ExcludedSummary
	}
	var parts []string
	switch v := r.Data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts = append(parts, "topics: "+strings.Join(keys, ", "))
	case []any:
		parts = append(parts, fmt.Sprintf("%d entries", len(v)))
	}
	if snippets := Snippets(r); len(snippets) > 0 {
		parts = append(parts, snippets[0])
	}
	return truncate(strings.Join(parts, "; "), MaxSummaryChars)
}

// Snippets flattens the string leaves of an injectable resource, keeping
// those of at least MinSnippetChars, in a stable order. Non-injectable
// resources yield nothing.
func Snippets(r *Resource) []string {
	if r == nil || !IsInjectable(r.URI) {
		return nil
	}
	var out []string
	collect(r.Data, &out)
	return out
}

func collect(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		s := strings.Join(strings.Fields(t), " ")
		if len([]rune(s)) >= MinSnippetChars {
			*out = append(*out, s)
		}
	case []any:
		for _, item := range t {
			collect(item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collect(t[k], out)
		}
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
