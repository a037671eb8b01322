package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ValidationError captures a single field-specific corpus problem.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple corpus problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Load reads and validates a template corpus file.
func Load(path string) ([]EmailTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template corpus: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a JSON array of templates and validates every entry.
func Parse(data []byte, source string) ([]EmailTemplate, error) {
	var corpus []EmailTemplate
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&corpus); err != nil {
		return nil, ValidationErrors{{File: source, Field: "json", Message: err.Error()}}
	}
	if errs := Validate(corpus, source); len(errs) > 0 {
		return nil, errs
	}
	return corpus, nil
}

// Validate checks required fields, ID uniqueness and the reference rule:
// a reference_required template carries an https canonical URL that appears
// verbatim in its subject or body.
func Validate(corpus []EmailTemplate, source string) ValidationErrors {
	var errs ValidationErrors
	ids := make(map[string]int)
	for i, t := range corpus {
		field := func(name string) string { return fmt.Sprintf("templates[%d].%s", i, name) }
		if strings.TrimSpace(t.Subject) == "" {
			errs = append(errs, ValidationError{File: source, Field: field("subject"), Message: "is required"})
		}
		if strings.TrimSpace(t.Body) == "" {
			errs = append(errs, ValidationError{File: source, Field: field("body"), Message: "is required"})
		}
		if strings.TrimSpace(t.Category) == "" {
			errs = append(errs, ValidationError{File: source, Field: field("category"), Message: "is required"})
		}
		if t.TemplateID != "" {
			if prev, ok := ids[t.TemplateID]; ok {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   field("template_id"),
					Message: fmt.Sprintf("duplicate of templates[%d]", prev),
				})
			}
			ids[t.TemplateID] = i
		}
		if t.ReferenceScope != ReferenceRequired {
			continue
		}
		ref := strings.TrimSpace(t.CanonicalReferenceURL)
		if ref == "" {
			errs = append(errs, ValidationError{File: source, Field: field("canonical_reference_url"), Message: "is required when reference_scope is reference_required"})
			continue
		}
		u, err := url.Parse(ref)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, ValidationError{File: source, Field: field("canonical_reference_url"), Message: "must be an absolute https URL"})
			continue
		}
		if !strings.Contains(t.Subject+"\n"+t.Body, ref) {
			errs = append(errs, ValidationError{File: source, Field: field("body"), Message: "must contain canonical_reference_url verbatim"})
		}
	}
	return errs
}
