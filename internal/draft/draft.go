// Package draft holds the reply candidate passed between generation,
// quality checks and refinement.
package draft

import "strings"

// Candidate is a reply in plain text and HTML.
type Candidate struct {
	BodyPlain string `json:"bodyPlain"`
	BodyHTML  string `json:"bodyHtml"`
}

// Empty reports whether the plain-text body has no content.
func (c Candidate) Empty() bool {
	return strings.TrimSpace(c.BodyPlain) == ""
}
