package interpret

import (
	"regexp"
	"strings"
)

// DefaultStaffMarkers identify staff senders when no markers are configured.
var DefaultStaffMarkers = []string{"brikette", "hostel", "reception", "staff", "info@"}

var (
	commitmentPattern  = regexp.MustCompile(`(?i)\b(?:we\s+will|we'll|we\s+can|we\s+have\s+(?:reserved|arranged|booked|noted)|we\s+confirm|guaranteed?|(?:is|are)\s+included|included|(?:is|are)\s+available|free\s+of\s+charge|complimentary)\b`)
	formalPattern      = regexp.MustCompile(`(?i)\b(?:dear|sincerely|kind\s+regards|best\s+regards|yours\s+faithfully|yours\s+sincerely|gentile|distinti\s+saluti|cordiali\s+saluti|estimado|estimada|atentamente)\b`)
	casualPattern      = regexp.MustCompile(`(?i)\b(?:hi|hey|thanks|thx|cheers|ciao|hola|cool|awesome)\b|!!|:\)`)
	displayNamePattern = regexp.MustCompile(`^\s*"?([^"<]+?)"?\s*<[^>]+>\s*$`)
)

func isStaff(from string, markers []string) bool {
	from = strings.ToLower(from)
	for _, m := range markers {
		if m != "" && strings.Contains(from, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func summarizeThread(ctx *ThreadContext, markers []string) *ThreadSummary {
	summary := &ThreadSummary{
		PriorCommitments:  []string{},
		OpenQuestions:     []string{},
		ResolvedQuestions: []string{},
		ToneHistory:       ToneCasual,
		LanguageUsed:      LanguageUnknown,
	}
	if len(markers) == 0 {
		markers = DefaultStaffMarkers
	}

	var pending []string
	var guestText []string
	latestGuest := -1
	formal, casual := false, false
	for i, msg := range ctx.Messages {
		if formalPattern.MatchString(msg.Snippet) {
			formal = true
		}
		if casualPattern.MatchString(msg.Snippet) {
			casual = true
		}
		if isStaff(msg.From, markers) {
			summary.PreviousResponseCount++
			if commitmentPattern.MatchString(msg.Snippet) {
				summary.PriorCommitments = append(summary.PriorCommitments, strings.TrimSpace(msg.Snippet))
			}
			summary.ResolvedQuestions = append(summary.ResolvedQuestions, pending...)
			pending = nil
			continue
		}
		latestGuest = i
		guestText = append(guestText, msg.Snippet)
		for _, q := range ExtractQuestions(msg.Snippet) {
			pending = append(pending, q.Text)
		}
	}

	switch {
	case formal && casual:
		summary.ToneHistory = ToneMixed
	case formal:
		summary.ToneHistory = ToneFormal
	}
	if latestGuest >= 0 {
		latest := ctx.Messages[latestGuest]
		for _, q := range ExtractQuestions(latest.Snippet) {
			summary.OpenQuestions = append(summary.OpenQuestions, q.Text)
		}
		summary.GuestName = displayName(latest.From)
		summary.LanguageUsed = DetectLanguage(strings.Join(guestText, "\n"))
	}
	return summary
}

// displayName extracts "Jane Doe" from `"Jane Doe" <jane@example.com>`.
func displayName(from string) string {
	m := displayNamePattern.FindStringSubmatch(from)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
