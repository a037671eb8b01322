package policy

import "guestmail/internal/category"

var toneTable = map[category.Category][]string{
	category.FAQ:            {"friendly", "concise"},
	category.CheckIn:        {"friendly", "concise"},
	category.Transportation: {"friendly", "concise", "step-by-step directions"},
	category.Policy:         {"neutral", "factual"},
	category.Payment:        {"precise", "security-conscious"},
	category.Prepayment:     {"precise", "security-conscious"},
	category.Cancellation:   {"empathetic", "clear about rate conditions", "no speculative promises"},
	category.BookingChanges: {"helpful", "solution-oriented"},
	category.BookingIssues:  {"apologetic", "solution-oriented"},
	category.General:        {"friendly", "professional"},
}

var allowedTable = map[category.Category][]string{
	category.FAQ:            {"faq", "check-in", "transportation", "general"},
	category.CheckIn:        {"check-in", "faq", "general"},
	category.Transportation: {"transportation", "faq", "general"},
	category.Policy:         {"policy", "faq", "general"},
	category.Payment:        {"payment", "prepayment", "policy"},
	category.Prepayment:     {"prepayment", "payment"},
	category.Cancellation:   {"cancellation", "policy", "booking-changes"},
	category.BookingChanges: {"booking-changes", "booking-issues", "cancellation"},
	category.BookingIssues:  {"booking-issues", "booking-changes", "general"},
	// General mail can be about anything.
	category.General: {},
}
