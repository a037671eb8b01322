// Package category defines the closed set of scenario categories shared by
// ranking, policy and quality checks.
package category

import (
	"strings"
)

// Category is a normalized scenario category.
type Category string

const (
	FAQ            Category = "faq"
	Policy         Category = "policy"
	Payment        Category = "payment"
	Prepayment     Category = "prepayment"
	Cancellation   Category = "cancellation"
	BookingChanges Category = "booking-changes"
	BookingIssues  Category = "booking-issues"
	CheckIn        Category = "check-in"
	Transportation Category = "transportation"
	General        Category = "general"
)

// All lists every category in display order.
var All = []Category{
	FAQ, Policy, Payment, Prepayment, Cancellation,
	BookingChanges, BookingIssues, CheckIn, Transportation, General,
}

var aliases = map[string]Category{
	"faqs":       FAQ,
	"question":   FAQ,
	"questions":  FAQ,
	"breakfast":  FAQ,
	"wifi":       FAQ,
	"amenities":  FAQ,
	"facilities": FAQ,
	"luggage":    FAQ,

	"policies":             Policy,
	"house rules":          Policy,
	"rules":                Policy,
	"terms":                Policy,
	"terms and conditions": Policy,

	"payments": Payment,
	"billing":  Payment,
	"invoice":  Payment,

	"deposit":     Prepayment,
	"prepayments": Prepayment,
	"pre-payment": Prepayment,

	"cancel":        Cancellation,
	"cancellations": Cancellation,
	"refund":        Cancellation,
	"refunds":       Cancellation,

	"booking change":  BookingChanges,
	"booking changes": BookingChanges,
	"modification":    BookingChanges,
	"modifications":   BookingChanges,
	"change":          BookingChanges,

	"booking issue":   BookingIssues,
	"booking issues":  BookingIssues,
	"booking problem": BookingIssues,
	"complaint":       BookingIssues,

	"check in":  CheckIn,
	"checkin":   CheckIn,
	"check-out": CheckIn,
	"checkout":  CheckIn,
	"arrival":   CheckIn,

	"transport":    Transportation,
	"transfer":     Transportation,
	"transfers":    Transportation,
	"directions":   Transportation,
	"getting here": Transportation,
}

// Normalize maps a free-text category onto the closed set. Anything it does
// not recognise becomes General.
func Normalize(raw string) Category {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.Join(strings.Fields(key), " ")
	if key == "" {
		return General
	}
	for _, c := range All {
		if string(c) == key {
			return c
		}
	}
	if c, ok := aliases[key]; ok {
		return c
	}
	if c, ok := aliases[strings.ReplaceAll(key, "-", " ")]; ok {
		return c
	}
	return General
}
