package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"guestmail/internal/audit"
	"guestmail/internal/workspace"
)

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	if err := logger.LogEvent(audit.ActorCLI, "workspace_init_started", map[string]any{"workspace": ws.Root}); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{"workspace": ws.Root}
		if finishErr != nil {
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent(audit.ActorCLI, "workspace_init_finished", finishPayload)
	}()

	seeds := []struct {
		path     string
		contents string
	}{
		{ws.ConfigPath, seedConfig},
		{ws.TemplatesPath, seedTemplates},
		{filepath.Join(ws.KnowledgeDir, "faq.json"), seedFAQ},
		{filepath.Join(ws.KnowledgeDir, "policies.json"), seedPolicies},
		{filepath.Join(ws.KnowledgeDir, "rooms.json"), seedRooms},
		{filepath.Join(ws.KnowledgeDir, "pricing", "menu.json"), seedPricingMenu},
	}
	for _, seed := range seeds {
		if err := writeFileIfMissing(seed.path, seed.contents); err != nil {
			finishErr = err
			return finishErr
		}
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s draft --workspace %s --body \"What time is breakfast?\"\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s signals report --workspace %s\n", appName, ws.Root)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

const seedConfig = `# guestmail configuration. Every key can be overridden with GUESTMAIL_*.
log_level: info
log_format: json
signature: Hostel Brikette Reception
ranker:
  auto_threshold: 0.6
  floor: 0.25
  margin: 0.1
template_cache_ttl: 5m
refine:
  executor: claude
  command: claude
  timeout: 60s
signals:
  archive_threshold_bytes: 1048576
  retention_days: 30
  kafka:
    brokers: []
    topic: guestmail-draft-signals
http:
  addr: ":8088"
`

const seedTemplates = `[
  {
    "subject": "Breakfast times",
    "body": "Dear Guest,\n\nBreakfast is served on the terrace every morning from 8:00 to 10:30.\n\nBest regards,\nHostel Brikette",
    "category": "faq",
    "template_id": "faq-breakfast"
  },
  {
    "subject": "Luggage storage",
    "body": "Dear Guest,\n\nYou can leave your luggage at reception before check-in and after check-out free of charge.\n\nBest regards,\nHostel Brikette",
    "category": "faq",
    "template_id": "faq-luggage"
  },
  {
    "subject": "Wifi",
    "body": "Free wifi is available in all rooms and in the common areas. The network name and password are posted at reception.",
    "category": "faq",
    "template_id": "faq-wifi"
  },
  {
    "subject": "Check-in time",
    "body": "Check-in is from 15:00 to 22:00. If you arrive later, please let us know in advance so we can arrange a late arrival.",
    "category": "check-in",
    "template_id": "checkin-times"
  },
  {
    "subject": "Getting here from Naples",
    "body": "From Naples you can take the ferry or the SITA bus to Positano. The bus stop Chiesa Nuova is a two minute walk from the hostel.",
    "category": "transportation",
    "template_id": "transport-naples"
  },
  {
    "subject": "Cancellation request",
    "body": "Thank you for letting us know about your plans. We have received your cancellation request and will confirm it by email.",
    "category": "cancellation",
    "template_id": "cancellation-ack"
  },
  {
    "subject": "Secure prepayment",
    "body": "To secure your booking, please complete the prepayment through our secure payment page: https://hostelbrikette.com/prepayment",
    "category": "prepayment",
    "template_id": "prepayment-link",
    "reference_scope": "reference_required",
    "canonical_reference_url": "https://hostelbrikette.com/prepayment"
  }
]
`

const seedFAQ = `{
  "breakfast": "Breakfast is served on the terrace every morning from 8:00 to 10:30.",
  "laundry": "Our laundry service is available every day; ask at reception for washing tokens.",
  "reception": "Reception is open every day from 7:30 until midnight.",
  "towels": "Towels are included for private rooms and can be rented for dorm beds."
}
`

const seedPolicies = `{
  "age": "Guests staying in dorms must be between 18 and 39 years old.",
  "quiet_hours": "Quiet hours on the terrace start at midnight.",
  "smoking": "Smoking is not allowed anywhere inside the hostel."
}
`

const seedRooms = `{
  "dorms": "Our mixed and female dorms have lockers, reading lights and sea views.",
  "private": "Private rooms have an ensuite bathroom and a balcony over the bay."
}
`

const seedPricingMenu = `{
  "breakfast": "Breakfast costs 8 euros per person.",
  "laundry": "Laundry costs 5 euros per load."
}
`
