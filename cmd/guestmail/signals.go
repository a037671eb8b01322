package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"guestmail/internal/ledger"
	"guestmail/internal/signals"
)

func runSignals(args []string, workspacePath string) error {
	if len(args) == 0 || isHelp(args[0]) {
		return fmt.Errorf("%s signals: missing subcommand (report, archive, show)", appName)
	}

	switch args[0] {
	case "report":
		return runSignalsReport(args[1:], workspacePath)
	case "archive":
		return runSignalsArchive(args[1:], workspacePath)
	case "show":
		return runSignalsShow(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s signals: unknown subcommand %q", appName, args[0])
	}
}

func runSignalsReport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("signals report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logEvent("signals_report_started", map[string]any{"workspace": a.ws.Root})
	read, err := a.store.Read(context.Background())
	if err != nil {
		a.logEvent("signals_report_finished", map[string]any{"workspace": a.ws.Root, "error": err.Error()})
		return err
	}
	report := signals.BuildReport(read)
	a.logEvent("signals_report_finished", map[string]any{
		"workspace":   a.ws.Root,
		"selections":  report.Selections,
		"refinements": report.Refinements,
		"skipped":     report.Skipped,
	})
	return writeJSON(os.Stdout, report)
}

func runSignalsArchive(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("signals archive", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	before := fs.String("before", "", "Archive events at or before this RFC3339 time (default: now minus retention)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	cutoff := time.Now().Add(-a.cfg.Retention())
	if *before != "" {
		if cutoff, err = time.Parse(time.RFC3339, *before); err != nil {
			return fmt.Errorf("parse --before: %w", err)
		}
	}

	a.logEvent("signals_archive_started", map[string]any{"workspace": a.ws.Root, "cutoff": cutoff.UTC()})
	res := a.store.Archive(context.Background(), cutoff)
	a.logEvent("signals_archive_finished", map[string]any{
		"workspace":      a.ws.Root,
		"archived_count": res.ArchivedCount,
		"retained_count": res.RetainedCount,
		"archive_path":   res.ArchivePath,
		"error":          res.Error,
	})
	if err := writeJSON(os.Stdout, res); err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("archive failed: %s", res.Error)
	}
	return nil
}

func runSignalsShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("signals show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	draftID := fs.String("draft-id", "", "Draft id to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *draftID == "" {
		return fmt.Errorf("--draft-id is required")
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	read, err := a.store.Read(context.Background())
	if err != nil {
		return err
	}
	for _, joined := range signals.JoinEvents(read.Selections, read.Refinements) {
		if joined.DraftID != *draftID {
			continue
		}
		sel, ref := joined.Selection, joined.Refinement
		fmt.Fprintf(os.Stdout, "draft %s\n", joined.DraftID)
		fmt.Fprintf(os.Stdout, "  selection=%s template=%s confidence=%.3f composite=%t quality_passed=%t\n",
			sel.Selection, sel.TemplateID, sel.Confidence, sel.Composite, sel.QualityPassed)
		fmt.Fprintf(os.Stdout, "  refinement_applied=%t source=%s edit_distance_pct=%.3f\n\n",
			ref.RefinementApplied, ref.RefinementSource, ref.EditDistancePct)
		diff, err := signals.RenderDiff(ref)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, diff)
		return nil
	}
	for _, sel := range read.Selections {
		if sel.DraftID == *draftID {
			return writeJSON(os.Stdout, sel)
		}
	}
	return fmt.Errorf("no signal events for draft %s", *draftID)
}

func runLedger(args []string, workspacePath string) error {
	if len(args) == 0 || isHelp(args[0]) {
		return fmt.Errorf("%s ledger: missing subcommand (list, review)", appName)
	}

	switch args[0] {
	case "list":
		return runLedgerList(args[1:], workspacePath)
	case "review":
		return runLedgerReview(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s ledger: unknown subcommand %q", appName, args[0])
	}
}

func runLedgerList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("ledger list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	status := fs.String("status", "", "Filter by status: new, reviewed or promoted")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var filter ledger.Status
	if *status != "" {
		var err error
		if filter, err = ledger.ParseStatus(*status); err != nil {
			return err
		}
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openLedger()
	if err != nil {
		return err
	}

	records, err := store.List(context.Background(), filter)
	if err != nil {
		return err
	}
	if *asJSON {
		if records == nil {
			records = []ledger.Record{}
		}
		return writeJSON(os.Stdout, records)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tSTATUS\tSEEN\tCATEGORY\tQUESTION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Hash[:12], r.Status, r.SeenCount, r.Category, r.Question)
	}
	return tw.Flush()
}

func runLedgerReview(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("ledger review", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	status := fs.String("status", string(ledger.StatusReviewed), "New status: reviewed or promoted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s ledger review [--status reviewed|promoted] <hash>", appName)
	}
	next, err := ledger.ParseStatus(*status)
	if err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openLedger()
	if err != nil {
		return err
	}

	a.logEvent("ledger_review_started", map[string]any{"workspace": a.ws.Root, "hash": fs.Arg(0), "status": next})
	hash, runErr := store.SetStatus(context.Background(), fs.Arg(0), next)
	finish := map[string]any{"workspace": a.ws.Root, "hash": hash, "status": next}
	if runErr != nil {
		finish["error"] = runErr.Error()
	}
	a.logEvent("ledger_review_finished", finish)
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", hash, next)
	return nil
}
