package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"guestmail/internal/generate"
	"guestmail/internal/interpret"
	"guestmail/internal/quality"
	"guestmail/internal/refine"
)

// emailFlags reads a guest email either from --body/--body-file or as a JSON
// interpret request from --input.
type emailFlags struct {
	input    *string
	body     *string
	bodyFile *string
	subject  *string
}

func addEmailFlags(fs *flag.FlagSet) emailFlags {
	return emailFlags{
		input:    fs.String("input", "", "JSON request file (default: stdin)"),
		body:     fs.String("body", "", "Email body text"),
		bodyFile: fs.String("body-file", "", "File holding the email body"),
		subject:  fs.String("subject", "", "Email subject"),
	}
}

func (f emailFlags) request() (interpret.Input, error) {
	body, err := readText(*f.body, *f.bodyFile)
	if err != nil {
		return interpret.Input{}, err
	}
	if body != "" {
		return interpret.Input{Body: body, Subject: *f.subject}, nil
	}
	var in interpret.Input
	if err := decodeInput(*f.input, &in); err != nil {
		return interpret.Input{}, err
	}
	if *f.subject != "" {
		in.Subject = *f.subject
	}
	return in, nil
}

func runInterpret(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("interpret", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := addEmailFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := email.request()
	if err != nil {
		return err
	}
	a.logEvent("interpret_started", map[string]any{"workspace": a.ws.Root, "subject": in.Subject})
	plan, runErr := a.interpreter().Interpret(in)

	finish := map[string]any{"workspace": a.ws.Root}
	if plan != nil {
		finish["language"] = plan.Language
		finish["category"] = plan.Scenario.Category
		finish["questions"] = len(plan.Intents.Questions)
	}
	if runErr != nil {
		finish["error"] = runErr.Error()
	}
	a.logEvent("interpret_finished", finish)
	if runErr != nil {
		return runErr
	}
	return writeJSON(os.Stdout, plan)
}

func runGenerate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "JSON draft_generate request file (default: stdin)")
	recipient := fs.String("recipient", "", "Recipient name used in the greeting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	var req generate.Request
	if err := decodeInput(*input, &req); err != nil {
		return err
	}
	if *recipient != "" {
		req.RecipientName = *recipient
	}
	gen, err := a.generator()
	if err != nil {
		return err
	}

	a.logEvent("generate_started", map[string]any{"workspace": a.ws.Root, "templates": a.templatesPath})
	res, runErr := gen.Generate(context.Background(), req)
	a.logEvent("generate_finished", generateFinish(a, res, runErr))
	if runErr != nil {
		return runErr
	}
	return writeJSON(os.Stdout, res)
}

func generateFinish(a *app, res *generate.Result, runErr error) map[string]any {
	finish := map[string]any{"workspace": a.ws.Root}
	if res != nil {
		finish["draft_id"] = res.DraftID
		finish["selection"] = res.Selection
		finish["composite"] = res.Composite
		finish["quality_passed"] = res.Quality.Passed
	}
	if runErr != nil {
		finish["error"] = runErr.Error()
	}
	return finish
}

func runQualityCheck(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("quality-check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "JSON draft_quality_check request file (default: stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	var in quality.Input
	if err := decodeInput(*input, &in); err != nil {
		return err
	}
	if in.Plan == nil {
		return fmt.Errorf("%w: actionPlan is required", interpret.ErrInvalidInput)
	}

	a.logEvent("quality_check_started", map[string]any{"workspace": a.ws.Root})
	res := quality.Check(in)
	a.logEvent("quality_check_finished", map[string]any{
		"workspace":     a.ws.Root,
		"passed":        res.Passed,
		"failed_checks": res.FailedChecks,
	})
	return writeJSON(os.Stdout, res)
}

func runRefine(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("refine", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "JSON draft_refine request file (default: stdin)")
	executor := fs.String("executor", "", "LLM executor: claude or mock (default: config)")
	extra := fs.String("context", "", "Additional context from staff")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	var req refine.Request
	if err := decodeInput(*input, &req); err != nil {
		return err
	}
	if req.Plan == nil {
		return fmt.Errorf("%w: actionPlan is required", interpret.ErrInvalidInput)
	}
	if *extra != "" {
		req.Context = *extra
	}
	r, err := a.refiner(*executor)
	if err != nil {
		return err
	}

	a.logEvent("refine_started", map[string]any{"workspace": a.ws.Root, "draft_id": req.DraftID})
	res := r.Refine(context.Background(), req)
	a.logEvent("refine_finished", map[string]any{
		"workspace":          a.ws.Root,
		"draft_id":           req.DraftID,
		"refinement_applied": res.RefinementApplied,
		"refinement_source":  res.RefinementSource,
	})
	return writeJSON(os.Stdout, res)
}

// draftOutput is the combined result of the draft command.
type draftOutput struct {
	ActionPlan *interpret.ActionPlan `json:"actionPlan"`
	Generated  *generate.Result      `json:"generated"`
	Refined    *refine.Result        `json:"refined,omitempty"`
}

func runDraft(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("draft", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := addEmailFlags(fs)
	recipient := fs.String("recipient", "", "Recipient name used in the greeting")
	doRefine := fs.Bool("refine", false, "Refine the generated draft")
	executor := fs.String("executor", "", "LLM executor for --refine: claude or mock (default: config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := email.request()
	if err != nil {
		return err
	}
	gen, err := a.generator()
	if err != nil {
		return err
	}
	var r *refine.Refiner
	if *doRefine {
		if r, err = a.refiner(*executor); err != nil {
			return err
		}
	}

	a.logEvent("draft_started", map[string]any{"workspace": a.ws.Root, "subject": in.Subject, "refine": *doRefine})
	out, runErr := draftPipeline(context.Background(), a.interpreter(), gen, r, in, *recipient)
	finish := generateFinish(a, out.Generated, runErr)
	if out.Refined != nil {
		finish["refinement_applied"] = out.Refined.RefinementApplied
	}
	a.logEvent("draft_finished", finish)
	if runErr != nil {
		return runErr
	}
	return writeJSON(os.Stdout, out)
}

// draftPipeline runs interpret, generate and, when r is set, refine.
func draftPipeline(ctx context.Context, in *interpret.Interpreter, gen *generate.Generator, r *refine.Refiner, email interpret.Input, recipient string) (draftOutput, error) {
	var out draftOutput
	plan, err := in.Interpret(email)
	if err != nil {
		return out, err
	}
	out.ActionPlan = plan
	res, err := gen.Generate(ctx, generate.Request{Plan: plan, Subject: email.Subject, RecipientName: recipient})
	if err != nil {
		return out, err
	}
	out.Generated = res
	if r != nil {
		refined := r.Refine(ctx, refine.Request{DraftID: res.DraftID, Plan: plan, Draft: res.Draft})
		out.Refined = &refined
	}
	return out, nil
}
