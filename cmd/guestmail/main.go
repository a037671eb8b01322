package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const appName = "guestmail"

func main() {
	flag.String("workspace", "", "Path to workspace root (default: $GUESTMAIL_WORKSPACE)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: guest email reply drafting\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init           Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  interpret      Interpret a guest email into an action plan")
		fmt.Fprintln(os.Stderr, "  generate       Generate a draft from an action plan")
		fmt.Fprintln(os.Stderr, "  quality-check  Run the quality gate on a draft")
		fmt.Fprintln(os.Stderr, "  refine         Refine a draft with an LLM")
		fmt.Fprintln(os.Stderr, "  draft          Interpret, generate and optionally refine in one step")
		fmt.Fprintln(os.Stderr, "  signals        Report on, archive or inspect draft signal events")
		fmt.Fprintln(os.Stderr, "  ledger         Review questions no template could answer")
		fmt.Fprintln(os.Stderr, "  serve          Serve the drafting tools over HTTP")
		fmt.Fprintln(os.Stderr, "  help           Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if workspacePath == "" {
		workspacePath = os.Getenv("GUESTMAIL_WORKSPACE")
	}

	args := remaining
	if len(args) == 0 || isHelp(args[0]) {
		flag.Usage()
		return
	}

	commands := map[string]func([]string, string) error{
		"init":          runInit,
		"interpret":     runInterpret,
		"generate":      runGenerate,
		"quality-check": runQualityCheck,
		"refine":        runRefine,
		"draft":         runDraft,
		"signals":       runSignals,
		"ledger":        runLedger,
		"serve":         runServe,
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[1:], workspacePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}
