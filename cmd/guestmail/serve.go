package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"guestmail/internal/httpapi"
)

func runServe(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "Listen address (default: config http.addr)")
	executor := fs.String("executor", "", "LLM executor for draft_refine: claude or mock (default: config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(workspacePath)
	if err != nil {
		return err
	}
	defer a.Close()
	if *addr == "" {
		*addr = a.cfg.HTTP.Addr
	}

	gen, err := a.generator()
	if err != nil {
		return err
	}
	r, err := a.refiner(*executor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Handlers{
		Interpreter: a.interpreter(),
		Generator:   gen,
		Refiner:     r,
		Audit:       a.audit,
	}, a.logger)

	a.logEvent("serve_started", map[string]any{"workspace": a.ws.Root, "addr": *addr})
	runErr := httpapi.Serve(ctx, *addr, router, a.logger)
	finish := map[string]any{"workspace": a.ws.Root, "addr": *addr}
	if runErr != nil {
		finish["error"] = runErr.Error()
	}
	a.logEvent("serve_finished", finish)
	return runErr
}
