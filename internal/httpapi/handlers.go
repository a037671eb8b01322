// Package httpapi exposes the drafting tools over HTTP.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guestmail/internal/audit"
	"guestmail/internal/generate"
	"guestmail/internal/interpret"
	"guestmail/internal/logging"
	"guestmail/internal/quality"
	"guestmail/internal/refine"
)

// Handlers groups the tool endpoints. They only decode, delegate and encode.
type Handlers struct {
	Interpreter *interpret.Interpreter
	Generator   *generate.Generator
	Refiner     *refine.Refiner
	Audit       *audit.Logger
}

func (h Handlers) Interpret(c *gin.Context) {
	var req interpret.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	interpreter := h.Interpreter
	if interpreter == nil {
		interpreter = interpret.New(interpret.Options{})
	}
	plan, err := interpreter.Interpret(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, "draft_interpret", map[string]any{
		"language":  plan.Language,
		"category":  plan.Scenario.Category,
		"questions": len(plan.Intents.Questions),
	})
	c.JSON(http.StatusOK, plan)
}

func (h Handlers) Generate(c *gin.Context) {
	if h.Generator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "generator not configured"})
		return
	}
	var req generate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Generator.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, "draft_generate", map[string]any{
		"draft_id":       res.DraftID,
		"selection":      res.Selection,
		"composite":      res.Composite,
		"quality_passed": res.Quality.Passed,
	})
	c.JSON(http.StatusOK, res)
}

func (h Handlers) QualityCheck(c *gin.Context) {
	var req quality.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Plan == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "actionPlan is required"})
		return
	}
	res := quality.Check(req)
	h.record(c, "draft_quality_check", map[string]any{
		"passed":        res.Passed,
		"failed_checks": res.FailedChecks,
	})
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Refine(c *gin.Context) {
	if h.Refiner == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "refiner not configured"})
		return
	}
	var req refine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Plan == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "actionPlan is required"})
		return
	}
	res := h.Refiner.Refine(c.Request.Context(), req)
	h.record(c, "draft_refine", map[string]any{
		"draft_id":           req.DraftID,
		"refinement_applied": res.RefinementApplied,
		"refinement_source":  res.RefinementSource,
	})
	c.JSON(http.StatusOK, res)
}

// fail maps input-contract violations to 400 and everything else to 500.
func (h Handlers) fail(c *gin.Context, err error) {
	if errors.Is(err, interpret.ErrInvalidInput) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (h Handlers) record(c *gin.Context, eventType string, payload map[string]any) {
	if h.Audit == nil {
		return
	}
	payload["request_id"] = c.Writer.Header().Get(logging.HeaderRequestID)
	if err := h.Audit.LogEventContext(c.Request.Context(), audit.ActorHTTP, eventType, payload); err != nil {
		logging.FromGin(c).Warn("audit log failed", "event", eventType, "error", err.Error())
	}
}
