package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestmail/internal/adapters"
	"guestmail/internal/audit"
	"guestmail/internal/generate"
	"guestmail/internal/interpret"
	"guestmail/internal/logging"
	"guestmail/internal/refine"
	"guestmail/internal/signals"
)

const corpusJSON = `[
  {"subject": "Breakfast times", "body": "Breakfast is served on the terrace every morning from 8:00 to 10:30.", "category": "faq", "template_id": "faq-breakfast"}
]`

type testServer struct {
	router *gin.Engine
	audit  *audit.Logger
	sink   *signals.MemorySink
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	corpus := filepath.Join(dir, "email-templates.json")
	require.NoError(t, os.WriteFile(corpus, []byte(corpusJSON), 0o644))

	sink := &signals.MemorySink{}
	auditLog := audit.NewLogger(filepath.Join(dir, "audit.sqlite"))
	h := Handlers{
		Interpreter: interpret.New(interpret.Options{}),
		Generator: generate.New(generate.Options{
			CorpusPath: corpus,
			Sink:       sink,
			Logger:     logging.Discard(),
		}),
		Refiner: refine.New(refine.Options{LLM: &adapters.MockAdapter{}, Sink: sink, Logger: logging.Discard()}),
		Audit:   auditLog,
	}
	return testServer{router: NewRouter(h, logging.Discard()), audit: auditLog, sink: sink}
}

func (s testServer) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(logging.HeaderRequestID))
}

func TestInterpretEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/v1/tools/draft_interpret", `{"body": "Hi, what time is breakfast served?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode[interpret.ActionPlan](t, w)
	assert.Equal(t, "faq", plan.Scenario.Category)
	require.Len(t, plan.Intents.Questions, 1)

	events, err := s.audit.Recent(context.Background(), "draft_interpret", 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActorHTTP, events[0].Actor)
}

func TestInputViolationsAre400(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name, path, body string
	}{
		{"empty body", "/v1/tools/draft_interpret", `{"body": "   "}`},
		{"bad json", "/v1/tools/draft_interpret", `{"body": `},
		{"missing plan", "/v1/tools/draft_generate", `{"subject": "hi"}`},
		{"empty plan text", "/v1/tools/draft_generate", `{"actionPlan": {"normalized_text": ""}}`},
		{"quality without plan", "/v1/tools/draft_quality_check", `{"draft": {"bodyPlain": "x"}}`},
		{"refine without plan", "/v1/tools/draft_refine", `{"draft": {"bodyPlain": "x"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.post(t, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[map[string]string](t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGenerateQualityRefineRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/v1/tools/draft_interpret", `{"body": "Hi, what time is breakfast served?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	planJSON := w.Body.String()

	w = s.post(t, "/v1/tools/draft_generate", `{"actionPlan": `+planJSON+`, "recipientName": "Anna"}`)
	require.Equal(t, http.StatusOK, w.Code)
	gen := decode[generate.Result](t, w)
	require.NotEmpty(t, gen.DraftID)
	assert.Contains(t, gen.Draft.BodyPlain, "Dear Anna,")
	assert.Contains(t, gen.Draft.BodyPlain, "Breakfast is served")
	require.Len(t, s.sink.Selections(), 1)

	draftJSON, err := json.Marshal(gen.Draft)
	require.NoError(t, err)
	w = s.post(t, "/v1/tools/draft_quality_check", `{"actionPlan": `+planJSON+`, "draft": `+string(draftJSON)+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[map[string]any](t, w)
	assert.Equal(t, q["passed"], len(q["failed_checks"].([]any)) == 0)

	w = s.post(t, "/v1/tools/draft_refine", `{"draft_id": "`+gen.DraftID+`", "actionPlan": `+planJSON+`, "draft": `+string(draftJSON)+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	ref := decode[refine.Result](t, w)
	assert.True(t, ref.RefinementApplied)
	assert.Equal(t, "mock", ref.RefinementSource)
	assert.Equal(t, gen.Draft.BodyHTML, ref.Draft.BodyHTML)
	require.Len(t, s.sink.Refinements(), 1)
	assert.Equal(t, gen.DraftID, s.sink.Refinements()[0].DraftID)
}
