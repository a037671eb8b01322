package generate

import (
	"errors"
	"log/slog"

	"guestmail/internal/coverage"
	"guestmail/internal/knowledge"
)

// KnowledgeSource is a resource consulted for a draft.
type KnowledgeSource struct {
	URI        string `json:"uri"`
	Summary    string `json:"summary"`
	Injectable bool   `json:"injectable"`
}

type loadedSource struct {
	uri      string
	snippets []string
}

// resolveSources reads the resources for a category. Missing resources are
// skipped; read failures are logged and skipped.
func resolveSources(store *knowledge.Store, category string, logger *slog.Logger) ([]KnowledgeSource, []loadedSource) {
	sources := []KnowledgeSource{}
	if store == nil {
		return sources, nil
	}
	var loaded []loadedSource
	for _, uri := range knowledge.URIsForCategory(category) {
		res, err := store.Read(uri)
		if err != nil {
			if !errors.Is(err, knowledge.ErrNotFound) {
				logger.Warn("knowledge resource unavailable", "uri", uri, "error", err.Error())
			}
			continue
		}
		sources = append(sources, KnowledgeSource{
			URI:        uri,
			Summary:    knowledge.Summarize(res),
			Injectable: knowledge.IsInjectable(uri),
		})
		if knowledge.IsInjectable(uri) {
			loaded = append(loaded, loadedSource{uri: uri, snippets: knowledge.Snippets(res)})
		}
	}
	return sources, loaded
}

type gapFill struct {
	question string
	snippet  string
	uri      string
}

// fillGaps finds, for every question the body leaves missing, the snippet
// that covers it with the most matched keywords. Ties go to the earlier
// source and snippet. Snippets carrying a prohibited phrase are never used.
func fillGaps(body string, questions []string, loaded []loadedSource, prohibited []string) []gapFill {
	if len(questions) == 0 || len(loaded) == 0 {
		return nil
	}
	var fills []gapFill
	used := map[string]struct{}{}
	for _, qc := range coverage.Evaluate(body, coverage.Questions(questions...)) {
		if qc.Status != coverage.StatusMissing {
			continue
		}
		var best *gapFill
		bestMatched := 0
		for _, src := range loaded {
			if !knowledge.IsInjectable(src.uri) {
				continue
			}
			for _, snippet := range src.snippets {
				if _, ok := used[snippet]; ok {
					continue
				}
				if containsProhibited(snippet, prohibited) {
					continue
				}
				sc := coverage.Evaluate(snippet, coverage.Questions(qc.Question))[0]
				if sc.Status != coverage.StatusCovered || len(sc.MatchedKeywords) <= bestMatched {
					continue
				}
				bestMatched = len(sc.MatchedKeywords)
				best = &gapFill{question: qc.Question, snippet: snippet, uri: src.uri}
			}
		}
		if best != nil {
			used[best.snippet] = struct{}{}
			fills = append(fills, *best)
		}
	}
	return fills
}
