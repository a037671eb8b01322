package signals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const selectionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["event", "ts", "draft_id", "selection", "confidence", "candidates"],
  "properties": {
    "event": { "const": "selection" },
    "ts": { "type": "string", "format": "date-time" },
    "draft_id": { "type": "string", "minLength": 1 },
    "category": { "type": "string" },
    "language": { "type": "string" },
    "selection": { "enum": ["auto", "manual", "none"] },
    "template_id": { "type": "string" },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
    "candidates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["template_key", "confidence"],
        "properties": {
          "template_key": { "type": "string" },
          "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
        }
      }
    },
    "composite": { "type": "boolean" },
    "question_count": { "type": "integer", "minimum": 0 },
    "quality_passed": { "type": "boolean" },
    "failed_checks": { "type": "array", "items": { "type": "string" } },
    "review_tier": { "type": "string" }
  }
}`

const refinementSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["event", "ts", "draft_id", "refinement_applied", "refinement_source", "edit_distance_pct"],
  "properties": {
    "event": { "const": "refinement" },
    "ts": { "type": "string", "format": "date-time" },
    "draft_id": { "type": "string", "minLength": 1 },
    "refinement_applied": { "type": "boolean" },
    "refinement_source": { "type": "string", "minLength": 1 },
    "original_body_plain": { "type": "string" },
    "refined_body_plain": { "type": "string" },
    "edit_distance_pct": { "type": "number", "minimum": 0, "maximum": 1 }
  }
}`

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compiledSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		out := make(map[string]*jsonschema.Schema, 2)
		for kind, doc := range map[string]string{
			KindSelection:  selectionSchema,
			KindRefinement: refinementSchema,
		} {
			c := jsonschema.NewCompiler()
			c.Draft = jsonschema.Draft2020
			c.AssertFormat = true
			url := fmt.Sprintf("https://guestmail.local/signals/%s.schema.json", kind)
			if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
				schemasErr = fmt.Errorf("load %s schema: %w", kind, err)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s schema: %w", kind, err)
				return
			}
			out[kind] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// decodeLine validates one log line against the schema selected by its
// "event" field and decodes it into the matching event type.
func decodeLine(line []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("line is not an object")
	}
	kind, _ := obj["event"].(string)

	all, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	schema, ok := all[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", kind)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	switch kind {
	case KindSelection:
		var ev SelectionEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode selection: %w", err)
		}
		return ev, nil
	default:
		var ev RefinementEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode refinement: %w", err)
		}
		return ev, nil
	}
}

// encodeEvent marshals ev and checks it against its schema so that only
// readable lines are ever written.
func encodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	if _, err := decodeLine(data); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", ev.Kind(), err)
	}
	return data, nil
}
