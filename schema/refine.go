package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// SMART REFINE: Model-assisted profile enrichment (one call per dataset)
// ============================================================================
//
// Profile works from heuristics only. Refine sends the column metadata it
// produced (names, kinds, roles, a few samples) to the model and merges
// back human descriptions and units. Row data beyond the samples is never
// sent. Roles, kinds and column order are never changed by the model.
// ============================================================================

const (
	refineTemperature = 0.2
	refineMaxTokens   = 800
	refineSamples     = 5
)

const refineSystem = "You are a data analyst who documents datasets."

// Refine returns a copy of draft enriched with the model's descriptions.
// On failure draft is returned unchanged together with the error.
func Refine(ctx context.Context, p llm.Provider, draft Config, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	prompt, err := buildRefinePrompt(draft)
	if err != nil {
		return draft, err
	}
	logger.Debug("refining profile", "dataset", draft.Name, "columns", len(draft.Columns), "bytes", len(prompt))

	reply, err := p.Complete(ctx, llm.Request{
		System:      refineSystem,
		User:        prompt,
		Temperature: refineTemperature,
		MaxTokens:   refineMaxTokens,
	})
	if err != nil {
		logger.Warn("profile refine failed", "dataset", draft.Name, "error", err)
		return draft, fmt.Errorf("refine %s: %w", draft.Name, err)
	}

	enrichment, err := parseRefineResponse(reply)
	if err != nil {
		logger.Warn("profile refine reply unusable", "dataset", draft.Name, "error", err)
		return draft, fmt.Errorf("refine %s: %w", draft.Name, err)
	}

	refined := applyEnrichments(draft, enrichment)
	logger.Info("profile refined", "dataset", draft.Name, "described", countDescribed(refined))
	return refined, nil
}

// ============================================================================
// PAYLOAD BUILDER: What the model sees
// ============================================================================

type refinePayload struct {
	Dataset string         `json:"dataset"`
	Rows    int            `json:"rows"`
	Columns []refineColumn `json:"columns"`
}

type refineColumn struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Role     Role     `json:"role"`
	Distinct int      `json:"distinct"`
	Nulls    int      `json:"nulls,omitempty"`
	Samples  []string `json:"samples,omitempty"`
	Temporal bool     `json:"temporal,omitempty"`
}

func buildRefinePayload(draft Config) refinePayload {
	p := refinePayload{Dataset: draft.Name, Rows: draft.Rows}
	for _, c := range draft.Columns {
		p.Columns = append(p.Columns, refineColumn{
			Name:     c.Name,
			Kind:     c.Kind,
			Role:     c.Role,
			Distinct: c.Distinct,
			Nulls:    c.Nulls,
			Samples:  limitSamples(c.SampleValues, refineSamples),
			Temporal: c.IsTemporal,
		})
	}
	return p
}

// ============================================================================
// PROMPT BUILDER
// ============================================================================

func buildRefinePrompt(draft Config) (string, error) {
	payload, err := json.MarshalIndent(buildRefinePayload(draft), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode refine payload: %w", err)
	}

	return fmt.Sprintf(`Based on the column metadata below, describe this dataset.

COLUMN METADATA:
%s

INSTRUCTIONS:
1. Write a one-line description of what the dataset contains.
2. For each column give:
   - displayName: a human-friendly label ("Patient_Number" -> "Patient Number")
   - description: what the column means in the domain, in a few words
   - unit: for numeric columns the unit of measure ("years", "steps", "kg", ...), otherwise ""

Respond with ONLY valid JSON:
{
  "description": "...",
  "columns": [
    {"name": "column name", "displayName": "...", "description": "...", "unit": ""}
  ]
}`, payload), nil
}

// ============================================================================
// RESPONSE PARSER
// ============================================================================

type refineEnrichment struct {
	Description string             `json:"description"`
	Columns     []columnEnrichment `json:"columns"`
}

type columnEnrichment struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

func parseRefineResponse(reply string) (*refineEnrichment, error) {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, "```") {
		reply = strings.TrimPrefix(reply, "```json")
		reply = strings.TrimPrefix(reply, "```")
		reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")
		reply = strings.TrimSpace(reply)
	}

	var result refineEnrichment
	if err := json.Unmarshal([]byte(reply), &result); err != nil {
		return nil, fmt.Errorf("failed to parse refine response: %w (response: %.300s)", err, reply)
	}
	return &result, nil
}

// ============================================================================
// APPLY ENRICHMENTS: Merge model suggestions into the profile
// ============================================================================

// applyEnrichments copies draft and fills in descriptive fields. Columns the
// model names that do not exist are ignored; units are kept only on
// numeric columns.
func applyEnrichments(draft Config, e *refineEnrichment) Config {
	result := draft
	result.Columns = make([]ColumnMeta, len(draft.Columns))
	for i, c := range draft.Columns {
		c.SampleValues = append([]string(nil), c.SampleValues...)
		result.Columns[i] = c
	}

	if d := strings.TrimSpace(e.Description); d != "" {
		result.Description = d
	}

	byName := make(map[string]columnEnrichment, len(e.Columns))
	for _, c := range e.Columns {
		byName[c.Name] = c
	}
	for i := range result.Columns {
		c := &result.Columns[i]
		ce, ok := byName[c.Name]
		if !ok {
			continue
		}
		if ce.DisplayName != "" {
			c.DisplayName = ce.DisplayName
		}
		if ce.Description != "" {
			c.Description = ce.Description
		}
		if k := table.ParseKind(c.Kind); ce.Unit != "" && (k == table.KindInt || k == table.KindFloat) {
			c.Unit = ce.Unit
		}
	}

	result.RefinedAt = time.Now().UTC().Format(time.RFC3339)
	return result
}

// ============================================================================
// HELPERS
// ============================================================================

func limitSamples(vals []string, max int) []string {
	if len(vals) <= max {
		return vals
	}
	return vals[:max]
}

func countDescribed(c Config) int {
	n := 0
	for _, col := range c.Columns {
		if col.Description != "" {
			n++
		}
	}
	return n
}
