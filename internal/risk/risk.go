// Package risk classifies feature requests before they are handed to the
// build worker.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/alpacapps/spaces/internal/model"
)

type Assessor interface {
	Assess(ctx context.Context, description string) (*model.RiskAssessment, error)
}

// New returns a Gemini-backed assessor when apiKey is set, otherwise the
// keyword heuristic.
func New(ctx context.Context, apiKey, modelName string) Assessor {
	if apiKey == "" {
		return Heuristic{}
	}
	g, err := NewGemini(ctx, apiKey, modelName)
	if err != nil {
		slog.Warn("gemini unavailable, using heuristic risk assessment", "error", err)
		return Heuristic{}
	}
	return g
}

var highRisk = []string{
	"auth", "billing", "credential", "delete", "drop", "login", "migration",
	"password", "payment", "permission", "role", "secret", "vault",
}

var mediumRisk = []string{
	"api", "database", "email", "integration", "schema", "sms", "upload", "webhook",
}

// Heuristic flags requests by keyword.
type Heuristic struct{}

func (Heuristic) Assess(_ context.Context, description string) (*model.RiskAssessment, error) {
	text := strings.ToLower(description)

	var high, medium []string
	for _, kw := range highRisk {
		if strings.Contains(text, kw) {
			high = append(high, kw)
		}
	}
	for _, kw := range mediumRisk {
		if strings.Contains(text, kw) {
			medium = append(medium, kw)
		}
	}

	flags := append(append([]string{}, high...), medium...)
	sort.Strings(flags)

	switch {
	case len(high) > 0:
		return &model.RiskAssessment{
			Level:   model.RiskHigh,
			Summary: "Touches sensitive areas: " + strings.Join(high, ", "),
			Flags:   flags,
		}, nil
	case len(medium) > 0:
		return &model.RiskAssessment{
			Level:   model.RiskMedium,
			Summary: "Involves data or external integrations: " + strings.Join(medium, ", "),
			Flags:   flags,
		}, nil
	default:
		return &model.RiskAssessment{
			Level:   model.RiskLow,
			Summary: "Presentation or content change",
			Flags:   []string{},
		}, nil
	}
}

const instructions = `You review change requests for an internal property-management admin app before an automated builder implements them.
Classify the risk of the request. Respond with JSON only:
{"level": "low" | "medium" | "high", "summary": "<one sentence>", "flags": ["<short tag>", ...]}
High: authentication, permissions, payments, deleting data, schema changes, secrets.
Medium: new integrations, email/SMS, uploads, database writes.
Low: copy, layout, styling, read-only views.`

type Gemini struct {
	client   *genai.Client
	model    string
	fallback Heuristic
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: modelName}, nil
}

// Assess asks the model and falls back to the heuristic on any failure,
// so a request is never left unassessed.
func (g *Gemini) Assess(ctx context.Context, description string) (*model.RiskAssessment, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(description, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.1),
		},
	)
	if err != nil {
		slog.Warn("gemini risk assessment failed, using heuristic", "error", err)
		return g.fallback.Assess(ctx, description)
	}

	assessment, err := parseAssessment(resp.Text())
	if err != nil {
		slog.Warn("gemini returned unusable assessment, using heuristic", "error", err)
		return g.fallback.Assess(ctx, description)
	}
	return assessment, nil
}

func parseAssessment(text string) (*model.RiskAssessment, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var a model.RiskAssessment
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}

	a.Level = strings.ToLower(strings.TrimSpace(a.Level))
	switch a.Level {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		return nil, fmt.Errorf("unknown risk level %q", a.Level)
	}
	if a.Flags == nil {
		a.Flags = []string{}
	}
	return &a, nil
}
