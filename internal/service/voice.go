package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/markdown"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/validation"
	"github.com/alpacapps/spaces/internal/voice"
)

const (
	defaultModelProvider = "openai"
	defaultModel         = "gpt-4o-mini"
	defaultVoiceProvider = "11labs"
	syncPageSize         = 100
	defaultCallLimit     = 200
)

var (
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 2")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)

type AssistantInput struct {
	ID            string
	Name          string
	ModelProvider string
	Model         string
	VoiceProvider string
	VoiceID       string
	SystemPrompt  string
	FirstMessage  string
	Temperature   float64
}

type CallPage struct {
	Calls      []*model.VoiceCall
	Stats      *model.CallStats
	Assistants []*model.VoiceAssistant
}

// TranscriptLine is one speaker turn of a call transcript.
type TranscriptLine struct {
	Speaker string
	Text    string
}

type CallDetail struct {
	Call       *model.VoiceCall
	Summary    template.HTML
	Transcript []TranscriptLine
}

type VoiceService struct {
	assistantRepository repository.AssistantRepository
	callRepository      repository.CallRepository
	client              *voice.Client
	markdown            *markdown.Renderer
	webhookSecret       string
}

func NewVoiceService(
	assistantRepository repository.AssistantRepository,
	callRepository repository.CallRepository,
	client *voice.Client,
	md *markdown.Renderer,
	webhookSecret string,
) *VoiceService {
	return &VoiceService{
		assistantRepository: assistantRepository,
		callRepository:      callRepository,
		client:              client,
		markdown:            md,
		webhookSecret:       webhookSecret,
	}
}

// Configured reports whether a provider API key is set.
func (s *VoiceService) Configured() bool {
	return s.client.Configured()
}

func (s *VoiceService) Assistants() ([]*model.VoiceAssistant, error) {
	return s.assistantRepository.List()
}

func (s *VoiceService) Assistant(id string) (*model.VoiceAssistant, error) {
	return s.assistantRepository.ByID(id)
}

func (s *VoiceService) SaveAssistant(input AssistantInput) (*model.VoiceAssistant, error) {
	name := strings.TrimSpace(input.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if input.Temperature < 0 || input.Temperature > 2 {
		return nil, ErrInvalidTemperature
	}

	now := time.Now()
	a := &model.VoiceAssistant{IsActive: true, CreatedAt: now}
	if input.ID != "" {
		existing, err := s.assistantRepository.ByID(input.ID)
		if err != nil {
			return nil, err
		}
		a = existing
	}

	a.Name = name
	a.ModelProvider = orDefault(input.ModelProvider, defaultModelProvider)
	a.Model = orDefault(input.Model, defaultModel)
	a.VoiceProvider = orDefault(input.VoiceProvider, defaultVoiceProvider)
	a.VoiceID = strings.TrimSpace(input.VoiceID)
	a.SystemPrompt = strings.TrimSpace(input.SystemPrompt)
	a.FirstMessage = strings.TrimSpace(input.FirstMessage)
	a.Temperature = input.Temperature
	a.UpdatedAt = now

	if input.ID != "" {
		if err := s.assistantRepository.Update(a); err != nil {
			return nil, fmt.Errorf("failed to update assistant: %w", err)
		}
		return a, nil
	}

	a.ID = uuid.New().String()
	if err := s.assistantRepository.Create(a); err != nil {
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}
	slog.Info("voice assistant created", "assistant_id", a.ID, "name", a.Name)
	return a, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// ImportPrompt creates an assistant from a markdown prompt file with
// YAML frontmatter.
func (s *VoiceService) ImportPrompt(source []byte) (*model.VoiceAssistant, error) {
	prompt, err := s.markdown.ParsePrompt(source)
	if err != nil {
		return nil, err
	}
	return s.SaveAssistant(AssistantInput{
		Name:          prompt.Name,
		ModelProvider: prompt.ModelProvider,
		Model:         prompt.Model,
		VoiceProvider: prompt.VoiceProvider,
		VoiceID:       prompt.Voice,
		SystemPrompt:  prompt.Body,
		FirstMessage:  prompt.FirstMessage,
		Temperature:   prompt.Temperature,
	})
}

// Activate flips an assistant between active and inactive.
func (s *VoiceService) Activate(id string) (*model.VoiceAssistant, error) {
	a, err := s.assistantRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.assistantRepository.SetActive(id, !a.IsActive); err != nil {
		return nil, err
	}
	a.IsActive = !a.IsActive
	return a, nil
}

func (s *VoiceService) SetDefault(id string) error {
	if err := s.assistantRepository.SetDefault(id); err != nil {
		return err
	}
	slog.Info("voice assistant set as default", "assistant_id", id)
	return nil
}

func (s *VoiceService) DeleteAssistant(id string) error {
	return s.assistantRepository.Delete(id)
}

// Push sends the stored config to the provider, creating the remote
// assistant on first push.
func (s *VoiceService) Push(ctx context.Context, id string) (*model.VoiceAssistant, error) {
	if !s.client.Configured() {
		return nil, voice.ErrNotConfigured
	}
	a, err := s.assistantRepository.ByID(id)
	if err != nil {
		return nil, err
	}

	cfg := voice.AssistantConfig{
		Name:         a.Name,
		FirstMessage: a.FirstMessage,
		Model: voice.ModelConfig{
			Provider:    a.ModelProvider,
			Model:       a.Model,
			Temperature: a.Temperature,
			Messages:    []voice.Message{{Role: "system", Content: a.SystemPrompt}},
		},
	}
	if a.VoiceID != "" {
		cfg.Voice = &voice.VoiceRef{Provider: a.VoiceProvider, VoiceID: a.VoiceID}
	}

	if a.IsLinked() {
		if err := s.client.UpdateAssistant(ctx, a.ProviderAssistantID, cfg); err != nil {
			return nil, fmt.Errorf("failed to push assistant: %w", err)
		}
		slog.Info("voice assistant pushed", "assistant_id", a.ID, "provider_id", a.ProviderAssistantID)
		return a, nil
	}

	providerID, err := s.client.CreateAssistant(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote assistant: %w", err)
	}
	a.ProviderAssistantID = providerID
	if err := s.assistantRepository.Update(a); err != nil {
		return nil, fmt.Errorf("failed to link assistant: %w", err)
	}
	slog.Info("voice assistant linked", "assistant_id", a.ID, "provider_id", providerID)
	return a, nil
}

// Calls loads the call log, its totals and the assistant filter list in parallel.
func (s *VoiceService) Calls(filter model.CallFilter) (*CallPage, error) {
	if filter.Limit == 0 {
		filter.Limit = defaultCallLimit
	}
	page := &CallPage{}

	var g errgroup.Group
	g.Go(func() error {
		calls, err := s.callRepository.List(filter)
		page.Calls = calls
		return err
	})
	g.Go(func() error {
		stats, err := s.callRepository.Stats(filter)
		page.Stats = stats
		return err
	})
	g.Go(func() error {
		assistants, err := s.assistantRepository.List()
		page.Assistants = assistants
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load calls: %w", err)
	}
	return page, nil
}

func (s *VoiceService) Call(id string) (*CallDetail, error) {
	call, err := s.callRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	summary, err := s.markdown.Render(call.Summary)
	if err != nil {
		slog.Warn("failed to render call summary", "call_id", id, "error", err)
		summary = template.HTML(template.HTMLEscapeString(call.Summary)) // #nosec G203
	}
	return &CallDetail{
		Call:       call,
		Summary:    summary,
		Transcript: SplitTranscript(call.Transcript),
	}, nil
}

// SplitTranscript breaks "Speaker: text" lines into turns. Lines without
// a speaker prefix continue the previous turn.
func SplitTranscript(transcript string) []TranscriptLine {
	var lines []TranscriptLine
	for _, raw := range strings.Split(transcript, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		speaker, text, ok := strings.Cut(raw, ":")
		if ok && speaker != "" && len(speaker) <= 20 && !strings.Contains(speaker, " ") {
			lines = append(lines, TranscriptLine{Speaker: speaker, Text: strings.TrimSpace(text)})
			continue
		}
		if len(lines) == 0 {
			lines = append(lines, TranscriptLine{Text: raw})
			continue
		}
		last := &lines[len(lines)-1]
		last.Text += " " + raw
	}
	return lines
}

// SyncCalls pulls calls created after since and upserts them.
func (s *VoiceService) SyncCalls(ctx context.Context, since time.Time) (int, error) {
	if !s.client.Configured() {
		return 0, voice.ErrNotConfigured
	}
	calls, err := s.client.ListCalls(ctx, since, syncPageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list provider calls: %w", err)
	}

	for i := range calls {
		if err := s.upsertCall(&calls[i]); err != nil {
			return i, err
		}
	}
	slog.Info("voice calls synced", "count", len(calls), "since", since)
	return len(calls), nil
}

func (s *VoiceService) upsertCall(c *voice.Call) error {
	call := &model.VoiceCall{
		ID:              uuid.New().String(),
		ProviderCallID:  c.ID,
		CallerNumber:    c.Customer.Number,
		CallerName:      c.Customer.Name,
		Status:          c.Status,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSeconds: c.DurationSeconds(),
		CostCents:       c.CostCents(),
		Transcript:      c.TranscriptText(),
		Summary:         c.SummaryText(),
		RecordingURL:    c.Recording(),
		CreatedAt:       time.Now(),
	}

	if c.AssistantID != "" {
		a, err := s.assistantRepository.ByProviderID(c.AssistantID)
		switch {
		case err == nil:
			call.AssistantID = &a.ID
		case !errors.Is(err, repository.ErrAssistantNotFound):
			return fmt.Errorf("failed to match assistant: %w", err)
		}
	}

	if err := s.callRepository.Upsert(call); err != nil {
		return fmt.Errorf("failed to store call %s: %w", c.ID, err)
	}
	return nil
}

// HandleWebhook verifies a Standard Webhooks signed delivery and stores
// end-of-call reports. Other event types are acknowledged and ignored.
// Without a configured secret every delivery is rejected.
func (s *VoiceService) HandleWebhook(payload []byte, headers http.Header) error {
	if s.webhookSecret == "" {
		return fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	wh, err := standardwebhooks.NewWebhookRaw([]byte(s.webhookSecret))
	if err != nil {
		return fmt.Errorf("failed to create webhook verifier: %w", err)
	}
	if err := wh.Verify(payload, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event, err := voice.ParseEvent(payload)
	if err != nil {
		return err
	}

	slog.Info("voice webhook received", "event_type", event.Type, "call_id", event.Call.ID)
	if event.Type != voice.EventEndOfCallReport {
		return nil
	}
	if event.Call.ID == "" {
		return fmt.Errorf("%w: end-of-call report without call id", voice.ErrMalformedEvent)
	}
	return s.upsertCall(&event.Call)
}
