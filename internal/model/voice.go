package model

import "time"

type VoiceAssistant struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	ProviderAssistantID string    `db:"provider_assistant_id"`
	ModelProvider       string    `db:"model_provider"`
	Model               string    `db:"model"`
	VoiceProvider       string    `db:"voice_provider"`
	VoiceID             string    `db:"voice_id"`
	SystemPrompt        string    `db:"system_prompt"`
	FirstMessage        string    `db:"first_message"`
	Temperature         float64   `db:"temperature"`
	IsActive            bool      `db:"is_active"`
	IsDefault           bool      `db:"is_default"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// IsLinked reports whether the config exists on the provider side.
func (a *VoiceAssistant) IsLinked() bool {
	return a.ProviderAssistantID != ""
}

type VoiceCall struct {
	ID              string     `db:"id"`
	ProviderCallID  string     `db:"provider_call_id"`
	AssistantID     *string    `db:"assistant_id"`
	CallerNumber    string     `db:"caller_number"`
	CallerName      string     `db:"caller_name"`
	Status          string     `db:"status"`
	StartedAt       *time.Time `db:"started_at"`
	EndedAt         *time.Time `db:"ended_at"`
	DurationSeconds int        `db:"duration_seconds"`
	CostCents       int        `db:"cost_cents"`
	Transcript      string     `db:"transcript"`
	Summary         string     `db:"summary"`
	RecordingURL    string     `db:"recording_url"`
	CreatedAt       time.Time  `db:"created_at"`

	// Joined
	AssistantName *string `db:"assistant_name"`
}

type CallFilter struct {
	AssistantID string
	From        *time.Time
	To          *time.Time
	Search      string
	Limit       int
}

type CallStats struct {
	Count           int   `db:"call_count"`
	DurationSeconds int64 `db:"total_duration"`
	CostCents       int64 `db:"total_cost"`
}
