package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrAssistantNotFound = errors.New("voice assistant not found")
	ErrCallNotFound      = errors.New("voice call not found")
)

type AssistantRepository interface {
	Create(a *model.VoiceAssistant) error
	ByID(id string) (*model.VoiceAssistant, error)
	ByProviderID(providerID string) (*model.VoiceAssistant, error)
	List() ([]*model.VoiceAssistant, error)
	Update(a *model.VoiceAssistant) error
	SetActive(id string, active bool) error
	SetDefault(id string) error
	Delete(id string) error
}

type assistantRepository struct {
	db *sqlx.DB
}

func NewAssistantRepository(db *sqlx.DB) AssistantRepository {
	return &assistantRepository{db: db}
}

func (r *assistantRepository) Create(a *model.VoiceAssistant) error {
	query := `INSERT INTO voice_assistants
	          (id, name, provider_assistant_id, model_provider, model, voice_provider, voice_id, system_prompt,
	           first_message, temperature, is_active, is_default, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := exec(r.db, query,
		a.ID,
		a.Name,
		a.ProviderAssistantID,
		a.ModelProvider,
		a.Model,
		a.VoiceProvider,
		a.VoiceID,
		a.SystemPrompt,
		a.FirstMessage,
		a.Temperature,
		a.IsActive,
		a.IsDefault,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *assistantRepository) get(query string, args ...any) (*model.VoiceAssistant, error) {
	a := &model.VoiceAssistant{}
	err := getOne(r.db, a, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrAssistantNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assistantRepository) ByID(id string) (*model.VoiceAssistant, error) {
	return r.get(`SELECT * FROM voice_assistants WHERE id = $1`, id)
}

func (r *assistantRepository) ByProviderID(providerID string) (*model.VoiceAssistant, error) {
	return r.get(`SELECT * FROM voice_assistants WHERE provider_assistant_id = $1 AND provider_assistant_id != ''`, providerID)
}

// List returns the default assistant first, then active ones, then by name.
func (r *assistantRepository) List() ([]*model.VoiceAssistant, error) {
	var assistants []*model.VoiceAssistant
	err := selectAll(r.db, &assistants, `SELECT * FROM voice_assistants
		ORDER BY is_default DESC, is_active DESC, LOWER(name) ASC`)
	if err != nil {
		return nil, err
	}
	return assistants, nil
}

func (r *assistantRepository) Update(a *model.VoiceAssistant) error {
	query := `UPDATE voice_assistants
	          SET name = $1, provider_assistant_id = $2, model_provider = $3, model = $4, voice_provider = $5,
	              voice_id = $6, system_prompt = $7, first_message = $8, temperature = $9, updated_at = $10
	          WHERE id = $11`

	result, err := exec(r.db, query,
		a.Name,
		a.ProviderAssistantID,
		a.ModelProvider,
		a.Model,
		a.VoiceProvider,
		a.VoiceID,
		a.SystemPrompt,
		a.FirstMessage,
		a.Temperature,
		time.Now(),
		a.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrAssistantNotFound)
}

func (r *assistantRepository) SetActive(id string, active bool) error {
	result, err := exec(r.db, `UPDATE voice_assistants SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrAssistantNotFound)
}

// SetDefault marks id as the only default assistant.
func (r *assistantRepository) SetDefault(id string) error {
	now := time.Now()
	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		if _, err := exec(tx, `UPDATE voice_assistants SET is_default = $1, updated_at = $2 WHERE is_default = $3`, false, now, true); err != nil {
			return err
		}
		result, err := exec(tx, `UPDATE voice_assistants SET is_default = $1, updated_at = $2 WHERE id = $3`, true, now, id)
		if err != nil {
			return err
		}
		return requireRow(result, ErrAssistantNotFound)
	})
}

func (r *assistantRepository) Delete(id string) error {
	result, err := exec(r.db, `DELETE FROM voice_assistants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrAssistantNotFound)
}

type CallRepository interface {
	Upsert(call *model.VoiceCall) error
	ByID(id string) (*model.VoiceCall, error)
	List(filter model.CallFilter) ([]*model.VoiceCall, error)
	Stats(filter model.CallFilter) (*model.CallStats, error)
}

type callRepository struct {
	db *sqlx.DB
}

func NewCallRepository(db *sqlx.DB) CallRepository {
	return &callRepository{db: db}
}

// Upsert inserts the call or refreshes the row with the same provider_call_id.
// The local id and created_at of an existing row are kept.
func (r *callRepository) Upsert(call *model.VoiceCall) error {
	query := `INSERT INTO voice_calls
	          (id, provider_call_id, assistant_id, caller_number, caller_name, status, started_at, ended_at,
	           duration_seconds, cost_cents, transcript, summary, recording_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          ON CONFLICT (provider_call_id) DO UPDATE SET
	              assistant_id = excluded.assistant_id,
	              caller_number = excluded.caller_number,
	              caller_name = excluded.caller_name,
	              status = excluded.status,
	              started_at = excluded.started_at,
	              ended_at = excluded.ended_at,
	              duration_seconds = excluded.duration_seconds,
	              cost_cents = excluded.cost_cents,
	              transcript = excluded.transcript,
	              summary = excluded.summary,
	              recording_url = excluded.recording_url`

	_, err := exec(r.db, query,
		call.ID,
		call.ProviderCallID,
		call.AssistantID,
		call.CallerNumber,
		call.CallerName,
		call.Status,
		call.StartedAt,
		call.EndedAt,
		call.DurationSeconds,
		call.CostCents,
		call.Transcript,
		call.Summary,
		call.RecordingURL,
		call.CreatedAt,
	)
	return err
}

const callSelect = `SELECT c.*, a.name AS assistant_name
	FROM voice_calls c
	LEFT JOIN voice_assistants a ON a.id = c.assistant_id`

func (r *callRepository) ByID(id string) (*model.VoiceCall, error) {
	call := &model.VoiceCall{}
	err := getOne(r.db, call, callSelect+` WHERE c.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

func callWhere(filter model.CallFilter) *where {
	w := &where{}
	if filter.AssistantID != "" {
		w.add("c.assistant_id = " + w.arg(filter.AssistantID))
	}
	if filter.From != nil {
		w.add("c.started_at >= " + w.arg(*filter.From))
	}
	if filter.To != nil {
		w.add("c.started_at < " + w.arg(*filter.To))
	}
	if filter.Search != "" {
		p := w.like(filter.Search)
		w.add("(LOWER(c.transcript) LIKE " + p + " OR LOWER(c.summary) LIKE " + p +
			" OR LOWER(c.caller_name) LIKE " + p + " OR c.caller_number LIKE " + p + ")")
	}
	return w
}

// List returns calls newest first; calls without a start time sort by creation.
func (r *callRepository) List(filter model.CallFilter) ([]*model.VoiceCall, error) {
	w := callWhere(filter)
	query := callSelect + w.String() + ` ORDER BY COALESCE(c.started_at, c.created_at) DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit)
	}

	var calls []*model.VoiceCall
	err := selectAll(r.db, &calls, query, w.args...)
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *callRepository) Stats(filter model.CallFilter) (*model.CallStats, error) {
	w := callWhere(filter)
	stats := &model.CallStats{}
	err := getOne(r.db, stats, `SELECT COUNT(*) AS call_count,
		COALESCE(SUM(c.duration_seconds), 0) AS total_duration,
		COALESCE(SUM(c.cost_cents), 0) AS total_cost
		FROM voice_calls c`+w.String(), w.args...)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
