package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alpacapps/spaces/internal/db"
	"github.com/alpacapps/spaces/internal/model"
)

var (
	ErrFeatureRequestNotFound = errors.New("feature request not found")
)

type FeatureRequestRepository interface {
	// Create stores the request together with its first timeline event and
	// attachment rows in one transaction.
	Create(req *model.FeatureRequest, event *model.RequestEvent, atts []*model.RequestAttachment) error
	ByID(id string) (*model.FeatureRequest, error)
	List(status string, limit int) ([]*model.FeatureRequest, error)
	// Transition saves the request's status fields and appends event.
	Transition(req *model.FeatureRequest, event *model.RequestEvent) error
	SetRisk(id string, risk *model.RiskAssessment) error

	EventsFor(requestIDs []string) ([]*model.RequestEvent, error)
	AttachmentsFor(requestIDs []string) (map[string][]*model.RequestAttachment, error)
}

type featureRequestRepository struct {
	db *sqlx.DB
}

func NewFeatureRequestRepository(db *sqlx.DB) FeatureRequestRepository {
	return &featureRequestRepository{db: db}
}

const requestSelect = `SELECT r.*, COALESCE(NULLIF(u.display_name, ''), u.email) AS requester_name
	FROM feature_requests r
	LEFT JOIN app_users u ON u.id = r.requester_id`

func insertEvent(tx *sqlx.Tx, event *model.RequestEvent) error {
	_, err := exec(tx, `INSERT INTO feature_request_events (id, request_id, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.RequestID, event.Status, event.Message, event.CreatedAt)
	return err
}

func insertAttachment(tx *sqlx.Tx, att *model.RequestAttachment) error {
	_, err := exec(tx, `INSERT INTO feature_request_attachments (id, request_id, storage_path, filename, mime_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		att.ID, att.RequestID, att.StoragePath, att.Filename, att.MimeType, att.SizeBytes, att.CreatedAt)
	return err
}

func (r *featureRequestRepository) Create(req *model.FeatureRequest, event *model.RequestEvent, atts []*model.RequestAttachment) error {
	query := `INSERT INTO feature_requests
	          (id, requester_id, description, status, parent_id, risk_level, risk_summary, risk_flags,
	           build_branch, preview_url, error_message, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if req.RiskFlags == "" {
		req.RiskFlags = "[]"
	}

	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		_, err := exec(tx, query,
			req.ID,
			req.RequesterID,
			req.Description,
			req.Status,
			req.ParentID,
			req.RiskLevel,
			req.RiskSummary,
			req.RiskFlags,
			req.BuildBranch,
			req.PreviewURL,
			req.ErrorMessage,
			req.CreatedAt,
			req.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if err := insertEvent(tx, event); err != nil {
			return err
		}
		for _, att := range atts {
			if err := insertAttachment(tx, att); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *featureRequestRepository) ByID(id string) (*model.FeatureRequest, error) {
	req := &model.FeatureRequest{}
	err := getOne(r.db, req, requestSelect+` WHERE r.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrFeatureRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *featureRequestRepository) List(status string, limit int) ([]*model.FeatureRequest, error) {
	w := &where{}
	if status != "" {
		w.add("r.status = " + w.arg(status))
	}
	query := requestSelect + w.String() + ` ORDER BY r.created_at DESC, r.id DESC`
	if limit > 0 {
		query += ` LIMIT ` + w.arg(limit)
	}

	var reqs []*model.FeatureRequest
	err := selectAll(r.db, &reqs, query, w.args...)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *featureRequestRepository) Transition(req *model.FeatureRequest, event *model.RequestEvent) error {
	return db.InTx(r.db, func(tx *sqlx.Tx) error {
		result, err := exec(tx, `UPDATE feature_requests
			SET status = $1, build_branch = $2, preview_url = $3, error_message = $4, updated_at = $5
			WHERE id = $6`,
			req.Status, req.BuildBranch, req.PreviewURL, req.ErrorMessage, req.UpdatedAt, req.ID)
		if err != nil {
			return err
		}
		if err := requireRow(result, ErrFeatureRequestNotFound); err != nil {
			return err
		}
		return insertEvent(tx, event)
	})
}

func (r *featureRequestRepository) SetRisk(id string, risk *model.RiskAssessment) error {
	flags := risk.Flags
	if flags == nil {
		flags = []string{}
	}
	encoded, err := json.Marshal(flags)
	if err != nil {
		return err
	}

	result, err := exec(r.db, `UPDATE feature_requests SET risk_level = $1, risk_summary = $2, risk_flags = $3, updated_at = $4 WHERE id = $5`,
		risk.Level, risk.Summary, string(encoded), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrFeatureRequestNotFound)
}

// EventsFor returns events of the given requests, oldest first.
func (r *featureRequestRepository) EventsFor(requestIDs []string) ([]*model.RequestEvent, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}

	w := &where{}
	query := `SELECT * FROM feature_request_events WHERE request_id IN ` + w.in(requestIDs) + ` ORDER BY created_at ASC, id ASC`

	var events []*model.RequestEvent
	err := selectAll(r.db, &events, query, w.args...)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *featureRequestRepository) AttachmentsFor(requestIDs []string) (map[string][]*model.RequestAttachment, error) {
	out := make(map[string][]*model.RequestAttachment, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	w := &where{}
	query := `SELECT * FROM feature_request_attachments WHERE request_id IN ` + w.in(requestIDs) + ` ORDER BY created_at ASC`

	var atts []*model.RequestAttachment
	if err := selectAll(r.db, &atts, query, w.args...); err != nil {
		return nil, err
	}
	for _, att := range atts {
		out[att.RequestID] = append(out[att.RequestID], att)
	}
	return out, nil
}
