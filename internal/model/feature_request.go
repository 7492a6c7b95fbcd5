package model

import (
	"encoding/json"
	"slices"
	"time"
)

const (
	RequestPending    = "pending"
	RequestProcessing = "processing"
	RequestBuilding   = "building"
	RequestReview     = "review"
	RequestCompleted  = "completed"
	RequestFailed     = "failed"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RequestStatuses is the pipeline order used for filters.
var RequestStatuses = []string{
	RequestPending, RequestProcessing, RequestBuilding, RequestReview, RequestCompleted, RequestFailed,
}

// requestTransitions lists the statuses each status may move to.
var requestTransitions = map[string][]string{
	RequestPending:    {RequestProcessing, RequestFailed},
	RequestProcessing: {RequestBuilding, RequestFailed},
	RequestBuilding:   {RequestReview, RequestFailed},
	RequestReview:     {RequestCompleted, RequestFailed, RequestPending},
	RequestFailed:     {RequestPending},
	RequestCompleted:  {},
}

func ValidRequestStatus(status string) bool {
	_, ok := requestTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	return slices.Contains(requestTransitions[from], to)
}

type FeatureRequest struct {
	ID           string    `db:"id"`
	RequesterID  *string   `db:"requester_id"`
	Description  string    `db:"description"`
	Status       string    `db:"status"`
	ParentID     *string   `db:"parent_id"`
	RiskLevel    string    `db:"risk_level"`
	RiskSummary  string    `db:"risk_summary"`
	RiskFlags    string    `db:"risk_flags"` // JSON array
	BuildBranch  string    `db:"build_branch"`
	PreviewURL   string    `db:"preview_url"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	// Joined
	RequesterName *string `db:"requester_name"`

	// Computed fields (not in database)
	Attachments []*RequestAttachment `db:"-"`
}

// IsActive reports whether a build is currently running for the request.
func (r *FeatureRequest) IsActive() bool {
	return r.Status == RequestProcessing || r.Status == RequestBuilding
}

func (r *FeatureRequest) IsTerminal() bool {
	return r.Status == RequestCompleted
}

func (r *FeatureRequest) IsFollowUp() bool {
	return r.ParentID != nil && *r.ParentID != ""
}

// Flags decodes the stored risk flags; malformed data yields none.
func (r *FeatureRequest) Flags() []string {
	var flags []string
	if err := json.Unmarshal([]byte(r.RiskFlags), &flags); err != nil {
		return nil
	}
	return flags
}

type RequestEvent struct {
	ID        string    `db:"id"`
	RequestID string    `db:"request_id"`
	Status    string    `db:"status"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

type RequestAttachment struct {
	ID          string    `db:"id"`
	RequestID   string    `db:"request_id"`
	StoragePath string    `db:"storage_path"`
	Filename    string    `db:"filename"`
	MimeType    string    `db:"mime_type"`
	SizeBytes   int64     `db:"size_bytes"`
	CreatedAt   time.Time `db:"created_at"`

	URL string `db:"-"`
}

// RiskAssessment is the stored outcome of reviewing a request before build.
type RiskAssessment struct {
	Level   string   `json:"level"`
	Summary string   `json:"summary"`
	Flags   []string `json:"flags"`
}

// TimelineEntry is one request with its events, newest event first,
// and any follow-up requests nested beneath it.
type TimelineEntry struct {
	Request   *FeatureRequest
	Events    []*RequestEvent
	FollowUps []*TimelineEntry
}

// LatestEventAt returns the time of the newest event, or the request's
// creation time when it has none.
func (e *TimelineEntry) LatestEventAt() time.Time {
	if len(e.Events) > 0 {
		return e.Events[0].CreatedAt
	}
	return e.Request.CreatedAt
}
