package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/repository"
	"github.com/alpacapps/spaces/internal/risk"
	"github.com/alpacapps/spaces/internal/storage"
)

// MinDescriptionLength is the shortest request description accepted, in
// characters after trimming.
const MinDescriptionLength = 10

const (
	consoleLimit     = 100
	attachmentPrefix = "private/appdev"
	cancelledMessage = "cancelled"
	submittedMessage = "Request submitted"
	followUpMessage  = "Follow-up submitted"
)

var (
	ErrDescriptionTooShort = fmt.Errorf("description must be at least %d characters", MinDescriptionLength)
	ErrParentNotFound      = errors.New("parent request not found")
	ErrInvalidStatus       = errors.New("invalid request status")
	ErrInvalidTransition   = errors.New("status change not allowed")
	ErrNotCancellable      = errors.New("only pending requests can be cancelled")
)

type AttachmentInput struct {
	Filename string
	MimeType string
	Data     []byte
}

type SubmitInput struct {
	Description string
	ParentID    string
	Attachments []AttachmentInput
}

// StatusUpdate is reported by the build worker.
type StatusUpdate struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	BuildBranch string `json:"build_branch"`
	PreviewURL  string `json:"preview_url"`
	Error       string `json:"error"`
}

// Console is the data behind the appdev page and its polling fragment.
type Console struct {
	Requests     []*model.FeatureRequest
	Timeline     []*model.TimelineEntry
	PollInterval time.Duration
}

type FeatureRequestService struct {
	requestRepository repository.FeatureRequestRepository
	storage           storage.Storage
	assessor          risk.Assessor
	autoAssess        bool
	pollActive        time.Duration
	pollIdle          time.Duration
}

func NewFeatureRequestService(
	requestRepository repository.FeatureRequestRepository,
	storage storage.Storage,
	assessor risk.Assessor,
	autoAssess bool,
	pollActive, pollIdle time.Duration,
) *FeatureRequestService {
	return &FeatureRequestService{
		requestRepository: requestRepository,
		storage:           storage,
		assessor:          assessor,
		autoAssess:        autoAssess,
		pollActive:        pollActive,
		pollIdle:          pollIdle,
	}
}

// Submit validates and stores a new request with its first timeline event
// and attachments, then records a risk assessment. A description that is
// too short is rejected before anything is written. Attachments are uploaded
// first; if any step fails the uploaded objects are removed and no rows are
// kept.
func (s *FeatureRequestService) Submit(ctx context.Context, requester *model.User, input SubmitInput) (*model.FeatureRequest, error) {
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return nil, ErrDescriptionTooShort
	}

	var parentID *string
	if input.ParentID != "" {
		if _, err := s.requestRepository.ByID(input.ParentID); err != nil {
			if errors.Is(err, repository.ErrFeatureRequestNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		parentID = &input.ParentID
	}

	now := time.Now().UTC()
	req := &model.FeatureRequest{
		ID:          uuid.New().String(),
		RequesterID: &requester.ID,
		Description: description,
		Status:      model.RequestPending,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	message := submittedMessage
	if parentID != nil {
		message = followUpMessage
	}
	event := &model.RequestEvent{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		Status:    model.RequestPending,
		Message:   message,
		CreatedAt: now,
	}

	atts := make([]*model.RequestAttachment, 0, len(input.Attachments))
	for _, in := range input.Attachments {
		att, err := s.upload(ctx, req.ID, in, now)
		if err != nil {
			s.discard(ctx, atts)
			return nil, err
		}
		atts = append(atts, att)
	}

	if err := s.requestRepository.Create(req, event, atts); err != nil {
		s.discard(ctx, atts)
		return nil, fmt.Errorf("failed to create feature request: %w", err)
	}
	slog.Info("feature request submitted", "request_id", req.ID, "requester_id", requester.ID,
		"follow_up", parentID != nil, "attachments", len(atts))

	if s.autoAssess {
		s.assess(ctx, req)
	}

	return s.byID(req.ID)
}

func (s *FeatureRequestService) upload(ctx context.Context, requestID string, in AttachmentInput, now time.Time) (*model.RequestAttachment, error) {
	id := uuid.New().String()
	storagePath := path.Join(attachmentPrefix, requestID, id+strings.ToLower(filepath.Ext(in.Filename)))

	err := s.storage.Save(ctx, storagePath, bytes.NewReader(in.Data), storage.Meta{ContentType: in.MimeType})
	if err != nil {
		return nil, fmt.Errorf("failed to save attachment %q: %w", in.Filename, err)
	}

	return &model.RequestAttachment{
		ID:          id,
		RequestID:   requestID,
		StoragePath: storagePath,
		Filename:    filepath.Base(in.Filename),
		MimeType:    in.MimeType,
		SizeBytes:   int64(len(in.Data)),
		CreatedAt:   now,
	}, nil
}

// discard removes uploaded attachments of a submission that was not stored.
func (s *FeatureRequestService) discard(ctx context.Context, atts []*model.RequestAttachment) {
	for _, att := range atts {
		if err := s.storage.Delete(ctx, att.StoragePath); err != nil {
			slog.Error("failed to delete attachment during cleanup", "error", err, "path", att.StoragePath)
		}
	}
}

// assess stores a risk assessment. Failures are logged; the request stays
// unassessed and can be reassessed later.
func (s *FeatureRequestService) assess(ctx context.Context, req *model.FeatureRequest) {
	assessment, err := s.assessor.Assess(ctx, req.Description)
	if err != nil {
		slog.Error("risk assessment failed", "request_id", req.ID, "error", err)
		return
	}
	if err := s.requestRepository.SetRisk(req.ID, assessment); err != nil {
		slog.Error("failed to store risk assessment", "request_id", req.ID, "error", err)
		return
	}
	slog.Info("feature request assessed", "request_id", req.ID, "level", assessment.Level, "flags", len(assessment.Flags))
}

// Reassess runs the risk assessment again on demand.
func (s *FeatureRequestService) Reassess(ctx context.Context, id string) (*model.FeatureRequest, error) {
	req, err := s.requestRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	assessment, err := s.assessor.Assess(ctx, req.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to assess request: %w", err)
	}
	if err := s.requestRepository.SetRisk(id, assessment); err != nil {
		return nil, err
	}
	return s.byID(id)
}

func (s *FeatureRequestService) byID(id string) (*model.FeatureRequest, error) {
	req, err := s.requestRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.withAttachments([]*model.FeatureRequest{req}); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *FeatureRequestService) ByID(id string) (*model.FeatureRequest, error) {
	return s.byID(id)
}

// List returns requests newest first. An empty status matches all.
func (s *FeatureRequestService) List(status string) ([]*model.FeatureRequest, error) {
	if status != "" && !model.ValidRequestStatus(status) {
		return nil, ErrInvalidStatus
	}
	reqs, err := s.requestRepository.List(status, consoleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature requests: %w", err)
	}
	if err := s.withAttachments(reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *FeatureRequestService) withAttachments(reqs []*model.FeatureRequest) error {
	ids := requestIDs(reqs)
	atts, err := s.requestRepository.AttachmentsFor(ids)
	if err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	for _, r := range reqs {
		r.Attachments = atts[r.ID]
		for _, a := range r.Attachments {
			a.URL = s.storage.URL(a.StoragePath)
		}
	}
	return nil
}

// Console loads requests, then their events and attachments in parallel,
// and picks the poll interval.
func (s *FeatureRequestService) Console(status string) (*Console, error) {
	if status != "" && !model.ValidRequestStatus(status) {
		return nil, ErrInvalidStatus
	}
	reqs, err := s.requestRepository.List(status, consoleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature requests: %w", err)
	}

	var events []*model.RequestEvent
	var g errgroup.Group
	g.Go(func() error {
		var err error
		events, err = s.requestRepository.EventsFor(requestIDs(reqs))
		return err
	})
	g.Go(func() error {
		return s.withAttachments(reqs)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	return &Console{
		Requests:     reqs,
		Timeline:     Timeline(reqs, events),
		PollInterval: s.PollInterval(reqs),
	}, nil
}

func requestIDs(reqs []*model.FeatureRequest) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}

// Timeline groups events under their request, newest event first, and nests
// follow-ups beneath their parent when the parent is in reqs. Top-level
// entries keep the order of reqs; follow-ups are newest first.
func Timeline(reqs []*model.FeatureRequest, events []*model.RequestEvent) []*model.TimelineEntry {
	entries := make(map[string]*model.TimelineEntry, len(reqs))
	for _, r := range reqs {
		entries[r.ID] = &model.TimelineEntry{Request: r}
	}

	for _, e := range events {
		if entry, ok := entries[e.RequestID]; ok {
			entry.Events = append(entry.Events, e)
		}
	}
	for _, entry := range entries {
		sort.SliceStable(entry.Events, func(i, j int) bool {
			return entry.Events[i].CreatedAt.After(entry.Events[j].CreatedAt)
		})
	}

	var top []*model.TimelineEntry
	for _, r := range reqs {
		entry := entries[r.ID]
		if r.IsFollowUp() {
			if parent, ok := entries[*r.ParentID]; ok && parent != entry {
				parent.FollowUps = append(parent.FollowUps, entry)
				continue
			}
		}
		top = append(top, entry)
	}

	for _, entry := range entries {
		sort.SliceStable(entry.FollowUps, func(i, j int) bool {
			return entry.FollowUps[i].Request.CreatedAt.After(entry.FollowUps[j].Request.CreatedAt)
		})
	}
	return top
}

// UpdateStatus applies a build worker status report.
func (s *FeatureRequestService) UpdateStatus(id string, update StatusUpdate) (*model.FeatureRequest, error) {
	if !model.ValidRequestStatus(update.Status) {
		return nil, ErrInvalidStatus
	}

	req, err := s.requestRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(req.Status, update.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, req.Status, update.Status)
	}

	previous := req.Status
	req.Status = update.Status
	if update.BuildBranch != "" {
		req.BuildBranch = update.BuildBranch
	}
	if update.PreviewURL != "" {
		req.PreviewURL = update.PreviewURL
	}
	switch update.Status {
	case model.RequestFailed:
		req.ErrorMessage = firstNonBlank(update.Error, update.Message, "build failed")
	case model.RequestPending:
		req.ErrorMessage = ""
	}

	message := firstNonBlank(update.Message, "Status changed to "+update.Status)
	if err := s.transition(req, message); err != nil {
		return nil, err
	}

	slog.Info("feature request status changed", "request_id", id, "from", previous, "to", req.Status)
	return s.byID(id)
}

// Cancel fails a request that has not been picked up yet.
func (s *FeatureRequestService) Cancel(actor *model.User, id string) (*model.FeatureRequest, error) {
	req, err := s.requestRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, ErrNotCancellable
	}

	req.Status = model.RequestFailed
	req.ErrorMessage = cancelledMessage
	if err := s.transition(req, cancelledMessage); err != nil {
		return nil, err
	}

	slog.Info("feature request cancelled", "request_id", id, "actor_id", actor.ID)
	return s.byID(id)
}

func (s *FeatureRequestService) transition(req *model.FeatureRequest, message string) error {
	now := time.Now()
	req.UpdatedAt = now
	event := &model.RequestEvent{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		Status:    req.Status,
		Message:   message,
		CreatedAt: now,
	}
	if err := s.requestRepository.Transition(req, event); err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return nil
}

// PollInterval is the short interval while any build is running and the
// long one otherwise.
func (s *FeatureRequestService) PollInterval(reqs []*model.FeatureRequest) time.Duration {
	for _, r := range reqs {
		if r.IsActive() {
			return s.pollActive
		}
	}
	return s.pollIdle
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
