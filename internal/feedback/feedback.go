// Package feedback handles user feedback submissions and staff responses.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justestif/go-spotify-wrapped/internal/db"
)

// Store persists feedback. *db.FeedbackRepository satisfies it.
type Store interface {
	Create(ctx context.Context, fb *db.Feedback) error
	Get(ctx context.Context, id int64) (*db.Feedback, error)
	List(ctx context.Context, filter db.FeedbackFilter) ([]db.Feedback, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAsResponded(ctx context.Context, fb *db.Feedback, staffID int64, response string) error
	Delete(ctx context.Context, id int64) error
}

// Validator checks request structs. *validation.Validator satisfies it.
type Validator interface {
	Validate(s any) error
}

// Submission is a feedback form as posted by a visitor.
type Submission struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Response is a staff answer to a feedback record.
type Response struct {
	Response string `json:"response" validate:"required,max=5000"`
}

// Service handles feedback operations.
type Service struct {
	store     Store
	validator Validator
	logger    *slog.Logger
}

// New creates a feedback Service.
func New(store Store, v Validator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validator: v, logger: logger}
}

// Submit validates and stores a new feedback record.
func (s *Service) Submit(ctx context.Context, sub Submission) (*db.Feedback, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Message = strings.TrimSpace(sub.Message)
	if err := s.validator.Validate(sub); err != nil {
		return nil, err
	}

	fb := &db.Feedback{
		Name:    sub.Name,
		Email:   sub.Email,
		Message: sub.Message,
		Status:  db.StatusNew,
	}
	if err := s.store.Create(ctx, fb); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "feedback received", "feedback_id", fb.ID)
	return fb, nil
}

// List returns feedback newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, filter db.FeedbackFilter) ([]db.Feedback, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
	}
	return s.store.List(ctx, filter)
}

// MarkRead moves a new record to read and returns its current state.
func (s *Service) MarkRead(ctx context.Context, id int64) (*db.Feedback, error) {
	if err := s.store.MarkAsRead(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Respond stores a staff response and marks the record responded.
func (s *Service) Respond(ctx context.Context, id, staffID int64, resp Response) (*db.Feedback, error) {
	resp.Response = strings.TrimSpace(resp.Response)
	if err := s.validator.Validate(resp); err != nil {
		return nil, err
	}

	fb, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkAsResponded(ctx, fb, staffID, resp.Response); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "feedback responded", "feedback_id", id, "staff_id", staffID)
	return fb, nil
}

// Delete removes a feedback record.
func (s *Service) Delete(ctx context.Context, id, staffID int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "feedback deleted", "feedback_id", id, "staff_id", staffID)
	return nil
}
