// Package calendar implements the family calendar: event CRUD with
// normalized date inputs, range and substring search queries, and a live
// subscription feed delivering snapshot-plus-delta changes.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/dates"
	"github.com/oakhollow/hearth/internal/model"
)

// EventStore is the persistence surface the service needs. *store.EventStore
// satisfies it.
type EventStore interface {
	Create(e *model.Event) (*model.Event, error)
	GetByID(id int64) (*model.Event, error)
	Update(e *model.Event) (*model.Event, error)
	Delete(id int64) error
	ListByDateRange(familyID int64, start, end time.Time) ([]model.Event, error)
}

const (
	// maxRetries bounds retrying of transient store failures on writes.
	maxRetries = 3
	// searchWindow is the default span searched around now.
	searchWindow = 365 * 24 * time.Hour
)

type Service struct {
	store  EventStore
	feed   *Feed
	logger *slog.Logger

	// retryBase is the linear backoff unit, attempt*retryBase between tries.
	retryBase time.Duration
}

func NewService(store EventStore, feed *Feed, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		feed:      feed,
		logger:    logger.With("component", "calendar"),
		retryBase: time.Second,
	}
}

// CreateInput carries a new event. Start and End accept any recognized date
// shape; End may be zero and defaults to Start plus one hour.
type CreateInput struct {
	FamilyID          int64
	Title             string
	Description       string
	Location          string
	EventType         model.EventType
	Start             dates.Input
	End               dates.Input
	Timezone          string
	ChildID           *int64
	ChildName         string
	AttendingParentID *int64
	Attendees         []model.Attendee
	Documents         []model.DocumentRef
	ActorID           int64
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title", "title is required")
	}
	if in.EventType == "" {
		in.EventType = model.EventGeneral
	}
	if !model.ValidEventType(in.EventType) {
		return nil, apperr.Validation("event_type", "unknown event type: "+string(in.EventType))
	}

	span, err := dates.Normalize(in.Start, in.End, in.Timezone)
	if err != nil {
		return nil, err
	}
	if span.End.Before(span.Start) {
		s.logger.Warn("event end precedes start, storing as given",
			"title", in.Title, "start", span.Start, "end", span.End)
	}

	e := &model.Event{
		FamilyID:          in.FamilyID,
		Title:             in.Title,
		Description:       in.Description,
		Location:          in.Location,
		EventType:         in.EventType,
		StartTime:         span.Start,
		EndTime:           span.End,
		Timezone:          span.Timezone,
		Status:            model.EventStatusConfirmed,
		ChildID:           in.ChildID,
		ChildName:         in.ChildName,
		AttendingParentID: in.AttendingParentID,
		Attendees:         in.Attendees,
		Documents:         in.Documents,
		CreatedBy:         in.ActorID,
		LastModifiedBy:    in.ActorID,
	}

	var created *model.Event
	err = s.withRetry(ctx, func() error {
		var err error
		created, err = s.store.Create(e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.feed.publish(created.FamilyID, Change{Added: []model.Event{*created}})
	s.logger.Info("event created", "id", created.ID, "title", created.Title,
		"start", created.StartTime)
	return created, nil
}

// UpdateInput carries a partial update. Nil pointer fields are left as stored.
type UpdateInput struct {
	Title             *string
	Description       *string
	Location          *string
	EventType         *model.EventType
	Start             dates.Input
	End               dates.Input
	Timezone          *string
	ChildID           *int64
	ChildName         *string
	AttendingParentID *int64
	Attendees         []model.Attendee
	Documents         []model.DocumentRef
	Status            *string
	ActorID           int64
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Event, error) {
	existing, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("event", id)
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, apperr.Validation("title", "title cannot be cleared")
		}
		existing.Title = *in.Title
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	if in.Location != nil {
		existing.Location = *in.Location
	}
	if in.EventType != nil {
		if !model.ValidEventType(*in.EventType) {
			return nil, apperr.Validation("event_type", "unknown event type: "+string(*in.EventType))
		}
		existing.EventType = *in.EventType
	}
	if in.Timezone != nil {
		existing.Timezone = *in.Timezone
	}

	// Re-normalize only the supplied sides against the stored timezone.
	if !in.Start.IsZero() || !in.End.IsZero() {
		start := in.Start
		if start.IsZero() {
			t := existing.StartTime
			start = dates.Input{Time: &t}
		}
		end := in.End
		if end.IsZero() {
			t := existing.EndTime
			end = dates.Input{Time: &t}
		}
		span, err := dates.Normalize(start, end, existing.Timezone)
		if err != nil {
			return nil, err
		}
		existing.StartTime = span.Start
		existing.EndTime = span.End
	}

	if in.ChildID != nil {
		existing.ChildID = in.ChildID
	}
	if in.ChildName != nil {
		existing.ChildName = *in.ChildName
	}
	if in.AttendingParentID != nil {
		existing.AttendingParentID = in.AttendingParentID
	}
	if in.Attendees != nil {
		existing.Attendees = in.Attendees
	}
	if in.Documents != nil {
		existing.Documents = in.Documents
	}
	if in.Status != nil {
		existing.Status = *in.Status
	}
	existing.LastModifiedBy = in.ActorID

	var updated *model.Event
	err = s.withRetry(ctx, func() error {
		var err error
		updated, err = s.store.Update(existing)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.feed.publish(updated.FamilyID, Change{Modified: []model.Event{*updated}})
	return updated, nil
}

func (s *Service) Get(id int64) (*model.Event, error) {
	e, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return nil, apperr.NotFound("event", id)
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.store.GetByID(id)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if existing == nil {
		return apperr.NotFound("event", id)
	}

	err = s.withRetry(ctx, func() error {
		return s.store.Delete(id)
	})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.feed.publish(existing.FamilyID, Change{Removed: []model.Event{*existing}})
	s.logger.Info("event deleted", "id", id)
	return nil
}

// Range returns the family's events inside [start, end] ascending by start
// time. A store failure is logged and reported as an empty result, so a
// broken index never blanks the whole calendar UI.
func (s *Service) Range(familyID int64, start, end time.Time) []model.Event {
	events, err := s.store.ListByDateRange(familyID, start, end)
	if err != nil {
		s.logger.Error("range query failed, returning empty",
			"family_id", familyID, "error", err)
		return []model.Event{}
	}
	if events == nil {
		return []model.Event{}
	}
	return events
}

// Search finds events whose title, description, location, child name, or any
// attendee name or email contains query, case-insensitively. Zero start/end
// default to a year either side of now.
func (s *Service) Search(familyID int64, query string, start, end time.Time) []model.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Event{}
	}

	now := time.Now()
	if start.IsZero() {
		start = now.Add(-searchWindow)
	}
	if end.IsZero() {
		end = now.Add(searchWindow)
	}

	var matched []model.Event
	for _, e := range s.Range(familyID, start, end) {
		if eventMatches(&e, q) {
			matched = append(matched, e)
		}
	}
	if matched == nil {
		return []model.Event{}
	}
	return matched
}

func eventMatches(e *model.Event, q string) bool {
	for _, field := range []string{e.Title, e.Description, e.Location, e.ChildName} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, a := range e.Attendees {
		if strings.Contains(strings.ToLower(a.Name), q) ||
			strings.Contains(strings.ToLower(a.Email), q) {
			return true
		}
	}
	return false
}

// Subscribe registers a live listener for the family's events. The first
// change on the channel is a full snapshot; later ones carry deltas.
func (s *Service) Subscribe(familyID int64) (*Subscription, error) {
	snapshot := func() []model.Event {
		now := time.Now()
		return s.Range(familyID, now.Add(-searchWindow), now.Add(searchWindow))
	}
	return s.feed.subscribe(familyID, snapshot)
}

// withRetry runs op, retrying transient failures up to maxRetries times with
// linear backoff. Validation and other permanent errors return immediately.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	b := retry.WithMaxRetries(maxRetries, linearBackoff(s.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op()
		if err == nil {
			return nil
		}
		if apperr.IsTransient(err) {
			s.logger.Warn("transient store error, will retry", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// linearBackoff waits attempt*base: 1x, 2x, 3x.
func linearBackoff(base time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}
