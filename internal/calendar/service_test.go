package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/database"
	"github.com/oakhollow/hearth/internal/dates"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	feed := NewFeed(logger)
	feed.ResubscribeDelay = 10 * time.Millisecond
	svc := NewService(store.NewEventStore(db), feed, logger)
	svc.retryBase = time.Millisecond
	return svc
}

func TestCreateDefaultsEndToStartPlusHour(t *testing.T) {
	svc := testService(t)

	created, err := svc.Create(context.Background(), CreateInput{
		FamilyID: 1,
		Title:    "Soccer practice",
		Start:    dates.Input{Text: "2026-06-01T15:00:00Z"},
		ActorID:  1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := created.StartTime.Add(time.Hour)
	if !created.EndTime.Equal(want) {
		t.Errorf("end = %v, want start+1h %v", created.EndTime, want)
	}
	if created.EventType != model.EventGeneral {
		t.Errorf("event_type = %q, want general default", created.EventType)
	}
	if created.Status != model.EventStatusConfirmed {
		t.Errorf("status = %q, want confirmed", created.Status)
	}
}

func TestCreateAcceptsLegacyTimestampShapes(t *testing.T) {
	svc := testService(t)

	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	shapes := map[string]dates.Input{
		"rfc3339": {Text: "2026-06-01T15:00:00Z"},
		"seconds": {Seconds: start.Unix()},
		"millis":  {Millis: start.UnixMilli()},
		"native":  {Time: &start},
	}

	for name, in := range shapes {
		created, err := svc.Create(context.Background(), CreateInput{
			FamilyID: 1, Title: name, Start: in, ActorID: 1,
		})
		if err != nil {
			t.Fatalf("%s: create: %v", name, err)
		}
		if !created.StartTime.Equal(start) {
			t.Errorf("%s: start = %v, want %v", name, created.StartTime, start)
		}
	}
}

func TestCreateRejectsMalformedInput(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	var verr *apperr.ValidationError

	_, err := svc.Create(ctx, CreateInput{FamilyID: 1, Title: "  ", Start: dates.Input{Text: "2026-06-01"}})
	if !errors.As(err, &verr) {
		t.Errorf("blank title: got %v, want ValidationError", err)
	}

	_, err = svc.Create(ctx, CreateInput{FamilyID: 1, Title: "x"})
	if !errors.As(err, &verr) {
		t.Errorf("missing start: got %v, want ValidationError", err)
	}

	_, err = svc.Create(ctx, CreateInput{
		FamilyID: 1, Title: "x", Start: dates.Input{Text: "not a date"},
	})
	if !errors.As(err, &verr) {
		t.Errorf("bad date: got %v, want ValidationError", err)
	}

	_, err = svc.Create(ctx, CreateInput{
		FamilyID: 1, Title: "x", EventType: "picnic",
		Start: dates.Input{Text: "2026-06-01"},
	})
	if !errors.As(err, &verr) {
		t.Errorf("bad event type: got %v, want ValidationError", err)
	}
}

// flakyStore fails Create with a configured error a set number of times.
type flakyStore struct {
	EventStore
	failures int
	err      error
	attempts int
}

func (f *flakyStore) Create(e *model.Event) (*model.Event, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, f.err
	}
	return f.EventStore.Create(e)
}

func TestCreateRetriesTransientErrors(t *testing.T) {
	svc := testService(t)
	flaky := &flakyStore{
		EventStore: svc.store,
		failures:   2,
		err:        errors.New("database is locked"),
	}
	svc.store = flaky

	_, err := svc.Create(context.Background(), CreateInput{
		FamilyID: 1, Title: "x", Start: dates.Input{Text: "2026-06-01"}, ActorID: 1,
	})
	if err != nil {
		t.Fatalf("create should succeed after transient failures: %v", err)
	}
	if flaky.attempts != 3 {
		t.Errorf("attempts = %d, want 3 (2 failures then success)", flaky.attempts)
	}
}

func TestCreateRetryBound(t *testing.T) {
	svc := testService(t)
	flaky := &flakyStore{
		EventStore: svc.store,
		failures:   100,
		err:        errors.New("database is locked"),
	}
	svc.store = flaky

	_, err := svc.Create(context.Background(), CreateInput{
		FamilyID: 1, Title: "x", Start: dates.Input{Text: "2026-06-01"}, ActorID: 1,
	})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if flaky.attempts != 1+maxRetries {
		t.Errorf("attempts = %d, want %d", flaky.attempts, 1+maxRetries)
	}
}

func TestCreateDoesNotRetryPermanentErrors(t *testing.T) {
	svc := testService(t)
	flaky := &flakyStore{
		EventStore: svc.store,
		failures:   100,
		err:        errors.New("CHECK constraint failed"),
	}
	svc.store = flaky

	_, err := svc.Create(context.Background(), CreateInput{
		FamilyID: 1, Title: "x", Start: dates.Input{Text: "2026-06-01"}, ActorID: 1,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if flaky.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry)", flaky.attempts)
	}
}

func TestUpdateMergesPartialInput(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		FamilyID: 1, Title: "Checkup", Location: "Clinic",
		Start: dates.Input{Text: "2026-06-01T09:00:00Z"}, ActorID: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "Annual checkup"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Title: &newTitle, ActorID: 2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Annual checkup" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Location != "Clinic" {
		t.Errorf("location lost on partial update: %q", updated.Location)
	}
	if !updated.StartTime.Equal(created.StartTime) {
		t.Errorf("start changed on partial update: %v", updated.StartTime)
	}
	if updated.LastModifiedBy != 2 {
		t.Errorf("last_modified_by = %d, want 2", updated.LastModifiedBy)
	}

	_, err = svc.Update(ctx, 9999, UpdateInput{Title: &newTitle, ActorID: 2})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("update missing: got %v, want NotFoundError", err)
	}
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	tomorrow := time.Now().Add(24 * time.Hour)
	nextWeek := time.Now().Add(7 * 24 * time.Hour)
	if _, err := svc.Create(ctx, CreateInput{
		FamilyID: 1, Title: "Dentist", ChildName: "Maya",
		Start: dates.Input{Time: &tomorrow}, ActorID: 1,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{
		FamilyID: 1, Title: "Team dinner",
		Attendees: []model.Attendee{{ID: 2, Name: "Grandpa Joe", Email: "joe@example.com"}},
		Start:     dates.Input{Time: &nextWeek}, ActorID: 1,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"dentist", 1},     // title, case-insensitive
		{"maya", 1},        // child name
		{"grandpa", 1},     // attendee name
		{"example.com", 1}, // attendee email
		{"DIN", 1},         // substring
		{"zzz", 0},
		{"  ", 0},
	}
	for _, tt := range tests {
		got := svc.Search(1, tt.query, time.Time{}, time.Time{})
		if len(got) != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, len(got), tt.want)
		}
	}
}
