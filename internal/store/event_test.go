package store

import (
	"testing"
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

func newTestEvent(title string, start time.Time) *model.Event {
	return &model.Event{
		FamilyID:       1,
		Title:          title,
		EventType:      model.EventGeneral,
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Timezone:       "America/Los_Angeles",
		Status:         model.EventStatusConfirmed,
		CreatedBy:      1,
		LastModifiedBy: 1,
	}
}

func TestEventCRUD(t *testing.T) {
	es := NewEventStore(testDB(t))

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	created, err := es.Create(newTestEvent("Dentist", start))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if !created.StartTime.Equal(start) {
		t.Errorf("start_time = %v, want %v", created.StartTime, start)
	}
	if !created.EndTime.Equal(start.Add(time.Hour)) {
		t.Errorf("end_time = %v, want %v", created.EndTime, start.Add(time.Hour))
	}

	got, err := es.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Title != "Dentist" {
		t.Errorf("title = %q, want %q", got.Title, "Dentist")
	}

	got.Title = "Orthodontist"
	got.Location = "Main St"
	updated, err := es.Update(got)
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if updated.Title != "Orthodontist" || updated.Location != "Main St" {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := es.Delete(created.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	got, err = es.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestEventAttendeesRoundTrip(t *testing.T) {
	es := NewEventStore(testDB(t))

	e := newTestEvent("Recital", time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC))
	e.Attendees = []model.Attendee{
		{ID: 2, Name: "Maya", Email: "maya@example.com"},
		{ID: 3, Name: "Theo"},
	}
	e.Documents = []model.DocumentRef{{ID: "abc", Name: "program.pdf", URL: "/files/abc"}}

	created, err := es.Create(e)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if len(created.Attendees) != 2 {
		t.Fatalf("attendees = %d, want 2", len(created.Attendees))
	}
	if created.Attendees[0].Email != "maya@example.com" {
		t.Errorf("attendee email = %q", created.Attendees[0].Email)
	}
	if len(created.Documents) != 1 || created.Documents[0].Name != "program.pdf" {
		t.Errorf("documents = %+v", created.Documents)
	}
}

func TestEventListByDateRange(t *testing.T) {
	es := NewEventStore(testDB(t))

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	// Insert out of order to verify sorting.
	for _, d := range []int{5, 1, 3, 20} {
		if _, err := es.Create(newTestEvent("day", base.AddDate(0, 0, d))); err != nil {
			t.Fatalf("create event: %v", err)
		}
	}
	// Different family, inside the range.
	other := newTestEvent("other family", base.AddDate(0, 0, 2))
	other.FamilyID = 2
	if _, err := es.Create(other); err != nil {
		t.Fatalf("create event: %v", err)
	}

	events, err := es.ListByDateRange(1, base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list by date range: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events in range, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].StartTime.Before(events[i-1].StartTime) {
			t.Errorf("events not sorted: %v before %v", events[i].StartTime, events[i-1].StartTime)
		}
	}
}
