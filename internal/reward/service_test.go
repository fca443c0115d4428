package reward

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/calendar"
	"github.com/oakhollow/hearth/internal/database"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

type fixture struct {
	svc     *Service
	bucks   *bucks.Service
	rewards *store.RewardStore
	stories *store.StoryStore
}

func setup(t *testing.T, cal Calendar) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bucksSvc := bucks.NewService(store.NewBucksStore(db), logger)
	rewards := store.NewRewardStore(db)
	stories := store.NewStoryStore(db)
	return &fixture{
		svc:     NewService(rewards, bucksSvc, cal, stories, logger),
		bucks:   bucksSvc,
		rewards: rewards,
		stories: stories,
	}
}

func seedBucks(t *testing.T, f *fixture, childID int64, amount int) {
	t.Helper()
	if _, err := f.bucks.Adjust(1, childID, amount, "seed", model.SourceAdjustment, nil, 2); err != nil {
		t.Fatalf("seed bucks: %v", err)
	}
}

func createRewardTemplate(t *testing.T, f *fixture, title string, price, quantity int) *model.RewardTemplate {
	t.Helper()
	tmpl, err := f.svc.CreateTemplate(TemplateInput{
		FamilyID:   1,
		Title:      title,
		BucksPrice: price,
		Category:   model.CategoryActivities,
		Quantity:   quantity,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func TestCreateTemplateIdempotentOnTitle(t *testing.T) {
	f := setup(t, nil)

	first := createRewardTemplate(t, f, "Movie night", 10, model.UnlimitedQuantity)
	second := createRewardTemplate(t, f, "Movie night", 25, model.UnlimitedQuantity)

	if second.ID != first.ID {
		t.Errorf("duplicate title created a second template: %d != %d", second.ID, first.ID)
	}
	if second.BucksPrice != 10 {
		t.Errorf("existing template was modified: price = %d", second.BucksPrice)
	}
}

func TestRequestDebitsAndChecksStock(t *testing.T) {
	f := setup(t, nil)
	seedBucks(t, f, 5, 20)

	tmpl := createRewardTemplate(t, f, "Ice cream", 8, 1)

	inst, err := f.svc.Request(tmpl.ID, 5, "please", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if inst.Status != model.RewardRequested {
		t.Errorf("status = %q, want requested", inst.Status)
	}

	balance, _ := f.bucks.Balance(5)
	if balance != 12 {
		t.Errorf("balance = %d, want 12 (20 - 8 at request time)", balance)
	}

	// Quantity 1: the second request is out of stock.
	_, err = f.svc.Request(tmpl.ID, 5, "", nil)
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("second request: got %v, want InvalidStateError", err)
	}
	if ise.State != "out of stock" {
		t.Errorf("state = %q, want out of stock", ise.State)
	}
}

func TestRequestRejectsInactiveExpiredAndIneligible(t *testing.T) {
	f := setup(t, nil)

	inactive := createRewardTemplate(t, f, "Old reward", 5, model.UnlimitedQuantity)
	if err := f.svc.DeactivateTemplate(inactive.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	var ise *apperr.InvalidStateError
	if _, err := f.svc.Request(inactive.ID, 5, "", nil); !errors.As(err, &ise) {
		t.Errorf("inactive: got %v, want InvalidStateError", err)
	}

	past := time.Now().Add(-time.Hour)
	expired, err := f.svc.CreateTemplate(TemplateInput{
		FamilyID: 1, Title: "Expired", BucksPrice: 5,
		Category: model.CategoryItems, Quantity: model.UnlimitedQuantity,
		ExpiresAt: &past,
	})
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := f.svc.Request(expired.ID, 5, "", nil); !errors.As(err, &ise) {
		t.Errorf("expired: got %v, want InvalidStateError", err)
	}

	restricted, err := f.svc.CreateTemplate(TemplateInput{
		FamilyID: 1, Title: "Big kid only", BucksPrice: 5,
		Category: model.CategoryPrivileges, Quantity: model.UnlimitedQuantity,
		ChildIDs: []int64{7},
	})
	if err != nil {
		t.Fatalf("create restricted: %v", err)
	}
	var verr *apperr.ValidationError
	if _, err := f.svc.Request(restricted.ID, 5, "", nil); !errors.As(err, &verr) {
		t.Errorf("ineligible child: got %v, want ValidationError", err)
	}
}

func TestRejectDoesNotRestock(t *testing.T) {
	f := setup(t, nil)
	tmpl := createRewardTemplate(t, f, "Limited", 0, 1)

	inst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.Reject(inst.ID, 2, "not this week"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	got, err := f.rewards.GetTemplate(tmpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got.Quantity != 0 {
		t.Errorf("quantity = %d after rejection, want 0 (no restock)", got.Quantity)
	}
}

func TestFulfillRequiresApproval(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	tmpl := createRewardTemplate(t, f, "Park trip", 0, model.UnlimitedQuantity)

	inst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var ise *apperr.InvalidStateError
	if _, err := f.svc.Fulfill(ctx, inst.ID, 2); !errors.As(err, &ise) {
		t.Errorf("fulfill requested: got %v, want InvalidStateError", err)
	}

	if _, err := f.svc.Approve(ctx, inst.ID, 2, "", nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	fulfilled, err := f.svc.Fulfill(ctx, inst.ID, 2)
	if err != nil {
		t.Fatalf("fulfill approved: %v", err)
	}
	if fulfilled.Status != model.RewardFulfilled {
		t.Errorf("status = %q, want fulfilled", fulfilled.Status)
	}

	// Terminal states cannot move again.
	if _, err := f.svc.Fulfill(ctx, inst.ID, 2); !errors.As(err, &ise) {
		t.Errorf("fulfill fulfilled: got %v, want InvalidStateError", err)
	}
	rejectedInst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.svc.Reject(rejectedInst.ID, 2, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Fulfill(ctx, rejectedInst.ID, 2); !errors.As(err, &ise) {
		t.Errorf("fulfill rejected: got %v, want InvalidStateError", err)
	}
}

func TestApproveLinksCalendarBestEffort(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calSvc := calendar.NewService(store.NewEventStore(db), calendar.NewFeed(logger), logger)

	f := setup(t, calSvc)
	ctx := context.Background()
	tmpl := createRewardTemplate(t, f, "Aquarium", 0, model.UnlimitedQuantity)

	inst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	when := time.Now().Add(48 * time.Hour)
	approved, err := f.svc.Approve(ctx, inst.ID, 2, "Saturday works", &when)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.CalendarEventID == nil {
		t.Fatal("calendar event not linked")
	}

	events := calSvc.Range(1, time.Now(), time.Now().Add(96*time.Hour))
	if len(events) != 1 {
		t.Fatalf("expected 1 calendar event, got %d", len(events))
	}
	if events[0].ID != *approved.CalendarEventID {
		t.Errorf("linked id %d != event id %d", *approved.CalendarEventID, events[0].ID)
	}
}

type failingCalendar struct{}

func (failingCalendar) Create(context.Context, calendar.CreateInput) (*model.Event, error) {
	return nil, errors.New("unavailable")
}

func (failingCalendar) Update(context.Context, int64, calendar.UpdateInput) (*model.Event, error) {
	return nil, errors.New("unavailable")
}

func TestApproveSucceedsWhenCalendarFails(t *testing.T) {
	f := setup(t, failingCalendar{})
	ctx := context.Background()
	tmpl := createRewardTemplate(t, f, "Bowling", 0, model.UnlimitedQuantity)

	inst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	when := time.Now().Add(24 * time.Hour)
	approved, err := f.svc.Approve(ctx, inst.ID, 2, "", &when)
	if err != nil {
		t.Fatalf("approve must not fail on calendar error: %v", err)
	}
	if approved.Status != model.RewardApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if approved.CalendarEventID != nil {
		t.Errorf("calendar_event_id = %v, want nil after calendar failure", approved.CalendarEventID)
	}
}

func TestAddMemoriesAppendsPhotosAndStory(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	tmpl := createRewardTemplate(t, f, "Camping", 0, model.UnlimitedQuantity)

	inst, err := f.svc.Request(tmpl.ID, 5, "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Memories are rejected before fulfillment.
	var ise *apperr.InvalidStateError
	if _, err := f.svc.AddMemories(inst.ID, MemoryInput{Note: "early"}); !errors.As(err, &ise) {
		t.Errorf("memories pre-fulfillment: got %v, want InvalidStateError", err)
	}

	if _, err := f.svc.Approve(ctx, inst.ID, 2, "", nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Fulfill(ctx, inst.ID, 2); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	first, err := f.svc.AddMemories(inst.ID, MemoryInput{
		PhotoURLs: []string{"/photos/tent.jpg"}, Note: "great trip", Rating: 5,
	})
	if err != nil {
		t.Fatalf("add memories: %v", err)
	}
	second, err := f.svc.AddMemories(inst.ID, MemoryInput{
		PhotoURLs: []string{"/photos/fire.jpg"},
	})
	if err != nil {
		t.Fatalf("add more memories: %v", err)
	}
	if len(second.MemoryPhotos) != 2 {
		t.Errorf("photos = %v, want both appended", second.MemoryPhotos)
	}
	if second.MemoryNote != "great trip" {
		t.Errorf("note = %q, earlier note should survive", second.MemoryNote)
	}
	if second.MemoryRating != first.MemoryRating {
		t.Errorf("rating changed unexpectedly: %d", second.MemoryRating)
	}

	entries, err := f.stories.List(1, 10)
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("story entries = %d, want 2", len(entries))
	}
}
