package chore

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/database"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/recurrence"
	"github.com/oakhollow/hearth/internal/store"
)

func testService(t *testing.T) (*Service, *bucks.Service) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bucksSvc := bucks.NewService(store.NewBucksStore(db), logger)
	svc := NewService(store.NewChoreStore(db), bucksSvc, time.UTC, logger)
	// Pin to a Monday so weekly schedules are due "today" in tests.
	svc.now = func() time.Time {
		return time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	}
	return svc, bucksSvc
}

func createTemplate(t *testing.T, svc *Service, title string, reward int, freq model.Frequency) *model.ChoreTemplate {
	t.Helper()
	tmpl, err := svc.CreateTemplate(TemplateInput{
		FamilyID:    1,
		Title:       title,
		TimeOfDay:   model.Morning,
		BucksReward: reward,
		Frequency:   freq,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tmpl
}

func TestTemplateValidation(t *testing.T) {
	svc, _ := testService(t)

	var verr *apperr.ValidationError

	_, err := svc.CreateTemplate(TemplateInput{
		FamilyID: 1, TimeOfDay: model.Morning, Frequency: model.FreqDaily,
	})
	if !errors.As(err, &verr) {
		t.Errorf("missing title: got %v, want ValidationError", err)
	}

	_, err = svc.CreateTemplate(TemplateInput{
		FamilyID: 1, Title: "x", TimeOfDay: "dawn", Frequency: model.FreqDaily,
	})
	if !errors.As(err, &verr) {
		t.Errorf("bad time of day: got %v, want ValidationError", err)
	}

	_, err = svc.CreateTemplate(TemplateInput{
		FamilyID: 1, Title: "x", TimeOfDay: model.Morning, Frequency: "fortnightly",
	})
	if !errors.As(err, &verr) {
		t.Errorf("bad frequency: got %v, want ValidationError", err)
	}
}

func TestActivateGeneratesTodayImmediately(t *testing.T) {
	svc, _ := testService(t)

	tmpl := createTemplate(t, svc, "Make bed", 1, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5, 6}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	today := recurrence.FormatDate(svc.now())
	instances, err := svc.ListDay(1, today)
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances for today, got %d", len(instances))
	}
	for _, inst := range instances {
		if inst.Status != model.ChorePending {
			t.Errorf("instance status = %q, want pending", inst.Status)
		}
	}

	// Re-activation does not duplicate instances.
	if err := svc.Activate(tmpl.ID, []int64{5, 6}); err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	instances, err = svc.ListDay(1, today)
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(instances) != 2 {
		t.Errorf("re-activation duplicated instances: %d", len(instances))
	}
}

func TestActivateWeeklySkipsOffDays(t *testing.T) {
	svc, _ := testService(t)

	// now is a Monday; weekly resolves to Monday, so today generates.
	weekly := createTemplate(t, svc, "Laundry", 2, model.FreqWeekly)
	if err := svc.Activate(weekly.ID, []int64{5}); err != nil {
		t.Fatalf("activate weekly: %v", err)
	}
	today := recurrence.FormatDate(svc.now())
	instances, err := svc.ListDay(1, today)
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("weekly on Monday should generate today, got %d", len(instances))
	}

	// Tuesday's pass generates nothing for a Monday-only schedule.
	tuesday := svc.now().AddDate(0, 0, 1)
	n, err := svc.GenerateForDate(1, tuesday)
	if err != nil {
		t.Fatalf("generate for date: %v", err)
	}
	if n != 0 {
		t.Errorf("generated %d instances on an off day, want 0", n)
	}
}

func TestGenerateForDateIdempotent(t *testing.T) {
	svc, _ := testService(t)

	tmpl := createTemplate(t, svc, "Dishes", 1, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	tomorrow := svc.now().AddDate(0, 0, 1)
	n, err := svc.GenerateForDate(1, tomorrow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 1 {
		t.Fatalf("first pass generated %d, want 1", n)
	}

	n, err = svc.GenerateForDate(1, tomorrow)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass generated %d, want 0", n)
	}
}

func TestCompleteCreditsAndAutoApproves(t *testing.T) {
	svc, bucksSvc := testService(t)

	tmpl := createTemplate(t, svc, "Sweep", 3, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	today := recurrence.FormatDate(svc.now())
	instances, _ := svc.ListDay(1, today)
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(instances))
	}

	done, err := svc.Complete(instances[0].ID, 5, CompletionInput{Mood: "happy", Effort: 4})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.ChoreApproved {
		t.Errorf("status = %q, want approved (auto)", done.Status)
	}
	if done.BucksAwarded != 3 {
		t.Errorf("bucks_awarded = %d, want 3", done.BucksAwarded)
	}

	balance, err := bucksSvc.Balance(5)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Errorf("balance = %d, want 3", balance)
	}

	// Completing again is an invalid state transition.
	_, err = svc.Complete(instances[0].ID, 5, CompletionInput{})
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Errorf("double complete: got %v, want InvalidStateError", err)
	}
}

func TestAdjustAwardFloorsAtZero(t *testing.T) {
	svc, bucksSvc := testService(t)

	tmpl := createTemplate(t, svc, "Water plants", 1, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	today := recurrence.FormatDate(svc.now())
	instances, _ := svc.ListDay(1, today)
	if _, err := svc.Complete(instances[0].ID, 5, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	up, err := svc.AdjustAward(instances[0].ID, 1, 2)
	if err != nil {
		t.Fatalf("adjust +1: %v", err)
	}
	if up.BucksAwarded != 2 {
		t.Errorf("award = %d, want 2", up.BucksAwarded)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.AdjustAward(instances[0].ID, -1, 2); err != nil {
			t.Fatalf("adjust -1: %v", err)
		}
	}
	// Award is now 0; a further decrement is a no-op, not an error.
	same, err := svc.AdjustAward(instances[0].ID, -1, 2)
	if err != nil {
		t.Fatalf("adjust below zero: %v", err)
	}
	if same.BucksAwarded != 0 {
		t.Errorf("award = %d, want 0 after floored decrement", same.BucksAwarded)
	}

	balance, _ := bucksSvc.Balance(5)
	if balance != 0 {
		t.Errorf("balance = %d, want 0 (1+1-1-1, floored no-op adds nothing)", balance)
	}

	_, err = svc.AdjustAward(instances[0].ID, 2, 2)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("delta 2: got %v, want ValidationError", err)
	}
}

func TestRejectReversesCredit(t *testing.T) {
	svc, bucksSvc := testService(t)

	tmpl := createTemplate(t, svc, "Vacuum", 5, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	today := recurrence.FormatDate(svc.now())
	instances, _ := svc.ListDay(1, today)

	// Rejecting a pending instance is invalid.
	_, err := svc.Reject(instances[0].ID, 2)
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Errorf("reject pending: got %v, want InvalidStateError", err)
	}

	if _, err := svc.Complete(instances[0].ID, 5, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	balance, _ := bucksSvc.Balance(5)
	if balance != 5 {
		t.Fatalf("balance after completion = %d, want 5", balance)
	}

	rejected, err := svc.Reject(instances[0].ID, 2)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.ChoreRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}

	balance, _ = bucksSvc.Balance(5)
	if balance != 0 {
		t.Errorf("balance after rejection = %d, want 0 (credit reversed)", balance)
	}

	history, err := bucksSvc.History(1, nil, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("ledger entries = %d, want 2 (credit + reversal)", len(history))
	}
}

func TestArchiveDeactivatesSchedules(t *testing.T) {
	svc, _ := testService(t)

	tmpl := createTemplate(t, svc, "Trash", 1, model.FreqDaily)
	if err := svc.Activate(tmpl.ID, []int64{5}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := svc.Archive(tmpl.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	// The next generation pass creates nothing for the archived template.
	tomorrow := svc.now().AddDate(0, 0, 1)
	n, err := svc.GenerateForDate(1, tomorrow)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n != 0 {
		t.Errorf("archived template generated %d instances", n)
	}

	// Activating an archived template is invalid.
	err = svc.Activate(tmpl.ID, []int64{5})
	var ise *apperr.InvalidStateError
	if !errors.As(err, &ise) {
		t.Errorf("activate archived: got %v, want InvalidStateError", err)
	}
}
