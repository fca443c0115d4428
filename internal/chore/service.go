// Package chore implements the chore workflow: templates describing the
// work, per-child schedules resolving when it happens, and dated instances
// moving through pending -> completed (auto-approved) -> rejected.
package chore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/recurrence"
	"github.com/oakhollow/hearth/internal/store"
)

type Service struct {
	chores *store.ChoreStore
	bucks  *bucks.Service
	logger *slog.Logger

	loc *time.Location
	now func() time.Time
}

func NewService(chores *store.ChoreStore, bucksSvc *bucks.Service, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		chores: chores,
		bucks:  bucksSvc,
		logger: logger.With("component", "chore"),
		loc:    loc,
		now:    time.Now,
	}
}

// TemplateInput carries a chore template create or update.
type TemplateInput struct {
	FamilyID    int64
	Title       string
	Description string
	TimeOfDay   model.TimeOfDay
	BucksReward int
	Required    bool
	Frequency   model.Frequency
	DaysOfWeek  []time.Weekday
	IconURL     string
}

func (in TemplateInput) validate() error {
	if in.Title == "" {
		return apperr.Validation("title", "title is required")
	}
	switch in.TimeOfDay {
	case model.Morning, model.Afternoon, model.Evening, model.Anytime:
	default:
		return apperr.Validation("time_of_day", "unknown time of day: "+string(in.TimeOfDay))
	}
	switch in.Frequency {
	case model.FreqDaily, model.FreqWeekly, model.FreqWeekdays, model.FreqAsNeeded:
	default:
		return apperr.Validation("frequency", "unknown frequency: "+string(in.Frequency))
	}
	if in.BucksReward < 0 {
		return apperr.Validation("bucks_reward", "reward cannot be negative")
	}
	return nil
}

func (s *Service) CreateTemplate(in TemplateInput) (*model.ChoreTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.chores.CreateTemplate(&model.ChoreTemplate{
		FamilyID:    in.FamilyID,
		Title:       in.Title,
		Description: in.Description,
		TimeOfDay:   in.TimeOfDay,
		BucksReward: in.BucksReward,
		Required:    in.Required,
		Frequency:   in.Frequency,
		DaysOfWeek:  in.DaysOfWeek,
		Active:      false,
		IconURL:     in.IconURL,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("chore template created", "id", t.ID, "title", t.Title)
	return t, nil
}

func (s *Service) UpdateTemplate(id int64, in TemplateInput) (*model.ChoreTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.chores.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("chore template", id)
	}

	existing.Title = in.Title
	existing.Description = in.Description
	existing.TimeOfDay = in.TimeOfDay
	existing.BucksReward = in.BucksReward
	existing.Required = in.Required
	existing.Frequency = in.Frequency
	existing.DaysOfWeek = in.DaysOfWeek
	existing.IconURL = in.IconURL
	return s.chores.UpdateTemplate(existing)
}

func (s *Service) GetTemplate(id int64) (*model.ChoreTemplate, error) {
	t, err := s.chores.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("chore template", id)
	}
	return t, nil
}

func (s *Service) ListTemplates(familyID int64, includeArchived bool) ([]model.ChoreTemplate, error) {
	return s.chores.ListTemplates(familyID, includeArchived)
}

func (s *Service) GetInstance(id int64) (*model.ChoreInstance, error) {
	inst, err := s.chores.GetInstance(id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("chore instance", id)
	}
	return inst, nil
}

// Archive soft-deletes a template and deactivates its schedules. Existing
// instances keep their history.
func (s *Service) Archive(id int64) error {
	t, err := s.chores.GetTemplate(id)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("chore template", id)
	}
	if err := s.chores.ArchiveTemplate(id); err != nil {
		return err
	}
	if err := s.chores.DeactivateSchedulesForTemplate(id); err != nil {
		return err
	}
	s.logger.Info("chore template archived", "id", id)
	return nil
}

// Activate turns a template on for the given children: schedules are
// regenerated from the template's frequency and today's instances are
// created immediately, so the chore shows up without waiting for the next
// generation pass.
func (s *Service) Activate(templateID int64, childIDs []int64) error {
	t, err := s.chores.GetTemplate(templateID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("chore template", templateID)
	}
	if t.Archived {
		return apperr.InvalidState("chore template", "archived", "activate")
	}
	if len(childIDs) == 0 {
		return apperr.Validation("child_ids", "at least one child is required")
	}

	if !t.Active {
		t.Active = true
		if _, err := s.chores.UpdateTemplate(t); err != nil {
			return err
		}
	}

	days := recurrence.DaysFor(t.Frequency, t.DaysOfWeek)
	today := s.now().In(s.loc)
	todayStr := recurrence.FormatDate(today)

	for _, childID := range childIDs {
		if _, err := s.chores.UpsertSchedule(t.FamilyID, t.ID, childID, days); err != nil {
			return fmt.Errorf("schedule child %d: %w", childID, err)
		}
		if recurrence.DueOn(days, today) {
			if _, _, err := s.chores.CreateInstance(t.FamilyID, t.ID, childID, todayStr); err != nil {
				return fmt.Errorf("generate today for child %d: %w", childID, err)
			}
		}
	}

	s.logger.Info("chore template activated", "id", templateID,
		"children", len(childIDs), "days", days)
	return nil
}

// GenerateForDate is the periodic pass: it creates the day's instances for
// every active schedule that is due. Generation is idempotent; re-running a
// date creates nothing new.
func (s *Service) GenerateForDate(familyID int64, date time.Time) (int, error) {
	schedules, err := s.chores.ListSchedules(familyID, true)
	if err != nil {
		return 0, err
	}

	dateStr := recurrence.FormatDate(date.In(s.loc))
	generated := 0
	for _, sched := range schedules {
		t, err := s.chores.GetTemplate(sched.TemplateID)
		if err != nil {
			return generated, err
		}
		if t == nil || !t.Active || t.Archived {
			continue
		}
		if !recurrence.DueOn(sched.DaysOfWeek, date.In(s.loc)) {
			continue
		}
		_, created, err := s.chores.CreateInstance(familyID, sched.TemplateID, sched.ChildID, dateStr)
		if err != nil {
			return generated, fmt.Errorf("generate instance: %w", err)
		}
		if created {
			generated++
		}
	}

	if generated > 0 {
		s.logger.Info("chore instances generated", "family_id", familyID,
			"date", dateStr, "count", generated)
	}
	return generated, nil
}

func (s *Service) ListDay(familyID int64, date string) ([]model.ChoreInstance, error) {
	return s.chores.ListInstancesForDate(familyID, date)
}

func (s *Service) ListChildDay(familyID, childID int64, date string) ([]model.ChoreInstance, error) {
	return s.chores.ListInstancesForChild(familyID, childID, date)
}

// CompletionInput carries the child's completion details.
type CompletionInput struct {
	Mood     string
	Effort   int
	PhotoURL string
	Note     string
}

// Complete marks a pending instance done. Completion auto-approves and
// credits the template's reward to the child immediately; a later rejection
// reverses the credit.
func (s *Service) Complete(instanceID, actorID int64, in CompletionInput) (*model.ChoreInstance, error) {
	inst, err := s.chores.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("chore instance", instanceID)
	}
	if inst.Status != model.ChorePending {
		return nil, apperr.InvalidState("chore instance", string(inst.Status), "complete")
	}

	t, err := s.chores.GetTemplate(inst.TemplateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("chore template", inst.TemplateID)
	}

	done, err := s.chores.MarkCompleted(instanceID, model.ChoreApproved,
		t.BucksReward, in.Mood, in.Effort, in.PhotoURL, in.Note)
	if err != nil {
		return nil, err
	}

	if t.BucksReward > 0 {
		srcID := inst.ID
		_, err := s.bucks.Adjust(inst.FamilyID, inst.ChildID, t.BucksReward,
			"Completed: "+t.Title, model.SourceChore, &srcID, actorID)
		if err != nil {
			return nil, fmt.Errorf("credit completion: %w", err)
		}
	}

	s.logger.Info("chore completed", "instance_id", instanceID,
		"child_id", inst.ChildID, "awarded", t.BucksReward)
	return done, nil
}

// AdjustAward nudges a resolved instance's award by +1 or -1 buck and
// mirrors the change in the ledger. A decrement below zero is a silent
// no-op, not an error.
func (s *Service) AdjustAward(instanceID int64, delta int, actorID int64) (*model.ChoreInstance, error) {
	if delta != 1 && delta != -1 {
		return nil, apperr.Validation("delta", "adjustment must be +1 or -1")
	}

	inst, err := s.chores.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("chore instance", instanceID)
	}
	if inst.Status != model.ChoreApproved && inst.Status != model.ChoreCompleted {
		return nil, apperr.InvalidState("chore instance", string(inst.Status), "adjust award")
	}

	next := inst.BucksAwarded + delta
	if next < 0 {
		return inst, nil
	}

	updated, err := s.chores.SetAward(instanceID, next)
	if err != nil {
		return nil, err
	}

	t, err := s.chores.GetTemplate(inst.TemplateID)
	if err != nil {
		return nil, err
	}
	title := "chore"
	if t != nil {
		title = t.Title
	}
	srcID := inst.ID
	_, err = s.bucks.Adjust(inst.FamilyID, inst.ChildID, delta,
		"Adjusted: "+title, model.SourceChore, &srcID, actorID)
	if err != nil {
		return nil, fmt.Errorf("adjust ledger: %w", err)
	}
	return updated, nil
}

// Reject overturns a completed instance. Terminal: the earlier credit is
// reversed in full and the instance cannot be re-completed.
func (s *Service) Reject(instanceID, parentID int64) (*model.ChoreInstance, error) {
	inst, err := s.chores.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("chore instance", instanceID)
	}
	if inst.Status != model.ChoreApproved && inst.Status != model.ChoreCompleted {
		return nil, apperr.InvalidState("chore instance", string(inst.Status), "reject")
	}

	rejected, err := s.chores.MarkRejected(instanceID, parentID)
	if err != nil {
		return nil, err
	}

	if inst.BucksAwarded > 0 {
		t, err := s.chores.GetTemplate(inst.TemplateID)
		if err != nil {
			return nil, err
		}
		title := "chore"
		if t != nil {
			title = t.Title
		}
		srcID := inst.ID
		_, err = s.bucks.Adjust(inst.FamilyID, inst.ChildID, -inst.BucksAwarded,
			"Rejected: "+title, model.SourceChore, &srcID, parentID)
		if err != nil {
			return nil, fmt.Errorf("reverse credit: %w", err)
		}
	}

	s.logger.Info("chore rejected", "instance_id", instanceID,
		"parent_id", parentID, "reversed", inst.BucksAwarded)
	return rejected, nil
}
