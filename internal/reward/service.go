// Package reward implements the reward shop: purchasable templates, the
// requested -> approved -> fulfilled | rejected request lifecycle, bucks
// debits, best-effort calendar linking, and post-fulfillment memories.
package reward

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/calendar"
	"github.com/oakhollow/hearth/internal/dates"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

// Calendar is the slice of the calendar service the reward workflow uses.
// Linking is best-effort: failures are logged, never surfaced.
type Calendar interface {
	Create(ctx context.Context, in calendar.CreateInput) (*model.Event, error)
	Update(ctx context.Context, id int64, in calendar.UpdateInput) (*model.Event, error)
}

// Notifier delivers out-of-band notifications. Nil disables them.
type Notifier interface {
	RewardApproved(familyID int64, inst *model.RewardInstance, title string)
}

type Service struct {
	rewards  *store.RewardStore
	bucks    *bucks.Service
	cal      Calendar
	stories  *store.StoryStore
	notifier Notifier
	logger   *slog.Logger

	// Request's check-then-decrement on limited stock is serialized per
	// template. Cross-process contention is out of scope for a single-node
	// deployment.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	now func() time.Time
}

func NewService(rewards *store.RewardStore, bucksSvc *bucks.Service, cal Calendar, stories *store.StoryStore, logger *slog.Logger) *Service {
	return &Service{
		rewards: rewards,
		bucks:   bucksSvc,
		cal:     cal,
		stories: stories,
		logger:  logger.With("component", "reward"),
		locks:   make(map[int64]*sync.Mutex),
		now:     time.Now,
	}
}

// SetNotifier attaches the push notifier. Call before serving.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) templateLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// TemplateInput carries a reward template create or update.
type TemplateInput struct {
	FamilyID    int64
	Title       string
	Description string
	BucksPrice  int
	Category    model.RewardCategory
	Quantity    int
	ExpiresAt   *time.Time
	ImageURL    string
	ChildIDs    []int64
}

func (in TemplateInput) validate() error {
	if in.Title == "" {
		return apperr.Validation("title", "title is required")
	}
	switch in.Category {
	case model.CategoryItems, model.CategoryActivities,
		model.CategoryPrivileges, model.CategorySpecialEvents:
	default:
		return apperr.Validation("category", "unknown category: "+string(in.Category))
	}
	if in.BucksPrice < 0 {
		return apperr.Validation("bucks_price", "price cannot be negative")
	}
	if in.Quantity < model.UnlimitedQuantity {
		return apperr.Validation("quantity", "quantity must be -1 (unlimited) or non-negative")
	}
	return nil
}

// CreateTemplate is idempotent on title within a family: creating a
// duplicate returns the existing template untouched, which is what makes
// catalog import re-runnable.
func (s *Service) CreateTemplate(in TemplateInput) (*model.RewardTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.rewards.FindTemplateByTitle(in.FamilyID, in.Title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	t, err := s.rewards.CreateTemplate(&model.RewardTemplate{
		FamilyID:    in.FamilyID,
		Title:       in.Title,
		Description: in.Description,
		BucksPrice:  in.BucksPrice,
		Category:    in.Category,
		Quantity:    in.Quantity,
		ExpiresAt:   in.ExpiresAt,
		Active:      true,
		ImageURL:    in.ImageURL,
		ChildIDs:    in.ChildIDs,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("reward template created", "id", t.ID, "title", t.Title)
	return t, nil
}

func (s *Service) UpdateTemplate(id int64, in TemplateInput) (*model.RewardTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.rewards.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("reward template", id)
	}

	existing.Title = in.Title
	existing.Description = in.Description
	existing.BucksPrice = in.BucksPrice
	existing.Category = in.Category
	existing.Quantity = in.Quantity
	existing.ExpiresAt = in.ExpiresAt
	existing.ImageURL = in.ImageURL
	existing.ChildIDs = in.ChildIDs
	return s.rewards.UpdateTemplate(existing)
}

func (s *Service) GetTemplate(id int64) (*model.RewardTemplate, error) {
	t, err := s.rewards.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("reward template", id)
	}
	return t, nil
}

func (s *Service) ListTemplates(familyID int64, activeOnly bool) ([]model.RewardTemplate, error) {
	return s.rewards.ListTemplates(familyID, activeOnly)
}

func (s *Service) DeactivateTemplate(id int64) error {
	t, err := s.rewards.GetTemplate(id)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("reward template", id)
	}
	return s.rewards.DeactivateTemplate(id)
}

// Request redeems a template for a child: the template must be active,
// unexpired, and in stock. Limited stock is taken and the child's bucks are
// debited at request time, before any parent sees it.
func (s *Service) Request(templateID, childID int64, note string, scheduledDate *time.Time) (*model.RewardInstance, error) {
	t, err := s.rewards.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("reward template", templateID)
	}
	if !t.Active {
		return nil, apperr.InvalidState("reward template", "inactive", "request")
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(s.now()) {
		return nil, apperr.InvalidState("reward template", "expired", "request")
	}
	if len(t.ChildIDs) > 0 && !containsID(t.ChildIDs, childID) {
		return nil, apperr.Validation("child_id", "reward is not available to this child")
	}

	if t.Quantity != model.UnlimitedQuantity {
		lock := s.templateLock(templateID)
		lock.Lock()
		taken, err := s.rewards.DecrementQuantity(templateID)
		lock.Unlock()
		if err != nil {
			return nil, err
		}
		if !taken {
			return nil, apperr.InvalidState("reward template", "out of stock", "request")
		}
	}

	inst, err := s.rewards.CreateInstance(t.FamilyID, t.ID, childID, t.BucksPrice, note, scheduledDate)
	if err != nil {
		return nil, fmt.Errorf("create reward instance: %w", err)
	}

	if t.BucksPrice > 0 {
		srcID := inst.ID
		_, err := s.bucks.Adjust(t.FamilyID, childID, -t.BucksPrice,
			"Requested: "+t.Title, model.SourceReward, &srcID, childID)
		if err != nil {
			return nil, fmt.Errorf("debit request: %w", err)
		}
	}

	s.logger.Info("reward requested", "instance_id", inst.ID,
		"template_id", t.ID, "child_id", childID, "price", t.BucksPrice)
	return inst, nil
}

// Approve stamps the approving parent and, when a schedule date is present,
// tries to create a linked calendar event. The calendar write retries
// transient failures inside the calendar service and is best-effort either
// way: the reward is approved even if the event never materializes.
func (s *Service) Approve(ctx context.Context, instanceID, parentID int64, note string, scheduledDate *time.Time) (*model.RewardInstance, error) {
	inst, err := s.rewards.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("reward instance", instanceID)
	}
	if inst.Status != model.RewardRequested {
		return nil, apperr.InvalidState("reward instance", string(inst.Status), "approve")
	}

	approved, err := s.rewards.MarkApproved(instanceID, parentID, note, scheduledDate)
	if err != nil {
		return nil, err
	}

	t, err := s.rewards.GetTemplate(inst.TemplateID)
	if err != nil {
		return nil, err
	}
	title := "Reward"
	if t != nil {
		title = t.Title
	}

	if approved.ScheduledDate != nil && s.cal != nil {
		s.linkCalendarEvent(ctx, approved, title)
		// Re-read so the caller sees the link if it was written.
		if linked, err := s.rewards.GetInstance(instanceID); err == nil && linked != nil {
			approved = linked
		}
	}

	if s.notifier != nil {
		s.notifier.RewardApproved(approved.FamilyID, approved, title)
	}

	s.logger.Info("reward approved", "instance_id", instanceID, "parent_id", parentID)
	return approved, nil
}

func (s *Service) linkCalendarEvent(ctx context.Context, inst *model.RewardInstance, title string) {
	childID := inst.ChildID
	event, err := s.cal.Create(ctx, calendar.CreateInput{
		FamilyID:  inst.FamilyID,
		Title:     "Reward: " + title,
		EventType: model.EventActivity,
		Start:     dates.Input{Time: inst.ScheduledDate},
		ChildID:   &childID,
		ActorID:   inst.ChildID,
	})
	if err != nil {
		s.logger.Warn("calendar link failed, approving without event",
			"instance_id", inst.ID, "error", err)
		return
	}
	if err := s.rewards.SetCalendarEventID(inst.ID, event.ID); err != nil {
		s.logger.Warn("storing calendar link failed",
			"instance_id", inst.ID, "event_id", event.ID, "error", err)
	}
}

// Reject stamps the rejecting parent and a reason. Quantity taken at request
// time is not restocked.
func (s *Service) Reject(instanceID, parentID int64, reason string) (*model.RewardInstance, error) {
	inst, err := s.rewards.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("reward instance", instanceID)
	}
	if inst.Status != model.RewardRequested {
		return nil, apperr.InvalidState("reward instance", string(inst.Status), "reject")
	}

	rejected, err := s.rewards.MarkRejected(instanceID, parentID, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reward rejected", "instance_id", instanceID, "reason", reason)
	return rejected, nil
}

// Fulfill closes out an approved reward. A linked calendar event is marked
// completed on a best-effort basis.
func (s *Service) Fulfill(ctx context.Context, instanceID, parentID int64) (*model.RewardInstance, error) {
	inst, err := s.rewards.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("reward instance", instanceID)
	}
	if inst.Status != model.RewardApproved {
		return nil, apperr.InvalidState("reward instance", string(inst.Status), "fulfill")
	}

	fulfilled, err := s.rewards.MarkFulfilled(instanceID, parentID)
	if err != nil {
		return nil, err
	}

	if fulfilled.CalendarEventID != nil && s.cal != nil {
		status := "completed"
		if _, err := s.cal.Update(ctx, *fulfilled.CalendarEventID, calendar.UpdateInput{
			Status:  &status,
			ActorID: parentID,
		}); err != nil {
			s.logger.Warn("calendar completion update failed",
				"instance_id", instanceID, "event_id", *fulfilled.CalendarEventID, "error", err)
		}
	}

	s.logger.Info("reward fulfilled", "instance_id", instanceID, "parent_id", parentID)
	return fulfilled, nil
}

// MemoryInput carries a memory capture. Photos accumulate across calls.
type MemoryInput struct {
	PhotoURLs []string
	Note      string
	Rating    int
}

// AddMemories attaches photos, a note, and a rating to a fulfilled reward,
// and appends the moment to the family story feed. Photos append to any
// already stored; they are never replaced.
func (s *Service) AddMemories(instanceID int64, in MemoryInput) (*model.RewardInstance, error) {
	if in.Rating < 0 || in.Rating > 5 {
		return nil, apperr.Validation("rating", "rating must be 0-5")
	}

	inst, err := s.rewards.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("reward instance", instanceID)
	}
	if inst.Status != model.RewardFulfilled {
		return nil, apperr.InvalidState("reward instance", string(inst.Status), "add memories")
	}

	photos := append(append([]string{}, inst.MemoryPhotos...), in.PhotoURLs...)
	note := inst.MemoryNote
	if in.Note != "" {
		note = in.Note
	}
	rating := inst.MemoryRating
	if in.Rating != 0 {
		rating = in.Rating
	}

	updated, err := s.rewards.SetMemories(instanceID, photos, note, rating)
	if err != nil {
		return nil, err
	}

	if s.stories != nil {
		t, err := s.rewards.GetTemplate(inst.TemplateID)
		title := "Reward memory"
		if err == nil && t != nil {
			title = t.Title
		}
		if _, err := s.stories.Append(inst.FamilyID, "reward_memory", inst.ID,
			title, in.Note, in.PhotoURLs); err != nil {
			s.logger.Warn("story feed append failed", "instance_id", instanceID, "error", err)
		}
	}

	return updated, nil
}

func (s *Service) Get(id int64) (*model.RewardInstance, error) {
	inst, err := s.rewards.GetInstance(id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, apperr.NotFound("reward instance", id)
	}
	return inst, nil
}

func (s *Service) ListInstances(familyID int64, status model.RewardStatus) ([]model.RewardInstance, error) {
	return s.rewards.ListInstances(familyID, status)
}

func (s *Service) ListChildInstances(familyID, childID int64, status model.RewardStatus) ([]model.RewardInstance, error) {
	return s.rewards.ListInstancesForChild(familyID, childID, status)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
