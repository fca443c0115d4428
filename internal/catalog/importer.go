package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/oakhollow/hearth/internal/chore"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/reward"
)

// Importer copies the default catalogs into a family. Items the family
// already has are skipped; each remaining item is written individually with
// a short pause between writes, and one item failing does not stop the rest.
type Importer struct {
	chores  *chore.Service
	rewards *reward.Service
	logger  *slog.Logger

	// Delay between writes, the original's guard against hammering the
	// store. Tests set it to zero.
	Delay time.Duration
}

func NewImporter(chores *chore.Service, rewards *reward.Service, logger *slog.Logger) *Importer {
	return &Importer{
		chores:  chores,
		rewards: rewards,
		logger:  logger.With("component", "catalog"),
		Delay:   100 * time.Millisecond,
	}
}

// Result reports what an import pass did. Err aggregates per-item failures;
// Imported+Skipped+failures always covers the whole catalog.
type Result struct {
	ChoresImported  int
	ChoresSkipped   int
	RewardsImported int
	RewardsSkipped  int
	Err             error
}

// ImportDefaults imports both catalogs. Running it again is a no-op: every
// item already present is counted as skipped, not duplicated.
func (im *Importer) ImportDefaults(ctx context.Context, familyID int64) (Result, error) {
	var res Result

	existing, err := im.chores.ListTemplates(familyID, true)
	if err != nil {
		return res, fmt.Errorf("list chore templates: %w", err)
	}
	haveChore := make(map[choreKey]bool, len(existing))
	for _, t := range existing {
		haveChore[choreKey{t.Title, t.TimeOfDay}] = true
	}

	var errs error
	for _, item := range DefaultChores {
		if haveChore[choreKey{item.Title, item.TimeOfDay}] {
			res.ChoresSkipped++
			continue
		}
		if err := im.pause(ctx); err != nil {
			res.Err = multierr.Append(errs, err)
			return res, res.Err
		}
		_, err := im.chores.CreateTemplate(chore.TemplateInput{
			FamilyID:    familyID,
			Title:       item.Title,
			Description: item.Description,
			TimeOfDay:   item.TimeOfDay,
			BucksReward: item.BucksReward,
			Required:    item.Required,
			Frequency:   item.Frequency,
			DaysOfWeek:  item.DaysOfWeek,
		})
		if err != nil {
			im.logger.Error("chore import failed", "title", item.Title, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("chore %q: %w", item.Title, err))
			continue
		}
		res.ChoresImported++
	}

	existingRewards, err := im.rewards.ListTemplates(familyID, false)
	if err != nil {
		res.Err = multierr.Append(errs, fmt.Errorf("list reward templates: %w", err))
		return res, res.Err
	}
	haveReward := make(map[rewardKey]bool, len(existingRewards))
	for _, t := range existingRewards {
		haveReward[rewardKey{t.Title, t.Category}] = true
	}

	for _, item := range DefaultRewards {
		if haveReward[rewardKey{item.Title, item.Category}] {
			res.RewardsSkipped++
			continue
		}
		if err := im.pause(ctx); err != nil {
			res.Err = multierr.Append(errs, err)
			return res, res.Err
		}
		_, err := im.rewards.CreateTemplate(reward.TemplateInput{
			FamilyID:    familyID,
			Title:       item.Title,
			Description: item.Description,
			BucksPrice:  item.BucksPrice,
			Category:    item.Category,
			Quantity:    item.Quantity,
		})
		if err != nil {
			im.logger.Error("reward import failed", "title", item.Title, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("reward %q: %w", item.Title, err))
			continue
		}
		res.RewardsImported++
	}

	res.Err = errs
	im.logger.Info("catalog import finished",
		"family_id", familyID,
		"chores_imported", res.ChoresImported, "chores_skipped", res.ChoresSkipped,
		"rewards_imported", res.RewardsImported, "rewards_skipped", res.RewardsSkipped,
		"failures", len(multierr.Errors(errs)))
	return res, errs
}

func (im *Importer) pause(ctx context.Context) error {
	if im.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(im.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type choreKey struct {
	title     string
	timeOfDay model.TimeOfDay
}

type rewardKey struct {
	title    string
	category model.RewardCategory
}
