package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
)

// Notifier fans notifications out to every subscribed device in a family.
// Expired subscriptions are pruned as they are discovered.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(svc *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		subs:    subs,
		logger:  logger.With("component", "push"),
	}
}

// RewardApproved notifies the family that a reward request was approved.
func (n *Notifier) RewardApproved(familyID int64, inst *model.RewardInstance, title string) {
	n.SendToFamily(familyID, Payload{
		Title: "Reward Approved",
		Body:  fmt.Sprintf("%s was approved", title),
		URL:   "/rewards",
		Tag:   fmt.Sprintf("reward-%d", inst.ID),
	})
}

// ChoresGenerated notifies the family that today's chores are ready.
func (n *Notifier) ChoresGenerated(familyID int64, count int) {
	if count == 0 {
		return
	}
	body := fmt.Sprintf("%d chores are ready for today", count)
	if count == 1 {
		body = "1 chore is ready for today"
	}
	n.SendToFamily(familyID, Payload{
		Title: "Today's Chores",
		Body:  body,
		URL:   "/chores",
		Tag:   "chores-daily",
	})
}

// SendToFamily delivers a payload to every subscription in the family.
func (n *Notifier) SendToFamily(familyID int64, payload Payload) {
	subs, err := n.subs.ListByFamily(familyID)
	if err != nil {
		n.logger.Error("list subscriptions", "family_id", familyID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send push", "family_id", familyID, "error", err)
		}
	}
}
