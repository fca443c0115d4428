package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/reward"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

type RewardHandler struct {
	svc    *reward.Service
	hub    *ws.Hub
	logger *slog.Logger
}

func NewRewardHandler(svc *reward.Service, hub *ws.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{svc: svc, hub: hub, logger: logger}
}

// ownTemplate loads a template and hides other families' templates behind
// not found.
func (h *RewardHandler) ownTemplate(r *http.Request, id int64) (*model.RewardTemplate, error) {
	tmpl, err := h.svc.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if tmpl.FamilyID != auth.FamilyID(r.Context()) {
		return nil, apperr.NotFound("reward template", id)
	}
	return tmpl, nil
}

func (h *RewardHandler) ownInstance(r *http.Request, id int64) (*model.RewardInstance, error) {
	inst, err := h.svc.Get(id)
	if err != nil {
		return nil, err
	}
	if inst.FamilyID != auth.FamilyID(r.Context()) {
		return nil, apperr.NotFound("reward instance", id)
	}
	return inst, nil
}

type rewardTemplateRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	BucksPrice  int                  `json:"bucks_price"`
	Category    model.RewardCategory `json:"category"`
	Quantity    int                  `json:"quantity"`
	ExpiresAt   *time.Time           `json:"expires_at"`
	ImageURL    string               `json:"image_url"`
	ChildIDs    []int64              `json:"child_ids"`
}

func (req rewardTemplateRequest) toInput(familyID int64) reward.TemplateInput {
	return reward.TemplateInput{
		FamilyID:    familyID,
		Title:       req.Title,
		Description: req.Description,
		BucksPrice:  req.BucksPrice,
		Category:    req.Category,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
		ImageURL:    req.ImageURL,
		ChildIDs:    req.ChildIDs,
	}
}

func (h *RewardHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req rewardTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, err := h.svc.CreateTemplate(req.toInput(auth.FamilyID(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(tmpl.FamilyID, ws.NewMessage("reward_template", "created", tmpl.ID, nil))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *RewardHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	templates, err := h.svc.ListTemplates(auth.FamilyID(r.Context()), activeOnly)
	if err != nil {
		h.logger.Error("list reward templates", "error", err)
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []model.RewardTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *RewardHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	tmpl, err := h.ownTemplate(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *RewardHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req rewardTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, err := h.svc.UpdateTemplate(id, req.toInput(auth.FamilyID(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(tmpl.FamilyID, ws.NewMessage("reward_template", "updated", tmpl.ID, nil))
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *RewardHandler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.DeactivateTemplate(id); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(auth.FamilyID(r.Context()), ws.NewMessage("reward_template", "deactivated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type requestRewardRequest struct {
	ChildID       int64      `json:"child_id"`
	Note          string     `json:"note"`
	ScheduledDate *time.Time `json:"scheduled_date"`
}

// Request lets a child spend bucks on a reward. The price is debited here,
// not at approval.
func (h *RewardHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req requestRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	childID := req.ChildID
	if childID == 0 {
		childID = auth.MemberID(r.Context())
	}

	inst, err := h.svc.Request(id, childID, req.Note, req.ScheduledDate)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("reward_instance", "requested", inst.ID, map[string]any{"child_id": inst.ChildID}))
	writeJSON(w, http.StatusCreated, inst)
}

type approveRequest struct {
	Note          string     `json:"note"`
	ScheduledDate *time.Time `json:"scheduled_date"`
}

func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inst, err := h.svc.Approve(r.Context(), id, auth.MemberID(r.Context()), req.Note, req.ScheduledDate)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("reward_instance", "approved", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *RewardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inst, err := h.svc.Reject(id, auth.MemberID(r.Context()), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("reward_instance", "rejected", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}

func (h *RewardHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	inst, err := h.svc.Fulfill(r.Context(), id, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("reward_instance", "fulfilled", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}

type memoryRequest struct {
	PhotoURLs []string `json:"photo_urls"`
	Note      string   `json:"note"`
	Rating    int      `json:"rating"`
}

func (h *RewardHandler) AddMemories(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req memoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inst, err := h.svc.AddMemories(id, reward.MemoryInput{
		PhotoURLs: req.PhotoURLs,
		Note:      req.Note,
		Rating:    req.Rating,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("reward_instance", "memories_added", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}

func (h *RewardHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	inst, err := h.ownInstance(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *RewardHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	status := model.RewardStatus(r.URL.Query().Get("status"))

	var instances []model.RewardInstance
	var err error
	if childStr := r.URL.Query().Get("child_id"); childStr != "" {
		childID, perr := parseID(childStr)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child_id"})
			return
		}
		instances, err = h.svc.ListChildInstances(familyID, childID, status)
	} else {
		instances, err = h.svc.ListInstances(familyID, status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if instances == nil {
		instances = []model.RewardInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}
