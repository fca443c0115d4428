package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oakhollow/hearth/internal/apperr"
	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/chore"
	"github.com/oakhollow/hearth/internal/model"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

type ChoreHandler struct {
	svc    *chore.Service
	hub    *ws.Hub
	logger *slog.Logger
}

func NewChoreHandler(svc *chore.Service, hub *ws.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{svc: svc, hub: hub, logger: logger}
}

// ownTemplate loads a template and hides other families' templates behind
// not found.
func (h *ChoreHandler) ownTemplate(r *http.Request, id int64) (*model.ChoreTemplate, error) {
	tmpl, err := h.svc.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if tmpl.FamilyID != auth.FamilyID(r.Context()) {
		return nil, apperr.NotFound("chore template", id)
	}
	return tmpl, nil
}

func (h *ChoreHandler) ownInstance(r *http.Request, id int64) (*model.ChoreInstance, error) {
	inst, err := h.svc.GetInstance(id)
	if err != nil {
		return nil, err
	}
	if inst.FamilyID != auth.FamilyID(r.Context()) {
		return nil, apperr.NotFound("chore instance", id)
	}
	return inst, nil
}

type choreTemplateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TimeOfDay   model.TimeOfDay `json:"time_of_day"`
	BucksReward int             `json:"bucks_reward"`
	Required    bool            `json:"required"`
	Frequency   model.Frequency `json:"frequency"`
	DaysOfWeek  []int           `json:"days_of_week"`
	IconURL     string          `json:"icon_url"`
}

func (req choreTemplateRequest) toInput(familyID int64) chore.TemplateInput {
	days := make([]time.Weekday, 0, len(req.DaysOfWeek))
	for _, d := range req.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return chore.TemplateInput{
		FamilyID:    familyID,
		Title:       req.Title,
		Description: req.Description,
		TimeOfDay:   req.TimeOfDay,
		BucksReward: req.BucksReward,
		Required:    req.Required,
		Frequency:   req.Frequency,
		DaysOfWeek:  days,
		IconURL:     req.IconURL,
	}
}

func (h *ChoreHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req choreTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, err := h.svc.CreateTemplate(req.toInput(auth.FamilyID(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(tmpl.FamilyID, ws.NewMessage("chore_template", "created", tmpl.ID, nil))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *ChoreHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	templates, err := h.svc.ListTemplates(auth.FamilyID(r.Context()), includeArchived)
	if err != nil {
		h.logger.Error("list chore templates", "error", err)
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []model.ChoreTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *ChoreHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
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

func (h *ChoreHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req choreTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tmpl, err := h.svc.UpdateTemplate(id, req.toInput(auth.FamilyID(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(tmpl.FamilyID, ws.NewMessage("chore_template", "updated", tmpl.ID, nil))
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *ChoreHandler) ArchiveTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Archive(id); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(auth.FamilyID(r.Context()), ws.NewMessage("chore_template", "archived", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type activateRequest struct {
	ChildIDs []int64 `json:"child_ids"`
}

func (h *ChoreHandler) ActivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownTemplate(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.svc.Activate(id, req.ChildIDs); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(auth.FamilyID(r.Context()), ws.NewMessage("chore_template", "activated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Generate creates today's instances for every active schedule. Idempotent;
// returns how many instances were created this call.
func (h *ChoreHandler) Generate(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD format"})
			return
		}
		date = t
	}

	created, err := h.svc.GenerateForDate(familyID, date)
	if err != nil {
		h.logger.Error("generate chore instances", "error", err)
		writeError(w, err)
		return
	}

	if created > 0 {
		h.hub.Broadcast(familyID, ws.NewMessage("chore_instance", "generated", 0, map[string]any{"created": created}))
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (h *ChoreHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date query parameter is required"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	var instances []model.ChoreInstance
	var err error
	if childStr := r.URL.Query().Get("child_id"); childStr != "" {
		childID, perr := parseID(childStr)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child_id"})
			return
		}
		instances, err = h.svc.ListChildDay(familyID, childID, date)
	} else {
		instances, err = h.svc.ListDay(familyID, date)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if instances == nil {
		instances = []model.ChoreInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

type completeRequest struct {
	Mood     string `json:"mood"`
	Effort   int    `json:"effort"`
	PhotoURL string `json:"photo_url"`
	Note     string `json:"note"`
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inst, err := h.svc.Complete(id, auth.MemberID(r.Context()), chore.CompletionInput{
		Mood:     req.Mood,
		Effort:   req.Effort,
		PhotoURL: req.PhotoURL,
		Note:     req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("chore_instance", "completed", inst.ID, map[string]any{"child_id": inst.ChildID}))
	writeJSON(w, http.StatusOK, inst)
}

type adjustAwardRequest struct {
	Delta int `json:"delta"`
}

func (h *ChoreHandler) AdjustAward(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	var req adjustAwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	inst, err := h.svc.AdjustAward(id, req.Delta, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("chore_instance", "award_adjusted", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}

func (h *ChoreHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if _, err := h.ownInstance(r, id); err != nil {
		writeError(w, err)
		return
	}

	inst, err := h.svc.Reject(id, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(inst.FamilyID, ws.NewMessage("chore_instance", "rejected", inst.ID, nil))
	writeJSON(w, http.StatusOK, inst)
}
