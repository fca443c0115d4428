package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/calendar"
	"github.com/oakhollow/hearth/internal/dates"
	"github.com/oakhollow/hearth/internal/model"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

type EventHandler struct {
	svc    *calendar.Service
	hub    *ws.Hub
	logger *slog.Logger

	mu     sync.Mutex
	caches map[int64]*calendar.Cache
}

func NewEventHandler(svc *calendar.Service, hub *ws.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		svc:    svc,
		hub:    hub,
		logger: logger,
		caches: make(map[int64]*calendar.Cache),
	}
}

// cacheFor returns the family's read-through cache, creating it on first
// use. Caches live for the process; feed invalidation keeps them honest.
func (h *EventHandler) cacheFor(familyID int64) (*calendar.Cache, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.caches[familyID]; ok {
		return c, nil
	}
	c, err := h.svc.NewCache(familyID)
	if err != nil {
		return nil, err
	}
	h.caches[familyID] = c
	return c, nil
}

type eventRequest struct {
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Location          string              `json:"location"`
	EventType         model.EventType     `json:"event_type"`
	Start             dates.Input         `json:"start"`
	End               dates.Input         `json:"end"`
	Timezone          string              `json:"timezone"`
	ChildID           *int64              `json:"child_id"`
	ChildName         string              `json:"child_name"`
	AttendingParentID *int64              `json:"attending_parent_id"`
	Attendees         []model.Attendee    `json:"attendees"`
	Documents         []model.DocumentRef `json:"documents"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	event, err := h.svc.Create(r.Context(), calendar.CreateInput{
		FamilyID:          auth.FamilyID(r.Context()),
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		EventType:         req.EventType,
		Start:             req.Start,
		End:               req.End,
		Timezone:          req.Timezone,
		ChildID:           req.ChildID,
		ChildName:         req.ChildName,
		AttendingParentID: req.AttendingParentID,
		Attendees:         req.Attendees,
		Documents:         req.Documents,
		ActorID:           auth.MemberID(r.Context()),
	})
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, err)
		return
	}

	h.hub.Broadcast(event.FamilyID, ws.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end query parameters are required"})
		return
	}

	start, err := parseFlexibleTime(startStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339 or YYYY-MM-DD format"})
		return
	}
	end, err := parseFlexibleTime(endStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339 or YYYY-MM-DD format"})
		return
	}

	events := h.svc.Range(auth.FamilyID(r.Context()), start, end)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q query parameter is required"})
		return
	}

	var start, end time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		start = t
	}
	if s := r.URL.Query().Get("end"); s != "" {
		t, err := parseFlexibleTime(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be RFC3339 or YYYY-MM-DD format"})
			return
		}
		end = t
	}

	events := h.svc.Search(auth.FamilyID(r.Context()), query, start, end)
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	cache, err := h.cacheFor(familyID)
	if err != nil {
		h.logger.Error("event cache", "family_id", familyID, "error", err)
		writeError(w, err)
		return
	}

	// The cache is family-scoped: another family's id reads as not found.
	event, err := cache.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type eventUpdateRequest struct {
	Title             *string             `json:"title"`
	Description       *string             `json:"description"`
	Location          *string             `json:"location"`
	EventType         *model.EventType    `json:"event_type"`
	Start             dates.Input         `json:"start"`
	End               dates.Input         `json:"end"`
	Timezone          *string             `json:"timezone"`
	ChildID           *int64              `json:"child_id"`
	ChildName         *string             `json:"child_name"`
	AttendingParentID *int64              `json:"attending_parent_id"`
	Attendees         []model.Attendee    `json:"attendees"`
	Documents         []model.DocumentRef `json:"documents"`
	Status            *string             `json:"status"`
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	event, err := h.svc.Update(r.Context(), id, calendar.UpdateInput{
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		EventType:         req.EventType,
		Start:             req.Start,
		End:               req.End,
		Timezone:          req.Timezone,
		ChildID:           req.ChildID,
		ChildName:         req.ChildName,
		AttendingParentID: req.AttendingParentID,
		Attendees:         req.Attendees,
		Documents:         req.Documents,
		Status:            req.Status,
		ActorID:           auth.MemberID(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(event.FamilyID, ws.NewMessage("event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(auth.FamilyID(r.Context()), ws.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
