package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/bucks"
	"github.com/oakhollow/hearth/internal/model"
	"github.com/oakhollow/hearth/internal/store"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

type BucksHandler struct {
	svc     *bucks.Service
	members *store.FamilyMemberStore
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewBucksHandler(svc *bucks.Service, members *store.FamilyMemberStore, hub *ws.Hub, logger *slog.Logger) *BucksHandler {
	return &BucksHandler{svc: svc, members: members, hub: hub, logger: logger}
}

// ownChild reports whether the id names a member of the caller's family.
// Writes a not found response otherwise.
func (h *BucksHandler) ownChild(w http.ResponseWriter, r *http.Request, id int64) bool {
	member, err := h.members.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family member"})
		return false
	}
	if member == nil || member.FamilyID != auth.FamilyID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family member not found"})
		return false
	}
	return true
}

func (h *BucksHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if !h.ownChild(w, r, id) {
		return
	}

	balance, err := h.svc.Balance(id)
	if err != nil {
		h.logger.Error("get balance", "child_id", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (h *BucksHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if !h.ownChild(w, r, id) {
		return
	}

	summary, err := h.svc.Summary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *BucksHandler) History(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	var childID *int64
	if childStr := r.URL.Query().Get("child_id"); childStr != "" {
		id, err := parseID(childStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child_id"})
			return
		}
		childID = &id
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := parseID(limitStr)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = int(n)
	}

	history, err := h.svc.History(familyID, childID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []model.BucksTransaction{}
	}
	writeJSON(w, http.StatusOK, history)
}

type adjustBucksRequest struct {
	ChildID int64  `json:"child_id"`
	Amount  int    `json:"amount"`
	Reason  string `json:"reason"`
}

// Adjust records a manual parent correction against a child's balance.
func (h *BucksHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustBucksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if !h.ownChild(w, r, req.ChildID) {
		return
	}

	familyID := auth.FamilyID(r.Context())
	txn, err := h.svc.Adjust(familyID, req.ChildID, req.Amount, req.Reason,
		model.SourceAdjustment, nil, auth.MemberID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(familyID, ws.NewMessage("bucks", "adjusted", txn.ID, map[string]any{"child_id": req.ChildID}))
	writeJSON(w, http.StatusCreated, txn)
}
