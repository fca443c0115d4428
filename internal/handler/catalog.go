package handler

import (
	"log/slog"
	"net/http"

	"github.com/oakhollow/hearth/internal/auth"
	"github.com/oakhollow/hearth/internal/catalog"
	ws "github.com/oakhollow/hearth/internal/websocket"
)

type CatalogHandler struct {
	importer *catalog.Importer
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewCatalogHandler(importer *catalog.Importer, hub *ws.Hub, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{importer: importer, hub: hub, logger: logger}
}

// Import seeds the family with the default chore and reward catalogs. Items
// already present are skipped, so re-running is safe. Individual item
// failures do not abort the pass; they are reported in the response.
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	res, err := h.importer.ImportDefaults(r.Context(), familyID)
	if err != nil {
		h.logger.Error("catalog import", "family_id", familyID, "error", err)
		writeError(w, err)
		return
	}

	body := map[string]any{
		"chores_imported":  res.ChoresImported,
		"chores_skipped":   res.ChoresSkipped,
		"rewards_imported": res.RewardsImported,
		"rewards_skipped":  res.RewardsSkipped,
	}
	status := http.StatusOK
	if res.Err != nil {
		// Partial import: some items failed, the rest went through.
		body["errors"] = res.Err.Error()
		status = http.StatusMultiStatus
	}

	if res.ChoresImported > 0 || res.RewardsImported > 0 {
		h.hub.Broadcast(familyID, ws.NewMessage("catalog", "imported", 0, nil))
	}
	writeJSON(w, status, body)
}
