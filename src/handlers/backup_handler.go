package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gonzalo891751/argfolio/src/logger"
	"github.com/gonzalo891751/argfolio/src/services"
	"github.com/gonzalo891751/argfolio/src/utils"
)

type BackupHandler struct {
	backup services.BackupService
}

func NewBackupHandler(backup services.BackupService) *BackupHandler {
	return &BackupHandler{backup: backup}
}

// HandleExport streams the whole dataset as a JSONL download.
func (h *BackupHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("argfolio-backup-%s.jsonl", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.backup.Export(w); err != nil {
		// Headers are gone at this point; all we can do is log.
		logger.FromContext(r.Context()).Error("Backup export failed mid-stream", "error", err)
	}
}

// HandleImport merges a JSONL backup into the database, upserting by id.
func (h *BackupHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.backup.Import(r.Body)
	if err != nil {
		logger.FromContext(r.Context()).Error("Backup import failed", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error importing backup: %v", err), http.StatusBadRequest)
		return
	}
	utils.WriteJSON(w, summary, http.StatusOK)
}
