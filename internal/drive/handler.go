package drive

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/andresuchdata/orderplan/internal/api/handlers"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	source   Source
	importer *Importer
	folderID string
}

// NewHandler serves Drive browsing and imports. folderID is the default
// folder when a request names none.
func NewHandler(source Source, importer *Importer, folderID string) *Handler {
	return &Handler{
		source:   source,
		importer: importer,
		folderID: folderID,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/import-global-stock", h.ImportGlobalStock).Methods("POST")
	router.HandleFunc("/api/drive/import-latest", h.ImportLatest).Methods("POST")
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := h.folder(query.Get("folderId"))

	if folderPath := query.Get("path"); folderPath != "" {
		var err error
		folderID, err = h.source.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) ImportGlobalStock(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, errors.New("fileId parameter is required"))
		return
	}
	stockDate, err := service.ParseStockDate(r.URL.Query().Get("stock_date"), time.Now())
	if err != nil {
		writeError(w, handlers.StatusFor(err), err)
		return
	}

	result, err := h.importer.ImportFile(r.Context(), fileID, stockDate)
	if err != nil {
		writeError(w, handlers.StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ImportLatest(w http.ResponseWriter, r *http.Request) {
	stockDate, err := service.ParseStockDate(r.URL.Query().Get("stock_date"), time.Now())
	if err != nil {
		writeError(w, handlers.StatusFor(err), err)
		return
	}

	result, err := h.importer.ImportLatest(r.Context(), h.folder(r.URL.Query().Get("folderId")), stockDate)
	if err != nil {
		writeError(w, handlers.StatusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) folder(requested string) string {
	if requested != "" {
		return requested
	}
	return h.folderID
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("drive: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("drive: request failed")
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
