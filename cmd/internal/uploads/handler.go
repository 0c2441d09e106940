package uploads

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	authapi "freight/cmd/internal/auth/api"
)

// maxUploadBytes caps one multipart upload (32 MiB covers scanned PODs).
const maxUploadBytes = 32 << 20

// Handler serves /api/uploads/: POST stores a multipart file, GET serves a
// previously stored file back.
type Handler struct {
	log   *slog.Logger
	store *DiskStore
}

func NewHandler(log *slog.Logger, store *DiskStore) (*Handler, error) {
	if store == nil {
		return nil, errors.New("uploads: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, store: store}, nil
}

// Register mounts the upload routes behind gate's auth middleware.
func (h *Handler) Register(mux *http.ServeMux, gate *authapi.Handler) {
	if h == nil || mux == nil || gate == nil {
		return
	}
	mux.Handle("/api/uploads/", gate.RequireAuth(http.HandlerFunc(h.dispatch)))
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/uploads/"), "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.handleUpload(w, r)
	case rest != "" && r.Method == http.MethodGet:
		h.handleServe(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "expected a multipart file upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	name, err := h.store.Save(file, header.Filename)
	if err != nil {
		if errors.Is(err, ErrExtension) {
			h.writeError(w, http.StatusBadRequest, "invalid_extension", "only image files or PDF are allowed")
			return
		}
		h.log.Error("uploads.save.fail", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to save file")
		return
	}

	u, _ := authapi.CurrentUser(r.Context())
	h.log.Info("upload stored", "filename", name, "by", u.ID)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"url":      "/api/uploads/" + name,
		"filename": name,
	})
}

func (h *Handler) handleServe(w http.ResponseWriter, r *http.Request, name string) {
	f, err := h.store.Open(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", "no such file")
		return
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to read file")
		return
	}
	http.ServeContent(w, r, name, stat.ModTime(), f)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": msg},
	})
}
