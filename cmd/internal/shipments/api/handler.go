// Package shipmentsapi exposes shipment CRUD over HTTP behind the auth
// gate.
package shipmentsapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	authapi "freight/cmd/internal/auth/api"
	"freight/cmd/internal/shipments"
)

const defaultMaxBodyBytes = 1 << 18

// Handler serves /api/shipments/ routes. All routes require a live
// session; the delete role check lives in the service.
type Handler struct {
	log *slog.Logger
	svc *shipments.Service

	maxBodyBytes int64
}

func NewHandler(log *slog.Logger, svc *shipments.Service) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("shipmentsapi: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		svc:          svc,
		maxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

// Register mounts the shipment routes behind gate's auth middleware.
func (h *Handler) Register(mux *http.ServeMux, gate *authapi.Handler) {
	if h == nil || mux == nil || gate == nil {
		return
	}
	mux.Handle("/api/shipments/", gate.RequireAuth(http.HandlerFunc(h.dispatch)))
}

// dispatch routes by trailing path: the bare collection handles create and
// list, anything after the prefix is a shipment id.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/shipments/"), "/")

	if rest == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, rest)
	case http.MethodPatch:
		h.handlePatch(w, r, rest)
	case http.MethodDelete:
		h.handleDelete(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	actor, _ := authapi.CurrentUser(r.Context())
	sh, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		switch {
		case errors.Is(err, shipments.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, shipments.ErrDuplicateRef):
			writeError(w, http.StatusConflict, "duplicate_reference", "could not allocate a unique booking reference")
		default:
			h.log.Error("shipments.create.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal", "create failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f shipments.Filter
	if raw := q.Get("status"); raw != "" {
		st, err := shipments.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown status filter")
			return
		}
		f.Status = st
	}
	var err error
	if f.Offset, err = queryInt(q.Get("skip"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "skip must be an integer")
		return
	}
	if f.Limit, err = queryInt(q.Get("limit"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.log.Error("shipments.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "list failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	sh, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shipments.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "shipment not found")
			return
		}
		h.log.Error("shipments.get.fail", "err", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal", "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request, id string) {
	var req patchRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	actor, _ := authapi.CurrentUser(r.Context())
	sh, err := h.svc.Update(r.Context(), actor, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, shipments.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "shipment not found")
		case errors.Is(err, shipments.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("shipments.patch.fail", "err", err, "id", id)
			writeError(w, http.StatusInternalServerError, "internal", "update failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := authapi.CurrentUser(r.Context())
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, shipments.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden", "only admins can delete shipments")
		case errors.Is(err, shipments.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "shipment not found")
		default:
			h.log.Error("shipments.delete.fail", "err", err, "id", id)
			writeError(w, http.StatusInternalServerError, "internal", "delete failed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("bad integer")
	}
	return n, nil
}
