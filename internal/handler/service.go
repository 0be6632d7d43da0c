package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/floodgatehq/floodgate/internal/model"
	"github.com/floodgatehq/floodgate/internal/store"
)

// ServiceHandler manages the upstream service registry. Entries are inert
// records: Floodgate stores them for its consumers but never dials them.
type ServiceHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(st *store.Store, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{store: st, logger: logger}
}

// List returns all registered services.
// GET /api/services
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		internalError(w, r, h.logger, "list services", err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: services,
		Meta:     &model.ResponseMeta{Count: len(services)},
	})
}

type serviceRequest struct {
	Name            string `json:"name"`
	BaseURL         string `json:"base_url"`
	HealthCheckPath string `json:"health_check_path"`
	AuthType        string `json:"auth_type"`
	IsActive        *bool  `json:"is_active"`
}

// Create registers a new upstream service.
// POST /api/services
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Service name is required")
		return
	}
	if req.BaseURL == "" {
		writeError(w, http.StatusBadRequest, "Base URL is required")
		return
	}
	if u, err := url.Parse(req.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "Base URL must be an absolute URL")
		return
	}

	svc := &model.ServiceConfig{
		Name:            req.Name,
		BaseURL:         req.BaseURL,
		HealthCheckPath: req.HealthCheckPath,
		AuthType:        req.AuthType,
		IsActive:        true,
	}
	if svc.HealthCheckPath == "" {
		svc.HealthCheckPath = "/health"
	}
	if svc.AuthType == "" {
		svc.AuthType = "none"
	}

	if err := h.store.CreateService(r.Context(), svc); err != nil {
		if errors.Is(err, store.ErrDuplicateService) {
			writeError(w, http.StatusConflict, "Service already exists: "+req.Name)
			return
		}
		internalError(w, r, h.logger, "create service", err)
		return
	}

	writeJSON(w, http.StatusCreated, svc)
}

// Update modifies an existing service registry entry.
// PUT /api/services/{serviceName}
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "serviceName")

	existing, err := h.store.GetServiceByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Service not found: "+name)
			return
		}
		internalError(w, r, h.logger, "get service", err)
		return
	}

	var req serviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.BaseURL != "" {
		if u, err := url.Parse(req.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			writeError(w, http.StatusBadRequest, "Base URL must be an absolute URL")
			return
		}
		existing.BaseURL = req.BaseURL
	}
	if req.HealthCheckPath != "" {
		existing.HealthCheckPath = req.HealthCheckPath
	}
	if req.AuthType != "" {
		existing.AuthType = req.AuthType
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.store.UpdateService(r.Context(), existing); err != nil {
		internalError(w, r, h.logger, "update service", err)
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// Delete removes a service registry entry.
// DELETE /api/services/{serviceName}
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "serviceName")

	if err := h.store.DeleteService(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Service not found: "+name)
			return
		}
		internalError(w, r, h.logger, "delete service", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
