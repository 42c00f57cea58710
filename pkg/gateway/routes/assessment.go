package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

// AssessmentHandler exposes sessions as a JSON API. Predict and explain wait
// for the request to settle and answer with the resulting view.
type AssessmentHandler struct {
	registry *session.Registry
	catalog  *form.Catalog
}

type fieldEdit struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type errorResponse struct {
	Error   string        `json:"error"`
	Session *session.View `json:"session,omitempty"`
}

func NewAssessmentHandler(registry *session.Registry, catalog *form.Catalog) *AssessmentHandler {
	if catalog == nil {
		catalog = form.DefaultCatalog()
	}
	return &AssessmentHandler{registry: registry, catalog: catalog}
}

func (h *AssessmentHandler) Register(r *mux.Router) {
	r.HandleFunc("/sessions", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/fields", h.handleEdit).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/predict", h.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/explain", h.handleExplain).Methods(http.MethodPost)
	r.HandleFunc("/fields", h.handleFields).Methods(http.MethodGet)
}

func (h *AssessmentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.Create(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c.View())
}

func (h *AssessmentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, c.View())
}

func (h *AssessmentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssessmentHandler) handleEdit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()
	var edit fieldEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil || edit.Name == "" {
		http.Error(w, "invalid field edit", http.StatusBadRequest)
		return
	}

	if err := c.EditField(form.FieldName(edit.Name), edit.Value); err != nil {
		view := c.View()
		writeError(w, err, &view)
		return
	}
	h.save(r.Context(), c)
	writeJSON(w, c.View())
}

func (h *AssessmentHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Controller).Predict)
}

func (h *AssessmentHandler) handleExplain(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, (*session.Controller).Explain)
}

func (h *AssessmentHandler) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.catalog.Fields())
}

func (h *AssessmentHandler) run(w http.ResponseWriter, r *http.Request, op func(*session.Controller, context.Context) error) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	err := op(c, r.Context())
	h.save(r.Context(), c)
	view := c.View()
	if err != nil {
		writeError(w, err, &view)
		return
	}
	writeJSON(w, view)
}

func (h *AssessmentHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := h.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, nil)
		return nil, false
	}
	return c, true
}

func (h *AssessmentHandler) save(ctx context.Context, c *session.Controller) {
	if err := h.registry.Save(ctx, c); err != nil {
		logger.WithField("session_id", c.ID()).WithError(err).Error("failed to persist session")
	}
}

// statusFor maps session errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, session.ErrRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, view *session.View) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("assessment request failed")
	}
	writeJSONStatus(w, status, errorResponse{Error: err.Error(), Session: view})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
