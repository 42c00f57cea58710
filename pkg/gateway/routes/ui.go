package routes

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

const sessionCookie = "oncorisk_session"

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type page struct {
	View  session.View
	Error string
}

// UIHandler serves the single-page form. The page posts every field together
// with the chosen action; edits are applied before the action runs.
type UIHandler struct {
	registry *session.Registry
	catalog  *form.Catalog
}

func NewUIHandler(registry *session.Registry, catalog *form.Catalog) *UIHandler {
	if catalog == nil {
		catalog = form.DefaultCatalog()
	}
	return &UIHandler{registry: registry, catalog: catalog}
}

func (h *UIHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ui/{id}", h.handleShow).Methods(http.MethodGet)
	r.HandleFunc("/ui/{id}", h.handleSubmit).Methods(http.MethodPost)
}

func (h *UIHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if c, err := h.registry.Get(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/ui/"+c.ID(), http.StatusSeeOther)
			return
		}
	}

	c, err := h.registry.Create(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to create session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    c.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/ui/"+c.ID(), http.StatusSeeOther)
}

func (h *UIHandler) handleShow(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, "failed to load session", statusFor(err))
		return
	}
	render(w, http.StatusOK, page{View: c.View()})
}

func (h *UIHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "unknown session", statusFor(err))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	for _, name := range h.catalog.Names() {
		if _, ok := r.PostForm[string(name)]; !ok {
			continue
		}
		if err := c.EditField(name, r.PostFormValue(string(name))); err != nil {
			render(w, statusFor(err), page{View: c.View(), Error: err.Error()})
			return
		}
	}

	switch r.PostFormValue("action") {
	case "predict":
		err = c.Predict(r.Context())
	case "explain":
		err = c.Explain(r.Context())
	}
	if saveErr := h.registry.Save(r.Context(), c); saveErr != nil {
		logger.WithField("session_id", c.ID()).WithError(saveErr).Error("failed to persist session")
	}

	if err != nil {
		render(w, statusFor(err), page{View: c.View(), Error: uiMessage(err)})
		return
	}
	http.Redirect(w, r, "/ui/"+c.ID(), http.StatusSeeOther)
}

func uiMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidState):
		return "Run a prediction for the current values before asking for an explanation."
	case errors.Is(err, session.ErrStaleResult):
		return "The form changed while the request was running. Please try again."
	case errors.Is(err, session.ErrRequestFailed):
		return "The risk model could not be reached: " + err.Error()
	default:
		return err.Error()
	}
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		logger.Log.WithError(err).Error("failed to render page")
	}
}
