package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-userdash/components/dashboard"
	"github.com/goliatone/go-userdash/components/dashboard/commands"
	"github.com/goliatone/go-userdash/components/dashboard/queries"
	"github.com/goliatone/go-userdash/pkg/logging"
	"github.com/gorilla/mux"
)

// Pages renders the server side views.
type Pages interface {
	RenderPage(ctx context.Context, viewer dashboard.ViewerContext, tab string, out io.Writer) error
	RenderLogin(form dashboard.LoginForm, out io.Writer) error
}

// Watcher keeps a viewer's cache entries observed while a live connection is open.
type Watcher interface {
	Watch(viewer dashboard.ViewerContext) (func(), error)
}

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Login   gocommand.Commander[commands.LoginInput]
	Logout  gocommand.Commander[commands.LogoutInput]
	Refetch gocommand.Commander[commands.RefetchInput]
	Focus   gocommand.Commander[commands.FocusInput]
	Session gocommand.Querier[dashboard.ViewerContext, dashboard.Session]
	State   gocommand.Querier[queries.ResourceInput, dashboard.QueryState]
	Pages   Pages
	Events  *dashboard.BroadcastHook
	Watcher Watcher
	// BasePath prefixes every redirect; routes are mounted by the caller.
	BasePath string
}

type credentials struct {
	Contact string `json:"contact"`
	Secret  string `json:"secret"`
}

type sessionPayload struct {
	Authenticated bool               `json:"authenticated"`
	Profile       *dashboard.Profile `json:"profile,omitempty"`
}

type liveMessage struct {
	Type     string `json:"type"`
	Resource string `json:"resource,omitempty"`
}

// NewRouter mounts the handlers on a gorilla/mux router behind the session middleware.
func NewRouter(h *Handlers, sessions *dashboard.SessionManager, middleware ...mux.MiddlewareFunc) *mux.Router {
	root := mux.NewRouter()
	r := root
	if h.BasePath != "" {
		r = root.PathPrefix(h.BasePath).Subrouter()
	}
	for _, mw := range middleware {
		r.Use(mw)
	}
	r.Use(SessionMiddleware(sessions))

	r.HandleFunc("/", h.HandlePage).Methods(http.MethodGet)
	r.HandleFunc("/login", h.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.HandleLogout).Methods(http.MethodPost)
	r.HandleFunc("/refetch", h.HandleRefetchForm).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", h.HandleSession).Methods(http.MethodGet)
	api.HandleFunc("/queries/{resource}", h.HandleQueryState).Methods(http.MethodGet)
	api.HandleFunc("/queries/{resource}/refetch", h.HandleRefetch).Methods(http.MethodPost)
	api.HandleFunc("/focus", h.HandleFocus).Methods(http.MethodPost)

	r.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/events", h.HandleEvents).Methods(http.MethodGet)
	return root
}

// HandlePage renders the login gate or the requested tab.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Pages.RenderPage(r.Context(), Viewer(r), r.URL.Query().Get("tab"), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// HandleLogin accepts the login form or a JSON body. Forms are redirected to
// the dashboard on success and re-rendered with the message on rejection.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSON(r)
	var creds credentials
	if asJSON {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		creds = credentials{Contact: r.PostFormValue("contact"), Secret: r.PostFormValue("secret")}
	}

	err := h.Login.Execute(r.Context(), commands.LoginInput{Viewer: Viewer(r), Contact: creds.Contact, Secret: creds.Secret})
	var loginErr *dashboard.LoginError
	switch {
	case err == nil && asJSON:
		writeJSON(w, http.StatusOK, dashboard.LoginResult{Success: true})
	case err == nil:
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
	case errors.As(err, &loginErr) && asJSON:
		writeJSON(w, http.StatusBadRequest, dashboard.LoginResult{ErrorMessage: loginErr.Message})
	case errors.As(err, &loginErr):
		var buf bytes.Buffer
		if renderErr := h.Pages.RenderLogin(dashboard.LoginForm{Contact: creds.Contact, Error: loginErr.Message}, &buf); renderErr != nil {
			writeError(w, r, renderErr)
			return
		}
		writeHTML(w, http.StatusOK, buf.Bytes())
	default:
		writeError(w, r, err)
	}
}

// HandleLogout clears the session and returns to the login gate.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Logout.Execute(r.Context(), commands.LogoutInput{Viewer: Viewer(r)}); err != nil {
		writeError(w, r, err)
		return
	}
	if isJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

// HandleRefetchForm backs the per-panel retry button.
func (h *Handlers) HandleRefetchForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.RefetchInput{Viewer: Viewer(r), Resource: r.PostFormValue("resource")}
	err := h.Refetch.Execute(r.Context(), input)
	switch {
	case errors.Is(err, dashboard.ErrNotAuthenticated):
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	case err != nil:
		writeError(w, r, err)
		return
	}
	target := h.path("/")
	if tab := r.PostFormValue("tab"); tab != "" {
		target += "?tab=" + url.QueryEscape(tab)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleSession reports whether the browser is logged in.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Session.Query(r.Context(), Viewer(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload{Authenticated: session.Authenticated(), Profile: session.Profile})
}

// HandleQueryState returns the resource state, fetching through the cache
// unless ?peek=true is given.
func (h *Handlers) HandleQueryState(w http.ResponseWriter, r *http.Request) {
	input := queries.ResourceInput{
		Viewer:   Viewer(r),
		Resource: mux.Vars(r)["resource"],
		Fetch:    r.URL.Query().Get("peek") != "true",
	}
	state, err := h.State.Query(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleRefetch reruns a resource producer and returns the settled state.
func (h *Handlers) HandleRefetch(w http.ResponseWriter, r *http.Request) {
	var state dashboard.QueryState
	input := commands.RefetchInput{Viewer: Viewer(r), Resource: mux.Vars(r)["resource"], Result: &state}
	if err := h.Refetch.Execute(r.Context(), input); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleFocus revalidates stale entries after the window regains focus.
func (h *Handlers) HandleFocus(w http.ResponseWriter, r *http.Request) {
	var refetched int
	if err := h.Focus.Execute(r.Context(), commands.FocusInput{Viewer: Viewer(r), Refetched: &refetched}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"refetched": refetched})
}

// HandleWebSocket streams the viewer's query events. Clients may send
// {"type":"focus"} or {"type":"refetch","resource":"users"} frames.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	viewer, release, ok := h.openLive(w, r)
	if !ok {
		return
	}
	defer release()
	ctx := r.Context()
	h.Events.ServeWebSocket(w, r, viewer.Store.Token(), func(raw []byte) {
		h.handleLiveMessage(ctx, viewer, raw)
	})
}

// HandleEvents streams the viewer's query events over SSE.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	viewer, release, ok := h.openLive(w, r)
	if !ok {
		return
	}
	defer release()
	h.Events.ServeSSE(w, r, viewer.Store.Token())
}

func (h *Handlers) openLive(w http.ResponseWriter, r *http.Request) (dashboard.ViewerContext, func(), bool) {
	if h.Events == nil {
		http.Error(w, "live events disabled", http.StatusNotFound)
		return dashboard.ViewerContext{}, nil, false
	}
	viewer := Viewer(r)
	if !viewer.Session().Authenticated() {
		writeError(w, r, dashboard.ErrNotAuthenticated)
		return dashboard.ViewerContext{}, nil, false
	}
	release := func() {}
	if h.Watcher != nil {
		stop, err := h.Watcher.Watch(viewer)
		if err != nil {
			writeError(w, r, err)
			return dashboard.ViewerContext{}, nil, false
		}
		release = stop
	}
	return viewer, release, true
}

func (h *Handlers) handleLiveMessage(ctx context.Context, viewer dashboard.ViewerContext, raw []byte) {
	exec := &CommandExecutor{RefetchCommander: h.Refetch, FocusCommander: h.Focus}
	if err := DispatchLiveMessage(ctx, exec, viewer, raw); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("live message failed")
	}
}

// DispatchLiveMessage runs the command named by an inbound live frame.
// Unknown types are ignored.
func DispatchLiveMessage(ctx context.Context, exec Executor, viewer dashboard.ViewerContext, raw []byte) error {
	var msg liveMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("httpapi: decode live message: %w", err)
	}
	switch msg.Type {
	case "focus":
		return exec.Focus(ctx, commands.FocusInput{Viewer: viewer})
	case "refetch":
		return exec.Refetch(ctx, commands.RefetchInput{Viewer: viewer, Resource: msg.Resource})
	}
	return nil
}

func (h *Handlers) path(p string) string {
	return h.BasePath + p
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
