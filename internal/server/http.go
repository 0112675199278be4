package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/valyala/fastjson"

	"github.com/coffersTech/probdash/internal/board"
	"github.com/coffersTech/probdash/internal/pkg/logging"
	"github.com/coffersTech/probdash/internal/pkg/searchql"
	"github.com/coffersTech/probdash/internal/prefs"
	"github.com/coffersTech/probdash/internal/problem"
)

var log = logging.For("server")

// Remote is the spreadsheet API the board reads from and writes to.
type Remote interface {
	Fetch(ctx context.Context) ([]problem.Problem, error)
	UpdateStatus(ctx context.Context, id int64, member, code string) error
}

// Options configure a BoardServer.
type Options struct {
	WebDir         string
	AllowedOrigins []string
	DefaultMember  string
	// OnReload is called with every freshly fetched list.
	OnReload func([]problem.Problem)
}

type BoardServer struct {
	store  *board.Store
	remote Remote
	prefs  *prefs.Store
	opts   Options
	srv    *http.Server
	parser fastjson.ParserPool

	reloadMu sync.Mutex
}

func NewBoardServer(store *board.Store, remote Remote, ps *prefs.Store, opts Options) *BoardServer {
	return &BoardServer{
		store:  store,
		remote: remote,
		prefs:  ps,
		opts:   opts,
	}
}

// Handler returns the HTTP handler with all routes, wrapped in CORS.
func (s *BoardServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/problems", s.handleProblems)
	mux.HandleFunc("POST /api/problems/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	mux.HandleFunc("GET /api/prefs", s.handleGetPrefs)
	mux.HandleFunc("PUT /api/prefs", s.handlePutPrefs)
	mux.HandleFunc("POST /api/prefs/tags", s.handleToggleTags)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)

	mux.HandleFunc("GET /api/search/explain", s.handleExplain)

	// Static file serving for web directory
	if s.opts.WebDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.WebDir)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	})
	return c.Handler(mux)
}

// Start runs the HTTP server until Shutdown is called.
func (s *BoardServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *BoardServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// Reload fetches the full list from the remote and replaces the local one.
// Concurrent calls are serialized.
func (s *BoardServer) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	list, err := s.remote.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "reload")
	}
	s.store.Replace(list)
	if s.opts.OnReload != nil {
		s.opts.OnReload(s.store.List())
	}
	log.Info().Int("count", len(list)).Msg("problems reloaded")
	return nil
}

// Row is one problem as shown for the selected member.
type Row struct {
	problem.Problem
	Status       string        `json:"status"`
	StatusOption string        `json:"status_option"`
	StatusClass  string        `json:"status_class"`
	Badge        problem.Badge `json:"difficulty_badge"`
}

func newRow(p problem.Problem, member string) Row {
	status := p.Status(member)
	return Row{
		Problem:      p,
		Status:       status,
		StatusOption: problem.StatusOption(status),
		StatusClass:  problem.StatusClass(status),
		Badge:        problem.DifficultyBadge(p.Difficulty),
	}
}

// ProblemsResponse is the body of GET /api/problems.
type ProblemsResponse struct {
	View          board.View    `json:"view"`
	Summary       board.Summary `json:"summary"`
	Members       []string      `json:"members"`
	StatusOptions []string      `json:"status_options"`
	TagsHidden    bool          `json:"tags_hidden"`
	LoadedAt      int64         `json:"loaded_at"`
	Rows          []Row         `json:"rows"`
}

// view builds the requested view; parameters that are absent fall back to
// the saved preferences.
func (s *BoardServer) view(r *http.Request, members []string) board.View {
	saved := s.prefs.Get()
	q := r.URL.Query()

	v := board.View{
		Member: q.Get("member"),
		Filter: q.Get("filter"),
		Sort:   q.Get("sort"),
		Query:  q.Get("q"),
	}
	if v.Member == "" {
		v.Member = saved.Member
	}
	if v.Member == "" {
		v.Member = s.opts.DefaultMember
	}
	if v.Member == "" && len(members) > 0 {
		v.Member = members[0]
	}
	if v.Filter == "" {
		v.Filter = saved.Filter
	}
	if v.Filter == "" {
		v.Filter = board.FilterAll
	}
	if v.Sort == "" {
		v.Sort = saved.Sort
	}
	return v
}

func (s *BoardServer) handleProblems(w http.ResponseWriter, r *http.Request) {
	list := s.store.List()
	members := problem.Members(list)
	v := s.view(r, members)

	selected := board.Apply(list, v)
	rows := make([]Row, len(selected))
	for i, p := range selected {
		rows[i] = newRow(p, v.Member)
	}

	var loadedAt int64
	if t := s.store.LoadedAt(); !t.IsZero() {
		loadedAt = t.Unix()
	}

	writeJSON(w, http.StatusOK, ProblemsResponse{
		View:          v,
		Summary:       board.Summarize(list, v.Member),
		Members:       members,
		StatusOptions: problem.StatusOptions,
		TagsHidden:    s.prefs.Get().TagsHidden,
		LoadedAt:      loadedAt,
		Rows:          rows,
	})
}

// handleUpdateStatus saves one member's status for one problem: locally
// first, then on the remote. A failed remote write triggers a full reload.
func (s *BoardServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid problem id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	p := s.parser.Get()
	defer s.parser.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	member := string(v.GetStringBytes("member"))
	if member == "" {
		member = s.prefs.Get().Member
	}
	if member == "" {
		http.Error(w, "member is required", http.StatusBadRequest)
		return
	}
	code, err := problem.NormalizeStatus(string(v.GetStringBytes("status")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, changed, err := s.store.SetStatus(id, member, code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !changed {
		writeJSON(w, http.StatusOK, newRow(updated, member))
		return
	}

	if err := s.remote.UpdateStatus(r.Context(), id, member, code); err != nil {
		log.Error().Err(err).Int64("id", id).Str("member", member).Msg("save failed")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.Reload(ctx); err != nil {
				log.Error().Err(err).Msg("reload after failed save")
			}
		}()
		http.Error(w, "Save failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, newRow(updated, member))
}

func (s *BoardServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		log.Error().Err(err).Msg("reload failed")
		http.Error(w, "Failed to load problems", http.StatusBadGateway)
		return
	}
	list := s.store.List()
	writeJSON(w, http.StatusOK, board.Summarize(list, s.view(r, problem.Members(list)).Member))
}

func (s *BoardServer) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	p := s.prefs.Get()
	p.IDToken = ""
	writeJSON(w, http.StatusOK, p)
}

func (s *BoardServer) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	saved, err := s.prefs.Update(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	saved.IDToken = ""
	writeJSON(w, http.StatusOK, saved)
}

func (s *BoardServer) handleToggleTags(w http.ResponseWriter, r *http.Request) {
	hidden, err := s.prefs.ToggleTags()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags_hidden": hidden,
		"label":       prefs.TagsButtonLabel(hidden),
	})
}

type sessionResponse struct {
	SignedIn bool   `json:"signed_in"`
	User     string `json:"user"`
}

func sessionFor(idToken string) sessionResponse {
	if idToken == "" {
		return sessionResponse{}
	}
	return sessionResponse{SignedIn: true, User: prefs.DisplayName(idToken)}
}

func (s *BoardServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFor(s.prefs.Get().IDToken))
}

func (s *BoardServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		http.Error(w, "credential required", http.StatusBadRequest)
		return
	}
	if err := s.prefs.SignIn(req.Credential); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionFor(req.Credential))
}

func (s *BoardServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.SignOut(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExplainResponse shows how a search string is understood.
type ExplainResponse struct {
	Query  string   `json:"q"`
	Tokens []string `json:"tokens"`
	AST    *string  `json:"ast"`
}

// Explain tokenizes and parses q for display.
func Explain(q string) ExplainResponse {
	tokens := searchql.Tokenize(q)
	out := ExplainResponse{Query: q, Tokens: make([]string, len(tokens))}
	for i, t := range tokens {
		out.Tokens[i] = t.String()
	}
	if node := searchql.Parse(q); node != nil {
		ast := node.String()
		out.AST = &ast
	}
	return out
}

func (s *BoardServer) handleExplain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Explain(r.URL.Query().Get("q")))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("JSON encode error")
	}
}
