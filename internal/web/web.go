package web

import (
	"bytes"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"eventboard/internal/board"
	"eventboard/internal/config"
	"eventboard/internal/ics"
	appLog "eventboard/internal/log"
	"eventboard/internal/metrics"
	"eventboard/internal/model"
)

// Server exposes the board as JSON, HTML and ICS.
type Server struct {
	cfg   *config.Config
	board *board.Board
	mux   *http.ServeMux
	page  *template.Template
}

//go:embed templates/*.html
var embeddedTemplates embed.FS

// NewServer constructs a new Server for b.
func NewServer(cfg *config.Config, b *board.Board) *Server {
	s := &Server{
		cfg:   cfg,
		board: b,
		mux:   http.NewServeMux(),
		page:  template.Must(template.ParseFS(embeddedTemplates, "templates/board.html")),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventboard", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleEvent)
	s.mux.HandleFunc("GET /board", s.handleBoard)
	s.mux.HandleFunc("GET /events.ics", s.handleICS)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.Handle("GET /{$}", http.RedirectHandler("/board", http.StatusFound))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// cardDTO is the JSON shape of a card on the board.
type cardDTO struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Venue           string    `json:"venue,omitempty"`
	PrizePool       string    `json:"prize_pool,omitempty"`
	Description     string    `json:"description,omitempty"`
	TeamSize        string    `json:"team_size,omitempty"`
	RegistrationFee string    `json:"registration_fee,omitempty"`
	Image           string    `json:"image,omitempty"`
	Source          string    `json:"source,omitempty"`
	Status          string    `json:"status"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Position        int       `json:"position"`
}

type categoryDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Now      time.Time      `json:"now"`
	Revision uint64         `json:"revision"`
	Category string         `json:"category"`
	Counts   map[string]int `json:"counts"`
	Events   []cardDTO      `json:"events"`
}

func toCardDTO(c model.Card) cardDTO {
	ev := c.Event
	return cardDTO{
		ID:              ev.ID,
		Title:           ev.Title,
		Category:        ev.Category,
		Date:            ev.Date,
		Time:            ev.Time,
		Venue:           ev.Venue,
		PrizePool:       ev.PrizePool,
		Description:     ev.Description,
		TeamSize:        ev.TeamSize,
		RegistrationFee: ev.RegistrationFee,
		Image:           ev.Image,
		Source:          ev.Source,
		Status:          string(c.Status),
		Start:           c.Start,
		End:             c.End,
		Position:        c.Position,
	}
}

// handleCategories lists the filter tabs.
//
// GET /api/categories?category=Technical
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	v, err := s.board.Render(board.Request{Category: r.URL.Query().Get("category")})
	if err != nil {
		appLog.Error("api categories: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render board")
		return
	}

	out := make([]categoryDTO, 0, len(v.Categories))
	for _, t := range v.Categories {
		out = append(out, categoryDTO{Name: t.Name, Description: t.Description, Active: t.Active})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleEvents returns the ordered cards of one category.
//
// GET /api/events?category=Technical&now=2025-08-21T11:00:00Z
//   - category: filter; empty or the all sentinel shows every event
//   - now:      RFC3339 instant to evaluate statuses at (default: board now)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	at, err := s.parseNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := s.board.Render(board.Request{Category: r.URL.Query().Get("category"), At: at})
	if err != nil {
		appLog.Error("api events: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render board")
		return
	}

	resp := eventsResponse{
		Now:      v.Now,
		Revision: v.Revision,
		Category: v.ActiveCategory,
		Counts:   make(map[string]int, len(v.Counts)),
		Events:   make([]cardDTO, 0, len(v.Cards)),
	}
	for st, n := range v.Counts {
		resp.Counts[string(st)] = n
	}
	for _, c := range v.Cards {
		resp.Events = append(resp.Events, toCardDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvent returns the detail view of a single event.
//
// GET /api/events/{id}?now=...
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	at, err := s.parseNow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := s.board.Render(board.Request{Selected: r.PathValue("id"), At: at})
	switch {
	case errors.Is(err, board.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		appLog.Error("api event: render failed", err, "id", r.PathValue("id"))
		writeError(w, http.StatusInternalServerError, "failed to render event")
		return
	}
	writeJSON(w, http.StatusOK, toCardDTO(*v.Selected))
}

// pageData feeds templates/board.html.
type pageData struct {
	board.View
	// NowParam is carried through links so a preview stays at its instant.
	NowParam string

	Ongoing, Upcoming, Past int
}

// handleBoard renders the HTML board.
//
// GET /board?category=Technical&event=<id>&now=...
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	at, err := s.parseNow(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	v, err := s.board.Render(board.Request{
		Category: q.Get("category"),
		Selected: q.Get("event"),
		At:       at,
	})
	switch {
	case errors.Is(err, board.ErrUnknownEvent):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		appLog.Error("board: render failed", err)
		http.Error(w, "failed to render board", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, pageData{
		View:     v,
		NowParam: q.Get("now"),
		Ongoing:  v.Counts[model.StatusOngoing],
		Upcoming: v.Counts[model.StatusUpcoming],
		Past:     v.Counts[model.StatusPast],
	}); err != nil {
		appLog.Error("board: template failed", err)
		http.Error(w, "failed to render board", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleICS exports the cards of one category as an iCalendar file.
//
// GET /events.ics?category=Technical
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	v, err := s.board.Render(board.Request{Category: r.URL.Query().Get("category")})
	if err != nil {
		appLog.Error("ics export: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render board")
		return
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, v.Cards, v.Now); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = buf.WriteTo(w)
}

// parseNow reads the optional RFC3339 "now" override, expressed in the
// board's timezone. An absent parameter yields the zero time.
func (s *Server) parseNow(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid now %q: want RFC3339", raw)
	}
	if loc := s.board.Policy().Location; loc != nil {
		t = t.In(loc)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
