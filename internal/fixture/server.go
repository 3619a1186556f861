package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/schema"
)

// Envelope selects how a grid's list response is wrapped.
type Envelope int

const (
	EnvelopeData     Envelope = iota // {"success": true, "data": [...]}
	EnvelopeBare                     // [...]
	EnvelopeList                     // {"list": [...]}
	EnvelopeDataData                 // {"data": {"data": [...]}}
	EnvelopeDataList                 // {"data": {"list": [...], "total": n}}
)

// Server is an in-memory stand-in for the catering admin API.
type Server struct {
	mu        sync.Mutex
	set       schema.Set
	tables    map[string][]grid.Row
	envelopes map[string]Envelope
	saves     map[string]int
	token     string
	latency   time.Duration
	logger    *zap.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on /api routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = strings.TrimSpace(token) }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRows replaces the seeded rows of one grid.
func WithRows(name string, rows []grid.Row) Option {
	return func(s *Server) { s.tables[name] = grid.CloneRows(rows) }
}

// WithEnvelope overrides the list envelope of one grid.
func WithEnvelope(name string, env Envelope) Option {
	return func(s *Server) { s.envelopes[name] = env }
}

// WithLatency delays every API response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// New builds a server for set, seeded with sample data.
func New(set schema.Set, opts ...Option) *Server {
	s := &Server{
		set:    set,
		tables: Seed(),
		// The live API answers in a mix of shapes; mirror that.
		envelopes: map[string]Envelope{
			"accounts":   EnvelopeBare,
			"employees":  EnvelopeList,
			"attendance": EnvelopeDataData,
			"meals":      EnvelopeDataList,
		},
		saves:  make(map[string]int),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Rows returns a copy of a grid's stored rows.
func (s *Server) Rows(name string) []grid.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grid.CloneRows(s.tables[name])
}

// SaveCount reports how many save requests a grid has accepted.
func (s *Server) SaveCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[name]
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/{grid}", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Use(s.delay)
		r.Get("/list", s.handleList)
		r.Post("/save", s.handleSave)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, saveReply{Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type saveReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "grid")
	def, ok := s.set.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, saveReply{Message: fmt.Sprintf("unknown grid %q", name)})
		return
	}
	query := r.URL.Query()

	s.mu.Lock()
	rows := make([]grid.Row, 0, len(s.tables[name]))
	for _, row := range s.tables[name] {
		if matches(row, query) {
			rows = append(rows, row.Clone())
		}
	}
	env := s.envelopes[def.Name]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, wrap(rows, env))
}

func matches(row grid.Row, query map[string][]string) bool {
	for key, values := range query {
		v, present := row[key]
		if !present || len(values) == 0 {
			continue
		}
		if grid.NormalizeText(v) != grid.NormalizeText(values[0]) {
			return false
		}
	}
	return true
}

func wrap(rows []grid.Row, env Envelope) any {
	switch env {
	case EnvelopeBare:
		return rows
	case EnvelopeList:
		return map[string]any{"list": rows}
	case EnvelopeDataData:
		return map[string]any{"data": map[string]any{"data": rows}}
	case EnvelopeDataList:
		return map[string]any{"data": map[string]any{"list": rows, "total": len(rows)}}
	default:
		return map[string]any{"success": true, "data": rows}
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "grid")
	def, ok := s.set.Lookup(name)
	if !ok {
		writeJSON(w, http.StatusOK, saveReply{Message: fmt.Sprintf("unknown grid %q", name)})
		return
	}
	var req struct {
		Changes []grid.Row `json:"changes"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, saveReply{Message: "invalid request body"})
		return
	}
	sc := def.Schema()
	for i, change := range req.Changes {
		for _, id := range sc.IdentityFields() {
			if grid.IsBlank(change[id], grid.KindText) {
				writeJSON(w, http.StatusOK, saveReply{
					Message: fmt.Sprintf("change %d: missing %s", i+1, id),
				})
				return
			}
		}
	}

	s.mu.Lock()
	table := s.tables[name]
	index := make(map[string]int, len(table))
	for i, row := range table {
		if _, dup := index[scopeKey(row, sc)]; !dup {
			index[scopeKey(row, sc)] = i
		}
	}
	for _, change := range req.Changes {
		values := coerce(change, sc)
		key := scopeKey(values, sc)
		if pos, ok := index[key]; ok {
			for k, v := range values {
				table[pos][k] = v
			}
			continue
		}
		index[key] = len(table)
		table = append(table, values)
	}
	s.tables[name] = table
	s.saves[name]++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, saveReply{
		Success: true,
		Message: fmt.Sprintf("%d row(s) saved", len(req.Changes)),
	})
}

// scopeKey extends the row identity with the carry fields, so day 3 of one
// account never overwrites day 3 of another.
func scopeKey(row grid.Row, sc grid.Schema) string {
	var b strings.Builder
	b.WriteString(grid.Identity(row, sc))
	for _, name := range sc.CarryFields() {
		b.WriteString("\x1e")
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(grid.NormalizeText(row[name]))
	}
	return b.String()
}

// coerce stores numeric fields as numbers and text as canonical strings,
// the way the real backend persists them.
func coerce(change grid.Row, sc grid.Schema) grid.Row {
	out := make(grid.Row, len(change))
	for k, v := range change {
		f, ok := sc.Field(k)
		switch {
		case !ok, f.Kind == grid.KindIdentity:
			out[k] = v
		case f.Kind == grid.KindNumeric:
			out[k] = grid.NormalizeNumeric(v)
		default:
			out[k] = grid.NormalizeText(v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
