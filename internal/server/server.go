package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/uitext"
)

//go:embed templates/index.html
var templateFS embed.FS

const maxBodyBytes = 64 << 10

// Asker answers questions. *qa.Service implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
}

// Config holds web server configuration.
type Config struct {
	Addr string // e.g. ":8501"
	// RequestTimeout bounds a whole question, retrieval plus generation.
	RequestTimeout time.Duration
}

// Server serves the question page, the JSON API, health probes and metrics.
type Server struct {
	config  Config
	asker   Asker
	health  *HealthServer
	metrics *observability.QAMetrics
	log     *slog.Logger
	page    *template.Template
	server  *http.Server
}

// New creates a fully wired server. health and metrics may be nil.
func New(config Config, asker Asker, health *HealthServer, metrics *observability.QAMetrics, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	page, err := template.New("index.html").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	s := &Server{
		config:  config,
		asker:   asker,
		health:  health,
		metrics: metrics,
		log:     logger,
		page:    page,
	}

	s.server = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.requestTimeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) requestTimeout() time.Duration {
	if s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return 2 * time.Minute
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/ask", s.handleAsk)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return loggingMiddleware(s.log, mux)
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Info("Starting sportsqa server", "addr", s.config.Addr)
	if s.health != nil {
		s.health.SetReady(true)
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop marks the server unready and drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping sportsqa server")
	if s.health != nil {
		s.health.SetReady(false)
	}
	return s.server.Shutdown(ctx)
}

type uiCopy struct {
	Title, Welcome, Subtitle, Intro string
	InputLabel, Button, Spinner     string
	AnswerHeading, Success, Tip     string
	EmptyWarning, HelpTitle         string
	Topics, HelpSteps, Examples     []string
}

var pageCopy = uiCopy{
	Title:         uitext.Title,
	Welcome:       uitext.Welcome,
	Subtitle:      uitext.Subtitle,
	Intro:         uitext.Intro,
	InputLabel:    uitext.InputLabel,
	Button:        uitext.Button,
	Spinner:       uitext.Spinner,
	AnswerHeading: uitext.AnswerHeading,
	Success:       uitext.Success,
	Tip:           uitext.Tip,
	EmptyWarning:  uitext.EmptyWarning,
	HelpTitle:     uitext.HelpTitle,
	Topics:        uitext.Topics,
	HelpSteps:     uitext.HelpSteps,
	Examples:      uitext.Examples,
}

type pageData struct {
	UI       uiCopy
	Question string
	Result   *pageResult
}

type pageResult struct {
	Empty    bool
	Answered bool
	Failed   bool
	Text     string
	Sources  []string
}

// handleIndex handles GET / and form posts to /.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := pageData{UI: pageCopy}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		data.Question = r.PostFormValue("question")
		data.Result = s.ask(r.Context(), data.Question)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("Failed to render page", "error", err)
	}
}

func (s *Server) ask(ctx context.Context, question string) *pageResult {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout())
	defer cancel()

	ans, err := s.asker.Ask(ctx, question)
	if err != nil {
		return &pageResult{Failed: true, Text: qa.UserMessage(err)}
	}
	return &pageResult{
		Empty:    ans.Outcome == qa.OutcomeEmptyQuestion,
		Answered: ans.Outcome == qa.OutcomeAnswered,
		Text:     ans.Text,
		Sources:  ans.Sources,
	}
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is returned by POST /api/ask.
type AskResponse struct {
	Outcome   string    `json:"outcome"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	Distances []float64 `json:"distances"`
}

// handleAsk handles POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	ans, err := s.asker.Ask(ctx, req.Question)
	if err != nil {
		respondJSON(w, s.log, http.StatusServiceUnavailable, AskResponse{
			Outcome:   observability.OutcomeError,
			Answer:    qa.UserMessage(err),
			Sources:   []string{},
			Distances: []float64{},
		})
		return
	}

	resp := AskResponse{
		Outcome:   string(ans.Outcome),
		Answer:    ans.Text,
		Sources:   ans.Sources,
		Distances: ans.Distances,
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if resp.Distances == nil {
		resp.Distances = []float64{}
	}
	respondJSON(w, s.log, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Failed to encode JSON", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
