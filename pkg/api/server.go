package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moodlens/moodlens/pkg/api/apierr"
	"github.com/moodlens/moodlens/pkg/core"
	"github.com/moodlens/moodlens/pkg/lexicon"
	mcpapi "github.com/moodlens/moodlens/pkg/mcp"
	"github.com/moodlens/moodlens/pkg/score"
	"github.com/moodlens/moodlens/pkg/signal"
	"github.com/moodlens/moodlens/pkg/textproc"
)

// Server is the HTTP/REST API server.
type Server struct {
	config  *core.Config
	loader  *lexicon.Loader
	tracker *signal.Tracker
	mapper  *signal.Mapper
	valence *score.ValenceAnalyzer

	// lex, scorer, and security are swapped atomically: lex once the async
	// load completes (and again on admin reload), scorer and security on a
	// runtime config patch. Handlers and middleware read whatever is
	// current; a nil lexicon scores to the zero result instead of blocking.
	lex      atomic.Pointer[lexicon.Lexicon]
	scorer   atomic.Pointer[score.Scorer]
	security atomic.Pointer[core.SecurityConfig]

	httpServer *http.Server
	addr       string
	mcpPath    string

	rateLimitEnabled  bool
	rateLimitRequests int
	rateLimitWindow   time.Duration
	rateLimitMu       sync.Mutex
	rateLimitEntries  map[string]rateLimitEntry
}

const (
	defaultRateLimitWindow  = time.Minute
	defaultRateLimitRequest = 10000
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// NewServer creates a new API server.
func NewServer(
	addr string,
	cfg *core.Config,
	loader *lexicon.Loader,
	tracker *signal.Tracker,
	mapper *signal.Mapper,
) *Server {
	s := &Server{
		config:            cfg,
		loader:            loader,
		tracker:           tracker,
		mapper:            mapper,
		valence:           score.DefaultValence(),
		addr:              addr,
		rateLimitEnabled:  true,
		rateLimitRequests: defaultRateLimitRequest,
		rateLimitWindow:   defaultRateLimitWindow,
		rateLimitEntries:  make(map[string]rateLimitEntry),
	}
	s.scorer.Store(score.NewScorer(score.Tuning{
		ContrastBoost:  cfg.Scoring.ContrastBoost,
		NegationFactor: cfg.Scoring.NegationFactor,
	}))
	sec := cfg.Security
	s.security.Store(&sec)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("/health", s.handleHealth)

	// Scoring
	mux.HandleFunc("/v1/score", s.handleScore)
	mux.HandleFunc("/v1/score/sentences", s.handleScoreSentences)

	// Lexicon diagnostics
	mux.HandleFunc("/v1/lexicon/stats", s.handleLexiconStats)

	// Typing-activity signal
	mux.HandleFunc("/v1/signal/keystroke", s.handleKeystroke)
	mux.HandleFunc("/v1/signal", s.handleSignal)

	if cfg.MCP.Enabled {
		path := cfg.MCP.Path
		if strings.TrimSpace(path) == "" {
			path = "/mcp"
		}
		if len(path) > 1 {
			path = strings.TrimRight(path, "/")
		}

		mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
			APIKey:         cfg.MCP.APIKey,
			Stateless:      cfg.MCP.Stateless,
			RateLimitRPS:   cfg.MCP.RateLimitRPS,
			RateLimitBurst: cfg.MCP.RateLimitBurst,
			AllowedTools:   cfg.MCP.AllowedTools,
		}, newMCPBackend(s))
		if err != nil {
			log.Printf("⚠ MCP endpoint disabled: %v", err)
		} else {
			s.mcpPath = path
			mux.Handle(path, mcpHandler)
			log.Printf("MCP endpoint enabled at %s (stateless=%v)", path, cfg.MCP.Stateless)
		}
	}

	// Admin endpoints (gated by admin.enabled)
	if cfg.Admin.Enabled {
		mux.HandleFunc("/admin/login", s.handleAdminLogin)
		mux.HandleFunc("/admin/lexicon/reload", s.requireAdmin(s.handleLexiconReload))
		mux.HandleFunc("/v1/config", s.requireAdmin(s.handleConfig))
		mux.HandleFunc("/admin/config", s.requireAdmin(s.handleConfig))
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  cfg.Security.ReadTimeout,
		WriteTimeout: cfg.Security.WriteTimeout,
	}

	return s
}

// SetLexicon installs a loaded lexicon. Called once when the async startup
// load resolves and again on admin reloads.
func (s *Server) SetLexicon(lex *lexicon.Lexicon) {
	s.lex.Store(lex)
}

// Lexicon returns the active lexicon, nil while the startup load is still in
// flight.
func (s *Server) Lexicon() *lexicon.Lexicon {
	return s.lex.Load()
}

// withMiddleware adds common middleware (CORS, content-type, request body limit, logging).
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isMCPPath(r.URL.Path) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
			return
		}

		sec := s.security.Load()

		// CORS — driven by config
		// AllowedOrigins may be comma-separated; match against the request Origin header.
		requestOrigin := r.Header.Get("Origin")
		if requestOrigin != "" {
			allowed := false
			if sec.AllowedOrigins == "*" {
				allowed = true
			} else {
				for _, o := range strings.Split(sec.AllowedOrigins, ",") {
					if strings.TrimSpace(o) == requestOrigin {
						allowed = true
						break
					}
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", requestOrigin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if !s.allowRequestByRateLimit(r) {
			retryAfter := int(s.rateLimitWindow.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			apierr.TooManyRequests(w, "rate limit exceeded")
			return
		}

		// Request body size limit
		if sec.MaxRequestBody > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, sec.MaxRequestBody)
		}

		// Content-Type
		w.Header().Set("Content-Type", "application/json")

		// Logging
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) isMCPPath(path string) bool {
	if s.mcpPath == "" {
		return false
	}
	if path == s.mcpPath {
		return true
	}
	return strings.HasPrefix(path, s.mcpPath+"/")
}

// requireAdmin wraps a handler with admin Basic-Auth verification.
// The client must send an Authorization header: Basic base64(user:password).
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="moodlens admin"`)
			apierr.Unauthorized(w, "admin authentication required")
			return
		}

		// Constant-time comparison to prevent timing attacks.
		userHash := sha256.Sum256([]byte(user))
		passHash := sha256.Sum256([]byte(pass))
		expectedUserHash := sha256.Sum256([]byte(s.config.Admin.User))
		expectedPassHash := sha256.Sum256([]byte(s.config.Admin.Password))

		userMatch := subtle.ConstantTimeCompare(userHash[:], expectedUserHash[:]) == 1
		passMatch := subtle.ConstantTimeCompare(passHash[:], expectedPassHash[:]) == 1

		if !userMatch || !passMatch {
			apierr.Unauthorized(w, "invalid admin credentials")
			return
		}

		next(w, r)
	}
}

func (s *Server) decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierr.PayloadTooLarge(w, err.Error())
			return false
		}
		apierr.InvalidJSON(w)
		return false
	}
	return true
}

func (s *Server) allowRequestByRateLimit(r *http.Request) bool {
	if !s.rateLimitEnabled || s.rateLimitRequests <= 0 || s.rateLimitWindow <= 0 {
		return true
	}

	key := r.RemoteAddr
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		key = strings.TrimSpace(parts[0])
	} else if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		key = ip
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		key = host
	}
	if key == "" {
		key = "unknown"
	}

	now := time.Now()
	s.rateLimitMu.Lock()
	defer s.rateLimitMu.Unlock()

	entry := s.rateLimitEntries[key]
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) >= s.rateLimitWindow {
		s.rateLimitEntries[key] = rateLimitEntry{windowStart: now, count: 1}
		return true
	}
	if entry.count >= s.rateLimitRequests {
		return false
	}
	entry.count++
	s.rateLimitEntries[key] = entry
	return true
}

// Start starts the server.
func (s *Server) Start() error {
	log.Printf("🚀 MoodLens API server starting on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ============================================================================
// SCORING ENDPOINTS
// ============================================================================

// scoreRequest is the shared request body of the scoring endpoints.
type scoreRequest struct {
	Text string `json:"text"`
}

// prepareText validates and cleans the request text. The bool result reports
// whether the caller should proceed (an error response has been written
// otherwise).
func (s *Server) prepareText(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return "", false
	}

	var req scoreRequest
	if !s.decodeJSONRequest(w, r, &req) {
		return "", false
	}
	if req.Text == "" {
		apierr.TextRequired(w)
		return "", false
	}
	if max := s.security.Load().MaxTextBytes; max > 0 && int64(len(req.Text)) > max {
		apierr.TextTooLarge(w, int(max))
		return "", false
	}
	return textproc.CleanText(req.Text), true
}

// handleScore — POST /v1/score
//
// Scores one text against the active lexicon and folds the result into the
// smoothed visual state. While the startup lexicon load is still in flight
// the result is all-zero rather than an error.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	text, ok := s.prepareText(w, r)
	if !ok {
		return
	}

	lex := s.Lexicon()
	result := s.scorer.Load().Score(text, lex)
	anger, joy, sad := signal.Percentages(result)

	activity, textLen := s.tracker.Snapshot()
	visual := s.mapper.Update(result, activity, textLen)

	json.NewEncoder(w).Encode(map[string]any{
		"ok":     true,
		"result": result,
		"percentages": map[string]float64{
			"anger": anger,
			"joy":   joy,
			"sad":   sad,
		},
		"valence": s.valence.Analyze(text),
		"visual":  visual,
		"lexicon": map[string]any{
			"source": lex.Source().String(),
			"hash":   lex.Hash(),
		},
	})
}

// handleScoreSentences — POST /v1/score/sentences
//
// Scores each sentence independently plus the whole text in one pass.
func (s *Server) handleScoreSentences(w http.ResponseWriter, r *http.Request) {
	text, ok := s.prepareText(w, r)
	if !ok {
		return
	}

	lex := s.Lexicon()
	sentences, aggregate := s.scorer.Load().ScoreSentences(text, lex)
	if sentences == nil {
		sentences = []score.SentenceResult{}
	}

	json.NewEncoder(w).Encode(map[string]any{
		"ok":        true,
		"sentences": sentences,
		"aggregate": aggregate,
		"count":     len(sentences),
		"lexicon": map[string]any{
			"source": lex.Source().String(),
			"hash":   lex.Hash(),
		},
	})
}

// handleLexiconStats — GET /v1/lexicon/stats
func (s *Server) handleLexiconStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"ok":     true,
		"loaded": s.Lexicon() != nil,
		"stats":  s.Lexicon().Stats(),
	})
}

// ============================================================================
// SIGNAL ENDPOINTS
// ============================================================================

// handleKeystroke — POST /v1/signal/keystroke
//
// Records one keystroke (and optionally the current text length) on the
// activity tracker.
func (s *Server) handleKeystroke(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	var req struct {
		TextLength *int `json:"text_length,omitempty"`
	}
	if r.ContentLength != 0 {
		if !s.decodeJSONRequest(w, r, &req) {
			return
		}
	}

	s.tracker.Bump()
	if req.TextLength != nil {
		s.tracker.SetTextLength(*req.TextLength)
	}

	activity, textLen := s.tracker.Snapshot()
	json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"activity":    activity,
		"text_length": textLen,
	})
}

// handleSignal — GET /v1/signal
//
// Returns the current smoothed visual parameters and liveness inputs.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		apierr.MethodNotAllowed(w)
		return
	}

	activity, textLen := s.tracker.Snapshot()
	json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"activity":    activity,
		"text_length": textLen,
		"visual":      s.mapper.Current(),
	})
}

// handleHealth returns health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	lex := s.Lexicon()
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "healthy",
		"timestamp":     time.Now(),
		"lexiconLoaded": lex != nil,
		"lexiconSource": lex.Source().String(),
	})
}

// ============================================================================
// ADMIN ENDPOINTS
// ============================================================================

// handleAdminLogin handles admin authentication.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	var req struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if !s.decodeJSONRequest(w, r, &req) {
		return
	}

	// Verify credentials from config using constant-time comparison.
	userHash := sha256.Sum256([]byte(req.User))
	passHash := sha256.Sum256([]byte(req.Password))
	expectedUserHash := sha256.Sum256([]byte(s.config.Admin.User))
	expectedPassHash := sha256.Sum256([]byte(s.config.Admin.Password))

	userOK := subtle.ConstantTimeCompare(userHash[:], expectedUserHash[:]) == 1
	passOK := subtle.ConstantTimeCompare(passHash[:], expectedPassHash[:]) == 1

	if userOK && passOK {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "authenticated — use Basic Auth for subsequent admin requests",
		})
	} else {
		apierr.Unauthorized(w, "invalid credentials")
	}
}

// handleLexiconReload — POST /admin/lexicon/reload
//
// Re-runs the full load chain (file, remote, cache, fallback) and installs
// the result.
func (s *Server) handleLexiconReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		apierr.MethodNotAllowed(w)
		return
	}

	lex := s.loader.Load(r.Context())
	s.SetLexicon(lex)

	json.NewEncoder(w).Encode(map[string]any{
		"ok":       true,
		"reloaded": true,
		"stats":    lex.Stats(),
	})
}

// ============================================================================
// RUNTIME CONFIGURATION ENDPOINT
// ============================================================================

// handleConfig exposes the active server configuration.
//
//   - GET  /v1/config — returns the full running configuration as JSON.
//   - POST /v1/config — applies a partial configuration patch at runtime.
//     Only scoring tuning and security limits can be changed at runtime;
//     server addresses and lexicon sources are startup-only.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.handleConfigGet(w, r)
	case "POST":
		s.handleConfigSet(w, r)
	default:
		apierr.MethodNotAllowed(w)
	}
}

// handleConfigGet returns the active configuration snapshot.
func (s *Server) handleConfigGet(w http.ResponseWriter, _ *http.Request) {
	tuning := s.scorer.Load().Tuning()
	sec := s.security.Load()
	json.NewEncoder(w).Encode(map[string]any{
		"server": map[string]any{
			"httpAddr": s.config.Server.HTTPAddr,
		},
		"lexicon": map[string]any{
			"baseURL":   s.config.Lexicon.BaseURL,
			"filename":  s.config.Lexicon.Filename,
			"path":      s.config.Lexicon.Path,
			"cachePath": s.config.Lexicon.CachePath,
			"compress":  s.config.Lexicon.Compress,
		},
		"scoring": map[string]any{
			"contrastBoost":  tuning.ContrastBoost,
			"negationFactor": tuning.NegationFactor,
		},
		"signal": map[string]any{
			"decayInterval": s.config.Signal.DecayInterval.String(),
			"decayRate":     s.config.Signal.DecayRate,
			"lerpRate":      s.config.Signal.LerpRate,
		},
		"admin": map[string]any{
			"enabled": s.config.Admin.Enabled,
			"user":    s.config.Admin.User,
		},
		"security": map[string]any{
			"allowedOrigins": sec.AllowedOrigins,
			"maxRequestBody": sec.MaxRequestBody,
			"maxTextBytes":   sec.MaxTextBytes,
			"readTimeout":    sec.ReadTimeout.String(),
			"writeTimeout":   sec.WriteTimeout.String(),
		},
	})
}

// handleConfigSet applies a partial runtime configuration patch.
// Only fields that are safe to change at runtime are accepted.
func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Scoring *struct {
			ContrastBoost  *float64 `json:"contrastBoost,omitempty"`
			NegationFactor *float64 `json:"negationFactor,omitempty"`
		} `json:"scoring,omitempty"`
		Security *struct {
			AllowedOrigins *string `json:"allowedOrigins,omitempty"`
			MaxRequestBody *int64  `json:"maxRequestBody,omitempty"`
			MaxTextBytes   *int64  `json:"maxTextBytes,omitempty"`
		} `json:"security,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		apierr.InvalidJSON(w)
		return
	}

	changed := []string{}
	rejected := []string{}

	if patch.Scoring != nil {
		tuning := s.scorer.Load().Tuning()
		if v := patch.Scoring.ContrastBoost; v != nil {
			if *v < 1.0 {
				rejected = append(rejected, "scoring.contrastBoost: must be >= 1.0")
			} else {
				tuning.ContrastBoost = *v
				changed = append(changed, "scoring.contrastBoost")
			}
		}
		if v := patch.Scoring.NegationFactor; v != nil {
			if *v >= 0 {
				rejected = append(rejected, "scoring.negationFactor: must be < 0")
			} else {
				tuning.NegationFactor = *v
				changed = append(changed, "scoring.negationFactor")
			}
		}
		s.scorer.Store(score.NewScorer(tuning))
	}

	if patch.Security != nil {
		// Copy-mutate-swap so in-flight requests keep reading a consistent
		// snapshot instead of racing the patch.
		sec := *s.security.Load()
		if v := patch.Security.AllowedOrigins; v != nil {
			sec.AllowedOrigins = *v
			changed = append(changed, "security.allowedOrigins")
		}
		if v := patch.Security.MaxRequestBody; v != nil {
			if *v < 0 {
				rejected = append(rejected, "security.maxRequestBody: must be >= 0")
			} else {
				sec.MaxRequestBody = *v
				changed = append(changed, "security.maxRequestBody")
			}
		}
		if v := patch.Security.MaxTextBytes; v != nil {
			if *v < 0 {
				rejected = append(rejected, "security.maxTextBytes: must be >= 0")
			} else {
				sec.MaxTextBytes = *v
				changed = append(changed, "security.maxTextBytes")
			}
		}
		s.security.Store(&sec)
	}

	if len(changed) == 0 {
		msg := "no valid runtime parameters provided"
		if len(rejected) > 0 {
			msg = "all parameters rejected"
		}
		apierr.BadRequest(w, apierr.CodeBadRequest, msg)
		return
	}

	resp := map[string]any{
		"ok":      true,
		"changed": changed,
		"count":   len(changed),
	}
	if len(rejected) > 0 {
		resp["rejected"] = rejected
	}
	json.NewEncoder(w).Encode(resp)
}
