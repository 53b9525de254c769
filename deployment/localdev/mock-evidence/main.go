package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

type source struct {
	SourceType   string `json:"source_type"`
	ExtractedAt  string `json:"extracted_at,omitempty"`
	CompetitorID string `json:"competitor_id,omitempty"`
	Domain       string `json:"domain,omitempty"`
	URL          string `json:"url,omitempty"`
}

// fixture ages are relative to each request so freshness stays stable across restarts
type fixture struct {
	sourceType string
	age        time.Duration
	path       string
}

var competitorFixtures = map[string][]fixture{
	"acme": {
		{"pricing", 2 * time.Hour, "/pricing"},
		{"docs", 6 * time.Hour, "/docs"},
		{"changelog", 20 * time.Hour, "/changelog"},
		{"reviews", 30 * time.Hour, "/reviews"},
	},
	"globex": {
		{"marketing", 96 * time.Hour, "/"},
		{"jobs", 120 * time.Hour, "/careers"},
	},
	"initech": {
		{"status", 400 * time.Hour, "/status"},
	},
}

var domainFixtures = map[string][]fixture{
	"hooli.com": {
		{"pricing", 12 * time.Hour, "/pricing"},
		{"docs", 12 * time.Hour, "/developers"},
		{"reviews", 0, "/reviews"},
	},
}

func main() {
	addr := flag.String("addr", ":8090", "Listen address")
	flag.Parse()

	logger := utils.NewLogger(os.Getenv("LOG_LEVEL"), false).With(slog.String("component", "evidence-mock"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/evidence/competitor", func(w http.ResponseWriter, r *http.Request) {
		if !enforceGet(w, r) {
			return
		}
		id := r.URL.Query().Get("competitor_id")
		fixtures, ok := competitorFixtures[id]
		if !ok {
			http.Error(w, "unknown competitor", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, map[string]any{"sources": render(fixtures, id, id+".example")})
	})
	mux.HandleFunc("/api/v1/evidence/domain", func(w http.ResponseWriter, r *http.Request) {
		if !enforceGet(w, r) {
			return
		}
		domain := r.URL.Query().Get("domain")
		fixtures, ok := domainFixtures[domain]
		if !ok {
			http.Error(w, "unknown domain", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, map[string]any{"sources": render(fixtures, "", domain)})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

// render turns fixtures into wire sources. A zero age is sent without a timestamp.
func render(fixtures []fixture, competitorID, domain string) []source {
	now := time.Now().UTC()
	out := make([]source, 0, len(fixtures))
	for _, f := range fixtures {
		s := source{
			SourceType:   f.sourceType,
			CompetitorID: competitorID,
			Domain:       domain,
			URL:          "https://" + domain + f.path,
		}
		if f.age > 0 {
			s.ExtractedAt = now.Add(-f.age).Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out
}

func enforceGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("query", r.URL.RawQuery),
			slog.Int("status", rw.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
