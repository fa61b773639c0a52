package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/store"
	"github.com/tunelore/coverart/internal/verify"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cover verification HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Service, env.Store, cfg.Admin.Token),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiServer carries the handler dependencies.
type apiServer struct {
	svc        *verify.Service
	store      store.Store
	adminToken string
}

// newRouter builds the chi router with all API routes mounted.
func newRouter(svc *verify.Service, st store.Store, adminToken string) http.Handler {
	s := &apiServer{svc: svc, store: st, adminToken: adminToken}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Admin-Token"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/covers/verify", s.handleVerify)
		r.Post("/covers/batch", s.handleBatch)
		r.Post("/covers/report", s.handleReport)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/override", s.handleApplyOverride)
			r.Delete("/override/{songID}", s.handleRemoveOverride)
		})
	})
	return r
}

// requireAdmin gates override endpoints on the shared admin token.
func (s *apiServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		if r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		model.QueryMeta
		SongID string `json:"song_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.svc.Verify(r.Context(), req.QueryMeta, req.SongID)
	if err != nil {
		if eris.Is(err, verify.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "title and artist are required")
			return
		}
		zap.L().Error("verify failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Songs []verify.BatchItem `json:"songs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Songs) == 0 {
		writeError(w, http.StatusBadRequest, "songs is required")
		return
	}
	if len(req.Songs) > s.svc.MaxBatchSize() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("batch size exceeds limit of %d", s.svc.MaxBatchSize()))
		return
	}

	result, err := s.svc.VerifyBatch(r.Context(), req.Songs)
	if err != nil {
		zap.L().Error("batch verify failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch verification failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SongID            string `json:"song_id"`
		DisplayedCoverURL string `json:"displayed_cover_url"`
		CorrectHint       string `json:"correct_hint,omitempty"`
		UserID            string `json:"user_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SongID == "" || req.DisplayedCoverURL == "" {
		writeError(w, http.StatusBadRequest, "song_id and displayed_cover_url are required")
		return
	}

	id, err := s.store.InsertCoverReport(r.Context(), model.CoverReport{
		SongID:            req.SongID,
		DisplayedCoverURL: req.DisplayedCoverURL,
		CorrectHint:       req.CorrectHint,
		UserID:            req.UserID,
	})
	if err != nil {
		zap.L().Error("insert cover report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record report")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "pending"})
}

func (s *apiServer) handleApplyOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SongID   string          `json:"song_id"`
		CoverURL string          `json:"cover_url"`
		Reason   string          `json:"reason,omitempty"`
		AdminID  string          `json:"admin_id,omitempty"`
		Metadata *model.SongMeta `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SongID == "" || req.CoverURL == "" {
		writeError(w, http.StatusBadRequest, "song_id and cover_url are required")
		return
	}

	if err := s.store.ApplyOverride(r.Context(), req.SongID, req.CoverURL, req.Reason, req.AdminID, req.Metadata); err != nil {
		zap.L().Error("apply override failed", zap.String("song_id", req.SongID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not apply override")
		return
	}
	zap.L().Info("manual override applied",
		zap.String("song_id", req.SongID),
		zap.String("admin_id", req.AdminID),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"song_id":         req.SongID,
		"manual_override": true,
	})
}

func (s *apiServer) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")

	removed, err := s.store.RemoveOverride(r.Context(), songID)
	if err != nil {
		zap.L().Error("remove override failed", zap.String("song_id", songID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not remove override")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "no override for song")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"song_id":         songID,
		"manual_override": false,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
