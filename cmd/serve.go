package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for submitting and inspecting sourcing jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				OwnerID       string `json:"owner_id"`
				Description   string `json:"description"`
				MaxCandidates int    `json:"max_candidates"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Description == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
				return
			}
			if body.OwnerID == "" {
				body.OwnerID = "default"
			}
			if body.MaxCandidates <= 0 {
				body.MaxCandidates = cfg.Pipeline.MaxCandidates
			}

			job, err := st.CreateJob(req.Context(), body.OwnerID, body.Description, body.MaxCandidates)
			if err != nil {
				zap.L().Error("create job failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create job"})
				return
			}

			// The run outlives the request; progress is observable via GET.
			go func() {
				if err := p.Run(ctx, job.ID); err != nil {
					zap.L().Error("job run failed",
						zap.String("job_id", job.ID),
						zap.Error(err))
				}
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, err := st.GetJob(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		r.Get("/jobs/{id}/candidates", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			filter := store.CandidateFilter{
				JobID:      chi.URLParam(req, "id"),
				OnlyScored: q.Get("scored") == "true",
				SortBy:     q.Get("sort"),
			}
			filter.MinScore, _ = strconv.Atoi(q.Get("min_score"))
			filter.Limit, _ = strconv.Atoi(q.Get("limit"))
			filter.Offset, _ = strconv.Atoi(q.Get("offset"))

			candidates, err := st.ListCandidates(req.Context(), filter)
			if err != nil {
				zap.L().Error("list candidates failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list candidates"})
				return
			}
			writeJSON(w, http.StatusOK, candidates)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			// The signal context is already canceled here; draining
			// in-flight requests needs its own deadline.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
