package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/model"
	"github.com/salonscope/harvest-cli/internal/pipeline"
	"github.com/salonscope/harvest-cli/internal/store"
)

var servePort int

// harvestEvent is the webhook payload that triggers a run.
type harvestEvent struct {
	ID   string `json:"id"`
	Data struct {
		AreaURL string `json:"areaUrl"`
	} `json:"data"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server for harvest requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/harvest", func(w http.ResponseWriter, req *http.Request) {
			var event harvestEvent
			if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if event.ID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
				return
			}

			// The run outlives the request; task state carries the progress.
			go func() {
				trig := pipeline.Trigger{ID: event.ID, AreaURL: event.Data.AreaURL}
				if err := env.Pipeline.Run(ctx, trig); err != nil {
					zap.L().Error("webhook harvest failed",
						zap.String("eventId", event.ID),
						zap.Error(err))
					return
				}
				zap.L().Info("webhook harvest complete", zap.String("eventId", event.ID))
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":  "accepted",
				"eventId": event.ID,
			})
		})

		r.Get("/tasks/{externalID}/progress", func(w http.ResponseWriter, req *http.Request) {
			externalID := chi.URLParam(req, "externalID")
			task, err := env.Store.GetTask(req.Context(), externalID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
					return
				}
				zap.L().Error("task lookup failed", zap.String("externalId", externalID), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			writeJSON(w, http.StatusOK, model.Progress(*task))
		})

		r.Get("/harvests/{externalID}", func(w http.ResponseWriter, req *http.Request) {
			externalID := chi.URLParam(req, "externalID")
			harvest, err := env.Store.GetHarvestByExternalID(req.Context(), externalID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "harvest not found"})
					return
				}
				zap.L().Error("harvest lookup failed", zap.String("externalId", externalID), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			writeJSON(w, http.StatusOK, harvest)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
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
