package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/pipeline"
)

var (
	runAreaURL string
	runEventID string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full harvest for one area URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		eventID := runEventID
		if eventID == "" {
			eventID = uuid.NewString()
		}

		zap.L().Info("starting harvest",
			zap.String("eventId", eventID),
			zap.String("areaUrl", runAreaURL))

		if err := env.Pipeline.Run(ctx, pipeline.Trigger{ID: eventID, AreaURL: runAreaURL}); err != nil {
			return eris.Wrap(err, "run harvest")
		}

		harvest, err := env.Store.GetHarvestByExternalID(ctx, eventID)
		if err != nil {
			return eris.Wrap(err, "load harvest summary")
		}

		summary := struct {
			EventID    string  `json:"event_id"`
			AreaURL    string  `json:"area_url"`
			TotalCount int     `json:"total_count"`
			Duration   float64 `json:"duration"`
			FileName   string  `json:"file_name,omitempty"`
		}{
			EventID:    eventID,
			AreaURL:    harvest.AreaURL,
			TotalCount: harvest.TotalCount,
			Duration:   harvest.Duration,
		}
		if harvest.ExportInfo != nil {
			summary.FileName = harvest.ExportInfo.FileName
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runAreaURL, "area-url", "", "listing URL of the area to harvest (required)")
	runCmd.Flags().StringVar(&runEventID, "id", "", "external event id (default: random UUID)")
	_ = runCmd.MarkFlagRequired("area-url")
	rootCmd.AddCommand(runCmd)
}
