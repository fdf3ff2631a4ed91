package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/salonscope/harvest-cli/internal/scrape"
)

var (
	areasURL    string
	areasDetail bool
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "List sub-areas or detail areas under a directory page",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		profile, err := scrape.LoadProfile(cfg.Site.ProfilePath)
		if err != nil {
			return err
		}
		nav := scrape.NewNavigator(scrape.NewFetcher(cfg.Fetch), profile)

		areas := nav.ListSubAreas(ctx, areasURL)
		if areasDetail {
			areas = nav.ListDetailAreas(ctx, areasURL)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(areas)
	},
}

func init() {
	areasCmd.Flags().StringVar(&areasURL, "url", "", "area page URL (required)")
	areasCmd.Flags().BoolVar(&areasDetail, "detail", false, "list detail areas instead of sub-areas")
	_ = areasCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(areasCmd)
}
