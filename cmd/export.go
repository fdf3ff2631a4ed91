package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <external-id>",
	Short: "Re-export the results of a stored harvest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		harvest, err := st.GetHarvestByExternalID(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get harvest %s", args[0])
		}

		var data []byte
		switch exportFormat {
		case "csv":
			data, err = export.CSV(harvest.Results)
		case "xlsx":
			data, err = export.XLSX(harvest.Results)
		default:
			return eris.Errorf("unknown format %q", exportFormat)
		}
		if err != nil {
			return eris.Wrapf(err, "render %s", exportFormat)
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.Export.Dir, "harvest-"+args[0]+"."+exportFormat)
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrap(err, "write output file")
		}

		zap.L().Info("harvest exported",
			zap.String("externalId", args[0]),
			zap.Int("records", len(harvest.Results)),
			zap.String("file", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv|xlsx)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default under export dir)")
	rootCmd.AddCommand(exportCmd)
}
