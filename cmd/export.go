package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <evaluation-id> <output.xlsx>",
	Short: "Export a stored evaluation to an XLSX workbook",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eval, err := st.GetEvaluation(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if err := export.WriteEvaluation(eval, args[1]); err != nil {
			return err
		}

		zap.L().Info("evaluation exported",
			zap.String("id", eval.ID),
			zap.String("path", args[1]),
			zap.Int("results", len(eval.Results)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
