package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/store"
)

var evalsCmd = &cobra.Command{
	Use:   "evals",
	Short: "Inspect stored evaluations",
	Long:  "Commands for listing and viewing persisted parcel evaluations.",
}

// -- evals list --

var evalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored evaluations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		evals, err := st.ListEvaluations(ctx, store.ListFilter{
			Source: source,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "evals list")
		}

		if len(evals) == 0 {
			fmt.Fprintln(os.Stderr, "No evaluations found.")
			return nil
		}

		formatEvalsList(os.Stdout, evals)
		return nil
	},
}

// -- evals show --

var evalsShowCmd = &cobra.Command{
	Use:   "show <evaluation-id>",
	Short: "Show full details of an evaluation",
	Args:  cobra.ExactArgs(1),
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
			return eris.Wrap(err, "evals show")
		}

		return printJSON(os.Stdout, eval)
	},
}

func init() {
	evalsListCmd.Flags().String("source", "", "filter by ingestion source (geojson, shapefile, upload)")
	evalsListCmd.Flags().Int("limit", 50, "max number of evaluations to display")

	evalsCmd.AddCommand(evalsListCmd)
	evalsCmd.AddCommand(evalsShowCmd)
	rootCmd.AddCommand(evalsCmd)
}

// formatEvalsList writes a tabular list of evaluations to w.
func formatEvalsList(out io.Writer, evals []model.Evaluation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tPARCELS\tSKIPPED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t-------\t-------")

	for _, e := range evals {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			e.ID, e.Source, e.ResultCount, len(e.Skipped),
			e.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
