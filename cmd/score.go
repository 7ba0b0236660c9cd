package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/ingest"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <parcels-file>",
	Short: "Score parcels from a GeoJSON or shapefile",
	Long: `Parse land parcels from a file, fetch site attributes, and rank the
parcels by data-center suitability.

The input format is inferred from the file extension (.geojson, .json,
.shp) and can be forced with --format. Scoring weights come from config
and can be overridden per run with a YAML profile.

Examples:
  # Score a GeoJSON upload and print the ranked table
  sitescout score parcels.geojson

  # Score a shapefile with a custom weight profile, persist the result
  sitescout score sites.shp --profile coastal.yaml --save

  # Emit JSON instead of a table
  sitescout score parcels.geojson --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("format", "", "input format: geojson or shapefile (default: by extension)")
	f.String("profile", "", "YAML scoring profile overriding configured weights")
	f.String("output", "table", "output format: table or json")
	f.Bool("save", false, "persist the evaluation to the store")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".shp":
			format = "shapefile"
		default:
			format = "geojson"
		}
	}

	var (
		parcels []model.Parcel
		skipped []model.SkippedParcel
		err     error
	)
	switch format {
	case "geojson":
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return eris.Wrapf(readErr, "score: read %s", path)
		}
		parcels, skipped, err = ingest.ParseGeoJSON(data)
	case "shapefile":
		parcels, skipped, err = ingest.ParseShapefile(path)
	default:
		return eris.Errorf("score: unknown format %q", format)
	}
	if err != nil {
		return err
	}
	if len(parcels) == 0 {
		for _, s := range skipped {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Name, s.Reason)
		}
		return eris.New("score: no valid parcels in input")
	}

	scoring := cfg.Scoring
	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		scoring, err = scorer.LoadProfile(profile, cfg.Scoring)
		if err != nil {
			return err
		}
	}

	var st store.Store
	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err = initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	p, err := initPipeline(cfg, &scoring, st)
	if err != nil {
		return err
	}

	eval, err := p.Evaluate(ctx, format, parcels, skipped)
	if err != nil {
		return err
	}

	if st != nil {
		zap.L().Info("evaluation saved", zap.String("id", eval.ID))
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return printJSON(os.Stdout, eval)
	}

	formatEvaluation(os.Stdout, eval)
	return nil
}

// formatEvaluation writes a ranked table of results to w.
func formatEvaluation(out io.Writer, eval *model.Evaluation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tNAME\tSCORE\tTIER\tJUSTIFICATION")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t----\t-------------")

	for i, r := range eval.Results {
		just := r.Justification
		if len(just) > 72 {
			just = just[:69] + "..."
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			i+1, r.Name, r.Score, strings.ToUpper(string(r.Tier)), just)
	}
	_ = w.Flush()

	if len(eval.Skipped) > 0 {
		fmt.Fprintf(out, "\nSkipped %d parcel(s):\n", len(eval.Skipped))
		for _, s := range eval.Skipped {
			fmt.Fprintf(out, "  %s: %s\n", s.Name, s.Reason)
		}
	}
}
