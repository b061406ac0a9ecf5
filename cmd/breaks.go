package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/choropleth-cli/internal/choropleth"
	"github.com/sells-group/choropleth-cli/internal/pipeline"
)

var breaksFormat string

var breaksCmd = &cobra.Command{
	Use:   "breaks",
	Short: "Print the class breaks, colors and per-bin counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return writeBreaks(cmd.OutOrStdout(), res, breaksFormat)
	},
}

// breaksReport is the machine-readable form of the breaks command output.
type breaksReport struct {
	BuildID string                   `json:"build_id" yaml:"build_id"`
	Mode    choropleth.Mode          `json:"mode" yaml:"mode"`
	Breaks  []float64                `json:"breaks" yaml:"breaks"`
	Palette string                   `json:"palette" yaml:"palette"`
	Legend  []choropleth.LegendEntry `json:"legend" yaml:"legend"`
	Join    choropleth.JoinStats     `json:"join" yaml:"join"`
}

func writeBreaks(w io.Writer, res *pipeline.Result, format string) error {
	report := breaksReport{
		BuildID: res.BuildID,
		Mode:    res.Classifier.Mode,
		Breaks:  res.Classifier.Breaks,
		Palette: res.Palette.Name,
		Legend:  res.Legend,
		Join:    res.Join,
	}

	switch format {
	case "", "table":
		fmt.Fprintf(w, "mode: %s  palette: %s  breaks: %v\n\n", report.Mode, report.Palette, report.Breaks)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BIN\tRANGE\tCOLOR\tCOUNT")
		for i, e := range report.Legend {
			bin := fmt.Sprint(i)
			if i == len(report.Legend)-1 {
				bin = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", bin, e.Label, e.Color, e.Count)
		}
		return tw.Flush()
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "encode json")
	default:
		return eris.Errorf("unknown format %q (want table, yaml or json)", format)
	}
}

func init() {
	breaksCmd.Flags().StringVar(&breaksFormat, "format", "table", "output format: table, yaml or json")
	rootCmd.AddCommand(breaksCmd)
}
