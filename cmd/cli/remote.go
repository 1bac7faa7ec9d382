package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"medstat/adapters/excel"
	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/charts"
	"medstat/internal/errors"
	"medstat/internal/forms"
)

func newUploadCmd(opts *globalOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a file to the stats API and print the parsed columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			defer f.Close()

			name := filepath.Base(args[0])
			res, err := opts.client().Upload(cmd.Context(), name, f)
			if err != nil {
				return err
			}
			return printUpload(cmd.OutOrStdout(), res, name, dataset.SourceUpload, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Save the parsed rows to this .csv or .xlsx file")
	return cmd
}

func newREDCapCmd(opts *globalOptions) *cobra.Command {
	var (
		url   string
		token string
		raw   bool
		out   string
	)

	cmd := &cobra.Command{
		Use:   "redcap",
		Short: "Fetch a REDCap project through the stats API",
		Long: `Fetch the records of a REDCap project. The token is sent to the stats API,
which talks to REDCap; it is never stored.

Example: medstat-cli redcap --url https://redcap.example.org/api/ --token $REDCAP_TOKEN --out records.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := analysis.REDCapRequest{URL: url, Token: token}
			if raw {
				req.RawOrLabel = "raw"
			}
			res, err := opts.client().FetchREDCap(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printUpload(cmd.OutOrStdout(), res, "redcap", dataset.SourceREDCap, out)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "REDCap API URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("REDCAP_TOKEN"), "REDCap API token (default $REDCAP_TOKEN)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Return raw codes instead of labels")
	cmd.Flags().StringVar(&out, "out", "", "Save the records to this .csv or .xlsx file")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func printUpload(w io.Writer, res *analysis.UploadResult, name string, source dataset.Source, out string) error {
	fmt.Fprintf(w, "%s: %d rows, %d columns\n", name, res.NRows, res.NCols)
	printColumns(w, res.Columns)
	if out == "" {
		return nil
	}
	ds, err := res.Dataset(name, source)
	if err != nil {
		return err
	}
	if err := excel.WriteFile(out, ds); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d rows to %s\n", ds.RowCount(), out)
	return nil
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		formPath  string
		dataPath  string
		chartPath string
		chartName string
	)

	cmd := &cobra.Command{
		Use:   "run [kind]",
		Short: "Run an analysis with a JSON form, optionally against a local dataset",
		Long: `Validate a form against a dataset and call the matching stats API endpoint.
Kinds: survival, meta, ttest, anova, chi_square, sample_size, two_by_two,
incidence_rate, logistic, roc.

Example: medstat-cli run survival --form km.json --file trial.csv --chart km.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := analysis.ParseKind(args[0])
			if err != nil {
				return err
			}

			var raw []byte
			if formPath != "" {
				if raw, err = os.ReadFile(formPath); err != nil {
					return errors.Wrapf(err, "read form %s", formPath)
				}
			}
			form, err := forms.Decode(kind, raw)
			if err != nil {
				return err
			}

			var ds *dataset.Dataset
			if dataPath != "" {
				if ds, err = excel.NewDataReader(dataPath).ReadDataset(); err != nil {
					return err
				}
			}

			res, err := forms.Submit(cmd.Context(), opts.client(), form, ds)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return errors.Wrap(err, "encode result")
			}

			if chartPath == "" {
				return nil
			}
			return writeChart(cmd.Context(), cmd.ErrOrStderr(), chartPath, chartName, res, opts)
		},
	}

	cmd.Flags().StringVar(&formPath, "form", "", "JSON file with the form fields")
	cmd.Flags().StringVar(&dataPath, "file", "", "Local CSV or Excel dataset")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Write the charts to this .png or .svg path")
	cmd.Flags().StringVar(&chartName, "chart-name", "", "Chart to draw when the result has several (e.g. forest, funnel)")
	return cmd
}

// writeChart draws the named chart to path. Without a name every available
// chart is drawn; several charts go to path with the chart name appended
// (meta.png becomes meta-forest.png and meta-funnel.png).
func writeChart(ctx context.Context, w io.Writer, path, name string, res analysis.Result, opts *globalOptions) error {
	ext := filepath.Ext(path)
	format := charts.FormatPNG
	if strings.EqualFold(ext, ".svg") {
		format = charts.FormatSVG
	}
	renderer := charts.NewRenderer(charts.Options{Format: format}, opts.logger())

	images := make(map[string][]byte)
	if name != "" {
		var buf bytes.Buffer
		if err := renderer.RenderNamed(&buf, res, name); err != nil {
			return err
		}
		images[name] = buf.Bytes()
	} else {
		all, err := renderer.RenderAll(ctx, res)
		if err != nil {
			return err
		}
		images = all
	}

	names := make([]string, 0, len(images))
	for n := range images {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		target := path
		if len(images) > 1 {
			target = strings.TrimSuffix(path, ext) + "-" + n + ext
		}
		if err := os.WriteFile(target, images[n], 0o644); err != nil {
			return errors.Wrapf(err, "write %s", target)
		}
		fmt.Fprintf(w, "wrote %s chart to %s\n", n, target)
	}
	return nil
}
