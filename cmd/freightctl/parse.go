package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/export"
	"freightrates/internal/extractor"
	"freightrates/internal/extractor/providers"
	"freightrates/internal/service"
)

func parseCmd() *cobra.Command {
	var out string
	var bucket string
	var strategy string
	var cluster bool
	var includeText bool

	cmd := &cobra.Command{
		Use:   "parse <file.html>",
		Short: "Extract prices, surcharges and remarks from an e-mail body",
		Long: "Runs the full pipeline against the configured extraction provider.\n" +
			"The result is printed as JSON unless --out names a .xlsx or .csv file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			providers.RegisterAll()
			svc, err := extractor.NewFromConfig(&cfg.Extractor)
			if err != nil {
				return fmt.Errorf("creating extraction service: %w", err)
			}
			pipeline := service.NewPipelineService(svc, &cfg.Table, &cfg.Batch)

			outcome, err := pipeline.Run(cmd.Context(), string(raw), domain.ParseOptions{
				Strategy:    domain.BatchStrategy(strategy),
				Cluster:     cluster,
				IncludeText: includeText,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d prices, %d surcharges, %d remarks (%d batches, %d failed)\n",
				len(outcome.Result.Prices), len(outcome.Result.SurchargeItems), len(outcome.Result.OtherRemarks),
				outcome.Stats.Batches, outcome.Stats.FailedBatches)

			if out == "" {
				return writeJSON(cmd.OutOrStdout(), outcome)
			}
			return writeExport(out, bucket, outcome.Result)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to a .xlsx or .csv file")
	cmd.Flags().StringVar(&bucket, "bucket", domain.BucketPrices, "bucket to write for csv output: prices|surcharges|remarks")
	cmd.Flags().StringVar(&strategy, "strategy", "", "batching strategy: risk|fixed (default from config)")
	cmd.Flags().BoolVar(&cluster, "cluster", false, "let the model regroup tables before extraction")
	cmd.Flags().BoolVar(&includeText, "include-text", false, "also extract remarks from text outside tables")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeExport(path, bucket string, result *domain.ExtractionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = export.WriteXLSX(f, result)
	case ".csv":
		err = export.WriteCSV(f, result, bucket)
	default:
		err = fmt.Errorf("unsupported output format %q, use .xlsx or .csv", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return f.Close()
}
