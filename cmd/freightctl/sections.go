package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"freightrates/internal/cartesian"
	"freightrates/internal/classify"
	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/markup"
	"freightrates/internal/section"
)

type sectionReport struct {
	ID             string                  `json:"id"`
	Type           domain.TableType        `json:"table_type"`
	Classification classify.Classification `json:"classification"`
	HeaderRows     []domain.Row            `json:"header_rows"`
	Rows           []cartesian.Entry       `json:"rows"`
}

// sectionsCmd runs the offline part of the pipeline and prints what would be
// sent to the extraction service. No provider credentials are needed.
func sectionsCmd() *cobra.Command {
	var showRows bool

	cmd := &cobra.Command{
		Use:   "sections <file.html>",
		Short: "Print detected sections with classification scores and batch risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			doc, err := markup.Parse(markup.TruncateThread(string(raw)))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			splitter := section.NewSplitter(&cfg.Table)
			classifier := classify.NewClassifier(&cfg.Table)
			risk := cartesian.NewClassifier(&cfg.Batch)

			reports := []sectionReport{}
			for _, t := range doc.Tables {
				for j, sec := range splitter.Split(t.Grid) {
					sec.ID = fmt.Sprintf("table_%d_%d", t.Index, j)
					result := classifier.Classify(&sec)
					report := sectionReport{
						ID:             sec.ID,
						Type:           result.Type,
						Classification: result,
						HeaderRows:     sec.HeaderRows,
					}
					entries := risk.Strategy(sec.DataRows)
					if !showRows {
						for i := range entries {
							entries[i].Row = nil
						}
					}
					report.Rows = entries
					reports = append(reports, report)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"tables":      len(doc.Tables),
				"text_blocks": len(doc.Texts),
				"sections":    reports,
			})
		},
	}
	cmd.Flags().BoolVar(&showRows, "rows", false, "include row cells in the risk entries")
	return cmd
}
