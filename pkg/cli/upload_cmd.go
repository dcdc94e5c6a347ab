package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCmd(g *globals) *cobra.Command {
	var (
		dataset  string
		label    string
		skipRows int
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV or XLSX file as a new dataset version",
		Example: `  cmadmin upload --dataset tele2_coverage --label jan coverage.xlsx
  cmadmin upload --dataset 4 --label feb --skip-rows 2 prices.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataset == "" {
				return errors.New("--dataset is required")
			}
			if label == "" {
				return errors.New("--label is required")
			}
			ds, err := g.client.FindDataset(cmd.Context(), dataset)
			if err != nil {
				return err
			}

			opts := UploadOptions{
				DatasetID:    ds.ID,
				StagingTable: ds.StagingTable,
				Label:        label,
				File:         args[0],
			}
			if cmd.Flags().Changed("skip-rows") {
				opts.SkipRows = &skipRows
			}
			res, err := g.client.Upload(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d %q\n", res.Message, res.VersionID, res.VersionName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "dataset name or ID")
	cmd.Flags().StringVarP(&label, "label", "l", "", "version label")
	cmd.Flags().IntVar(&skipRows, "skip-rows", 0, "zero-based index of the header row")
	return cmd
}
