package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List datasets with their staging tables and latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := g.client.Datasets(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), all)
			}
			rows := make([][]string, 0, len(all))
			for _, d := range all {
				latest := ""
				if len(d.Versions) > 0 {
					latest = d.Versions[0].Name
				}
				rows = append(rows, []string{
					strconv.FormatInt(d.ID, 10), d.Name, d.DonorName, d.StagingTable,
					strconv.Itoa(len(d.Versions)), latest,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "DONOR", "STAGING TABLE", "VERSIONS", "LATEST"}, rows)
			return nil
		},
	}
}

func newVersionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "versions <dataset>",
		Short:   "List the committed versions of a dataset, newest first",
		Example: "  cmadmin versions tele2_coverage\n  cmadmin versions 3 -o json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := g.client.FindDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			versions := ds.Versions
			if versions == nil {
				versions = []Version{}
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), versions)
			}
			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Name})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "VERSION"}, rows)
			return nil
		},
	}
}
