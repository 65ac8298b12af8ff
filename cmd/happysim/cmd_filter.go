package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/survey"
)

func newFilterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filter <network>",
		Short: "Filter and recode the raw survey for one network (X, IG, FB)",
		Long: `Reads the raw survey workbook, keeps the happiness questions and the
network's usage column, drops respondents failing the filter, recodes
happiness from 0-10 to 0-5 and writes clean_data/3145_data_clean_<NET>.xlsx.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			n, err := survey.Lookup(args[0])
			if err != nil {
				return err
			}
			return filterNetwork(cmd.Context(), cfg, n, cmd.OutOrStdout(), jsonOut)
		},
	}
}
