package main

import (
	"github.com/spf13/cobra"

	"github.com/vertti/presubmit/pkg/output"
	"github.com/vertti/presubmit/pkg/pipeline"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the checks and the stages they run in",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	stages, err := pipeline.Stages(p.specs)
	if err != nil {
		return err
	}
	output.PrintStages(cmd.OutOrStdout(), p.specs, stages)
	return nil
}
