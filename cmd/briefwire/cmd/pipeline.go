package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pipelineLimit int

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run one processing batch over unprocessed events",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("⚙️ Briefwire Pipeline")

		a, err := buildApp()
		if err != nil {
			fmt.Printf("Startup error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		result, err := a.pipeline.RunBatch(context.Background(), pipelineLimit)
		if err != nil {
			fmt.Printf("Pipeline error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Processed: %d event(s)\n", result.Processed)
		for _, out := range result.Outcomes {
			line := fmt.Sprintf("  %s  %s", out.EventID, out.Status)
			if out.Suggestions > 0 {
				line += fmt.Sprintf("  (%d suggestion(s))", out.Suggestions)
			}
			if out.Error != "" {
				line += "  error: " + out.Error
			}
			fmt.Println(line)
		}
	},
}

func init() {
	pipelineCmd.Flags().IntVar(&pipelineLimit, "limit", 0, "max events per batch (0 = default)")
}
