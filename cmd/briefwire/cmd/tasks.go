package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Dispatch scheduled tasks that are due",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("⏰ Briefwire Tasks")

		a, err := buildApp()
		if err != nil {
			fmt.Printf("Startup error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		result, err := a.tasks.RunDueTasks(context.Background(), time.Now().UTC())
		if err != nil {
			fmt.Printf("Task run error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Dispatched: %d  Failed: %d\n", result.Processed, result.Failed)
	},
}
