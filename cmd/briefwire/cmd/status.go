package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Briefwire/Briefwire/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Briefwire Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Briefwire Status")
		fmt.Printf("Version: %s\n", version)

		// Check config
		home, _ := os.UserHomeDir()
		configPath := filepath.Join(home, ".briefwire", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:   ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:   ✗ Not found (env overrides still apply)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:   ? Unable to load:", err)
			return
		}

		if cfg.Provider.APIKey != "" {
			fmt.Println("API Key:  ✓ Found")
		} else {
			fmt.Println("API Key:  ✗ Not found (summaries will use fallback)")
		}

		if _, err := os.Stat(cfg.Paths.DBPath); err == nil {
			fmt.Println("Database: ✓ Found (" + cfg.Paths.DBPath + ")")
		} else {
			fmt.Println("Database: ✗ Not created yet")
		}

		if cfg.Senders.Mail.Enabled {
			fmt.Println("Mail:     ✓ Enabled")
		} else {
			fmt.Println("Mail:     ✗ Disabled")
		}
		if cfg.Senders.Slack.Enabled {
			fmt.Println("Slack:    ✓ Enabled")
		} else {
			fmt.Println("Slack:    ✗ Disabled")
		}
		if cfg.Senders.Calendar.Enabled {
			fmt.Println("Calendar: ✓ Enabled")
		} else {
			fmt.Println("Calendar: ✗ Disabled")
		}
		if cfg.Ingest.Enabled {
			fmt.Println("Ingest:   ✓ Enabled (" + cfg.Ingest.Topic + ")")
		} else {
			fmt.Println("Ingest:   ✗ Disabled")
		}

		fmt.Println("Status:   Ready")
	},
}
