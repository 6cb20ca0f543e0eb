package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorequest/internal/config"
	"github.com/dukerupert/chorequest/internal/logging"
)

var (
	envFile string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chorequest",
	Short: "Family chore tracker with points, parent verification and a weekly prize wheel",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		logger = logging.Setup(cfg.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")

	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
	rootCmd.AddCommand(serveCmd, exportCmd, archiveCmd, vapidKeysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
