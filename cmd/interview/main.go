// Command interview runs a spoken interview against the configured speech
// and dialogue providers.
package main

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/koscakluka/ema-interview/core/config"
	"github.com/spf13/cobra"
)

var (
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	v      = config.New()
)

var rootCmd = &cobra.Command{
	Use:          "interview",
	Short:        "Run a spoken interview over the microphone and speakers",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logger.SetLevel(log.DebugLevel)
		}
		slog.SetDefault(slog.New(logger))
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./interview.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("audio-backend", "", "Audio backend, miniaudio or portaudio")
	_ = v.BindPFlag("audio.backend", rootCmd.PersistentFlags().Lookup("audio-backend"))

	runCmd.Flags().String("transcript", "", "Write the transcript as JSON to this file")
	runCmd.Flags().Int("questions", 0, "Number of generated questions")
	runCmd.Flags().Bool("polish", false, "Polish answers once the interview completes")
	_ = v.BindPFlag("interview.total_questions", runCmd.Flags().Lookup("questions"))
	_ = v.BindPFlag("interview.polish_answers", runCmd.Flags().Lookup("polish"))

	devicesCmd.AddCommand(devicesCheckCmd)
	rootCmd.AddCommand(runCmd, schemaCmd, devicesCmd)
}

// loadConfig reads the config file named by --config, if any.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(v, path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
