package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"whisper-asr-webservice/cmd/asr/cmd/env"
	"whisper-asr-webservice/cmd/asr/cmd/models"
	"whisper-asr-webservice/cmd/asr/cmd/serve"
	"whisper-asr-webservice/cmd/asr/cmd/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "asr",
	Short: "Speech recognition webservice for Whisper-family models",
	Long: `Serves Whisper-family speech recognition models over HTTP.
- Models load on first use and unload after MODEL_IDLE_TIMEOUT of inactivity
- Weights are cached under ASR_MODEL_PATH; "asr models pull" fills the cache ahead of time
- Settings come from the environment, a .env file or ASR_CONFIG_FILE.`,
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(models.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().BoolVarP(&env.Verbose, "verbose", "V", false, "verbose output")
}
