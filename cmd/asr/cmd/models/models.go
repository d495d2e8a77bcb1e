package models

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"whisper-asr-webservice/cmd/asr/cmd/env"
	"whisper-asr-webservice/internal/app"
	"whisper-asr-webservice/internal/app/model"
	"whisper-asr-webservice/internal/config"
)

var engineName string

// Cmd groups the weights cache commands
var Cmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and fill the model weights cache",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogue models and whether their weights are cached",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := env.Load()
		if err != nil {
			return err
		}
		defer logger.Sync()

		kinds := model.EngineKinds
		if engineName != "" {
			kind, err := model.ParseEngineKind(engineName)
			if err != nil {
				return err
			}
			kinds = []model.EngineKind{kind}
		}

		store, err := app.InitializeStore(cfg, logger, nil)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENGINE\tMODEL\tCACHED")
		for _, kind := range kinds {
			cached := make(map[string]bool)
			for _, name := range store.Cached(kind) {
				cached[name] = true
			}
			for _, name := range store.Catalogue().Names(kind) {
				mark := "-"
				if cached[name] {
					mark = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", kind, name, mark)
			}
		}
		return w.Flush()
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull <name>",
	Short:   "Download a model's weights into ASR_MODEL_PATH",
	Example: "asr models pull large-v3 --engine faster_whisper",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := env.Load()
		if err != nil {
			return err
		}
		defer logger.Sync()

		kind, err := pullEngine(cfg)
		if err != nil {
			return err
		}

		progress := mpb.NewWithContext(cmd.Context(),
			mpb.WithOutput(cmd.ErrOrStderr()),
			mpb.WithRefreshRate(120*time.Millisecond),
		)
		store, err := app.InitializeStore(cfg, logger, NewBarProgress(progress))
		if err != nil {
			return err
		}

		dir, err := store.Resolve(cmd.Context(), kind, args[0])
		if err != nil {
			progress.Shutdown()
			return err
		}
		progress.Wait()
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s cached in %s\n", kind, args[0], dir)
		return nil
	},
}

func pullEngine(cfg *config.Config) (model.EngineKind, error) {
	if engineName == "" {
		return cfg.Engine, nil
	}
	return model.ParseEngineKind(engineName)
}

func init() {
	Cmd.PersistentFlags().StringVarP(&engineName, "engine", "e", "", "engine to use (default ASR_ENGINE for pull, all for list)")
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(pullCmd)
}
