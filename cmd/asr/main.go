package main

import (
	"fmt"
	"os"

	"whisper-asr-webservice/cmd/asr/cmd"
	"whisper-asr-webservice/internal/config"
)

func main() {
	// A missing .env is fine; settings may come from the environment
	if _, err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration warning: %v\n", err)
	}

	cmd.Execute()
}
