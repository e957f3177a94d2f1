package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"gl-reconciler/internal/cli"
	"gl-reconciler/internal/infrastructure/config"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseReconcileFlags()
	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)

	if err := cli.RunReconcile(context.Background(), cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
