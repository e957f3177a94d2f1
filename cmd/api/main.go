package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"gl-reconciler/internal/cli"
	"gl-reconciler/internal/infrastructure/config"
)

func main() {
	_ = godotenv.Load()

	flags := cli.ParseServeFlags()
	cfg := config.LoadOrEnv()

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
