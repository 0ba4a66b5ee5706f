package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/JakeFAU/slotwatcher/internal/config"
	"github.com/JakeFAU/slotwatcher/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Path to a .env file; missing files are ignored")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load env file failed: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := server.Build(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
