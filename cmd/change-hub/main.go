package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stacyposk/logiccart-change-hub/internal"
	"github.com/stacyposk/logiccart-change-hub/internal/config"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

var BuildVersion = "dev"

func main() {
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting change-hub", map[string]any{
		"version": BuildVersion,
	})

	app, err := internal.NewChangeHub(cfg)
	if err != nil {
		log.LogError("Failed to build application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Server error: %v", err)
		os.Exit(1)
	}
}
