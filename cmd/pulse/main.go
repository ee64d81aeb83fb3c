package main

import (
	"flag"
	"log"
	"os"

	"pulse/config"
	"pulse/server"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("PULSE_CONFIG"), "path to config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var app server.App
	app.Initialize(cfg)
	if err := app.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
