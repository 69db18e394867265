package main

import (
	"flag"
	"log"

	"github.com/extramedium22/px4flow/internal/app"
	"github.com/extramedium22/px4flow/internal/config"
)

func main() {
	configPath := flag.String("c", "px4flow_config.txt", "path to config file")
	flag.Parse()

	log.Println("starting px4flow console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
