package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/takama/daemon"

	"github.com/extramedium22/px4flow/internal/app"
	"github.com/extramedium22/px4flow/internal/config"
	"github.com/extramedium22/px4flow/internal/flow"
)

const (
	name        = "px4flow"
	description = "PX4FLOW optical flow sensor bridge"
)

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage dispatches daemon commands or runs the producer in the
// foreground when no verb is given.
func (service *Service) Manage() (string, error) {
	configPath := flag.String("c", "px4flow_config.txt", "path to config file")
	facing := flag.Int("R", flow.OrientationDownward,
		"distance sensor facing code 0-35 (does not rotate flow vectors, see SENSOR_ROTATION)")
	flag.Parse()

	usage := "Usage: " + name + " [-c config] [-R facing] install | remove | start | stop | status"
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	if *facing < 0 || *facing > 35 {
		return usage, fmt.Errorf("facing code must be 0-35, got %d", *facing)
	}

	if err := config.InitGlobal(*configPath); err != nil {
		return "failed to load config", err
	}

	return "producer stopped", app.RunProducer(uint8(*facing))
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		log.Fatalf("daemon init error: %v", err)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		log.Fatalf("%s: %v", status, err)
	}
	fmt.Println(status)
}
