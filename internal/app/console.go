package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/extramedium22/px4flow/internal/config"
	"github.com/extramedium22/px4flow/internal/flow"
)

// RunConsole subscribes to the sample topics and prints one line per
// message until interrupted.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	flowToken := client.Subscribe(cfg.TopicOpticalFlow, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s flow.FlowSample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: flow unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[FLOW] %s  flow=[%8.4f %8.4f]rad  dA=[%8.4f %8.4f %8.4f]rad  dt=%6dus  q=%3d\n",
			s.DeviceID,
			s.PixelFlow[0], s.PixelFlow[1],
			s.DeltaAngle[0], s.DeltaAngle[1], s.DeltaAngle[2],
			s.IntegrationTimespanUs, s.Quality,
		)
	})
	flowToken.Wait()
	if flowToken.Error() != nil {
		return flowToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicOpticalFlow)

	distToken := client.Subscribe(cfg.TopicDistanceSensor, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s flow.DistanceSample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: distance unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[DIST] %s  d=%6.3fm  range=[%.1f %.1f]m  facing=%d\n",
			s.DeviceID, s.CurrentDistance, s.MinDistance, s.MaxDistance, s.Orientation,
		)
	})
	distToken.Wait()
	if distToken.Error() != nil {
		return distToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicDistanceSensor)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
