// Package pub publishes decoded samples to MQTT and arbitrates which
// instance owns shared logical channels.
package pub

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/extramedium22/px4flow/internal/flow"
)

// MQTT publishes flow and distance samples as JSON on their respective
// topics. One client is shared by all sensor instances.
type MQTT struct {
	client        mqtt.Client
	flowTopic     string
	distanceTopic string
}

// NewMQTT connects to the broker and returns a ready publisher.
func NewMQTT(broker, clientID, flowTopic, distanceTopic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s", broker)

	return &MQTT{
		client:        client,
		flowTopic:     flowTopic,
		distanceTopic: distanceTopic,
	}, nil
}

// PublishFlow sends one flow sample on the optical flow topic.
func (p *MQTT) PublishFlow(s flow.FlowSample) error {
	return p.publish(p.flowTopic, s)
}

// PublishDistance sends one distance sample on the distance topic.
func (p *MQTT) PublishDistance(s flow.DistanceSample) error {
	return p.publish(p.distanceTopic, s)
}

func (p *MQTT) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", topic, err)
	}
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTT) Close() {
	p.client.Disconnect(250)
}
