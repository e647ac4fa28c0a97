package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"anpr-engine/internal/models"
	"anpr-engine/internal/notify"
)

// Publisher mirrors hub events onto broker topics so out-of-process
// observers see the same feed as in-process subscribers.
type Publisher struct {
	client mqtt.Client
	hub    *notify.Hub
	config PublisherConfig
}

// PublisherConfig holds the outbound topic layout.
type PublisherConfig struct {
	PassesTopic      string // all classified sightings
	VehiclePassTopic string // per-vehicle, with {vehicle_id} placeholder
	AlertsTopic      string
	RefDataTopic     string
}

// NewPublisher creates an MQTT publisher fed by the hub.
func NewPublisher(client mqtt.Client, config PublisherConfig, hub *notify.Hub) *Publisher {
	return &Publisher{
		client: client,
		hub:    hub,
		config: config,
	}
}

// Start consumes hub subscriptions and publishes until the context is
// cancelled. A failed publish is logged and dropped; it never stops the
// loop.
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	sightings := p.hub.Subscribe(notify.TopicSightings)
	defer sightings.Close()
	alerts := p.hub.Subscribe(notify.TopicAlerts)
	defer alerts.Close()
	refdata := p.hub.Subscribe(notify.TopicRefData)
	defer refdata.Close()

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case ev := <-sightings.C:
			// Broadcast events reach every hub subscription; mirror each
			// one onto a single broker topic, keyed by kind.
			if ev.Kind != models.EventSightingClassified {
				continue
			}
			if err := p.publish(p.config.PassesTopic, ev); err != nil {
				log.Printf("Error publishing sighting event: %v", err)
			}
			if ev.VehicleID != 0 {
				topic := formatVehicleTopic(p.config.VehiclePassTopic, ev.VehicleID)
				if err := p.publish(topic, ev); err != nil {
					log.Printf("Error publishing vehicle event: %v", err)
				}
			}

		case ev := <-alerts.C:
			if err := p.publish(p.config.AlertsTopic, ev); err != nil {
				log.Printf("Error publishing alert event: %v", err)
			}

		case ev := <-refdata.C:
			if err := p.publish(p.config.RefDataTopic, ev); err != nil {
				log.Printf("Error publishing refdata event: %v", err)
			}
		}
	}
}

func (p *Publisher) publish(topic string, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// formatVehicleTopic replaces the {vehicle_id} placeholder.
func formatVehicleTopic(pattern string, vehicleID int64) string {
	return strings.ReplaceAll(pattern, "{vehicle_id}", strconv.FormatInt(vehicleID, 10))
}
