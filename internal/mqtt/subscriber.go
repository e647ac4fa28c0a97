package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"anpr-engine/internal/models"
)

// passPayload is the wire shape cameras publish. The camera ID comes from
// the topic, the timestamp is stamped server-side.
type passPayload struct {
	VehicleID int64  `json:"vehicle_id"`
	Plate     string `json:"license_plate"`
	Province  string `json:"province"`
	Type      string `json:"vehicle_type"`
	Color     string `json:"vehicle_color"`
	Brand     string `json:"vehicle_brand"`
}

// Subscriber receives camera pass reports from the broker and writes them to
// the ingest channel.
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the ingest service)
	SightingChan chan *models.Sighting

	cameraPassTopic string
}

// SubscriberConfig holds configuration for the MQTT subscriber.
type SubscriberConfig struct {
	CameraPassTopic string // e.g., "anpr/cameras/+/pass"
}

// NewSubscriber creates an MQTT subscriber feeding the given channel.
func NewSubscriber(client mqtt.Client, config SubscriberConfig, sightingChan chan *models.Sighting) *Subscriber {
	return &Subscriber{
		client:          client,
		SightingChan:    sightingChan,
		cameraPassTopic: config.CameraPassTopic,
	}
}

// SubscribeAll subscribes to the camera pass topic.
func (s *Subscriber) SubscribeAll() error {
	if s.cameraPassTopic == "" {
		return nil
	}
	token := s.client.Subscribe(s.cameraPassTopic, 1, s.handlePass)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to camera pass topic: %w", token.Error())
	}
	log.Printf("Subscribed to camera pass topic: %s", s.cameraPassTopic)
	return nil
}

// handlePass parses a camera pass report and writes it to the channel.
func (s *Subscriber) handlePass(client mqtt.Client, msg mqtt.Message) {
	var payload passPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling pass report: %v", err)
		return
	}

	cameraID, ok := extractCameraID(msg.Topic())
	if !ok {
		log.Printf("Could not extract camera ID from topic: %s", msg.Topic())
		return
	}
	if payload.VehicleID == 0 || payload.Plate == "" {
		log.Printf("Dropping pass report with missing vehicle from camera %d", cameraID)
		return
	}

	sighting := &models.Sighting{
		VehicleID: payload.VehicleID,
		CameraID:  cameraID,
		Plate:     payload.Plate,
		Province:  payload.Province,
		Attributes: models.VehicleAttributes{
			Type:  payload.Type,
			Color: payload.Color,
			Brand: payload.Brand,
		},
		Timestamp: time.Now(),
	}

	log.Printf("Received pass report from camera %d: plate %s", cameraID, payload.Plate)

	// Write to channel (non-blocking with timeout)
	select {
	case s.SightingChan <- sighting:
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Sighting channel full, dropping pass from camera %d", cameraID)
	}
}

// extractCameraID pulls the camera ID out of an MQTT topic.
// Example: "anpr/cameras/12/pass" -> 12
func extractCameraID(topic string) (int64, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
