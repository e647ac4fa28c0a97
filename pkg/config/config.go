package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AllowedCheckpointTimeouts is the operator-selectable timeout set, in
// seconds. Any other value is rejected at configuration time and never
// reaches the evaluator.
var AllowedCheckpointTimeouts = []int{10, 30, 60}

type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Inbound topic pattern for camera pass reports
	MQTTTopicCameraPass string

	// Outbound topics
	MQTTTopicPasses      string // all classified sightings
	MQTTTopicVehiclePass string // per-vehicle, {vehicle_id} placeholder
	MQTTTopicAlerts      string
	MQTTTopicRefData     string

	// ClickHouse (sighting events)
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Postgres (reference data)
	DatabaseURL string

	// HTTP API
	Port int

	// Rule configuration
	CheckpointTimeoutSeconds int
	TickIntervalSeconds      int

	// Channel sizing
	HubBufferSize     int
	IngestChannelSize int
}

// Load reads configuration from environment variables (optionally .env).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "anpr-engine"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicCameraPass: getEnv("MQTT_TOPIC_CAMERA_PASS", "anpr/cameras/+/pass"),

		MQTTTopicPasses:      getEnv("MQTT_TOPIC_PASSES", "anpr/passes"),
		MQTTTopicVehiclePass: getEnv("MQTT_TOPIC_VEHICLE_PASS", "anpr/passes/{vehicle_id}"),
		MQTTTopicAlerts:      getEnv("MQTT_TOPIC_ALERTS", "anpr/alerts"),
		MQTTTopicRefData:     getEnv("MQTT_TOPIC_REFDATA", "anpr/refdata"),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "anpr"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Port: getEnvInt("PORT", 8080),

		CheckpointTimeoutSeconds: getEnvInt("CHECKPOINT_TIMEOUT_SECONDS", 30),
		TickIntervalSeconds:      getEnvInt("TICK_INTERVAL_SECONDS", 5),

		HubBufferSize:     getEnvInt("HUB_BUFFER_SIZE", 64),
		IngestChannelSize: getEnvInt("INGEST_CHANNEL_SIZE", 100),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if !ValidCheckpointTimeout(cfg.CheckpointTimeoutSeconds) {
		return nil, fmt.Errorf("invalid CHECKPOINT_TIMEOUT_SECONDS %d: must be one of %v",
			cfg.CheckpointTimeoutSeconds, AllowedCheckpointTimeouts)
	}
	if cfg.TickIntervalSeconds < 1 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL_SECONDS %d: must be >= 1", cfg.TickIntervalSeconds)
	}

	return cfg, nil
}

// ValidCheckpointTimeout reports whether seconds is an allowed timeout.
func ValidCheckpointTimeout(seconds int) bool {
	for _, allowed := range AllowedCheckpointTimeouts {
		if seconds == allowed {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}
