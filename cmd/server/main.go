package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"anpr-engine/internal/api"
	"anpr-engine/internal/database"
	"anpr-engine/internal/dedup"
	"anpr-engine/internal/mqtt"
	"anpr-engine/internal/notify"
	"anpr-engine/internal/services"
	"anpr-engine/internal/timeutil"
	"anpr-engine/pkg/config"
)

// passKeyRetention bounds how long a sighting's alert gate is remembered.
const passKeyRetention = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Datastores: ClickHouse for the sighting event log, Postgres for
	// reference data.
	sightings, err := database.NewSightingStore(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer sightings.Close()

	ref, err := database.NewRefStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer ref.Close()

	hub := notify.NewHub(cfg.HubBufferSize)
	clock := timeutil.RealClock{}

	// Separate dedup stores: pass keys age out on a timer, checkpoint keys
	// only clear when their checkpoint does.
	passes := dedup.NewStore()
	notified := dedup.NewStore()

	ingest := services.NewIngestService(sightings, ref, hub, passes, clock, services.IngestServiceConfig{
		ChannelSize: cfg.IngestChannelSize,
	})
	checkpoints := services.NewCheckpointService(sightings, ref, hub, notified, clock, services.CheckpointServiceConfig{
		TickIntervalSeconds: cfg.TickIntervalSeconds,
		TimeoutSeconds:      cfg.CheckpointTimeoutSeconds,
	})

	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", err)
	}
	defer mqttClient.Close()

	subscriber := mqtt.NewSubscriber(mqttClient.NativeClient(), mqtt.SubscriberConfig{
		CameraPassTopic: cfg.MQTTTopicCameraPass,
	}, ingest.SightingChan)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	publisher := mqtt.NewPublisher(mqttClient.NativeClient(), mqtt.PublisherConfig{
		PassesTopic:      cfg.MQTTTopicPasses,
		VehiclePassTopic: cfg.MQTTTopicVehiclePass,
		AlertsTopic:      cfg.MQTTTopicAlerts,
		RefDataTopic:     cfg.MQTTTopicRefData,
	}, hub)

	server := api.New(cfg.Port, ingest, ref, checkpoints, hub, clock)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ingest.Start(ctx)
		return nil
	})
	g.Go(func() error {
		ingest.PruneLoop(ctx, passKeyRetention)
		return nil
	})
	g.Go(func() error {
		checkpoints.Start(ctx)
		return nil
	})
	g.Go(func() error {
		publisher.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(ctx)
	})

	log.Println("ANPR engine started")

	if err := g.Wait(); err != nil {
		log.Fatalf("Engine stopped with error: %v", err)
	}
	log.Println("Engine stopped")
}
