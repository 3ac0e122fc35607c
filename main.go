// package main provides the entry point for the HopeConnect microservice,
// wiring the document store, ledger gateway, AI ranking client, Kafka
// producer, and REST API together.
package main

import (
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/database"
	journeyevents "github.com/Shiva-74/HopeConnect/events/modules/journeys"
	"github.com/Shiva-74/HopeConnect/internal/api"
	"github.com/Shiva-74/HopeConnect/internal/journey"
	"github.com/Shiva-74/HopeConnect/internal/ledger"
	"github.com/Shiva-74/HopeConnect/internal/matching"
	"github.com/Shiva-74/HopeConnect/internal/oracle"
	"github.com/Shiva-74/HopeConnect/restapi"
)

func main() {
	_ = godotenv.Load()

	log := database.InitLogger()
	defer log.Sync() //nolint:errcheck

	conn := database.InitializeDatabase()

	donorStore := database.NewDonorStore(conn)
	requestStore := database.NewRequestStore(conn)
	journeyStore := database.NewJourneyStore(conn)
	redemptionStore := database.NewRedemptionStore(conn)

	gateway, err := ledger.NewGateway(ledger.ConfigFromEnv(), log)
	if err != nil {
		log.Sugar().Fatalf("Failed to initialize ledger gateway: %v", err)
	}

	oracleClient := oracle.NewClient(database.GetEnvDefault("AI_SERVICE_URL", "http://localhost:5050"), log)

	var producer *journeyevents.JourneyProducer
	var publisher journey.Publisher
	if brokers := database.GetEnvDefault("KAFKA_BROKERS", ""); brokers != "" {
		topic := database.GetEnvDefault("KAFKA_JOURNEY_TOPIC", "journey.status.changed")
		producer = journeyevents.NewJourneyProducer(strings.Split(brokers, ","), topic)
		publisher = producer
		defer producer.Close() //nolint:errcheck
		log.Info("journey event producer ready", zap.String("topic", topic))
	} else {
		log.Warn("KAFKA_BROKERS not set, journey events disabled")
	}

	journeyService := journey.NewService(journeyStore, donorStore, requestStore, gateway, publisher, log)
	matcher := matching.NewOrchestrator(donorStore, oracleClient, log)

	app := api.NewFiberApp(restapi.Deps{
		Donors:      donorStore,
		Requests:    requestStore,
		Redemptions: redemptionStore,
		Journeys:    journeyService,
		Matcher:     matcher,
		Ledger:      gateway,
		Oracle:      oracleClient,
		Log:         log,
	})

	port := database.GetEnvDefault("MS_PORT", "8080")
	log.Sugar().Infof("Starting HopeConnect API on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Sugar().Fatalf("Server stopped: %v", err)
	}
}
