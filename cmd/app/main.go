package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/bus-ticket-booking/pkg/handlers"
	"github.com/chris/bus-ticket-booking/pkg/handlers/websockets"
	appmiddleware "github.com/chris/bus-ticket-booking/pkg/middleware"
	"github.com/chris/bus-ticket-booking/pkg/notify"
	"github.com/chris/bus-ticket-booking/pkg/settlement"
	dydbstore "github.com/chris/bus-ticket-booking/pkg/storage/dynamodb"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// AWS Session
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := dynamodb.NewFromConfig(cfg)
	bookingsTable := os.Getenv("DYNAMODB_BOOKINGS_TABLE_NAME")
	walletsTable := os.Getenv("DYNAMODB_WALLETS_TABLE_NAME")
	busesTable := os.Getenv("DYNAMODB_BUSES_TABLE_NAME")
	connectionsTable := os.Getenv("DYNAMODB_CONNECTIONS_TABLE_NAME")

	if bookingsTable == "" || walletsTable == "" || busesTable == "" || connectionsTable == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}

	// SQS client and booking-event publisher
	sqsClient := sqs.NewFromConfig(cfg)
	eventsQueueURL := os.Getenv("BOOKING_EVENTS_QUEUE_URL")
	if eventsQueueURL == "" {
		log.Fatal("BOOKING_EVENTS_QUEUE_URL environment variable not set")
	}
	notifier := notify.NewSQSPublisher(sqsClient, eventsQueueURL)

	// Create our storage implementation
	store := dydbstore.New(dbClient, bookingsTable, walletsTable, busesTable, connectionsTable)

	// The settlement core and the HTTP handler on top of it
	settlementSvc := settlement.NewService(store)
	handler := handlers.NewApiHandler(store, settlementSvc, notifier)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(appmiddleware.NewStructuredLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Mount("/", handlers.Routes(handler))

	// Local-development WebSocket endpoint; in AWS the websocket lambda owns
	// connect/disconnect instead.
	wsHandler := websockets.NewHandler(store)
	router.Handle("/ws", wsHandler)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080" // Default port if not specified
	}

	log.Printf("Starting server on port %s", port)

	err = http.ListenAndServe(":"+port, router)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
