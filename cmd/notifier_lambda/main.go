package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/realtime"
	dydbstore "github.com/chris/bus-ticket-booking/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
)

var publisher realtime.Publisher

func init() {
	// Load environment variables from .env file (useful for local testing).
	godotenv.Load()

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := dynamodb.NewFromConfig(cfg)
	connectionsTable := os.Getenv("DYNAMODB_CONNECTIONS_TABLE_NAME")
	apiEndpoint := os.Getenv("WEBSOCKET_API_ENDPOINT")

	if connectionsTable == "" || apiEndpoint == "" {
		log.Fatal("DYNAMODB_CONNECTIONS_TABLE_NAME or WEBSOCKET_API_ENDPOINT environment variable not set")
	}

	// The notifier only touches the connections table.
	store := dydbstore.New(dbClient, "", "", "", connectionsTable)
	publisher = realtime.NewPublisher(cfg, store, store, apiEndpoint)
}

// HandleRequest processes booking events from SQS and pushes wallet updates
// to connected WebSocket clients.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		var event models.BookingEvent
		if err := json.Unmarshal([]byte(message.Body), &event); err != nil {
			log.Printf("ERROR: failed to unmarshal booking event from SQS message %s: %v", message.MessageId, err)
			// Returning an error will cause SQS to retry the message, which is appropriate here.
			return err
		}

		update := realtime.Message{
			Type: realtime.MessageTypeWalletUpdate,
			Payload: realtime.WalletUpdatePayload{
				UserID:     event.UserID,
				BookingID:  event.BookingID,
				Change:     -event.Amount,
				NewBalance: event.NewBalance,
			},
		}

		if err := publisher.Publish(ctx, update); err != nil {
			log.Printf("ERROR: failed to publish wallet update for booking %s: %v", event.BookingID, err)
			return err
		}

		log.Printf("Published wallet update for booking %s", event.BookingID)
	}

	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
