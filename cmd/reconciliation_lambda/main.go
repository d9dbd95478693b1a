package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
	dydbstore "github.com/chris/bus-ticket-booking/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
)

var store storage.ApiStore

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	dbClient := dynamodb.NewFromConfig(cfg)
	bookingsTable := os.Getenv("DYNAMODB_BOOKINGS_TABLE_NAME")
	walletsTable := os.Getenv("DYNAMODB_WALLETS_TABLE_NAME")
	busesTable := os.Getenv("DYNAMODB_BUSES_TABLE_NAME")

	if bookingsTable == "" || walletsTable == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}

	store = dydbstore.New(dbClient, bookingsTable, walletsTable, busesTable, "")
}

// HandleRequest audits every wallet against its booking history: the opening
// balance minus the sum of settled booking amounts must equal the live
// balance, and no wallet may ever hold a negative balance. The audit is
// report-only; drift is logged for operators and never auto-corrected.
func HandleRequest(ctx context.Context) error {
	wallets, err := store.ListWallets(ctx)
	if err != nil {
		log.Printf("ERROR: failed to list wallets for reconciliation: %v", err)
		return err
	}

	var drifted int
	for _, wallet := range wallets {
		bookings, err := store.ListBookingsByUserID(ctx, wallet.UserID)
		if err != nil {
			log.Printf("ERROR: failed to list bookings for user %s: %v", wallet.UserID, err)
			return err
		}

		var debited int64
		for _, booking := range bookings {
			if booking.Status == models.BookingSuccess {
				debited += booking.Amount
			}
		}

		if wallet.Balance < 0 {
			drifted++
			log.Printf("DRIFT: wallet %s holds negative balance %d", wallet.UserID, wallet.Balance)
			continue
		}

		if expected := wallet.OpeningBalance - debited; expected != wallet.Balance {
			drifted++
			log.Printf("DRIFT: wallet %s balance is %d, expected %d (opening %d, debited %d)",
				wallet.UserID, wallet.Balance, expected, wallet.OpeningBalance, debited)
		}
	}

	log.Printf("Reconciliation complete: %d wallets audited, %d drifted", len(wallets), drifted)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
