package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/bus-ticket-booking/pkg/storage"
)

//go:generate mockery --name DynamoDBAPI --output ./mocks --outpkg mocks

// DynamoDBAPI captures the subset of the DynamoDB client used by the store,
// so tests can substitute a mock.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                        DynamoDBAPI
	BookingsTableName             string
	WalletsTableName              string
	BusesTableName                string
	WebsocketConnectionsTableName string
}

// New creates a new Store.
func New(client DynamoDBAPI, bookingsTable, walletsTable, busesTable, connectionsTable string) *Store {
	return &Store{
		Client:                        client,
		BookingsTableName:             bookingsTable,
		WalletsTableName:              walletsTable,
		BusesTableName:                busesTable,
		WebsocketConnectionsTableName: connectionsTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
