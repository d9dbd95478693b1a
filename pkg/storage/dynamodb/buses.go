package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
)

// GetBus retrieves a bus from DynamoDB by its ID.
func (s *Store) GetBus(ctx context.Context, busID string) (*models.Bus, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": busID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bus ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.BusesTableName),
		Key:       key,
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get bus from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrBusNotFound
	}

	var bus models.Bus
	if err := attributevalue.UnmarshalMap(result.Item, &bus); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bus: %w", err)
	}

	return &bus, nil
}

// ListBuses retrieves buses matching the filter. Matching is exact on city
// names; fuzzy search stays a client concern.
func (s *Store) ListBuses(ctx context.Context, filter storage.BusFilter) ([]models.Bus, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.BusesTableName),
	}

	var conditions []string
	values := map[string]types.AttributeValue{}
	if filter.FromCity != "" {
		conditions = append(conditions, "from_city = :from")
		values[":from"] = &types.AttributeValueMemberS{Value: filter.FromCity}
	}
	if filter.ToCity != "" {
		conditions = append(conditions, "to_city = :to")
		values[":to"] = &types.AttributeValueMemberS{Value: filter.ToCity}
	}
	if len(conditions) > 0 {
		input.FilterExpression = aws.String(strings.Join(conditions, " AND "))
		input.ExpressionAttributeValues = values
	}

	result, err := s.Client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan buses table: %w", err)
	}

	var buses []models.Bus
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &buses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal buses: %w", err)
	}

	return buses, nil
}
