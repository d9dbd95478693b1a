package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
)

const userBookingsGSI = "user_id-created_at-index"

// GetBooking retrieves a booking from DynamoDB by its ID.
func (s *Store) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.BookingsTableName),
		Key:       key,
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrBookingNotFound
	}

	var booking models.Booking
	if err := attributevalue.UnmarshalMap(result.Item, &booking); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booking: %w", err)
	}

	return &booking, nil
}

// ListBookingsByUserID retrieves all bookings for a user, newest first.
func (s *Store) ListBookingsByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.BookingsTableName),
		IndexName:              aws.String(userBookingsGSI),
		KeyConditionExpression: aws.String("user_id = :userID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // Sort by created_at in descending order
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for bookings by user ID: %w", err)
	}

	var bookings []models.Booking
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &bookings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookings: %w", err)
	}

	return bookings, nil
}
