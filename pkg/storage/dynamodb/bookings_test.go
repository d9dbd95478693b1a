package dynamodb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
	"github.com/chris/bus-ticket-booking/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGetBooking(t *testing.T) {
	booking := &models.Booking{ID: "BK1700000000000-a1b2c3d4", UserID: "user1", Amount: 500, Status: models.BookingSuccess}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := &Store{Client: mockClient, BookingsTableName: "bookings"}

		bookingAV, _ := attributevalue.MarshalMap(booking)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: bookingAV}, nil)

		result, err := store.GetBooking(context.Background(), booking.ID)

		assert.NoError(t, err)
		assert.Equal(t, booking.ID, result.ID)
		assert.Equal(t, booking.Amount, result.Amount)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := &Store{Client: mockClient, BookingsTableName: "bookings"}

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: nil}, nil)

		_, err := store.GetBooking(context.Background(), "missing")

		assert.ErrorIs(t, err, storage.ErrBookingNotFound)
		mockClient.AssertExpectations(t)
	})
}

func TestListBookingsByUserID(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := &Store{Client: mockClient, BookingsTableName: "bookings"}

	first, _ := attributevalue.MarshalMap(models.Booking{ID: "BK2", UserID: "user1"})
	second, _ := attributevalue.MarshalMap(models.Booking{ID: "BK1", UserID: "user1"})
	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(input *dynamodb.QueryInput) bool {
		return *input.IndexName == userBookingsGSI && !*input.ScanIndexForward
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{first, second}}, nil)

	bookings, err := store.ListBookingsByUserID(context.Background(), "user1")

	assert.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.Equal(t, "BK2", bookings[0].ID)
	mockClient.AssertExpectations(t)
}
