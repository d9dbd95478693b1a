package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/bus-ticket-booking/pkg/models"
	"github.com/chris/bus-ticket-booking/pkg/storage"
)

const conditionalCheckFailed = "ConditionalCheckFailed"

// SettleBooking atomically debits the owner's wallet and inserts the booking
// record as a single TransactWriteItems call. The debit is conditioned on the
// wallet's live balance and version, so a stale caller snapshot can never
// produce a negative balance, and the booking insert is conditioned on the
// booking ID not existing, so a retried identity can never overwrite a row.
func (s *Store) SettleBooking(ctx context.Context, booking *models.Booking) (*models.Wallet, error) {
	// 1. Read the wallet to pick up its current version for optimistic locking.
	wallet, err := s.GetWallet(ctx, booking.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for settlement: %w", err)
	}

	slog.Log(ctx, slog.LevelDebug, "settling booking", "booking", booking, "walletVersion", wallet.Version)

	// Marshal the booking for the Put operation.
	bookingAV, err := attributevalue.MarshalMap(booking)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal booking: %w", err)
	}

	// Marshal the amount for the wallet update.
	amountAV, err := attributevalue.Marshal(booking.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal amount: %w", err)
	}

	// 2. Construct the TransactWriteItems input. Item order matters: the
	// cancellation reasons below are resolved by position.
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Debit the owner's wallet.
				Update: &types.Update{
					TableName: aws.String(s.WalletsTableName),
					Key: map[string]types.AttributeValue{
						"user_id": &types.AttributeValueMemberS{Value: booking.UserID},
					},
					UpdateExpression:    aws.String("SET balance = balance - :amount, version = version + :inc"),
					ConditionExpression: aws.String("balance >= :amount AND version = :version"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount":  amountAV,
						":version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", wallet.Version)},
						":inc":     &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
			{
				// Operation 2: Create the booking record.
				Put: &types.Put{
					TableName:           aws.String(s.BookingsTableName),
					Item:                bookingAV,
					ConditionExpression: aws.String("attribute_not_exists(booking_id)"),
				},
			},
		},
	}

	// 3. Execute the transaction.
	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return nil, s.resolveCancellation(ctx, booking, tce)
		}
		return nil, fmt.Errorf("failed to execute settlement transaction: %w", err)
	}

	// The update was conditioned on the exact version we read, so the
	// post-debit state is known without another round trip.
	settled := *wallet
	settled.Balance -= booking.Amount
	settled.Version++
	return &settled, nil
}

// resolveCancellation maps a cancelled settlement transaction onto a sentinel
// error. The cancellation reasons are positional: index 0 is the wallet
// debit, index 1 the booking insert. A failed wallet condition is ambiguous
// between "balance too low" and "version raced", so the wallet is re-read to
// tell them apart.
func (s *Store) resolveCancellation(ctx context.Context, booking *models.Booking, tce *types.TransactionCanceledException) error {
	reasons := tce.CancellationReasons
	if len(reasons) > 1 && reasons[1].Code != nil && *reasons[1].Code == conditionalCheckFailed {
		return storage.ErrDuplicateBooking
	}
	if len(reasons) > 0 && reasons[0].Code != nil && *reasons[0].Code == conditionalCheckFailed {
		live, err := s.GetWallet(ctx, booking.UserID)
		if err != nil {
			return fmt.Errorf("settlement cancelled and wallet re-read failed: %w", err)
		}
		if live.Balance < booking.Amount {
			return storage.ErrInsufficientFunds
		}
		return storage.ErrVersionConflict
	}
	return fmt.Errorf("settlement transaction cancelled: %w", tce)
}
