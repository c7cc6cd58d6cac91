package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/civic-issue-api/internal/domain"
)

// DeviceTokenRepo provides typed DynamoDB operations for the device_tokens table.
// device_id is the partition key, so Put on an existing device replaces its
// token instead of accumulating duplicates.
type DeviceTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceTokenRepo(client *dynamodb.Client, tableName string) *DeviceTokenRepo {
	return &DeviceTokenRepo{client: client, tableName: tableName}
}

func (r *DeviceTokenRepo) Put(ctx context.Context, d *domain.DeviceToken) error {
	item, err := marshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal device token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DeviceTokenRepo) Get(ctx context.Context, deviceID string) (*domain.DeviceToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("device_id", deviceID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device token not found: %w", domain.ErrNotFound)
	}
	var d domain.DeviceToken
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceTokenRepo) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var tokens []domain.DeviceToken
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Delete removes a device token. Deleting an absent device is a no-op, which
// makes concurrent invalid-token cleanup idempotent.
func (r *DeviceTokenRepo) Delete(ctx context.Context, deviceID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("device_id", deviceID),
	})
	return err
}
