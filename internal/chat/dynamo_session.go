package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoSessionItem wraps State with the epoch-seconds attribute DynamoDB
// TTL sweeps on. The sweep lags, so reads treat a past expiresAt as missing.
type dynamoSessionItem struct {
	State
	ExpiresAt int64 `dynamodbav:"expiresAt"`
}

// DynamoStore persists sessions in a DynamoDB table keyed by sessionId.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

func NewDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	if client == nil {
		panic("chat: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("chat: table name cannot be empty")
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoStore) Get(ctx context.Context, sessionID string) (*State, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat: failed to fetch session: %w", err)
	}
	if out.Item == nil {
		return nil, ErrSessionNotFound
	}

	var item dynamoSessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("chat: failed to decode session: %w", err)
	}
	if item.ExpiresAt > 0 && s.now().Unix() >= item.ExpiresAt {
		return nil, ErrSessionNotFound
	}
	state := item.State
	return &state, nil
}

func (s *DynamoStore) Put(ctx context.Context, state *State) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("chat: session state requires an id")
	}
	item, err := attributevalue.MarshalMap(dynamoSessionItem{
		State:     *state,
		ExpiresAt: s.now().Add(SessionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("chat: failed to marshal session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("chat: failed to persist session: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return fmt.Errorf("chat: failed to delete session: %w", err)
	}
	return nil
}
