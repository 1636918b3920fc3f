package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/iksnae/wa-history/internal"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps one item per conversation keyed by wa_id. The message
// list is stored as a JSON string attribute.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	timeout   time.Duration
}

// NewDynamoStore wraps a DynamoDB client for one table
func NewDynamoStore(api dynamodbAPI, tableName string, opts Options) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("store: dynamodb api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("store: dynamodb table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, timeout: opts.timeout()}, nil
}

// openDynamoDSN builds a DynamoStore from dynamodb://table?region=..&endpoint=..
func openDynamoDSN(ctx context.Context, dsn string, opts Options) (*DynamoStore, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: dynamodb dsn: %v", internal.ErrInvalidInput, err)
	}
	table := parsed.Host
	if table == "" {
		table = DefaultCollection
	}

	var loadOpts []func(*config.LoadOptions) error
	if region := parsed.Query().Get("region"); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := parsed.Query().Get("endpoint")
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, table, opts)
}

// FindByConversationID loads one conversation
func (s *DynamoStore) FindByConversationID(ctx context.Context, waID string) (*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"wa_id": &types.AttributeValueMemberS{Value: waID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: dynamodb get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, internal.ErrNotFound
	}
	return itemToConversation(out.Item)
}

// Upsert writes or replaces the conversation item
func (s *DynamoStore) Upsert(ctx context.Context, conv *internal.Conversation) error {
	item, err := conversationItem(conv)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: dynamodb put item: %w", err)
	}
	return nil
}

// ListAll scans the table, following pagination, ordered by wa_id
func (s *DynamoStore) ListAll(ctx context.Context) ([]*internal.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	convs := make([]*internal.Conversation, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("store: dynamodb scan: %w", err)
		}
		for _, item := range out.Items {
			conv, err := itemToConversation(item)
			if err != nil {
				return nil, err
			}
			convs = append(convs, conv)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(convs, func(i, j int) bool { return convs[i].WaID < convs[j].WaID })
	return convs, nil
}

// Close is a no-op; the SDK client holds no connections to release
func (s *DynamoStore) Close() error {
	return nil
}

func conversationItem(conv *internal.Conversation) (map[string]types.AttributeValue, error) {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("store: encode messages: %w", err)
	}
	return map[string]types.AttributeValue{
		"wa_id":       &types.AttributeValueMemberS{Value: conv.WaID},
		"name":        &types.AttributeValueMemberS{Value: conv.Name},
		"lastMessage": &types.AttributeValueMemberS{Value: conv.LastMessage},
		"messages":    &types.AttributeValueMemberS{Value: string(messages)},
		"updatedAt":   &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}, nil
}

func itemToConversation(item map[string]types.AttributeValue) (*internal.Conversation, error) {
	waID, err := strAttr(item, "wa_id")
	if err != nil {
		return nil, err
	}
	name, _ := strAttr(item, "name")               // allow empty
	lastMessage, _ := strAttr(item, "lastMessage") // allow empty

	conv := &internal.Conversation{
		WaID:        waID,
		Name:        name,
		LastMessage: lastMessage,
		Messages:    []internal.StoredMessage{},
	}
	if raw, err := strAttr(item, "messages"); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &conv.Messages); err != nil {
			return nil, &internal.ParseError{Source: "dynamodb", Key: waID, Err: err}
		}
	}
	return conv, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("store: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("store: attribute %q is not a string", key)
	}
	return s.Value, nil
}
