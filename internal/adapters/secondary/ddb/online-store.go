package ddb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

const (
	batchGetLimit   = 100
	batchWriteLimit = 25
)

// onlineItem is the stored shape of one entity's feature values.
// Event time is kept as epoch nanoseconds so the conditional write
// comparison is numeric.
type onlineItem struct {
	PK      string                 `dynamodbav:"pk"`
	SK      string                 `dynamodbav:"sk"`
	EventNS int64                  `dynamodbav:"event_ns"`
	Values  map[string]interface{} `dynamodbav:"feature_values"`
}

type onlineStore struct {
	client    *sdk.Client
	tableName string
}

// NewOnlineStore creates a DynamoDB-backed OnlineStore. With empty
// access keys the default AWS credential chain is used.
func NewOnlineStore(ctx context.Context, accessKey, secretKey, region, tableName string) (output.OnlineStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return &onlineStore{
		client:    sdk.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

func (s *onlineStore) partitionKey(project, view string) string {
	return fmt.Sprintf("fs#%s#%s", project, view)
}

func (s *onlineStore) Write(ctx context.Context, project, view string, rows []output.OnlineWrite) (int, error) {
	condition := "attribute_not_exists(event_ns) OR event_ns <= :ts"

	written := 0
	for _, row := range rows {
		item := onlineItem{
			PK:      s.partitionKey(project, view),
			SK:      row.EntityKey,
			EventNS: row.EventTimestamp.UnixNano(),
			Values:  row.Values,
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return written, fmt.Errorf("marshal online row: %w", err)
		}

		_, err = s.client.PutItem(ctx, &sdk.PutItemInput{
			TableName:           &s.tableName,
			Item:                av,
			ConditionExpression: &condition,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":ts": &types.AttributeValueMemberN{Value: strconv.FormatInt(item.EventNS, 10)},
			},
		})
		if err != nil {
			// A failed condition means fresher data is already stored
			var cfe *types.ConditionalCheckFailedException
			if errors.As(err, &cfe) {
				continue
			}
			return written, fmt.Errorf("put online row: %w", err)
		}
		written++
	}
	return written, nil
}

func (s *onlineStore) Read(ctx context.Context, project, view string, entityKeys []string, features []string) ([]domain.OnlineRow, error) {
	out := make([]domain.OnlineRow, len(entityKeys))
	pk := s.partitionKey(project, view)

	for start := 0; start < len(entityKeys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(entityKeys) {
			end = len(entityKeys)
		}
		chunk := entityKeys[start:end]

		keys := make([]map[string]types.AttributeValue, len(chunk))
		for i, entityKey := range chunk {
			keys[i] = map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: pk},
				"sk": &types.AttributeValueMemberS{Value: entityKey},
			}
		}

		byKey := make(map[string]onlineItem, len(chunk))
		input := &sdk.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.tableName: {Keys: keys},
			},
		}
		for len(input.RequestItems) > 0 {
			resp, err := s.client.BatchGetItem(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("batch get online rows: %w", err)
			}
			for _, raw := range resp.Responses[s.tableName] {
				var item onlineItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, fmt.Errorf("unmarshal online row: %w", err)
				}
				byKey[item.SK] = item
			}
			if len(resp.UnprocessedKeys) == 0 {
				break
			}
			input.RequestItems = resp.UnprocessedKeys
		}

		for i, entityKey := range chunk {
			item, ok := byKey[entityKey]
			if !ok {
				out[start+i] = domain.OnlineRow{Found: false}
				continue
			}
			row := domain.OnlineRow{
				Found:          true,
				EventTimestamp: time.Unix(0, item.EventNS).UTC(),
				Values:         make(map[string]interface{}, len(features)),
			}
			for _, feature := range features {
				if v, ok := item.Values[feature]; ok {
					row.Values[feature] = v
				}
			}
			out[start+i] = row
		}
	}
	return out, nil
}

func (s *onlineStore) Purge(ctx context.Context, project, view string) error {
	keyCond := "pk = :pk"
	exprVals := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: s.partitionKey(project, view)},
	}

	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &sdk.QueryInput{
			TableName:                 &s.tableName,
			KeyConditionExpression:    &keyCond,
			ExpressionAttributeValues: exprVals,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return fmt.Errorf("query online rows: %w", err)
		}

		for start := 0; start < len(resp.Items); start += batchWriteLimit {
			end := start + batchWriteLimit
			if end > len(resp.Items) {
				end = len(resp.Items)
			}
			writes := make([]types.WriteRequest, 0, end-start)
			for _, item := range resp.Items[start:end] {
				writes = append(writes, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{
						Key: map[string]types.AttributeValue{
							"pk": item["pk"],
							"sk": item["sk"],
						},
					},
				})
			}
			_, err := s.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: writes},
			})
			if err != nil {
				return fmt.Errorf("purge online rows: %w", err)
			}
		}

		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	return nil
}
