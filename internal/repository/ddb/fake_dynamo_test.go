package ddb

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	eqPattern         = regexp.MustCompile(`(#\w+) = (:\w+)`)
	beginsWithPattern = regexp.MustCompile(`begins_with\s*\(\s*(#\w+)\s*,\s*(:\w+)\s*\)`)
)

// fakeDynamo is an in-memory table that understands the expressions the
// request builders emit: equality and begins_with key conditions and filters,
// SET updates, and attribute_exists / attribute_not_exists(PK) conditions.
type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	failOn map[string]error
	calls  map[string]int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:  make(map[string]map[string]types.AttributeValue),
		failOn: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeDynamo) SetError(operation string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[operation] = err
}

func (f *fakeDynamo) Calls(operation string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[operation]
}

func (f *fakeDynamo) begin(operation string) error {
	f.calls[operation]++
	return f.failOn[operation]
}

func str(item map[string]types.AttributeValue, name string) (string, bool) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

func storageKey(item map[string]types.AttributeValue) string {
	pk, _ := str(item, "PK")
	sk, _ := str(item, "SK")
	return pk + "|" + sk
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// matches evaluates the equality and begins_with clauses of expr against item.
func matches(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, m := range eqPattern.FindAllStringSubmatch(expr, -1) {
		got, ok := str(item, names[m[1]])
		want := values[m[2]].(*types.AttributeValueMemberS).Value
		if !ok || got != want {
			return false
		}
	}
	for _, m := range beginsWithPattern.FindAllStringSubmatch(expr, -1) {
		got, ok := str(item, names[m[1]])
		prefix := values[m[2]].(*types.AttributeValueMemberS).Value
		if !ok || !strings.HasPrefix(got, prefix) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) sortedKeys() []string {
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PutItem"); err != nil {
		return nil, err
	}
	f.items[storageKey(in.Item)] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetItem"); err != nil {
		return nil, err
	}
	item, ok := f.items[storageKey(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Query"); err != nil {
		return nil, err
	}
	out := &dynamodb.QueryOutput{}
	for _, k := range f.sortedKeys() {
		item := f.items[k]
		if matches(item, aws.ToString(in.KeyConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Scan"); err != nil {
		return nil, err
	}

	after := ""
	if in.ExclusiveStartKey != nil {
		after = storageKey(in.ExclusiveStartKey)
	}
	limit := int(aws.ToInt32(in.Limit))

	out := &dynamodb.ScanOutput{}
	keys := f.sortedKeys()
	for i, k := range keys {
		if after != "" && k <= after {
			continue
		}
		item := f.items[k]
		if matches(item, aws.ToString(in.FilterExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
			out.Items = append(out.Items, copyItem(item))
		}
		if limit > 0 && len(out.Items) == limit {
			if i < len(keys)-1 {
				out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]}
			}
			break
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateItem"); err != nil {
		return nil, err
	}

	key := storageKey(in.Key)
	item, ok := f.items[key]
	if !ok {
		if aws.ToString(in.ConditionExpression) == "attribute_exists(PK)" {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
		item = copyItem(in.Key)
	}

	expr := strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET ")
	for _, m := range eqPattern.FindAllStringSubmatch(expr, -1) {
		item[in.ExpressionAttributeNames[m[1]]] = in.ExpressionAttributeValues[m[2]]
	}
	f.items[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteItem"); err != nil {
		return nil, err
	}
	delete(f.items, storageKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("TransactWriteItems"); err != nil {
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if ti.Put != nil && aws.ToString(ti.Put.ConditionExpression) == "attribute_not_exists(PK)" {
			if _, exists := f.items[storageKey(ti.Put.Item)]; exists {
				reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.items[storageKey(ti.Put.Item)] = copyItem(ti.Put.Item)
		case ti.Delete != nil:
			delete(f.items, storageKey(ti.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

var errInjected = errors.New("injected failure")

var _ DynamoAPI = (*fakeDynamo)(nil)
