package ddb

import (
	"encoding/base64"
	"encoding/json"

	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// encodeToken turns a LastEvaluatedKey into an opaque continuation token.
// Every key attribute of the table and its indexes is a string.
func encodeToken(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", err
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeToken reverses encodeToken. An empty token means "from the start".
func decodeToken(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, appErrors.NewValidationError("Invalid pagination token")
	}
	var plain map[string]string
	if err := json.Unmarshal(raw, &plain); err != nil || len(plain) == 0 {
		return nil, appErrors.NewValidationError("Invalid pagination token")
	}
	return attributevalue.MarshalMap(plain)
}
