package ddb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequests() Requests {
	return NewRequests(repository.NewConfig("erp-users", "GSI1", "GSI2"))
}

func sValue(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok, "expected a string attribute, got %T", av)
	return s.Value
}

// resolve maps each attribute name of a built key condition or filter to the
// string it is compared with. The expression builder numbers names and values
// in the same order, one value per name here.
func resolve(t *testing.T, names map[string]string, values map[string]types.AttributeValue) map[string]string {
	t.Helper()
	require.Len(t, values, len(names))
	out := make(map[string]string, len(names))
	for i := 0; i < len(names); i++ {
		out[names[fmt.Sprintf("#%d", i)]] = sValue(t, values[fmt.Sprintf(":%d", i)])
	}
	return out
}

var sampleIntegration = domain.MarketplaceIntegration{
	ID:              "i-1",
	UserID:          "u-1",
	MarketplaceType: domain.MarketplaceMercadoLivre,
	AccessToken:     "APP_USR-token",
	RefreshToken:    "TG-refresh",
	SellerID:        "123456",
	StoreName:       "LOJA",
	Status:          domain.StatusPending,
	CreatedAt:       "2025-01-01T00:00:00Z",
	UpdatedAt:       "2025-01-01T00:00:00Z",
}

func TestUpdateRequest_PlaceholderPerField(t *testing.T) {
	r := testRequests()
	all := []UpdateField{
		{"name", "Ana"},
		{"role", "manager"},
		{"isActive", false},
		{"updatedAt", "2025-01-02T00:00:00Z"},
		{"status", "active"},
	}

	for n := 1; n <= len(all); n++ {
		t.Run(fmt.Sprintf("%d fields", n), func(t *testing.T) {
			fields := UpdateFields(append([]UpdateField(nil), all[:n]...))

			in, err := r.UserUpdateInput("u-1", fields)
			require.NoError(t, err)

			expr := aws.ToString(in.UpdateExpression)
			require.True(t, strings.HasPrefix(expr, "SET "))
			clauses := strings.Split(strings.TrimPrefix(expr, "SET "), ", ")

			assert.Len(t, clauses, n)
			assert.Len(t, in.ExpressionAttributeNames, n)
			assert.Len(t, in.ExpressionAttributeValues, n)
			for i, f := range fields {
				assert.Equal(t, fmt.Sprintf("#%s = :%s", f.Name, f.Name), clauses[i])
				assert.Equal(t, f.Name, in.ExpressionAttributeNames["#"+f.Name])
				assert.Contains(t, in.ExpressionAttributeValues, ":"+f.Name)
			}
			assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
			assert.Equal(t, "attribute_exists(PK)", aws.ToString(in.ConditionExpression))
		})
	}
}

func TestUpdateRequest_AliasesReservedWords(t *testing.T) {
	var fields UpdateFields
	fields.Set("name", "Ana")
	fields.Set("status", "error")

	in, err := testRequests().UserUpdateInput("u-1", fields)
	require.NoError(t, err)

	expr := aws.ToString(in.UpdateExpression)
	assert.Equal(t, "SET #name = :name, #status = :status", expr)
}

func TestUpdateRequest_EmptyIsValidationError(t *testing.T) {
	r := testRequests()

	_, err := r.UserUpdateInput("u-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyUpdate)
	assert.True(t, appErrors.IsValidation(err))

	_, err = r.IntegrationUpdateInput(sampleIntegration.Key(), UpdateFields{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestUpdateFields_SetReplaces(t *testing.T) {
	var fields UpdateFields
	fields.Set("status", "active")
	fields.Set("errorMessage", "x")
	fields.Set("status", "error")

	require.Len(t, fields, 2)
	assert.Equal(t, UpdateField{Name: "status", Value: "error"}, fields[0])
}

func TestGetAndDeleteShareKeys(t *testing.T) {
	r := testRequests()

	t.Run("user", func(t *testing.T) {
		get := r.UserGetInput("u-1")
		del := r.UserDeleteInput("u-1")
		assert.Equal(t, get.Key, del.Key)
		assert.Equal(t, "USER#u-1", sValue(t, get.Key["PK"]))
		assert.Equal(t, "USER#u-1", sValue(t, get.Key["SK"]))
		assert.Equal(t, "erp-users", aws.ToString(del.TableName))
	})

	t.Run("integration", func(t *testing.T) {
		key := sampleIntegration.Key()
		get := r.IntegrationGetInput(key)
		del := r.IntegrationDeleteInput(key)
		assert.Equal(t, get.Key, del.Key)
		assert.Equal(t, "USER#u-1", sValue(t, get.Key["PK"]))
		assert.Equal(t, "MARKETPLACE#mercadolivre#i-1", sValue(t, get.Key["SK"]))
	})

	t.Run("integration put and get agree", func(t *testing.T) {
		put, err := r.IntegrationPutInput(sampleIntegration)
		require.NoError(t, err)
		get := r.IntegrationGetInput(sampleIntegration.Key())
		assert.Equal(t, sValue(t, put.Item["PK"]), sValue(t, get.Key["PK"]))
		assert.Equal(t, sValue(t, put.Item["SK"]), sValue(t, get.Key["SK"]))
	})
}

func TestPutRequests(t *testing.T) {
	r := testRequests()

	t.Run("user item carries the email index", func(t *testing.T) {
		in, err := r.UserPutInput(domain.User{ID: "u-1", Email: "a@x.com", Name: "Ana", Role: domain.RoleUser, IsActive: true})
		require.NoError(t, err)

		assert.Nil(t, in.ConditionExpression)
		assert.Equal(t, "EMAIL#a@x.com", sValue(t, in.Item["GSI1PK"]))
		assert.Equal(t, "USER#u-1", sValue(t, in.Item["GSI1SK"]))
		assert.Equal(t, "a@x.com", sValue(t, in.Item["email"]))
		assert.NotContains(t, in.Item, "password")
	})

	t.Run("integration item carries both indexes", func(t *testing.T) {
		in, err := r.IntegrationPutInput(sampleIntegration)
		require.NoError(t, err)

		assert.Equal(t, "MARKETPLACE#mercadolivre", sValue(t, in.Item["GSI1PK"]))
		assert.Equal(t, "USER#u-1#i-1", sValue(t, in.Item["GSI1SK"]))
		assert.Equal(t, "STATUS#pending", sValue(t, in.Item["GSI2PK"]))
		assert.Equal(t, "USER#u-1#mercadolivre#i-1", sValue(t, in.Item["GSI2SK"]))
		assert.NotContains(t, in.Item, "lastSyncAt")
	})
}

func TestQueryRequests(t *testing.T) {
	r := testRequests()

	t.Run("user by email uses GSI1", func(t *testing.T) {
		in, err := r.UserByEmailInput("a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "GSI1", aws.ToString(in.IndexName))
		assert.Equal(t, map[string]string{"GSI1PK": "EMAIL#a@x.com"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})

	t.Run("integrations by owner query the primary index", func(t *testing.T) {
		in, err := r.IntegrationsByUserInput("u-1")
		require.NoError(t, err)
		assert.Nil(t, in.IndexName)
		assert.Contains(t, aws.ToString(in.KeyConditionExpression), "begins_with")
		assert.Equal(t, map[string]string{"PK": "USER#u-1", "SK": "MARKETPLACE#"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})

	t.Run("integrations by owner and type narrow the sort key", func(t *testing.T) {
		in, err := r.IntegrationsByUserAndTypeInput("u-1", domain.MarketplaceShopee)
		require.NoError(t, err)
		assert.Contains(t, aws.ToString(in.KeyConditionExpression), "begins_with")
		assert.Equal(t, map[string]string{"PK": "USER#u-1", "SK": "MARKETPLACE#shopee#"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})

	t.Run("integrations by type use GSI1", func(t *testing.T) {
		in, err := r.IntegrationsByTypeInput(domain.MarketplaceAmazon)
		require.NoError(t, err)
		assert.Equal(t, "GSI1", aws.ToString(in.IndexName))
		assert.Equal(t, map[string]string{"GSI1PK": "MARKETPLACE#amazon"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})

	t.Run("integrations by status use GSI2", func(t *testing.T) {
		in, err := r.IntegrationsByStatusInput(domain.StatusError)
		require.NoError(t, err)
		assert.Equal(t, "GSI2", aws.ToString(in.IndexName))
		assert.Equal(t, map[string]string{"GSI2PK": "STATUS#error"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})
}

func TestScanRequests(t *testing.T) {
	r := testRequests()

	t.Run("user scan filters by prefix and clamps the limit", func(t *testing.T) {
		in, err := r.UserScanInput(500, "")
		require.NoError(t, err)
		assert.Equal(t, int32(100), aws.ToInt32(in.Limit))
		assert.Nil(t, in.ExclusiveStartKey)
		assert.Contains(t, aws.ToString(in.FilterExpression), "begins_with")
		assert.Equal(t, map[string]string{"PK": "USER#", "SK": "USER#"}, resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues))
	})

	t.Run("integration scan filters on the marketplace sort prefix", func(t *testing.T) {
		in, err := r.IntegrationScanInput(0, "")
		require.NoError(t, err)
		assert.Equal(t, int32(10), aws.ToInt32(in.Limit))
		assert.Equal(t, "MARKETPLACE#", resolve(t, in.ExpressionAttributeNames, in.ExpressionAttributeValues)["SK"])
	})

	t.Run("continuation token becomes the start key", func(t *testing.T) {
		token, err := encodeToken(userKey("u-9"))
		require.NoError(t, err)
		require.NotEmpty(t, token)

		in, err := r.UserScanInput(10, token)
		require.NoError(t, err)
		assert.Equal(t, userKey("u-9"), in.ExclusiveStartKey)
	})

	t.Run("garbage token is a validation error", func(t *testing.T) {
		_, err := r.UserScanInput(10, "%%%not-base64")
		assert.True(t, appErrors.IsValidation(err))
	})
}
