package ddb

import (
	"errors"
	"strings"

	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrEmptyUpdate is the cause of the validation error returned for an update
// that names no attribute.
var ErrEmptyUpdate = errors.New("no fields to update")

// UpdateField is one attribute assignment of an update.
type UpdateField struct {
	Name  string
	Value interface{}
}

// UpdateFields is an ordered set of assignments. Setting a name twice keeps
// the first position and the last value.
type UpdateFields []UpdateField

// Set adds or replaces an assignment.
func (f *UpdateFields) Set(name string, value interface{}) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, UpdateField{Name: name, Value: value})
}

// updateExpression is a SET expression with every attribute name aliased as
// #<name> and every value as :<name>.
type updateExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

func buildUpdateExpression(fields UpdateFields) (updateExpression, error) {
	if len(fields) == 0 {
		return updateExpression{}, appErrors.NewValidationError("No fields to update").WithCause(ErrEmptyUpdate)
	}

	out := updateExpression{
		Names:  make(map[string]string, len(fields)),
		Values: make(map[string]types.AttributeValue, len(fields)),
	}
	clauses := make([]string, 0, len(fields))

	for _, field := range fields {
		value, err := attributevalue.Marshal(field.Value)
		if err != nil {
			return updateExpression{}, err
		}
		name, placeholder := "#"+field.Name, ":"+field.Name
		out.Names[name] = field.Name
		out.Values[placeholder] = value
		clauses = append(clauses, name+" = "+placeholder)
	}

	out.Expression = "SET " + strings.Join(clauses, ", ")
	return out, nil
}
