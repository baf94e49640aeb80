package dynamo

import (
	"context"
	"errors"
	"testing"

	"expense-tracker-server/src/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	putInput    *dynamodb.PutItemInput
	putErr      error
	queryInputs []*dynamodb.QueryInput
	queryPages  []*dynamodb.QueryOutput
	queryErr    error
	updateInput *dynamodb.UpdateItemInput
	updateOut   *dynamodb.UpdateItemOutput
	updateErr   error
	deleteInput *dynamodb.DeleteItemInput
	deleteErr   error
	describeErr error
	createInput *dynamodb.CreateTableInput
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	page := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return page, nil
}

func (f *fakeAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInput = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteInput = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func (f *fakeAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.createInput = in
	f.describeErr = nil
	return &dynamodb.CreateTableOutput{}, nil
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func TestBuildUpdateInput(t *testing.T) {
	in, err := buildUpdateInput("ExpensesTable", "expense-123", "test-user-123", []models.FieldUpdate{
		{Field: models.FieldAmount, Value: 150.0},
		{Field: models.FieldCategory, Value: "groceries"},
		{Field: models.FieldUpdatedAt, Value: "2024-01-15T10:00:00.000Z"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ExpensesTable", aws.ToString(in.TableName))
	assert.Equal(t, map[string]types.AttributeValue{"id": s("expense-123"), "userId": s("test-user-123")}, in.Key)
	assert.Equal(t, "SET #amount = :amount, #category = :category, #updatedAt = :updatedAt", aws.ToString(in.UpdateExpression))
	assert.Equal(t, "attribute_exists(#id)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, map[string]string{
		"#id":        "id",
		"#amount":    "amount",
		"#category":  "category",
		"#updatedAt": "updatedAt",
	}, in.ExpressionAttributeNames)
	assert.Equal(t, n("150"), in.ExpressionAttributeValues[":amount"])
	assert.Equal(t, s("groceries"), in.ExpressionAttributeValues[":category"])
	assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
}

func TestBuildUpdateInputEmpty(t *testing.T) {
	_, err := buildUpdateInput("t", "e", "u", nil)
	assert.Error(t, err)
}

func TestPutExpense(t *testing.T) {
	api := &fakeAPI{}
	store := NewExpenseStore(api, "ExpensesTable", "UserIdIndex")

	err := store.PutExpense(context.Background(), &models.Expense{
		ID: "e1", UserID: "u1", Amount: 12.5, Category: "food", Description: "lunch",
		Date: "2024-01-15", CreatedAt: "2024-01-15T12:00:00.000Z",
	})
	require.NoError(t, err)

	item := api.putInput.Item
	assert.Equal(t, s("e1"), item["id"])
	assert.Equal(t, s("u1"), item["userId"])
	assert.Equal(t, n("12.5"), item["amount"])
	assert.NotContains(t, item, "updatedAt")
	assert.Equal(t, "attribute_not_exists(id)", aws.ToString(api.putInput.ConditionExpression))
}

func TestListExpensesFollowsPages(t *testing.T) {
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{{"id": s("e1"), "userId": s("u1"), "amount": n("1")}},
			LastEvaluatedKey: map[string]types.AttributeValue{"id": s("e1"), "userId": s("u1")},
		},
		{
			Items: []map[string]types.AttributeValue{{"id": s("e2"), "userId": s("u1"), "amount": n("2")}},
		},
	}}
	store := NewExpenseStore(api, "ExpensesTable", "UserIdIndex")

	expenses, err := store.ListExpensesByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "e1", expenses[0].ID)
	assert.Equal(t, 2.0, expenses[1].Amount)

	require.Len(t, api.queryInputs, 2)
	first := api.queryInputs[0]
	assert.Equal(t, "UserIdIndex", aws.ToString(first.IndexName))
	assert.Equal(t, "userId = :userId", aws.ToString(first.KeyConditionExpression))
	assert.Equal(t, s("u1"), first.ExpressionAttributeValues[":userId"])
	assert.NotNil(t, api.queryInputs[1].ExclusiveStartKey)
}

func TestListExpensesEmpty(t *testing.T) {
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{{}}}
	expenses, err := NewExpenseStore(api, "t", "i").ListExpensesByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, expenses)
	assert.Empty(t, expenses)
}

func TestUpdateExpenseNotFound(t *testing.T) {
	api := &fakeAPI{updateErr: &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}}
	store := NewExpenseStore(api, "t", "i")

	_, err := store.UpdateExpense(context.Background(), "missing", "u1", []models.FieldUpdate{
		{Field: models.FieldUpdatedAt, Value: "now"},
	})
	assert.ErrorIs(t, err, models.ErrExpenseNotFound)
}

func TestUpdateExpenseReturnsAllNew(t *testing.T) {
	api := &fakeAPI{updateOut: &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"id": s("expense-123"), "userId": s("u1"), "amount": n("150"), "category": s("groceries"),
		"updatedAt": s("2024-01-15T10:00:00.000Z"),
	}}}
	store := NewExpenseStore(api, "t", "i")

	e, err := store.UpdateExpense(context.Background(), "expense-123", "u1", []models.FieldUpdate{
		{Field: models.FieldAmount, Value: 150.0},
		{Field: models.FieldUpdatedAt, Value: "2024-01-15T10:00:00.000Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, 150.0, e.Amount)
	assert.Equal(t, "groceries", e.Category)
	assert.Equal(t, "2024-01-15T10:00:00.000Z", e.UpdatedAt)
}

func TestDeleteExpense(t *testing.T) {
	api := &fakeAPI{}
	store := NewExpenseStore(api, "t", "i")

	require.NoError(t, store.DeleteExpense(context.Background(), "e1", "u1"))
	assert.Equal(t, map[string]types.AttributeValue{"id": s("e1"), "userId": s("u1")}, api.deleteInput.Key)

	api.deleteErr = errors.New("service unavailable")
	err := store.DeleteExpense(context.Background(), "e1", "u1")
	assert.ErrorContains(t, err, "service unavailable")
}

func TestEnsureSchemaExistingTable(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, NewExpenseStore(api, "t", "i").EnsureSchema(context.Background()))
	assert.Nil(t, api.createInput)
}

func TestEnsureSchemaCreatesTable(t *testing.T) {
	api := &fakeAPI{describeErr: &types.ResourceNotFoundException{Message: aws.String("not found")}}
	require.NoError(t, NewExpenseStore(api, "ExpensesTable", "UserIdIndex").EnsureSchema(context.Background()))

	require.NotNil(t, api.createInput)
	require.Len(t, api.createInput.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "UserIdIndex", aws.ToString(api.createInput.GlobalSecondaryIndexes[0].IndexName))
}

func TestEnsureSchemaDescribeError(t *testing.T) {
	api := &fakeAPI{describeErr: errors.New("access denied")}
	err := NewExpenseStore(api, "t", "i").EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.Nil(t, api.createInput)
}
