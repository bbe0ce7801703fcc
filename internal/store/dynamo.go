package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pratikrzr/task-management-app/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrTaskNotFound is returned by operations that target a task id with no
// backing document.
var ErrTaskNotFound = errors.New("task not found")

type DynamoStore struct {
	db        *dynamodb.Client
	tableName string
}

func NewDynamoStore(ctx context.Context) (*DynamoStore, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}

	table := os.Getenv("DYNAMO_TABLE")
	if table == "" {
		return nil, fmt.Errorf("DYNAMO_TABLE is required")
	}

	endpoint := os.Getenv("DYNAMO_ENDPOINT")
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &DynamoStore{db: client, tableName: table}, nil
}

func (s *DynamoStore) PutTask(ctx context.Context, t models.Task) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return err
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// ListTasks returns every task document. Scan order is undefined; the
// service layer sorts.
func (s *DynamoStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		var page []models.Task
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tasks = append(tasks, page...)

		if out.LastEvaluatedKey == nil {
			return tasks, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       taskKey(taskID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrTaskNotFound
	}

	var t models.Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus moves the task to a new board column and returns the updated
// document.
func (s *DynamoStore) UpdateStatus(ctx context.Context, taskID string, status models.Status) (*models.Task, error) {
	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       taskKey(taskID),

		ConditionExpression: aws.String("attribute_exists(task_id)"),
		UpdateExpression:    aws.String("SET #st = :st"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: string(status)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, mapConditionErr(err)
	}

	return unmarshalTask(out.Attributes)
}

// AppendComment adds a comment at the end of the task's comment list.
// Comments are append-only; nothing removes or reorders them.
func (s *DynamoStore) AppendComment(ctx context.Context, taskID string, c models.Comment) (*models.Task, error) {
	cv, err := attributevalue.Marshal([]models.Comment{c})
	if err != nil {
		return nil, err
	}

	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       taskKey(taskID),

		ConditionExpression: aws.String("attribute_exists(task_id)"),
		UpdateExpression:    aws.String("SET comments = list_append(if_not_exists(comments, :empty), :c)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":     cv,
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, mapConditionErr(err)
	}

	return unmarshalTask(out.Attributes)
}

// DeleteTask removes the document entirely, cascading away its subtasks and
// comments, and returns what was deleted.
func (s *DynamoStore) DeleteTask(ctx context.Context, taskID string) (*models.Task, error) {
	out, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       taskKey(taskID),

		ConditionExpression: aws.String("attribute_exists(task_id)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, mapConditionErr(err)
	}

	return unmarshalTask(out.Attributes)
}

// ApplyEnrichment writes the pipeline's result onto the task. Only existence
// is checked: a duplicate pipeline run is last-write-wins.
func (s *DynamoStore) ApplyEnrichment(ctx context.Context, taskID, description string, subtasks []models.Subtask, totalStoryPoints int) error {
	sv, err := attributevalue.Marshal(subtasks)
	if err != nil {
		return err
	}

	_, err = s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       taskKey(taskID),

		ConditionExpression: aws.String("attribute_exists(task_id)"),
		UpdateExpression:    aws.String("SET description = :d, subtasks = :sub, story_points = :sp, ai_processed = :done"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":    &types.AttributeValueMemberS{Value: description},
			":sub":  sv,
			":sp":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", totalStoryPoints)},
			":done": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	return mapConditionErr(err)
}

// MarkEnrichmentFailed records the failure notice on a still-unprocessed
// task. Guarded on ai_processed so a slow failing run cannot clobber a
// completed enrichment; a guard miss on an existing task is a no-op.
func (s *DynamoStore) MarkEnrichmentFailed(ctx context.Context, taskID, notice string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       taskKey(taskID),

		ConditionExpression: aws.String("attribute_exists(task_id) AND ai_processed = :pending"),
		UpdateExpression:    aws.String("SET description = :d, ai_processed = :done"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":       &types.AttributeValueMemberS{Value: notice},
			":pending": &types.AttributeValueMemberBOOL{Value: false},
			":done":    &types.AttributeValueMemberBOOL{Value: true},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})

	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		if cfe.Item == nil {
			return ErrTaskNotFound
		}
		// Task exists but was already processed; nothing to correct.
		return nil
	}
	return err
}

func taskKey(taskID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"task_id": &types.AttributeValueMemberS{Value: taskID},
	}
}

func mapConditionErr(err error) error {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return ErrTaskNotFound
	}
	return err
}

func unmarshalTask(attrs map[string]types.AttributeValue) (*models.Task, error) {
	var t models.Task
	if err := attributevalue.UnmarshalMap(attrs, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
