package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/civic-issue-api/internal/domain"
)

// IssueRepo provides typed DynamoDB operations for the issues table.
type IssueRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewIssueRepo(client *dynamodb.Client, tableName string) *IssueRepo {
	return &IssueRepo{client: client, tableName: tableName}
}

func (r *IssueRepo) Put(ctx context.Context, i *domain.Issue) error {
	item, err := marshalMap(i)
	if err != nil {
		return fmt.Errorf("marshal issue: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *IssueRepo) Get(ctx context.Context, issueID string) (*domain.Issue, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("issue_id", issueID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("issue not found: %w", domain.ErrNotFound)
	}
	var i domain.Issue
	if err := attributevalue.UnmarshalMap(out.Item, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *IssueRepo) Update(ctx context.Context, issueID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("issue_id", issueID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ListByStatusSince queries the status-created_at GSI for issues in the given
// status created after since. Used by duplicate detection, which bounds the
// candidate set with its recency window.
func (r *IssueRepo) ListByStatusSince(ctx context.Context, status string, since time.Time) ([]domain.Issue, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("status-created_at-index"),
		KeyConditionExpression: aws.String("#st = :s AND created_at > :since"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":     &types.AttributeValueMemberS{Value: status},
			":since": &types.AttributeValueMemberS{Value: formatTime(since)},
		},
	})
	if err != nil {
		return nil, err
	}
	var issues []domain.Issue
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ListPage scans the issues table with optional filters.
// cursor is a base64-encoded issue_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *IssueRepo) ListPage(ctx context.Context, f domain.IssueFilter, limit int32, cursor string) ([]domain.Issue, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	expr, names, values := buildIssueFilter(f)
	if expr != "" {
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeValues = values
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
	}
	if cursor != "" {
		issueID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("issue_id", issueID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var issues []domain.Issue
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &issues); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["issue_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return issues, nextCursor, nil
}

// AddUpvote atomically increments the issue's upvote counter and returns the
// post-increment value. The ADD is a single DynamoDB write, so concurrent
// votes never lose updates.
func (r *IssueRepo) AddUpvote(ctx context.Context, issueID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("issue_id", issueID),
		UpdateExpression:    aws.String("ADD upvotes :one"),
		ConditionExpression: aws.String("attribute_exists(issue_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, fmt.Errorf("issue not found: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	n, ok := out.Attributes["upvotes"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("unexpected upvotes attribute in update response")
	}
	count, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse upvotes: %w", err)
	}
	return count, nil
}

// TryEscalate conditionally raises the issue's priority to critical. Returns
// true only for the single caller whose conditional write succeeds; once the
// issue is critical all later attempts return false.
func (r *IssueRepo) TryEscalate(ctx context.Context, issueID string) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("issue_id", issueID),
		UpdateExpression:    aws.String("SET priority = :critical, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(issue_id) AND priority <> :critical"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":critical": &types.AttributeValueMemberS{Value: domain.PriorityCritical},
			":now":      &types.AttributeValueMemberS{Value: formatTime(time.Now())},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IncrementReportCount bumps the duplicate-report counter for admin visibility.
// Not a vote; carries no escalation semantics.
func (r *IssueRepo) IncrementReportCount(ctx context.Context, issueID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("issue_id", issueID),
		UpdateExpression:    aws.String("ADD report_count :one"),
		ConditionExpression: aws.String("attribute_exists(issue_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("issue not found: %w", domain.ErrNotFound)
	}
	return err
}

func buildIssueFilter(f domain.IssueFilter) (string, map[string]string, map[string]types.AttributeValue) {
	expr := ""
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	add := func(cond string) {
		if expr != "" {
			expr += " AND "
		}
		expr += cond
	}
	if f.Status != "" {
		names["#st"] = "status"
		values[":st"] = &types.AttributeValueMemberS{Value: f.Status}
		add("#st = :st")
	}
	if f.Priority != "" {
		values[":pr"] = &types.AttributeValueMemberS{Value: f.Priority}
		add("priority = :pr")
	}
	if f.Category != "" {
		values[":cat"] = &types.AttributeValueMemberS{Value: f.Category}
		add("category = :cat")
	}
	if f.AssigneeID != "" {
		values[":as"] = &types.AttributeValueMemberS{Value: f.AssigneeID}
		add("assignee_id = :as")
	}
	if f.SubmitterID != "" {
		values[":su"] = &types.AttributeValueMemberS{Value: f.SubmitterID}
		add("submitter_id = :su")
	}
	if len(values) == 0 {
		return "", nil, nil
	}
	return expr, names, values
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
