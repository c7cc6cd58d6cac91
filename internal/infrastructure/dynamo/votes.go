package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/civic-issue-api/internal/domain"
)

// VoteRepo provides typed DynamoDB operations for the issue_votes table.
// The table is keyed (issue_id, voter_id), so the conditional put below IS the
// one-vote-per-voter constraint — there is no separate existence check to race
// against.
type VoteRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVoteRepo(client *dynamodb.Client, tableName string) *VoteRepo {
	return &VoteRepo{client: client, tableName: tableName}
}

// PutUnique records the vote, failing with domain.ErrAlreadyVoted when the
// (issue, voter) pair already exists.
func (r *VoteRepo) PutUnique(ctx context.Context, v *domain.Vote) error {
	item, err := marshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal vote: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(issue_id) AND attribute_not_exists(voter_id)"),
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("voter %s already voted on issue %s: %w", v.VoterID, v.IssueID, domain.ErrAlreadyVoted)
	}
	return err
}

// Exists reports whether the voter has already voted on the issue.
func (r *VoteRepo) Exists(ctx context.Context, issueID, voterID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("issue_id", issueID, "voter_id", voterID),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}
