package dynamo

import (
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"status": "assigned"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "status"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"priority":    "critical",
		"assignee_id": "eng-1",
		"status":      "assigned",
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: assignee_id < priority < status
	assert.Equal(t, "assignee_id", ue1.Names["#f0"])
	assert.Equal(t, "priority", ue1.Names["#f1"])
	assert.Equal(t, "status", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"read": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestBuildUpdateExpr_TimeUsesFixedWidthFormat(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"resolved_at": time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	s, ok := ue.Values[":v0"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2026-08-30T12:00:05.000000000Z", s.Value)
}

func TestFormatTime_StringOrderMatchesChronology(t *testing.T) {
	// RFC3339Nano trims trailing fraction zeros, so "...05Z" would sort after
	// "...05.5Z". The fixed-width layout must keep string order chronological.
	base := time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC)
	times := []time.Time{
		base.Add(700 * time.Millisecond),
		base,
		base.Add(time.Second),
		base.Add(time.Millisecond),
	}
	formatted := make([]string, len(times))
	for i, ts := range times {
		formatted[i] = formatTime(ts)
	}
	sort.Strings(formatted)
	assert.Equal(t, []string{
		formatTime(base),
		formatTime(base.Add(time.Millisecond)),
		formatTime(base.Add(700 * time.Millisecond)),
		formatTime(base.Add(time.Second)),
	}, formatted)
}

func TestMarshalMap_TimestampsRoundTrip(t *testing.T) {
	type row struct {
		ID        string    `dynamodbav:"id"`
		CreatedAt time.Time `dynamodbav:"created_at"`
	}
	in := row{ID: "r1", CreatedAt: time.Date(2026, 8, 30, 12, 0, 5, 500000000, time.UTC)}

	item, err := marshalMap(in)
	require.NoError(t, err)
	s, ok := item["created_at"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2026-08-30T12:00:05.500000000Z", s.Value)

	var out row
	require.NoError(t, attributevalue.UnmarshalMap(item, &out))
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := encodeCursor("01J5ZV2M7QW8XKXT3B9YF0AHRC")
	key, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, "01J5ZV2M7QW8XKXT3B9YF0AHRC", key)

	_, err = decodeCursor("not%%base64")
	assert.Error(t, err)
}
