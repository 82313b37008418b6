package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(SubjectPostCreated, PostCreated{PostID: 1}))
}

func TestClosedPublisher(t *testing.T) {
	p := &NATSPublisher{}
	assert.ErrorIs(t, p.Publish(SubjectVoteChanged, VoteChanged{}), nats.ErrConnectionClosed)
	p.Close()
}

func TestVoteChangedWireFormat(t *testing.T) {
	data, err := json.Marshal(VoteChanged{
		Target:    "post",
		TargetID:  4,
		UserID:    2,
		Result:    "created",
		Likes:     3,
		Timestamp: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"target": "post",
		"target_id": 4,
		"id_usuario": 2,
		"result": "created",
		"likes": 3,
		"timestamp": "2024-09-01T12:00:00Z"
	}`, string(data))
}
