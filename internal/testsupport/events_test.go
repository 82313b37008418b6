package testsupport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/vitia/backend/internal/events"
)

func TestEventRecorder(t *testing.T) {
	var r EventRecorder
	var pub events.Publisher = &r
	require.NoError(t, pub.Publish(events.SubjectPostCreated, events.PostCreated{PostID: 1}))
	require.NoError(t, pub.Publish(events.SubjectVoteChanged, events.VoteChanged{TargetID: 1}))

	assert.Equal(t, []string{events.SubjectPostCreated, events.SubjectVoteChanged}, r.Subjects())
	assert.Equal(t, events.PostCreated{PostID: 1}, r.Events()[0].Payload)
}

func TestEventRecorderConcurrentPublish(t *testing.T) {
	var r EventRecorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = r.Publish(events.SubjectVoteChanged, events.VoteChanged{TargetID: id})
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Events(), 50)
}
