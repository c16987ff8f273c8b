package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/meshwatch/internal/model"
)

func TestFeedRetainsRecentEvents(t *testing.T) {
	feed := NewFeed()

	for i := 0; i < feedCapacity+10; i++ {
		feed.Progress(model.ProgressEvent{
			Kind:   model.KindPing,
			Index:  i + 1,
			Device: model.Device{Label: fmt.Sprintf("D%d", i+1)},
		})
	}

	events := feed.Events(model.KindPing)
	assert.Len(t, events, feedCapacity)
	// Oldest entries were evicted.
	assert.Equal(t, 11, events[0].Index)
	assert.Equal(t, feedCapacity+10, events[len(events)-1].Index)
}

func TestFeedKindsAreIndependent(t *testing.T) {
	feed := NewFeed()

	feed.Progress(model.ProgressEvent{Kind: model.KindPing, Index: 1})
	feed.Progress(model.ProgressEvent{Kind: model.KindSignal, Index: 1})
	feed.RunError(model.KindPing, "boom")

	assert.Len(t, feed.Events(model.KindPing), 1)
	assert.Len(t, feed.Events(model.KindSignal), 1)
	assert.Equal(t, "boom", feed.LastError(model.KindPing))
	assert.Empty(t, feed.LastError(model.KindSignal))

	feed.Reset(model.KindPing)
	assert.Empty(t, feed.Events(model.KindPing))
	assert.Empty(t, feed.LastError(model.KindPing))
	assert.Len(t, feed.Events(model.KindSignal), 1)
}

func TestMultiSinkFansOut(t *testing.T) {
	a := NewFeed()
	b := NewFeed()
	multi := MultiSink{a, b}

	multi.Progress(model.ProgressEvent{Kind: model.KindRank, Index: 1})
	multi.RunError(model.KindRank, "oops")
	multi.Completed(model.KindRank, model.RunState{})

	assert.Len(t, a.Events(model.KindRank), 1)
	assert.Len(t, b.Events(model.KindRank), 1)
	assert.Equal(t, "oops", b.LastError(model.KindRank))
}
