package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishAndUnsubscribe(t *testing.T) {
	bus := New()
	var got []Kind
	unsubscribe := bus.Subscribe(func(e Event) { got = append(got, e.Kind) })

	bus.Publish(Event{Kind: ContractOffered, At: time.Now()})
	unsubscribe()
	bus.Publish(Event{Kind: ContractAccepted, At: time.Now()})

	assert.Equal(t, []Kind{ContractOffered}, got)
	assert.Len(t, bus.Recent(10), 2)
}

func TestBus_RecentIsBounded(t *testing.T) {
	bus := New()
	for i := 0; i < recentSize+5; i++ {
		bus.Publish(Event{Kind: WaiverCleared})
	}
	assert.Len(t, bus.Recent(0), recentSize)
	assert.Len(t, bus.Recent(3), 3)
}

func TestEvent_Touches(t *testing.T) {
	e := Event{TeamIDs: []string{"x", "y"}}
	assert.True(t, e.Touches("y"))
	assert.False(t, e.Touches("z"))
}

func TestBus_NilPublishIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(Event{Kind: TeamCreated}) })
}
