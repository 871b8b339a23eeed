package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mabletask/tracker/models"
)

func ev(id string) models.NormalizedEvent {
	return models.NormalizedEvent{Kind: models.EventKeyDown, TargetID: id, Timestamp: time.Now()}
}

func targetIDs(events []models.NormalizedEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.TargetID
	}
	return ids
}

// scriptedDeliverer records delivered batches and fails on demand.
type scriptedDeliverer struct {
	mu      sync.Mutex
	batches [][]models.NormalizedEvent
	fail    bool
}

func (d *scriptedDeliverer) deliver(_ context.Context, events []models.NormalizedEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("delivery down")
	}
	d.batches = append(d.batches, append([]models.NormalizedEvent(nil), events...))
	return nil
}

func (d *scriptedDeliverer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *scriptedDeliverer) delivered() [][]models.NormalizedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]models.NormalizedEvent(nil), d.batches...)
}

func TestBufferFlushesAtMaxBatchSize(t *testing.T) {
	d := &scriptedDeliverer{}
	b := NewBuffer(3, time.Hour, d.deliver, false)
	defer b.Destroy(context.Background())

	b.Add(ev("A"))
	b.Add(ev("B"))
	assert.Equal(t, 2, b.Len())
	assert.Empty(t, d.delivered())

	b.Add(ev("C"))

	require.Eventually(t, func() bool { return len(d.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	batches := d.delivered()
	assert.Equal(t, []string{"A", "B", "C"}, targetIDs(batches[0]))
	assert.Zero(t, b.Len())
}

func TestBufferFlushesQuietBufferAfterMaxAge(t *testing.T) {
	d := &scriptedDeliverer{}
	b := NewBuffer(100, 30*time.Millisecond, d.deliver, false)
	defer b.Destroy(context.Background())

	b.Add(ev("A"))

	// no further adds: the periodic checker alone must trigger the flush
	require.Eventually(t, func() bool { return len(d.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A"}, targetIDs(d.delivered()[0]))
}

func TestBufferRequeuesFailedBatchInOrder(t *testing.T) {
	d := &scriptedDeliverer{fail: true}
	b := NewBuffer(100, time.Hour, d.deliver, false)
	defer b.Destroy(context.Background())

	b.Add(ev("A"))
	b.Add(ev("B"))
	b.Add(ev("C"))

	// failed flush: the exact batch is back at the front, in original order
	require.Error(t, b.Flush(context.Background()))
	assert.Equal(t, 3, b.Len())

	b.Add(ev("D"))

	d.setFail(false)
	require.NoError(t, b.Flush(context.Background()))

	batches := d.delivered()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, targetIDs(batches[0]))
	assert.Zero(t, b.Len())
}

func TestBufferFlushOnEmptyIsNoop(t *testing.T) {
	d := &scriptedDeliverer{}
	b := NewBuffer(3, time.Hour, d.deliver, false)
	defer b.Destroy(context.Background())

	require.NoError(t, b.Flush(context.Background()))
	assert.Empty(t, d.delivered())
}

func TestBufferDestroyFlushesPendingEvents(t *testing.T) {
	d := &scriptedDeliverer{}
	b := NewBuffer(100, time.Hour, d.deliver, false)

	b.Add(ev("A"))
	b.Add(ev("B"))

	require.NoError(t, b.Destroy(context.Background()))

	batches := d.delivered()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"A", "B"}, targetIDs(batches[0]))

	// destroy twice is harmless
	require.NoError(t, b.Destroy(context.Background()))
}

func TestBufferDestroyPreservesEventsOnFailure(t *testing.T) {
	d := &scriptedDeliverer{fail: true}
	b := NewBuffer(100, time.Hour, d.deliver, false)

	b.Add(ev("A"))

	require.Error(t, b.Destroy(context.Background()))
	// the final flush failed, so the event is still buffered, not dropped
	assert.Equal(t, 1, b.Len())
}

func TestBufferTakeAllDrainsWithoutDelivery(t *testing.T) {
	d := &scriptedDeliverer{}
	b := NewBuffer(100, time.Hour, d.deliver, false)
	defer b.Destroy(context.Background())

	b.Add(ev("A"))
	b.Add(ev("B"))

	taken := b.TakeAll()
	assert.Equal(t, []string{"A", "B"}, targetIDs(taken))
	assert.Zero(t, b.Len())
	assert.Empty(t, d.delivered())
}
