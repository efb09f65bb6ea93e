package queue

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchasebot/internal/model"
)

func event(id int64) model.Event {
	return model.Event{UpdateID: id, Kind: model.EventCommand, Command: "list"}
}

func TestQueueFIFO(t *testing.T) {
	q := New(0)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, q.Enqueue(event(i)))
	}
	assert.Equal(t, 5, q.Depth())

	for i := int64(1); i <= 5; i++ {
		ev, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, i, ev.UpdateID)
	}
	assert.Equal(t, 0, q.Depth())
	assert.Equal(t, uint64(5), q.Enqueued())
	assert.Equal(t, uint64(5), q.Dequeued())
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := New(0)

	start := time.Now()
	_, ok := q.Dequeue(20 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := New(0)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Enqueue(event(7))
	}()

	ev, ok := q.Dequeue(5 * time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(7), ev.UpdateID)
}

func TestQueueClosed(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Enqueue(event(1)))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(event(2)), ErrQueueClosed)

	ev, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(1), ev.UpdateID)

	start := time.Now()
	_, ok = q.Dequeue(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueueCloseWakesWaiterWithoutSpinning(t *testing.T) {
	q := New(0)

	result := make(chan bool, 1)
	start := time.Now()
	go func() {
		_, ok := q.Dequeue(100 * time.Millisecond)
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not return")
	}
}

func TestQueueLimit(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Enqueue(event(1)))
	require.NoError(t, q.Enqueue(event(2)))
	assert.ErrorIs(t, q.Enqueue(event(3)), ErrQueueExhausted)
	assert.Equal(t, 2, q.Capacity())

	_, ok := q.Dequeue(time.Second)
	require.True(t, ok)
	assert.NoError(t, q.Enqueue(event(3)))
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 200
	q := New(0)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				ev := event(int64(i))
				ev.ID = strconv.Itoa(p)
				if err := q.Enqueue(ev); err != nil {
					t.Errorf("enqueue: %v", err)
					return
				}
			}
		}(p)
	}

	last := make(map[string]int64)
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < producers*perProducer {
			ev, ok := q.Dequeue(5 * time.Second)
			if !ok {
				t.Errorf("dequeue timed out after %d events", received)
				return
			}
			if prev, seen := last[ev.ID]; seen && ev.UpdateID <= prev {
				t.Errorf("producer %s out of order: %d after %d", ev.ID, ev.UpdateID, prev)
			}
			last[ev.ID] = ev.UpdateID
			received++
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, producers*perProducer, received)
}
