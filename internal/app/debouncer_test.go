package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/medtracker/internal/clock"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	c := clock.NewManual(morning)
	var runs int32
	d := NewDebouncer(c, DefaultSaveDelay, func() { atomic.AddInt32(&runs, 1) })

	d.Trigger()
	c.Advance(300 * time.Millisecond)
	d.Trigger()
	c.Advance(300 * time.Millisecond)
	d.Trigger()
	assert.True(t, d.Pending())
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))

	c.Advance(DefaultSaveDelay)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, d.Pending())

	c.Advance(time.Hour)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestDebouncer_Flush(t *testing.T) {
	c := clock.NewManual(morning)
	var runs int32
	d := NewDebouncer(c, DefaultSaveDelay, func() { atomic.AddInt32(&runs, 1) })

	assert.False(t, d.Flush())

	d.Trigger()
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	c.Advance(time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs), "flushed run must not fire again")
}

func TestDebouncer_Stop(t *testing.T) {
	c := clock.NewManual(morning)
	var runs int32
	d := NewDebouncer(c, DefaultSaveDelay, func() { atomic.AddInt32(&runs, 1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	c.Advance(time.Second)

	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
	assert.Equal(t, 0, c.Pending())
}

func TestDebouncer_FlushWaitsForRunInProgress(t *testing.T) {
	c := clock.NewManual(morning)
	started := make(chan struct{})
	release := make(chan struct{})
	var runs int32
	d := NewDebouncer(c, DefaultSaveDelay, func() {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
	})

	d.Trigger()
	go c.Advance(DefaultSaveDelay)
	<-started
	assert.False(t, d.Pending())

	flushed := make(chan bool)
	go func() { flushed <- d.Flush() }()

	select {
	case <-flushed:
		t.Fatal("Flush returned while a run was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case ran := <-flushed:
		assert.False(t, ran)
	case <-time.After(time.Second):
		t.Fatal("Flush did not return after the run finished")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}
