package clock_test

import (
	"testing"
	"time"

	"github.com/datapipe-project/datapipe/pkg/clock"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestReal(t *testing.T) {
	before := time.Now()
	got := clock.Real().Now()
	assert.False(t, got.Before(before))
}

func TestFakeClockNow(t *testing.T) {
	c := clock.Fake(epoch)
	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch, c.Now(), "no step means time stands still")
}

func TestFakeClockAdvanceAndSet(t *testing.T) {
	c := clock.Fake(epoch)
	c.Advance(90 * time.Second)
	assert.Equal(t, epoch.Add(90*time.Second), c.Now())

	later := epoch.Add(24 * time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestFakeClockStep(t *testing.T) {
	c := clock.Fake(epoch)
	c.SetStep(time.Millisecond)

	first := c.Now()
	second := c.Now()
	third := c.Now()

	assert.Equal(t, epoch, first)
	assert.Equal(t, epoch.Add(time.Millisecond), second)
	assert.Equal(t, epoch.Add(2*time.Millisecond), third)
}
