package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_ReturnsUTC(t *testing.T) {
	now := System{}.Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestFixed_NormalisesToUTC(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	local := time.Date(2026, 3, 1, 10, 0, 0, 0, paris)
	c := NewFixed(local)

	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(local))
}

func TestFixed_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start.Add(time.Hour), c.Advance(time.Hour))
	assert.Equal(t, start.Add(time.Hour), c.Now())

	later := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestFixed_ThreadSafe(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(goroutines*time.Second), c.Now())
}
