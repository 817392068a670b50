package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makePollTestFn[V any](initialValue, finalValue V, countBeforeFinalValue int) func() V {
	counter := 0
	return func() V {
		counter++
		if counter <= countBeforeFinalValue {
			return initialValue
		}
		return finalValue
	}
}

func TestPollForSpecificResultValue(t *testing.T) {
	t.Run("value is seen immediately", func(t *testing.T) {
		assert.True(t, PollForSpecificResultValue(makePollTestFn("a", "b", 0), time.Millisecond, time.Hour, "b"))
	})

	t.Run("value is seen", func(t *testing.T) {
		assert.True(t, PollForSpecificResultValue(makePollTestFn("a", "b", 1), time.Second, time.Millisecond, "b"))
	})

	t.Run("value is not seen", func(t *testing.T) {
		assert.False(t, PollForSpecificResultValue(makePollTestFn("a", "b", 100), time.Millisecond*10, time.Millisecond, "b"))
	})
}
