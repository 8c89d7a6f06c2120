package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	t.Run("Should accept standard, seconds and descriptor forms", func(t *testing.T) {
		for _, expr := range []string{"*/5 * * * *", "0 */5 * * * *", "@daily", "@every 1m"} {
			_, err := ParseSchedule(expr, "")
			assert.NoError(t, err, expr)
		}
	})
	t.Run("Should reject malformed expressions", func(t *testing.T) {
		for _, expr := range []string{"", "not a cron", "61 * * * *", "CRON_TZ=UTC * * * * *"} {
			_, err := ParseSchedule(expr, "")
			assert.Error(t, err, expr)
		}
	})
	t.Run("Should reject unknown timezones", func(t *testing.T) {
		_, err := ParseSchedule("0 9 * * *", "Mars/Olympus")
		assert.ErrorContains(t, err, "invalid timezone")
	})
	t.Run("Should evaluate in UTC by default", func(t *testing.T) {
		sched, err := ParseSchedule("0 9 * * *", "")
		require.NoError(t, err)
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), sched.Next(from).UTC())
	})
	t.Run("Should evaluate in the configured timezone", func(t *testing.T) {
		sched, err := ParseSchedule("0 9 * * *", "America/New_York")
		require.NoError(t, err)
		from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		// 09:00 EST is 14:00 UTC.
		assert.Equal(t, time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC), sched.Next(from).UTC())
	})
}
