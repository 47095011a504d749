//go:build unit

package schedule_test

import (
	"testing"
	"time"

	"tourops-engine/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker(t *testing.T) {
	driver := schedule.ResourceRef{Type: schedule.ResourceDriver, ID: uuid.New()}
	checker := schedule.NewChecker(30 * time.Minute)

	t.Run("clear resource is available", func(t *testing.T) {
		verdict := checker.Check(driver, []schedule.Interval{interval(t, 6, 8)}, window(t, 10, 14), uuid.Nil)
		assert.True(t, verdict.Available)
		assert.Empty(t, verdict.Conflicts)
	})

	t.Run("conflicting hold is enumerated", func(t *testing.T) {
		hold := interval(t, 10, 12)
		verdict := checker.Check(driver, []schedule.Interval{hold}, window(t, 11, 15), uuid.Nil)
		assert.False(t, verdict.Available)
		require.Len(t, verdict.Conflicts, 1)
		assert.Equal(t, hold.BookingID, verdict.Conflicts[0].BookingID)
	})

	t.Run("a booking never conflicts with its own hold", func(t *testing.T) {
		hold := interval(t, 10, 12)
		verdict := checker.Check(driver, []schedule.Interval{hold}, window(t, 10, 12), hold.BookingID)
		assert.True(t, verdict.Available)
	})

	t.Run("other bookings still conflict when one is excluded", func(t *testing.T) {
		mine := interval(t, 10, 12)
		other := interval(t, 13, 15)
		verdict := checker.Check(driver, []schedule.Interval{mine, other}, window(t, 11, 14), mine.BookingID)
		assert.False(t, verdict.Available)
		require.Len(t, verdict.Conflicts, 1)
		assert.Equal(t, other.BookingID, verdict.Conflicts[0].BookingID)
	})

	t.Run("negative buffer is treated as zero", func(t *testing.T) {
		c := schedule.NewChecker(-time.Hour)
		assert.Equal(t, time.Duration(0), c.Buffer)
	})

	t.Run("CheckAll requires every resource to be clear", func(t *testing.T) {
		vehicle := schedule.ResourceRef{Type: schedule.ResourceVehicle, ID: uuid.New()}

		clear := checker.Check(driver, nil, window(t, 9, 12), uuid.Nil)
		blocked := checker.Check(vehicle, []schedule.Interval{interval(t, 9, 12)}, window(t, 9, 12), uuid.Nil)

		result := checker.CheckAll(clear, blocked)
		assert.False(t, result.Available)
		require.Len(t, result.Resources, 2)
		assert.True(t, result.Resources[0].Available)
		assert.False(t, result.Resources[1].Available)
		assert.Len(t, result.ConflictsFor(vehicle), 1)

		allClear := checker.CheckAll(clear)
		assert.True(t, allClear.Available)
	})
}
