//go:build e2e

package booking_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"tourops-engine/internal/handler/dto/response"
	"tourops-engine/tests/common/dbtest"
	"tourops-engine/tests/common/httptest"
	"tourops-engine/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL     = "/api/bookings"
	previewURL      = "/api/bookings/preview"
	availabilityURL = "/api/availability"
)

// fixed future dates so weekend and holiday pricing stays deterministic
var (
	weekdayStart = time.Date(2027, 6, 2, 15, 0, 0, 0, time.UTC)  // Wednesday
	weekendStart = time.Date(2027, 6, 5, 15, 0, 0, 0, time.UTC)  // Saturday
	holidayStart = time.Date(2026, 12, 25, 15, 0, 0, 0, time.UTC) // Friday, seeded holiday
)

type BookingSuite struct {
	e2e.SharedSuite
}

func (s *BookingSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

func submitBody(start time.Time, durationMin int, driverID, vehicleID *uuid.UUID) map[string]any {
	body := map[string]any{
		"start":        start.Format(time.RFC3339),
		"duration_min": durationMin,
		"party_size":   4,
		"service_type": "tour",
	}
	if driverID != nil {
		body["driver_id"] = driverID.String()
	}
	if vehicleID != nil {
		body["vehicle_id"] = vehicleID.String()
	}
	return body
}

func idempotency(key uuid.UUID) map[string]string {
	return map[string]string{"Idempotency-Key": key.String()}
}

func (s *BookingSuite) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	err := s.DB.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}

// =============================================================================
// TestSubmitBooking - Booking submission API tests
// =============================================================================

func (s *BookingSuite) TestSubmitBooking() {
	s.Run("Normal case: Weekday booking is priced and confirmed", func() {
		t := s.T()
		driverID := uuid.New()
		vehicleID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, &vehicleID), idempotency(uuid.New()))

		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
		require.Equal(t, "confirmed", created.Status)
		require.Equal(t, int32(1), created.CurrentQuoteVersion)
		require.Equal(t, int32(dbtest.RateTableVersion), created.Quote.RateTableVersion)
		require.Equal(t, int64(100_000), created.Quote.TourServicesSubtotal)
		require.Equal(t, int64(8_900), created.Quote.TaxAmount)
		require.Equal(t, int64(108_900), created.Quote.Total)
		require.Equal(t, int64(25_000), created.Quote.DepositAmount)

		// one interval per requested resource
		require.Equal(t, 2, s.countRows(t, "resource_intervals"))

		dw := httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL+"/"+created.ID.String(), nil, nil)
		var fetched response.BookingResponse
		httptest.AssertSuccessResponse(t, dw, http.StatusOK, &fetched)
		require.Equal(t, created.ID, fetched.ID)
		require.Equal(t, created.Quote.Total, fetched.Quote.Total)

		hw := httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL+"/"+created.ID.String()+"/quotes", nil, nil)
		var history []response.QuoteVersionResponse
		httptest.AssertSuccessResponse(t, hw, http.StatusOK, &history)
		require.Len(t, history, 1)
		require.Equal(t, "initial quote", history[0].Reason)
	})

	s.Run("Normal case: Weekend surcharge shows up in the stored quote", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekendStart, 360, &driverID, nil), idempotency(uuid.New()))

		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
		require.Equal(t, int64(115_000), created.Quote.TourServicesSubtotal)
		require.Equal(t, int64(10_235), created.Quote.TaxAmount)
		require.Equal(t, int64(125_235), created.Quote.Total)
	})

	s.Run("Normal case: Holiday surcharge applies on seeded holidays", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(holidayStart, 360, &driverID, nil), idempotency(uuid.New()))

		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
		require.Equal(t, int64(110_000), created.Quote.TourServicesSubtotal)
		require.Equal(t, int64(119_790), created.Quote.Total)
	})

	s.Run("Normal case: Replay with the same key returns the stored booking", func() {
		t := s.T()
		driverID := uuid.New()
		key := uuid.New()
		body := submitBody(weekdayStart, 360, &driverID, nil)

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL, body, idempotency(key))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, first, http.StatusCreated, &created)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL, body, idempotency(key))
		var replayed response.BookingResponse
		httptest.AssertSuccessResponse(t, second, http.StatusOK, &replayed)
		require.Equal(t, created.ID, replayed.ID)

		require.Equal(t, 1, s.countRows(t, "bookings"))
	})

	s.Run("Error case: Same key with different parameters is rejected", func() {
		t := s.T()
		driverID := uuid.New()
		key := uuid.New()

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(key))
		require.Equal(t, http.StatusCreated, first.Code)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 480, &driverID, nil), idempotency(key))
		httptest.AssertErrorResponse(t, second, http.StatusConflict, "Duplicate submission")
	})

	s.Run("Error case: Missing Idempotency-Key is rejected", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), nil)
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Idempotency-Key")
	})

	s.Run("Error case: Off-quantum duration is rejected without touching the store", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 100, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, 0, s.countRows(t, "bookings"))
	})
}

// =============================================================================
// TestBookingConflicts - Overlap and turnaround buffer behavior
// =============================================================================

func (s *BookingSuite) TestBookingConflicts() {
	s.Run("Error case: Overlapping window on the same driver returns 409 with detail", func() {
		t := s.T()
		driverID := uuid.New()

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, first.Code)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart.Add(2*time.Hour), 360, &driverID, nil), idempotency(uuid.New()))
		httptest.AssertErrorResponse(t, second, http.StatusConflict, "not available")

		var body struct {
			Detail []response.ResourceAvailabilityResponse `json:"detail"`
		}
		require.NoError(t, httptest.DecodeResponseBody(t, second.Body, &body))
		require.Len(t, body.Detail, 1)
		require.Equal(t, "driver", body.Detail[0].ResourceType)
		require.Equal(t, driverID, body.Detail[0].ResourceID)
		require.NotEmpty(t, body.Detail[0].Conflicts)

		require.Equal(t, 1, s.countRows(t, "bookings"))
	})

	s.Run("Error case: Back-to-back booking violates the turnaround buffer", func() {
		t := s.T()
		driverID := uuid.New()

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, first.Code)

		// starts exactly when the first ends; the 30 minute buffer still blocks it
		touching := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart.Add(6*time.Hour), 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusConflict, touching.Code)

		// one full buffer later it clears
		cleared := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart.Add(6*time.Hour+30*time.Minute), 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, cleared.Code)
	})

	s.Run("Normal case: Different resources never conflict", func() {
		t := s.T()
		driverA := uuid.New()
		driverB := uuid.New()

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverA, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, first.Code)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverB, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, second.Code)
	})

	s.Run("Concurrency: One driver, many racing submissions, exactly one wins", func() {
		t := s.T()
		driverID := uuid.New()

		const racers = 20
		codes := make(chan int, racers)
		var wg sync.WaitGroup
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
					submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
				codes <- w.Code
			}()
		}
		wg.Wait()
		close(codes)

		created, conflicted := 0, 0
		for code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicted++
			default:
				t.Errorf("unexpected status %d", code)
			}
		}
		require.Equal(t, 1, created, "exactly one submission may win the window")
		require.Equal(t, racers-1, conflicted)
		require.Equal(t, 1, s.countRows(t, "resource_intervals"))
	})
}

// =============================================================================
// TestEditBooking - Reschedule and repricing tests
// =============================================================================

func (s *BookingSuite) TestEditBooking() {
	s.Run("Normal case: Edit reprices and appends a quote version", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)

		ew := httptest.PerformRequest(t, s.Router, http.MethodPut, bookingsURL+"/"+created.ID.String(),
			submitBody(weekdayStart, 480, &driverID, nil), nil)
		var edited response.BookingResponse
		httptest.AssertSuccessResponse(t, ew, http.StatusOK, &edited)
		require.Equal(t, int32(2), edited.CurrentQuoteVersion)
		require.Equal(t, int64(120_000), edited.Quote.TourServicesSubtotal)
		require.Equal(t, int64(130_680), edited.Quote.Total)

		hw := httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL+"/"+created.ID.String()+"/quotes", nil, nil)
		var history []response.QuoteVersionResponse
		httptest.AssertSuccessResponse(t, hw, http.StatusOK, &history)
		require.Len(t, history, 2)
		require.Equal(t, "initial quote", history[0].Reason)
		require.Equal(t, int64(108_900), history[0].Quote.Total)
		require.Equal(t, "booking edited", history[1].Reason)
	})

	s.Run("Normal case: Edit can move within its own old window", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)

		// shift one hour into the window this booking already holds
		ew := httptest.PerformRequest(t, s.Router, http.MethodPut, bookingsURL+"/"+created.ID.String(),
			submitBody(weekdayStart.Add(time.Hour), 360, &driverID, nil), nil)
		require.Equal(t, http.StatusOK, ew.Code, "booking must not conflict with itself: %s", ew.Body.String())
	})

	s.Run("Error case: Edit into another booking's window conflicts", func() {
		t := s.T()
		driverID := uuid.New()

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, first.Code)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart.Add(12*time.Hour), 360, &driverID, nil), idempotency(uuid.New()))
		var second response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &second)

		ew := httptest.PerformRequest(t, s.Router, http.MethodPut, bookingsURL+"/"+second.ID.String(),
			submitBody(weekdayStart, 360, &driverID, nil), nil)
		require.Equal(t, http.StatusConflict, ew.Code)

		// the losing edit keeps its original quote version
		dw := httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL+"/"+second.ID.String(), nil, nil)
		var fetched response.BookingResponse
		httptest.AssertSuccessResponse(t, dw, http.StatusOK, &fetched)
		require.Equal(t, int32(1), fetched.CurrentQuoteVersion)
	})

	s.Run("Error case: Editing an unknown booking returns 404", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPut, bookingsURL+"/"+uuid.New().String(),
			submitBody(weekdayStart, 360, &driverID, nil), nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// =============================================================================
// TestCancelBooking - Cancellation and hold release tests
// =============================================================================

func (s *BookingSuite) TestCancelBooking() {
	s.Run("Normal case: Cancel releases holds but keeps the quote ledger", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)

		cw := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL+"/"+created.ID.String()+"/cancel", nil, nil)
		var cancelled response.BookingResponse
		httptest.AssertSuccessResponse(t, cw, http.StatusOK, &cancelled)
		require.Equal(t, "cancelled", cancelled.Status)

		require.Equal(t, 0, s.countRows(t, "resource_intervals"))
		require.Equal(t, 1, s.countRows(t, "quote_versions"))

		// the freed window is bookable again
		rw := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, rw.Code)
	})

	s.Run("Normal case: Cancel is idempotent", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL+"/"+created.ID.String()+"/cancel", nil, nil)
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL+"/"+created.ID.String()+"/cancel", nil, nil)
		require.Equal(t, http.StatusOK, second.Code)
	})

	s.Run("Error case: Cancelled booking cannot be edited", func() {
		t := s.T()
		driverID := uuid.New()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		var created response.BookingResponse
		httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)

		cw := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL+"/"+created.ID.String()+"/cancel", nil, nil)
		require.Equal(t, http.StatusOK, cw.Code)

		ew := httptest.PerformRequest(t, s.Router, http.MethodPut, bookingsURL+"/"+created.ID.String(),
			submitBody(weekdayStart, 480, &driverID, nil), nil)
		httptest.AssertErrorResponse(t, ew, http.StatusConflict, "cancelled")
	})
}

// =============================================================================
// TestPreviewAndAvailability - Read-only surface tests
// =============================================================================

func (s *BookingSuite) TestPreviewAndAvailability() {
	s.Run("Normal case: Preview prices without persisting anything", func() {
		t := s.T()

		body := map[string]any{
			"start":        weekendStart.Format(time.RFC3339),
			"duration_min": 360,
			"party_size":   10,
			"add_ons":      []string{"winery_stop"},
		}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, previewURL, body, nil)

		var quote response.QuoteResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &quote)
		require.Equal(t, int32(dbtest.RateTableVersion), quote.RateTableVersion)
		// (100000 + 6*7500) * 1.15 = 166750, minus 10% large-group discount,
		// plus the flat winery stop fee
		require.Equal(t, int64(155_075), quote.Quote.TourServicesSubtotal)
		// tasting fees for 10 guests plus one estimated meal each
		require.Equal(t, int64(60_000), quote.Quote.TBDEstimate)

		require.Equal(t, 0, s.countRows(t, "bookings"))
		require.Equal(t, 0, s.countRows(t, "quote_versions"))
	})

	s.Run("Normal case: Availability reflects committed holds", func() {
		t := s.T()
		driverID := uuid.New()

		url := fmt.Sprintf("%s?resource_type=driver&resource_id=%s&start=%s&end=%s",
			availabilityURL, driverID,
			weekdayStart.Format(time.RFC3339),
			weekdayStart.Add(6*time.Hour).Format(time.RFC3339))

		before := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, nil)
		var free response.AvailabilityResponse
		httptest.AssertSuccessResponse(t, before, http.StatusOK, &free)
		require.True(t, free.Available)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			submitBody(weekdayStart, 360, &driverID, nil), idempotency(uuid.New()))
		require.Equal(t, http.StatusCreated, w.Code)

		after := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, nil)
		var held response.AvailabilityResponse
		httptest.AssertSuccessResponse(t, after, http.StatusOK, &held)
		require.False(t, held.Available)
		require.Len(t, held.Resources, 1)
		require.NotEmpty(t, held.Resources[0].Conflicts)
	})
}
