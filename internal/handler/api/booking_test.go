//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/handler/api"
	resdto "tourops-engine/internal/handler/dto/response"
	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/commands"
	"tourops-engine/internal/usecase/queries"
	commandsmock "tourops-engine/tests/mock/commands"
	queriesmock "tourops-engine/tests/mock/queries"

	"tourops-engine/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BookingHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	ctrl            *gomock.Controller
	bookingCommands *commandsmock.MockBookingCommands
	bookingQueries  *queriesmock.MockBookingQueries
	pricingQueries  *queriesmock.MockPricingQueries
}

func (s *BookingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctrl = gomock.NewController(s.T())
	s.bookingCommands = commandsmock.NewMockBookingCommands(s.ctrl)
	s.bookingQueries = queriesmock.NewMockBookingQueries(s.ctrl)
	s.pricingQueries = queriesmock.NewMockPricingQueries(s.ctrl)

	handler := api.NewBookingHandler(s.bookingCommands, s.bookingQueries, s.pricingQueries)

	s.router = gin.New()
	bookings := s.router.Group("/api/bookings")
	bookings.POST("", handler.SubmitBooking)
	bookings.POST("/preview", handler.PreviewPrice)
	bookings.GET("/:id", handler.GetBooking)
	bookings.PUT("/:id", handler.EditBooking)
	bookings.POST("/:id/cancel", handler.CancelBooking)
	bookings.GET("/:id/quotes", handler.GetQuoteHistory)
}

func (s *BookingHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestBookingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

func sampleBookingView() *queries.BookingView {
	driverID := uuid.New()
	vehicleID := uuid.New()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return &queries.BookingView{
		ID:                  uuid.New(),
		Status:              "confirmed",
		ServiceType:         "tour",
		StartAt:             now.Add(48 * time.Hour),
		DurationMin:         360,
		PartySize:           4,
		DriverID:            &driverID,
		VehicleID:           &vehicleID,
		AddOns:              []string{},
		CurrentQuoteVersion: 1,
		Quote: pricing.QuoteCents{
			RateTableVersion:     3,
			TourServicesSubtotal: 100_000,
			TaxAmount:            8_900,
			Total:                108_900,
			DepositAmount:        25_000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func submitBody() map[string]any {
	return map[string]any{
		"start":        "2026-06-03T08:00:00Z",
		"duration_min": 360,
		"party_size":   4,
		"service_type": "tour",
		"driver_id":    uuid.New().String(),
	}
}

func idempotencyHeader(key uuid.UUID) map[string]string {
	return map[string]string{"Idempotency-Key": key.String()}
}

func (s *BookingHandlerTestSuite) TestSubmitBooking() {
	s.Run("fresh submission returns 201", func() {
		view := sampleBookingView()
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(&commands.SubmitBookingResult{Booking: view, IsReplayed: false}, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))

		var resp resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusCreated, &resp)
		s.Equal(view.ID, resp.ID)
		s.Equal("confirmed", resp.Status)
		s.Equal(int64(108_900), resp.Quote.Total)
	})

	s.Run("replayed submission returns 200", func() {
		view := sampleBookingView()
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(&commands.SubmitBookingResult{Booking: view, IsReplayed: true}, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))

		var resp resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Equal(view.ID, resp.ID)
	})

	s.Run("missing idempotency key returns 400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Idempotency-Key")
	})

	s.Run("malformed idempotency key returns 400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(),
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "idempotency key")
	})

	s.Run("malformed body returns 400", func() {
		body := submitBody()
		delete(body, "party_size")
		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", body, idempotencyHeader(uuid.New()))
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid request format")
	})

	s.Run("resource conflict returns 409 with per-resource detail", func() {
		key := uuid.New()
		driverID := uuid.New()
		conflictErr := &commands.ConflictError{
			Resources: []queries.ResourceAvailabilityView{
				{
					ResourceType: "driver",
					ResourceID:   driverID,
					Available:    false,
					Conflicts: []queries.IntervalView{
						{
							BookingID:    uuid.New(),
							ResourceType: "driver",
							ResourceID:   driverID,
							StartAt:      time.Date(2026, 6, 3, 8, 0, 0, 0, time.UTC),
							EndAt:        time.Date(2026, 6, 3, 14, 0, 0, 0, time.UTC),
						},
					},
				},
			},
		}
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, conflictErr).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "not available")

		var body struct {
			Detail []resdto.ResourceAvailabilityResponse `json:"detail"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Require().Len(body.Detail, 1)
		s.Equal("driver", body.Detail[0].ResourceType)
		s.Equal(driverID, body.Detail[0].ResourceID)
		s.False(body.Detail[0].Available)
		s.Len(body.Detail[0].Conflicts, 1)
	})

	s.Run("duplicate submission with different parameters returns 409", func() {
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, commands.ErrDuplicateSubmission).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "Duplicate submission")
	})

	s.Run("in-flight submission returns 409", func() {
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, commands.ErrIdempotencyInProgress).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "currently being processed")
	})

	s.Run("domain validation failure returns 422", func() {
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, commands.ErrValidation).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusUnprocessableEntity, "")
	})

	s.Run("marked validation failure returns 422", func() {
		key := uuid.New()
		// usecases attach sentinels with errs.Mark, which keeps them out
		// of the stdlib Unwrap chain
		err := errs.Mark(errs.New("duration must be a multiple of 30 minutes"), commands.ErrValidation)
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, err).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusUnprocessableEntity, "")
	})

	s.Run("marked conflict from the storage backstop returns 409", func() {
		key := uuid.New()
		err := errs.Mark(errs.New("overlapping span"), commands.ErrBookingConflict)
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, err).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "Requested resources are not available")
	})

	s.Run("rate table unavailable returns 503", func() {
		key := uuid.New()
		s.bookingCommands.EXPECT().
			Submit(gomock.Any(), gomock.Any(), key).
			Return(nil, commands.ErrRateTableUnavailable).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings", submitBody(), idempotencyHeader(key))
		httptest.AssertErrorResponse(s.T(), w, http.StatusServiceUnavailable, "Pricing is unavailable")
	})
}

func (s *BookingHandlerTestSuite) TestGetBooking() {
	s.Run("found booking returns 200", func() {
		view := sampleBookingView()
		s.bookingQueries.EXPECT().
			GetByID(gomock.Any(), view.ID).
			Return(view, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+view.ID.String(), nil, nil)

		var resp resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Equal(view.ID, resp.ID)
		s.Equal(int32(1), resp.CurrentQuoteVersion)
	})

	s.Run("unknown booking returns 404", func() {
		id := uuid.New()
		s.bookingQueries.EXPECT().
			GetByID(gomock.Any(), id).
			Return(nil, queries.ErrBookingNotFound).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+id.String(), nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "Booking not found")
	})

	s.Run("malformed id returns 400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/not-a-uuid", nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid booking ID")
	})
}

func (s *BookingHandlerTestSuite) TestEditBooking() {
	s.Run("successful edit returns the repriced booking", func() {
		view := sampleBookingView()
		view.CurrentQuoteVersion = 2
		s.bookingCommands.EXPECT().
			Edit(gomock.Any(), view.ID, gomock.Any()).
			Return(view, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPut, "/api/bookings/"+view.ID.String(), submitBody(), nil)

		var resp resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Equal(int32(2), resp.CurrentQuoteVersion)
	})

	s.Run("editing a cancelled booking returns 409", func() {
		id := uuid.New()
		s.bookingCommands.EXPECT().
			Edit(gomock.Any(), id, gomock.Any()).
			Return(nil, commands.ErrBookingCancelled).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPut, "/api/bookings/"+id.String(), submitBody(), nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusConflict, "cancelled")
	})

	s.Run("editing an unknown booking returns 404", func() {
		id := uuid.New()
		s.bookingCommands.EXPECT().
			Edit(gomock.Any(), id, gomock.Any()).
			Return(nil, commands.ErrBookingNotFound).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPut, "/api/bookings/"+id.String(), submitBody(), nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "Booking not found")
	})
}

func (s *BookingHandlerTestSuite) TestCancelBooking() {
	s.Run("cancel returns the released booking", func() {
		view := sampleBookingView()
		view.Status = "cancelled"
		s.bookingCommands.EXPECT().
			Cancel(gomock.Any(), view.ID).
			Return(view, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/"+view.ID.String()+"/cancel", nil, nil)

		var resp resdto.BookingResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Equal("cancelled", resp.Status)
	})
}

func (s *BookingHandlerTestSuite) TestGetQuoteHistory() {
	s.Run("history lists versions in order", func() {
		id := uuid.New()
		history := []*queries.QuoteVersionView{
			{Version: 1, Reason: "initial quote", Quote: pricing.QuoteCents{Total: 108_900}},
			{Version: 2, Reason: "booking edited", Quote: pricing.QuoteCents{Total: 125_235}},
		}
		s.bookingQueries.EXPECT().
			GetQuoteHistory(gomock.Any(), id).
			Return(history, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+id.String()+"/quotes", nil, nil)

		var resp []resdto.QuoteVersionResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Require().Len(resp, 2)
		s.Equal(int32(1), resp[0].Version)
		s.Equal("initial quote", resp[0].Reason)
		s.Equal(int64(125_235), resp[1].Quote.Total)
	})

	s.Run("unknown booking returns 404", func() {
		id := uuid.New()
		s.bookingQueries.EXPECT().
			GetQuoteHistory(gomock.Any(), id).
			Return(nil, queries.ErrBookingNotFound).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/bookings/"+id.String()+"/quotes", nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusNotFound, "Booking not found")
	})
}

func (s *BookingHandlerTestSuite) TestPreviewPrice() {
	previewBody := func() map[string]any {
		return map[string]any{
			"start":        "2026-06-03T08:00:00Z",
			"duration_min": 360,
			"party_size":   4,
		}
	}

	s.Run("preview returns the quote without persisting", func() {
		quote := &pricing.Quote{
			RateTableVersion:     3,
			TourServicesSubtotal: pricing.Cents(100_000),
			TaxAmount:            pricing.Cents(8_900),
			Total:                pricing.Cents(108_900),
			DepositAmount:        pricing.Cents(25_000),
		}
		s.pricingQueries.EXPECT().
			PricePreview(gomock.Any(), gomock.Any()).
			Return(quote, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/preview", previewBody(), nil)

		var resp resdto.QuoteResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.Equal(int32(3), resp.RateTableVersion)
		s.Equal(int64(108_900), resp.Quote.Total)
		s.Equal(int64(25_000), resp.Quote.DepositAmount)
	})

	s.Run("domain pricing rejection returns 422", func() {
		s.pricingQueries.EXPECT().
			PricePreview(gomock.Any(), gomock.Any()).
			Return(nil, pricing.ErrUnknownAddOn).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/preview", previewBody(), nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusUnprocessableEntity, "")
	})

	s.Run("missing rate table returns 503", func() {
		s.pricingQueries.EXPECT().
			PricePreview(gomock.Any(), gomock.Any()).
			Return(nil, queries.ErrRateTableUnavailable).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/bookings/preview", previewBody(), nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusServiceUnavailable, "Pricing is unavailable")
	})
}
