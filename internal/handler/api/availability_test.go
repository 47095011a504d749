//go:build unit

package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"tourops-engine/internal/handler/api"
	resdto "tourops-engine/internal/handler/dto/response"
	"tourops-engine/internal/usecase/queries"
	queriesmock "tourops-engine/tests/mock/queries"

	"tourops-engine/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AvailabilityHandlerTestSuite struct {
	suite.Suite
	router              *gin.Engine
	ctrl                *gomock.Controller
	availabilityQueries *queriesmock.MockAvailabilityQueries
}

func (s *AvailabilityHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctrl = gomock.NewController(s.T())
	s.availabilityQueries = queriesmock.NewMockAvailabilityQueries(s.ctrl)

	handler := api.NewAvailabilityHandler(s.availabilityQueries)

	s.router = gin.New()
	s.router.GET("/api/availability", handler.CheckAvailability)
}

func (s *AvailabilityHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAvailabilityHandlerSuite(t *testing.T) {
	suite.Run(t, new(AvailabilityHandlerTestSuite))
}

func availabilityURL(resourceID uuid.UUID) string {
	return fmt.Sprintf(
		"/api/availability?resource_type=driver&resource_id=%s&start=2026-06-03T08:00:00Z&end=2026-06-03T14:00:00Z",
		resourceID,
	)
}

func (s *AvailabilityHandlerTestSuite) TestCheckAvailability() {
	s.Run("clear window returns available", func() {
		resourceID := uuid.New()
		s.availabilityQueries.EXPECT().
			Check(gomock.Any(), queries.AvailabilityInput{
				ResourceType: "driver",
				ResourceID:   resourceID,
				Start:        time.Date(2026, 6, 3, 8, 0, 0, 0, time.UTC),
				End:          time.Date(2026, 6, 3, 14, 0, 0, 0, time.UTC),
			}).
			Return(&queries.AvailabilityView{
				Available: true,
				Resources: []queries.ResourceAvailabilityView{
					{ResourceType: "driver", ResourceID: resourceID, Available: true},
				},
			}, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityURL(resourceID), nil, nil)

		var resp resdto.AvailabilityResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.True(resp.Available)
		s.Require().Len(resp.Resources, 1)
		s.Empty(resp.Resources[0].Conflicts)
	})

	s.Run("conflicting window enumerates the holds", func() {
		resourceID := uuid.New()
		s.availabilityQueries.EXPECT().
			Check(gomock.Any(), gomock.Any()).
			Return(&queries.AvailabilityView{
				Available: false,
				Resources: []queries.ResourceAvailabilityView{
					{
						ResourceType: "driver",
						ResourceID:   resourceID,
						Available:    false,
						Conflicts: []queries.IntervalView{
							{
								BookingID:    uuid.New(),
								ResourceType: "driver",
								ResourceID:   resourceID,
								StartAt:      time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC),
								EndAt:        time.Date(2026, 6, 3, 16, 0, 0, 0, time.UTC),
							},
						},
					},
				},
			}, nil).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, availabilityURL(resourceID), nil, nil)

		var resp resdto.AvailabilityResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &resp)
		s.False(resp.Available)
		s.Require().Len(resp.Resources, 1)
		s.Len(resp.Resources[0].Conflicts, 1)
	})

	s.Run("malformed resource id returns 400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/availability?resource_type=driver&resource_id=nope&start=2026-06-03T08:00:00Z&end=2026-06-03T14:00:00Z",
			nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid resource_id")
	})

	s.Run("malformed start time returns 400", func() {
		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			fmt.Sprintf("/api/availability?resource_type=driver&resource_id=%s&start=yesterday&end=2026-06-03T14:00:00Z", uuid.New()),
			nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid start time")
	})

	s.Run("inverted window returns 400", func() {
		s.availabilityQueries.EXPECT().
			Check(gomock.Any(), gomock.Any()).
			Return(nil, queries.ErrInvalidWindow).
			Times(1)

		w := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			fmt.Sprintf("/api/availability?resource_type=driver&resource_id=%s&start=2026-06-03T14:00:00Z&end=2026-06-03T08:00:00Z", uuid.New()),
			nil, nil)
		httptest.AssertErrorResponse(s.T(), w, http.StatusBadRequest, "Invalid availability window")
	})
}
