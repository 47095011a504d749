package api

import (
	"net/http"
	"time"

	resdto "tourops-engine/internal/handler/dto/response"
	"tourops-engine/internal/handler/httperr"
	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AvailabilityHandler struct {
	availabilityQueries queries.AvailabilityQueries
}

func NewAvailabilityHandler(availabilityQueries queries.AvailabilityQueries) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityQueries: availabilityQueries}
}

// CheckAvailability answers "is this resource free for this window" from
// committed state. The verdict is advisory; submission re-checks atomically.
func (h *AvailabilityHandler) CheckAvailability(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Query("resource_id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid resource_id", nil)
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid start time, expected RFC3339", nil)
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid end time, expected RFC3339", nil)
		return
	}

	view, err := h.availabilityQueries.Check(c.Request.Context(), queries.AvailabilityInput{
		ResourceType: c.Query("resource_type"),
		ResourceID:   resourceID,
		Start:        start,
		End:          end,
	})
	if err != nil {
		switch {
		case errs.Is(err, queries.ErrInvalidWindow):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid availability window", nil)
		case errs.Is(err, queries.ErrQueryFailed):
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		default:
			httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		}
		return
	}
	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}
