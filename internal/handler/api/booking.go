package api

import (
	"errors"
	"net/http"

	reqdto "tourops-engine/internal/handler/dto/request"
	resdto "tourops-engine/internal/handler/dto/response"
	"tourops-engine/internal/handler/httperr"
	"tourops-engine/internal/pkg/errs"
	"tourops-engine/internal/usecase/commands"
	"tourops-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errIdempotencyKeyRequired = errors.New("Idempotency-Key header is required")

type BookingHandler struct {
	bookingCommands commands.BookingCommands
	bookingQueries  queries.BookingQueries
	pricingQueries  queries.PricingQueries
}

func NewBookingHandler(
	bookingCommands commands.BookingCommands,
	bookingQueries queries.BookingQueries,
	pricingQueries queries.PricingQueries,
) *BookingHandler {
	return &BookingHandler{
		bookingCommands: bookingCommands,
		bookingQueries:  bookingQueries,
		pricingQueries:  pricingQueries,
	}
}

func (h *BookingHandler) SubmitBooking(c *gin.Context) {
	idempotencyKey, err := getIdempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		return
	}

	var req reqdto.SubmitBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	result, err := h.bookingCommands.Submit(c.Request.Context(), req.ToInput(), idempotencyKey)
	if err != nil {
		h.abortWithCommandError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromBookingView(result.Booking))
}

func (h *BookingHandler) PreviewPrice(c *gin.Context) {
	var req reqdto.PricePreviewRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	quote, err := h.pricingQueries.PricePreview(c.Request.Context(), req.ToInput())
	if err != nil {
		h.abortWithPricingError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromQuote(quote))
}

func (h *BookingHandler) EditBooking(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid booking ID format", nil)
		return
	}

	var req reqdto.SubmitBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	view, err := h.bookingCommands.Edit(c.Request.Context(), id, req.ToInput())
	if err != nil {
		h.abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid booking ID format", nil)
		return
	}

	view, err := h.bookingCommands.Cancel(c.Request.Context(), id)
	if err != nil {
		h.abortWithCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid booking ID format", nil)
		return
	}

	view, err := h.bookingQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		h.abortWithQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

func (h *BookingHandler) GetQuoteHistory(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid booking ID format", nil)
		return
	}

	history, err := h.bookingQueries.GetQuoteHistory(c.Request.Context(), id)
	if err != nil {
		h.abortWithQueryError(c, err)
		return
	}

	resp := make([]*resdto.QuoteVersionResponse, len(history))
	for i, qv := range history {
		resp[i] = resdto.FromQuoteVersionView(qv)
	}
	c.JSON(http.StatusOK, resp)
}

// Usecase errors arrive either wrapped or marked (errs.Mark), so matching
// goes through errs.Is rather than the stdlib chain walk.
func (h *BookingHandler) abortWithCommandError(c *gin.Context, err error) {
	var conflictErr *commands.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		httperr.AbortWithError(c, http.StatusConflict, err,
			"Requested resources are not available", resdto.ConflictDetail(conflictErr.Resources))
	case errs.Is(err, commands.ErrBookingConflict):
		httperr.AbortWithError(c, http.StatusConflict, err, "Requested resources are not available", nil)
	case errs.IsAny(err, commands.ErrBookingNotFound, queries.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Booking not found", nil)
	case errs.Is(err, commands.ErrBookingCancelled):
		httperr.AbortWithError(c, http.StatusConflict, err, "Booking is cancelled", nil)
	case errs.Is(err, commands.ErrDuplicateSubmission):
		httperr.AbortWithError(c, http.StatusConflict, err,
			"Duplicate submission with different parameters", nil)
	case errs.Is(err, commands.ErrIdempotencyInProgress):
		httperr.AbortWithError(c, http.StatusConflict, err,
			"Submission is currently being processed", nil)
	case errs.Is(err, commands.ErrValidation):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, err.Error(), nil)
	case errs.Is(err, commands.ErrRateTableUnavailable):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Pricing is unavailable", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

func (h *BookingHandler) abortWithPricingError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, queries.ErrRateTableUnavailable):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Pricing is unavailable", nil)
	case errs.Is(err, queries.ErrQueryFailed):
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	default:
		// pricing rejects bad input with domain errors (unknown add-on,
		// unmatched duration, bad party size)
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, err.Error(), nil)
	}
}

func (h *BookingHandler) abortWithQueryError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, queries.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Booking not found", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

func parseBookingID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, errIdempotencyKeyRequired
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid idempotency key format")
	}
	return key, nil
}
