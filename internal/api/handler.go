package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/avpulse/internal/domain/dto"
	"github.com/guttosm/avpulse/internal/domain/models"
	"github.com/guttosm/avpulse/internal/normalize"
	"github.com/guttosm/avpulse/internal/service"
)

// Handler provides HTTP handlers for time-series and quote endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Invoke the series service
//   - Translate pipeline results and errors into response DTOs
type Handler struct {
	svc service.SeriesService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.SeriesService) *Handler {
	return &Handler{svc: svc}
}

// GetTimeSeries handles GET /api/v1/timeseries requests.
//
// Query Parameters:
//   - symbol (string, required): Ticker symbol (e.g., "IBM").
//   - interval (string, optional): 1min|5min|15min|30min|60min|daily|weekly|monthly. Default: daily.
//   - period (string, optional): week|month|quarter|year synthetic aggregation.
//   - start (string, optional): Lower bound, YYYY-MM-DD or RFC 3339.
//   - end (string, optional): Upper bound, same formats. A bare date includes
//     the whole end day.
//
// Responses:
//   - 200 OK: TimeSeriesResponse, possibly with zero bars.
//   - 400 Bad Request: Missing or invalid query parameters.
//   - 502 Bad Gateway: The upstream service reported an error payload.
//   - 500 Internal Server Error: Transport or pipeline failure.
func (h *Handler) GetTimeSeries(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	interval := models.IntervalDaily
	if s := c.Query("interval"); s != "" {
		parsed, err := models.ParseInterval(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid interval", err))
			return
		}
		interval = parsed
	}

	var period *models.Period
	if s := c.Query("period"); s != "" {
		parsed, err := models.ParsePeriod(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid period", err))
			return
		}
		period = &parsed
	}

	start, err := parseBoundParam(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start, expected YYYY-MM-DD or RFC 3339", err))
		return
	}
	end, err := parseBoundParam(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end, expected YYYY-MM-DD or RFC 3339", err))
		return
	}

	s, err := h.svc.GetTimeSeries(c.Request.Context(), symbol, interval, period, start, end)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTimeSeriesResponse(symbol, interval, period, s))
}

// GetQuote handles GET /api/v1/quote/:symbol requests.
//
// Responses:
//   - 200 OK: QuoteResponse with the normalized quote fields.
//   - 400 Bad Request: Missing symbol.
//   - 502 Bad Gateway: The upstream service reported an error payload.
//   - 500 Internal Server Error: Transport or pipeline failure.
func (h *Handler) GetQuote(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	rec, err := h.svc.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(symbol, rec))
}

// parseBoundParam reads an optional date or date-time bound.
func parseBoundParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized time format: " + s)
}

// writeServiceError maps pipeline errors onto HTTP statuses. An upstream
// error payload is the remote's fault, not ours, hence 502.
func writeServiceError(c *gin.Context, err error) {
	var upstream *normalize.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse("upstream reported an error", err))
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch data", err))
}
