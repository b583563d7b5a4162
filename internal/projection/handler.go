package projection

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	coreagg "github.com/aevon-lab/telemetry-rollup/internal/core/aggregation"
	httperr "github.com/aevon-lab/telemetry-rollup/internal/core/errors"
	"github.com/aevon-lab/telemetry-rollup/internal/core/keys"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/aggregates/:family", s.HandleQuerySeries)
	r.GET("/v1/aggregates/:family/index/:tag", s.HandleQueryIndex)
}

type rangeQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02" time_utc:"1"`
}

// HandleQuerySeries handles GET /v1/aggregates/:family
// Query parameters: from, to, sk (TAG:value, default SUMMARY), filter (TAG:value, repeatable)
func (s *Service) HandleQuerySeries(c *gin.Context) {
	var query struct {
		rangeQuery
		SortKey string   `form:"sk"`
		Filters []string `form:"filter"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badQuery(c, err)
		return
	}

	req := SeriesRequest{
		Family: v1.Family(c.Param("family")),
		From:   query.From,
		To:     query.To,
	}
	for _, raw := range query.Filters {
		f, err := parseFilter(raw)
		if err != nil {
			badQuery(c, err)
			return
		}
		req.Filters = append(req.Filters, f)
	}
	if query.SortKey != "" && query.SortKey != keys.Summary {
		dim, err := parseFilter(query.SortKey)
		if err != nil {
			badQuery(c, err)
			return
		}
		req.Dimension = &dim
	}

	resp, err := s.QuerySeries(c.Request.Context(), req)
	if err != nil {
		queryFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleQueryIndex handles GET /v1/aggregates/:family/index/:tag
// Query parameters: value, from, to
func (s *Service) HandleQueryIndex(c *gin.Context) {
	var query struct {
		rangeQuery
		Value string `form:"value" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badQuery(c, err)
		return
	}

	resp, err := s.QueryIndex(c.Request.Context(), IndexRequest{
		Family: v1.Family(c.Param("family")),
		Tag:    c.Param("tag"),
		Value:  query.Value,
		From:   query.From,
		To:     query.To,
	})
	if err != nil {
		queryFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// parseFilter reads "TAG:value". The value may itself contain ':'.
func parseFilter(raw string) (coreagg.Filter, error) {
	tag, value, ok := strings.Cut(raw, ":")
	if !ok || tag == "" || value == "" {
		return coreagg.Filter{}, invalidQueryf("malformed %q, want TAG:value", raw)
	}
	return coreagg.Filter{Tag: tag, Value: value}, nil
}

func badQuery(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidQueryError,
		Message:   "Invalid query parameters",
		Details:   err.Error(),
	})
}

func queryFailed(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidQuery) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid aggregate query",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Failed to query aggregates",
		Details:   err.Error(),
	})
}
