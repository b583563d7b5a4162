package aggregation

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	httperr "github.com/aevon-lab/telemetry-rollup/internal/core/errors"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
)

// RunService exposes on-demand runs over HTTP, for backfills and reruns.
type RunService struct {
	runner Runner
	now    func() time.Time
}

// NewRunService creates the run trigger endpoint.
func NewRunService(runner Runner) *RunService {
	return &RunService{runner: runner, now: time.Now}
}

// RegisterRoutes registers the run trigger route.
func (s *RunService) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/runs/:family", s.HandleRun)
}

// HandleRun handles POST /v1/runs/:family
// Query parameters: date (yyyy-mm-dd, default yesterday UTC)
func (s *RunService) HandleRun(c *gin.Context) {
	family, err := v1.ParseFamily(c.Param("family"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid family",
			Details:   err.Error(),
		})
		return
	}

	day := partition.Yesterday(s.now())
	if raw := c.Query("date"); raw != "" {
		day, err = partition.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid date",
				Details:   err.Error(),
			})
			return
		}
	}

	summary, err := s.runner.Run(c.Request.Context(), family, day)
	if err != nil {
		var unprocessed *UnprocessedError
		switch {
		case errors.Is(err, ErrRunInProgress):
			c.JSON(http.StatusConflict, httperr.ErrorResponse{
				ErrorType: httperr.HttpRunInProgressError,
				Message:   "A run for this family and date is already in progress",
				Details:   err.Error(),
			})
		case errors.Is(err, ErrUnknownFamily):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid family",
				Details:   err.Error(),
			})
		case errors.As(err, &unprocessed):
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Run left aggregate records unwritten",
				Details: map[string]interface{}{
					"unprocessed": unprocessed.Count,
					"summary":     summary,
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Run failed",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
