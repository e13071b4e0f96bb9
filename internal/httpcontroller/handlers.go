package httpcontroller

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/export"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/notification"
)

// IngestResponse is returned by the results endpoint
type IngestResponse struct {
	Records int      `json:"records"`
	Failed  int      `json:"failed"`
	Answers int      `json:"answers"`
	Errors  []string `json:"errors,omitempty"`
}

// ErrorResponse is the body of failed requests
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) initRoutes() {
	s.Echo.GET("/healthz", s.handleHealth)
	if s.Metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}
	s.Echo.GET("/surveys/:id", s.handleSurvey)

	api := s.Echo.Group("/api/v1")
	api.POST("/results", s.handleResults)
}

func (s *Server) handleHealth(c echo.Context) error {
	if _, err := s.DS.Counts(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleResults ingests a payload posted by a survey document. Records that fail
// are reported in the response; the others are stored.
func (s *Server) handleResults(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read request body").SetInternal(err)
	}

	report, err := s.Ingester.Ingest(ctx, body)
	if err != nil && report.Records == 0 {
		if errors.IsCategory(err, errors.CategoryFileParsing) {
			return echo.NewHTTPError(http.StatusBadRequest, "payload must be a JSON object with a Data array").SetInternal(err)
		}
		return err
	}

	s.Notifier.Notify(ctx, "results", notification.ResultsSummary(report.Records, report.Failed, report.Answers))

	resp := IngestResponse{Records: report.Records, Failed: report.Failed, Answers: report.Answers}
	if err != nil {
		resp.Errors = splitJoined(err)
		return c.JSON(http.StatusUnprocessableEntity, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		msgs := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// handleSurvey serves the stand-alone HTML document of a survey
func (s *Server) handleSurvey(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid survey id")
	}

	survey, err := s.DS.GetSurvey(ctx, uint(id))
	if err != nil {
		return err
	}
	questions, err := s.DS.SurveyQuestions(ctx, survey)
	if err != nil {
		return err
	}
	page, err := export.Document(survey, questions, s.documents)
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// errorHandler maps store and validation errors to HTTP status codes
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case errors.IsCategory(err, errors.CategoryValidation), errors.IsCategory(err, errors.CategoryFileParsing):
		status = http.StatusBadRequest
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed",
			logger.String("path", c.Path()),
			logger.Error(err))
	}

	resp := ErrorResponse{Error: message, RequestID: c.Response().Header().Get(echo.HeaderXRequestID)}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, resp)
}
