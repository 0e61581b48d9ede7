package diagnosis

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tcm/tcm/internal/platform/sse"
	"github.com/tcm/tcm/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/visits/:id/diagnosis", h.RunDiagnosis)
	api.POST("/visits/:id/diagnosis/stream", h.StreamDiagnosis)
	api.GET("/visits/:id/diagnoses", h.ListDiagnoses)
	api.GET("/diagnoses/:id", h.GetDiagnosis)
	api.DELETE("/diagnoses/:id", h.DeleteDiagnosis)
}

type runRequest struct {
	Transcript string `json:"transcript"`
}

type runResponse struct {
	Result *PipelineResult `json:"result"`
	Record *Record         `json:"record,omitempty"`
}

// RunDiagnosis executes the pipeline fully buffered. A failed run maps to an
// error status code with the structured result attached, so callers still
// see which stage broke.
func (h *Handler) RunDiagnosis(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, rec, err := h.svc.Run(c.Request().Context(), visitID, req.Transcript)
	if err != nil {
		if res == nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		// pipeline succeeded but the save did not
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res.OverallStatus == OverallFailed {
		return c.JSON(http.StatusBadGateway, runResponse{Result: res})
	}
	return c.JSON(http.StatusOK, runResponse{Result: res, Record: rec})
}

// StreamDiagnosis executes the pipeline in streaming mode and relays every
// event over Server-Sent Events as it is produced.
func (h *Handler) StreamDiagnosis(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	events, err := h.svc.Stream(ctx, visitID, req.Transcript)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	w, err := sse.NewWriter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for ev := range events {
		if err := w.Send(ev); err != nil {
			// client gone; the pipeline stops via ctx cancellation
			return nil
		}
	}
	return nil
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	pg := pagination.FromContext(c)
	recs, total, err := h.svc.ListByVisit(c.Request().Context(), visitID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDiagnosis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "diagnosis not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteDiagnosis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
