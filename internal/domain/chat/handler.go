package chat

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tcm/tcm/internal/platform/auth"
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
	api.POST("/conversations", h.CreateConversation)
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:id/messages", h.ListMessages)
	api.DELETE("/conversations/:id", h.DeleteConversation)
	api.POST("/conversations/:id/messages", h.SendMessage)
	api.POST("/conversations/:id/messages/stream", h.StreamMessage)
}

type createConversationRequest struct {
	VisitID *uuid.UUID `json:"visit_id,omitempty"`
	Title   string     `json:"title"`
}

func (h *Handler) CreateConversation(c echo.Context) error {
	doctorID, err := auth.DoctorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	conv := &Conversation{DoctorID: doctorID, VisitID: req.VisitID, Title: req.Title}
	if err := h.svc.CreateConversation(c.Request().Context(), conv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *Handler) ListConversations(c echo.Context) error {
	doctorID, err := auth.DoctorID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	pg := pagination.FromContext(c)
	convs, total, err := h.svc.ListConversations(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(convs, total, pg.Limit, pg.Offset))
}

// conversationForDoctor loads the conversation and checks it belongs to the
// authenticated doctor.
func (h *Handler) conversationForDoctor(c echo.Context) (*Conversation, error) {
	doctorID, err := auth.DoctorID(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	conv, err := h.svc.GetConversation(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	if conv.DoctorID != doctorID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not your conversation")
	}
	return conv, nil
}

func (h *Handler) ListMessages(c echo.Context) error {
	conv, err := h.conversationForDoctor(c)
	if err != nil {
		return err
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), conv.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) DeleteConversation(c echo.Context) error {
	conv, err := h.conversationForDoctor(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteConversation(c.Request().Context(), conv.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) SendMessage(c echo.Context) error {
	conv, err := h.conversationForDoctor(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reply, err := h.svc.SendMessage(c.Request().Context(), conv.ID, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, reply)
}

func (h *Handler) StreamMessage(c echo.Context) error {
	conv, err := h.conversationForDoctor(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	events, err := h.svc.StreamMessage(c.Request().Context(), conv.ID, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	w, err := sse.NewWriter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for ev := range events {
		if err := w.Send(ev); err != nil {
			return nil
		}
	}
	return nil
}
