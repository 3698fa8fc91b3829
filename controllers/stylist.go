package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"closetapi/models"
	"closetapi/stylist"
)

type SendMessageIn struct {
	Text string `json:"text"`
}

type PreviewItem struct {
	models.ClosetItem
	Uri string `json:"uri"`
}

type SessionStateResponse struct {
	SessionID  string            `json:"session_id"`
	Messages   []stylist.Message `json:"messages"`
	LastOutfit []uint            `json:"last_outfit"`
	Preview    []PreviewItem     `json:"preview"`
	Pending    bool              `json:"pending"`
}

type MessageResponse struct {
	Message stylist.Message      `json:"message"`
	State   SessionStateResponse `json:"state"`
}

type StylistController struct {
	Clothes  ClothesRepository
	Stylist  *stylist.Orchestrator
	Sessions *stylist.Store
	Images   imageURLResolver
}

func (controller *StylistController) StylistRoutes(g *echo.Group) {
	g.POST("/sessions", controller.StartSession)
	g.GET("/sessions/:sessionId", controller.GetSession)
	g.POST("/sessions/:sessionId/messages", controller.SendMessage)
	g.DELETE("/sessions/:sessionId", controller.EndSession)
}

func (controller *StylistController) stateResponse(ctx context.Context, state stylist.State) SessionStateResponse {
	urls := controller.Images.resolveAll(ctx, lo.Map(state.Preview, func(item models.ClosetItem, _ int) string {
		return item.ImageKey
	}))
	preview := make([]PreviewItem, len(state.Preview))
	for i, item := range state.Preview {
		preview[i] = PreviewItem{ClosetItem: item, Uri: urls[i]}
	}
	return SessionStateResponse{
		SessionID:  state.SessionID,
		Messages:   state.Messages,
		LastOutfit: state.LastOutfit,
		Preview:    preview,
		Pending:    state.Pending,
	}
}

func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, stylist.ErrEmptyUtterance):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message text is required"})
	case errors.Is(err, stylist.ErrTurnInProgress):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Please wait for the stylist to answer"})
	case errors.Is(err, stylist.ErrSessionNotFound), errors.Is(err, stylist.ErrSessionClosed):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	sentry.CaptureException(err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Something went wrong, please try again"})
}

// StartSession snapshots the closet as it is now; later closet edits do not
// reach a running session.
func (controller *StylistController) StartSession(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	clothes, err := controller.Clothes.ListClothes(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to load closet for stylist")
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch clothes"})
	}
	closet := lo.Map(clothes, func(item models.Clothing, _ int) models.ClosetItem {
		return item.ClosetItem()
	})

	session := controller.Sessions.Create(userID, closet)
	log.Ctx(ctx).Info().Str("session", session.ID).Int("closet", len(closet)).Msgf("[Stylist: %s] session started", session.ID)
	return c.JSON(http.StatusCreated, controller.stateResponse(ctx, session.State()))
}

func (controller *StylistController) GetSession(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	session, err := controller.Sessions.Get(userID, c.Param("sessionId"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, controller.stateResponse(c.Request().Context(), session.State()))
}

func (controller *StylistController) SendMessage(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req SendMessageIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	session, err := controller.Sessions.Get(userID, c.Param("sessionId"))
	if err != nil {
		return sessionError(c, err)
	}

	ctx := c.Request().Context()
	msg, err := controller.Stylist.SubmitUserMessage(ctx, session, req.Text)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: msg,
		State:   controller.stateResponse(ctx, session.State()),
	})
}

func (controller *StylistController) EndSession(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := controller.Sessions.Close(userID, c.Param("sessionId")); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
