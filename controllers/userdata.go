package controllers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"closetapi/models"
)

type UserDataController struct {
	PushTokens PushTokenRegistry
}

func (controller *UserDataController) UserDataRoutes(g *echo.Group) {
	g.POST("/push-tokens", controller.RegisterPushToken)
}

// RegisterPushToken binds a device token to the current user. A token already
// known for another account moves to this one.
func (controller *UserDataController) RegisterPushToken(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.UserPushIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please provide a token and a proper platform parameter"})
	}

	ctx := c.Request().Context()
	if err := controller.PushTokens.RegisterToken(ctx, userID, models.Platform(req.Platform), req.Token); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("register push token")
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not register the device"})
	}
	log.Ctx(ctx).Info().Uint("user_id", userID).Str("platform", req.Platform).Msg("push token registered")
	return c.JSON(http.StatusOK, echo.Map{"message": "registered"})
}
