package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"closetapi/metrics"
)

const currentUserKey = "currentUserID"

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

// JWTMiddleware accepts HS256 bearer tokens and stores the parsed token under "user".
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwt.RegisteredClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Ctx(c.Request().Context()).Debug().Err(err).Msg("rejected token")
			return unauthorized(c)
		},
	})
}

// CurrentUserMiddleware resolves the token subject into the numeric user id.
func CurrentUserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return unauthorized(c)
		}
		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject == "" {
			log.Ctx(c.Request().Context()).Warn().Msg("token without subject")
			return unauthorized(c)
		}
		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || userID == 0 {
			log.Ctx(c.Request().Context()).Warn().Str("sub", claims.Subject).Msg("token subject is not a user id")
			return unauthorized(c)
		}
		c.Set(currentUserKey, uint(userID))
		return next(c)
	}
}

func currentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(currentUserKey).(uint)
	return id, ok && id != 0
}

// RequestLogger logs every request with a request id and counts it by route.
func RequestLogger(reg *metrics.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			logger := log.With().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			labels := map[string]string{
				"method": req.Method,
				"route":  c.Path(),
				"status": statusClass(status),
			}
			ctx := c.Request().Context()
			reg.Inc(ctx, metrics.HTTPRequests, labels)

			if status >= 500 {
				reg.Inc(ctx, metrics.HTTPErrors, labels)
				logger.Error().Err(err).Int("status", status).Dur("duration", time.Since(start)).Msg("http request failed")
			} else {
				logger.Info().Err(err).Int("status", status).Dur("duration", time.Since(start)).Msg("http request served")
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 600:
		return strconv.Itoa(code/100) + "xx"
	default:
		return "0"
	}
}
