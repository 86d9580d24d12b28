package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qazaqedu/iquiz-server/internal/auth"
	"github.com/qazaqedu/iquiz-server/internal/core"
)

// ContextKeyRoomID is the context key for the token-verified room ID.
const ContextKeyRoomID = "room_id"

// HostTokenMiddleware validates the Bearer host token and checks it is
// scoped to the room named in the route. A token for room A never operates
// on room B.
func HostTokenMiddleware(tokens *auth.TokenConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header", Code: core.ErrCodeUnauthorized})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format", Code: core.ErrCodeUnauthorized})
			c.Abort()
			return
		}

		claims, err := auth.ValidateHostToken(tokens, parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid host token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid host token", Code: core.ErrCodeUnauthorized})
			c.Abort()
			return
		}

		roomID := core.NormalizeCode(c.Param("roomId"))
		if claims.RoomID != roomID {
			logger.Debug().Str("token_room", claims.RoomID).Str("room_id", roomID).Msg("host token room mismatch")
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "token not valid for this room", Code: core.ErrCodeUnauthorized})
			c.Abort()
			return
		}

		c.Set(ContextKeyRoomID, claims.RoomID)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
