package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ClientIDKey = "clientID"

type TokenManager interface {
	Generate(clientID, nonce string, now time.Time) (string, error)
	Verify(token string) (string, error)
}

type CookieConfig struct {
	Name     string
	MaxAge   time.Duration
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
}

func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "SESSION",
		MaxAge:   7 * 24 * time.Hour,
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
	}
}

// Middleware resolves the stable client id behind a request. A valid
// session cookie wins; otherwise the id comes from the client_id query
// parameter or a fresh UUID, and a new cookie is issued for it.
func Middleware(tokens TokenManager, cookie CookieConfig, now func() time.Time, logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token, err := ctx.Cookie(cookie.Name); err == nil {
			clientID, err := tokens.Verify(token)
			if err == nil {
				ctx.Set(ClientIDKey, clientID)
				ctx.Next()
				return
			}
			logger.Debug().Err(err).Str("ip", ctx.ClientIP()).Msg("discarding session cookie")
		}

		clientID := ctx.Query("client_id")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		token, err := tokens.Generate(clientID, uuid.NewString(), now())
		if err != nil {
			logger.Error().Err(err).Msg("could not issue session token")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
			return
		}

		ctx.SetSameSite(http.SameSiteLaxMode)
		ctx.SetCookie(cookie.Name, token, int(cookie.MaxAge.Seconds()), cookie.Path, cookie.Domain, cookie.Secure, cookie.HttpOnly)
		ctx.Set(ClientIDKey, clientID)
		ctx.Next()
	}
}

func ClientID(ctx *gin.Context) string {
	return ctx.GetString(ClientIDKey)
}
