package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"studyquiz-server/logger"
)

const (
	ViewerCookie = "sq_viewer"
	TabCookie    = "sq_tab"

	viewerKey = "viewer_id"
	tabKey    = "tab_id"
	issuer    = "studyquiz"

	// browsing-session tokens are refreshed by every request; the cookie
	// itself has no Max-Age and dies with the browser session
	tabTokenTTL = 24 * time.Hour
)

// claims struct to hold the identity token claims
type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

type Identity struct {
	secret    []byte
	viewerTTL time.Duration
	log       *logger.Logger
}

func NewIdentity(secret string, viewerTTL time.Duration, log *logger.Logger) *Identity {
	return &Identity{secret: []byte(secret), viewerTTL: viewerTTL, log: log}
}

// Middleware resolves the viewer and browsing-session IDs from signed
// cookies, minting fresh ones when they are missing or invalid.
func (id *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := id.resolve(c, ViewerCookie, "viewer", id.viewerTTL, int(id.viewerTTL.Seconds()))
		tab := id.resolve(c, TabCookie, "tab", tabTokenTTL, 0)
		c.Set(viewerKey, viewer)
		c.Set(tabKey, tab)
		c.Next()
	}
}

func (id *Identity) resolve(c *gin.Context, cookie, kind string, ttl time.Duration, maxAge int) string {
	if raw, err := c.Cookie(cookie); err == nil && raw != "" {
		subject, err := id.Parse(raw, kind)
		if err == nil {
			if kind == "tab" {
				// keep the browsing-session token alive
				id.setCookie(c, cookie, subject, kind, ttl, maxAge)
			}
			return subject
		}
		id.log.Debug("Discarding identity cookie", "name", cookie, "error", err)
	}
	subject := uuid.NewString()
	id.setCookie(c, cookie, subject, kind, ttl, maxAge)
	return subject
}

func (id *Identity) setCookie(c *gin.Context, cookie, subject, kind string, ttl time.Duration, maxAge int) {
	token, err := id.Sign(subject, kind, ttl)
	if err != nil {
		id.log.Error("Failed to sign identity token", "error", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie, token, maxAge, "/", "", c.Request.TLS != nil, true)
}

// Sign issues an HS256 token for subject.
func (id *Identity) Sign(subject, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(id.secret)
}

// Parse validates a token and returns its subject.
func (id *Identity) Parse(raw, kind string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return id.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired: %w", err)
		}
		return "", err
	}
	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if cl.Kind != kind {
		return "", fmt.Errorf("token kind %q, want %q", cl.Kind, kind)
	}
	if _, err := uuid.Parse(cl.Subject); err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}
	return cl.Subject, nil
}

// ViewerID returns the long lived viewer ID set by the identity middleware.
func ViewerID(c *gin.Context) string { return c.GetString(viewerKey) }

// TabID returns the browsing-session ID set by the identity middleware.
func TabID(c *gin.Context) string { return c.GetString(tabKey) }
