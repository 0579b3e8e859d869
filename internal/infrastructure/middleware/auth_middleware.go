package middleware

import (
	"crypto/rsa"
	"net/http"
	"strings"
	"time"

	"conference/internal/core/domain"
	"conference/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const agentContextKey = "agent_id"

// agentClaims is the shape of the token issued by the external authn
// service (spec §1: authn/authz are an outside contract, only verification
// is ours). The subject carries the agent's label; audience carries the
// tenant/account label that, together with the label, makes an AgentID.
type agentClaims struct {
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the bearer JWT against the configured public key
// and cross-checks it against the X-Agent-Label header required by every
// `/api/v1` route (spec §7 "bearer token + X-Agent-Label header"). On
// success it stores the resolved domain.AgentID in the Gin context under
// agentContextKey.
func AuthMiddleware(publicKey *rsa.PublicKey, clockSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, err := verifyRequest(c.Request, publicKey, clockSkew)
		if err != nil {
			c.JSON(http.StatusUnauthorized, problemDetails{
				Type:   string(domain.ErrAuthorizationFailed),
				Title:  err.Error(),
				Status: http.StatusUnauthorized,
			})
			c.Abort()
			return
		}
		c.Set(agentContextKey, agentID)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the agent when credentials are present
// but never aborts the request, for routes readable by anonymous audience
// members (spec §4.1 Room.Audience).
func OptionalAuthMiddleware(publicKey *rsa.PublicKey, clockSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if agentID, err := verifyRequest(c.Request, publicKey, clockSkew); err == nil {
			c.Set(agentContextKey, agentID)
		}
		c.Next()
	}
}

func verifyRequest(r *http.Request, publicKey *rsa.PublicKey, clockSkew time.Duration) (domain.AgentID, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return domain.AgentID{}, errAuth("authorization header required")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return domain.AgentID{}, errAuth("invalid authorization header format")
	}

	label := r.Header.Get("X-Agent-Label")
	if err := validation.ValidateAgentLabel(label); err != nil {
		return domain.AgentID{}, errAuth(err.Error())
	}

	claims := &agentClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errAuth("unexpected signing method")
		}
		return publicKey, nil
	}, jwt.WithLeeway(clockSkew))
	if err != nil || !token.Valid {
		return domain.AgentID{}, errAuth("invalid or expired token")
	}
	if claims.Subject != label {
		return domain.AgentID{}, errAuth("token subject does not match X-Agent-Label")
	}

	audience := ""
	if len(claims.Audience) > 0 {
		audience = claims.Audience[0]
	}
	return domain.AgentID{Label: label, Audience: audience}, nil
}

type authError string

func errAuth(msg string) error { return authError(msg) }
func (e authError) Error() string { return string(e) }

// AgentFromContext returns the AgentID resolved by AuthMiddleware or
// OptionalAuthMiddleware for the current request.
func AgentFromContext(c *gin.Context) (domain.AgentID, bool) {
	v, ok := c.Get(agentContextKey)
	if !ok {
		return domain.AgentID{}, false
	}
	agentID, ok := v.(domain.AgentID)
	return agentID, ok
}
