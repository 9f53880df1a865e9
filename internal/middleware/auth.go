package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	ClaimsKey = "claims"
)

// Roles resolved from identity-provider groups.
const (
	RolAdmin    = "admin"
	RolFinanzas = "finanzas"
	RolOperador = "operador"
)

// JWTClaims are the claims issued by the identity provider. Rol is not part
// of the token; JWTAuth derives it from Groups.
type JWTClaims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
	Rol    string   `json:"-"`
	jwt.RegisteredClaims
}

// Operador is the identity recorded on caja sessions and imports.
func (c *JWTClaims) Operador() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// RoleGroups names the identity-provider groups mapped to privileged roles.
type RoleGroups struct {
	Admin    string
	Finanzas string
}

// ResolveRole maps groups to a role. Admin wins over finanzas; anyone else
// authenticated is an operador.
func ResolveRole(groups []string, rg RoleGroups) string {
	switch {
	case rg.Admin != "" && slices.Contains(groups, rg.Admin):
		return RolAdmin
	case rg.Finanzas != "" && slices.Contains(groups, rg.Finanzas):
		return RolFinanzas
	default:
		return RolOperador
	}
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string, rg RoleGroups) gin.HandlerFunc {
	if secret == "" {
		log.Warn().Msg("JWT_SECRET is empty: every protected request will be rejected")
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if secret == "" || header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid || claims.Operador() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}

		claims.Rol = ResolveRole(claims.Groups, rg)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose resolved role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasRole(c, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// HasRole reports whether the caller holds one of roles. Used by handlers
// that guard per action instead of per route.
func HasRole(c *gin.Context, roles ...string) bool {
	claims := GetClaims(c)
	return claims != nil && slices.Contains(roles, claims.Rol)
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
