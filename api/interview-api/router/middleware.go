// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package interview_routers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hireflowai/config"
	"github.com/hireflowai/pkg/commons"
	"github.com/hireflowai/pkg/types"
)

// Authenticated verifies the bearer token and attaches the participant
// principle to the request context. Tokens are HS256, signed with the
// service secret, carrying sub/role/name claims issued by the scheduling
// platform.
func Authenticated(cfg *config.AppConfig, logger commons.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debugf("rejected token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		principle, err := principleFromClaims(claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		types.SetAuthPrinciple(c, principle)
		c.Next()
	}
}

func principleFromClaims(claims jwt.MapClaims) (types.Principle, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return types.Principle{}, fmt.Errorf("token missing subject")
	}
	roleClaim, _ := claims["role"].(string)
	role := types.Role(roleClaim)
	switch role {
	case types.RoleCandidate, types.RoleInterviewer, types.RoleRecruiter:
	default:
		return types.Principle{}, fmt.Errorf("token carries unknown role %q", roleClaim)
	}
	name, _ := claims["name"].(string)

	return types.Principle{
		UserID:      sub,
		Role:        role,
		DisplayName: name,
	}, nil
}
