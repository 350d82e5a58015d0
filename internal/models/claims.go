package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims — полезная нагрузка JWT-токена пользователя.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole проверяет наличие роли в списке ролей.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// contextKey — собственный тип ключа контекста, чтобы избежать коллизий.
type contextKey string

const (
	// UserContextKey — ключ, под которым middleware кладет UserID в контекст запроса.
	UserContextKey contextKey = "user_id"
	// RolesContextKey — ключ для ролей пользователя.
	RolesContextKey contextKey = "roles"
)
