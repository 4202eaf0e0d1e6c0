package auth

import (
	"slices"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

const (
	SourceLocal = "local"
	SourceOIDC  = "oidc"
	SourceDev   = "dev"
)

// Identity - проверенный пользователь текущего запроса
type Identity struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	Source string   `json:"source"`
}

func (i *Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// devIdentity подставляется в dev режиме, когда токена нет
var devIdentity = Identity{
	UserID: "dev-user",
	Email:  "dev@example.com",
	Name:   "developer",
	Roles:  []string{"admin", "user"},
	Source: SourceDev,
}

func setIdentity(c *gin.Context, id *Identity) {
	c.Set(identityKey, id)
}

// GetIdentity извлекает Identity из контекста
func GetIdentity(c *gin.Context) (*Identity, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := val.(*Identity)
	return id, ok
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) (string, bool) {
	id, ok := GetIdentity(c)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}
