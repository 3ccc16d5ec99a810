package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/notes-bin/slotbed/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

type Auth struct {
	secret string
	admin  config.AdminConfig
}

func NewAuth(secret string, admin config.AdminConfig) *Auth {
	return &Auth{secret: secret, admin: admin}
}

func (a *Auth) HashPassword(password string) string {
	hash := md5.Sum([]byte(password))
	return hex.EncodeToString(hash[:])
}

// Login 校验唯一管理员的凭据并签发 token
func (a *Auth) Login(username, password string, expiresIn time.Duration) (string, error) {
	if username != a.admin.ID || a.HashPassword(password) != a.admin.PasswordMD5 {
		return "", fmt.Errorf("invalid credentials")
	}
	return a.GenerateToken(a.admin.ID, expiresIn)
}

func (a *Auth) GenerateToken(identity string, expiresIn time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"identity": identity,
		"exp":      time.Now().Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secret))
}

// ParseIdentity 从 token 中取回调用者身份，任何解析失败都视为未认证
func (a *Auth) ParseIdentity(tokenStr string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	identity, _ := claims["identity"].(string)
	if identity == "" {
		return "", fmt.Errorf("invalid token")
	}
	return identity, nil
}
