package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials неверный логин или пароль
var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator выдает и проверяет JWT токены.
// Без ключа подписи проверка отключена.
type Authenticator struct {
	signingKey []byte
	ttl        time.Duration
	users      map[string]string
	now        func() time.Time
}

// NewAuthenticator создает Authenticator. users содержит bcrypt-хэши паролей
func NewAuthenticator(signingKey string, ttl time.Duration, users map[string]string) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{
		signingKey: []byte(signingKey),
		ttl:        ttl,
		users:      users,
		now:        time.Now,
	}
}

// Enabled сообщает, что проверка токенов включена
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.signingKey) > 0
}

// IssueToken проверяет пароль и выдает токен HS256
func (a *Authenticator) IssueToken(username, password string) (string, error) {
	if !a.Enabled() {
		return "", errors.New("authentication is disabled")
	}
	hash, ok := a.users[username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      a.now().Add(a.ttl).Unix(),
	})
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет токен и возвращает имя пользователя
func (a *Authenticator) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", errors.New("token has no username")
	}
	return username, nil
}

// GinJWTMiddleware требует заголовок Authorization: Bearer <jwt>
func GinJWTMiddleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse("missing bearer token", GetRequestIDFromGin(c)))
			return
		}

		username, err := a.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse("invalid token", GetRequestIDFromGin(c)))
			return
		}

		c.Set("username", username)
		c.Next()
	}
}
