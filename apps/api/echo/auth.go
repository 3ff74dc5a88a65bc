package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core/economy"
)

const contextClaimsKey = "claims"

// Claims represents the authorization claims transmitted via a JWT.
// Role decides which intents the bearer may forward.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewClaims(issuer, subject, name, role string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (c Claims) Actor() economy.Actor {
	return economy.Actor{ID: c.Subject, Name: c.Name, Role: c.Role}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, key []byte) (string, error) {
	if !economy.IsRole(claims.Role) {
		return "", errors.Errorf("unknown role %q", claims.Role)
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func ParseToken(tok string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tok, new(Claims),
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !economy.IsRole(claims.Role) {
		return nil, errors.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// jwtMiddleware requires a valid bearer token and stores its Claims in the context.
func jwtMiddleware(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if !strings.HasPrefix(auth, "Bearer ") || tok == "" {
				return errUnauthorized
			}
			claims, err := ParseToken(tok, key)
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) economy.Actor {
	claims, _ := getContextClaims(ctx)
	return claims.Actor()
}
