package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/user"
)

const (
	contextUserKey   = "user"
	contextClaimsKey = "claims"
	bearerPrefix     = "Bearer "
)

var (
	errMissingToken   = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken   = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64       `json:"oriat,omitempty"`
	Name         string      `json:"name,omitempty"`
	Email        string      `json:"email,omitempty"`
	Role         access.Role `json:"role,omitempty"`
}

// Auth issues and verifies HS256 tokens.
type Auth struct {
	key               []byte
	issuer            string
	expiration        time.Duration
	refreshExpiration time.Duration
}

func NewAuth(conf *core.Config) *Auth {
	return &Auth{
		key:               []byte(conf.SecretKey),
		issuer:            conf.AppName,
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
	}
}

// UserClaims returns the claims of usr. origIat is kept across refreshes.
func (a *Auth) UserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (a *Auth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *Auth) ParseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(
		tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Middleware authenticates the bearer token and loads the user it was issued to.
func (a *Auth) Middleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				return errMissingToken
			}
			claims, err := a.ParseToken(header[len(bearerPrefix):])
			if err != nil {
				return err
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return access.ErrUnauthenticated
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextClaimsKey, *claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// refreshToken issues a new token for the context user while the refresh window is open.
func (a *Auth) refreshToken(ctx echo.Context) (string, error) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	if !ok {
		return "", access.ErrUnauthenticated
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiration)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return a.GenerateToken(a.UserClaims(usr, claims.OrigIssuedAt))
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, access.ErrUnauthenticated
}

// getPrincipal returns the caller; anonymous if the request is not authenticated.
func getPrincipal(ctx echo.Context) access.Principal {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr.Principal()
	}
	return access.Principal{}
}
