package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
}

// UserID returns the ID of the user the token was issued to.
func (c Claims) UserID() (int64, bool) {
	return core.ParseID(c.Subject)
}

// TokenIssuer signs and refreshes the JWTs of authenticated users.
type TokenIssuer struct {
	key           []byte
	issuer        string
	expiration    time.Duration
	refreshWindow time.Duration
	nowFunc       func() time.Time
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		key:           []byte(conf.SecretKey),
		issuer:        conf.AppName,
		expiration:    conf.Server.JWTExpirationDelta,
		refreshWindow: conf.Server.JWTRefreshExpirationDelta,
		nowFunc:       time.Now,
	}
}

// JWTConfig is the JWT auth middleware config matching the issued tokens.
func (ti *TokenIssuer) JWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims returns the claims of a token issued to usr. origIat is kept across refreshes.
func (ti *TokenIssuer) Claims(usr user.User, origIat ...int64) *Claims {
	now := ti.nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			ExpiresAt: now.Add(ti.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
	}
}

// Generate returns a signed token for usr.
func (ti *TokenIssuer) Generate(usr user.User, origIat ...int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ti.Claims(usr, origIat...))
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Refresh issues a new token for usr if the refresh window opened by the first login is still open.
func (ti *TokenIssuer) Refresh(usr user.User, claims Claims) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshWindow)
	if ti.nowFunc().After(expTime) {
		return "", errRefreshExpired
	}
	return ti.Generate(usr, claims.OrigIssuedAt)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// userContextMiddleware loads the token's user into the echo context and its ID into the request context.
// Tokens of deleted users are rejected.
func userContextMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			id, ok := claims.UserID()
			if !ok {
				return errUnauthorized
			}

			req := ctx.Request()
			usr, err := svc.GetByID(req.Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}

			ctx.Set(contextUserKey, usr)
			ctx.SetRequest(req.WithContext(core.WithUserID(req.Context(), usr.ID)))
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
