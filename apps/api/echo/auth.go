package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
	"github.com/langhour/tracker/storage/cache"
)

const (
	tokenContextKey   = "userToken"
	requestContextKey = "requestContext"
	tokenAudience     = "language-hours"
)

var nowFunc = time.Now

// Claims represents the authorization claims transmitted via a JWT.
// StandardClaims.Id is the token id checked against the revocation list.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsSupervisor bool     `json:"is_supervisor,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// NewClaims returns fresh claims for usr. origIat carries the first issue time across refreshes.
func NewClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		IsSupervisor: usr.IsSupervisor(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// RequestContext is what an authenticated request knows about its caller.
// The user is loaded on first use and kept for the rest of the request.
type RequestContext struct {
	Claims Claims
	svc    user.Service
	usr    *user.User
}

func (rc *RequestContext) User(ctx context.Context) (user.User, error) {
	if rc.usr != nil {
		return *rc.usr, nil
	}
	usr, err := rc.svc.GetByID(ctx, rc.Claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	rc.usr = &usr
	return usr, nil
}

type authenticator struct {
	conf      *core.Config
	svc       user.Service
	blocklist cache.Blocklist
}

func newAuthenticator(conf *core.Config, svc user.Service, blocklist cache.Blocklist) *authenticator {
	return &authenticator{conf: conf, svc: svc, blocklist: blocklist}
}

// middleware validates the bearer token, rejects revoked ones and stores the RequestContext.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(ctx echo.Context) error {
			token, ok := ctx.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return errUnauthorized
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return errUnauthorized
			}
			revoked, err := a.blocklist.IsRevoked(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking token revocation")
			}
			if revoked {
				return errUnauthorized
			}
			ctx.Set(requestContextKey, &RequestContext{Claims: *claims, svc: a.svc})
			return next(ctx)
		})
	}
}

// authenticate checks the credentials. Every failure gives the same error so callers cannot probe for usernames.
func (a *authenticator) authenticate(ctx context.Context, uname, pwd string) (*Claims, user.User, error) {
	usr, err := a.svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, user.User{}, errAuthenticationFailed
		}
		return nil, user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil || !usr.IsActive {
		return nil, user.User{}, errAuthenticationFailed
	}
	usr, err = a.svc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return NewClaims(a.conf, usr), usr, nil
}

func (a *authenticator) refresh(ctx echo.Context) (string, error) {
	rc, err := getRequestContext(ctx)
	if err != nil {
		return "", err
	}
	usr, err := rc.User(ctx.Request().Context())
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(rc.Claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, NewClaims(a.conf, usr, rc.Claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

// logout revokes the current token until it would have expired anyway.
func (a *authenticator) logout(ctx echo.Context) error {
	rc, err := getRequestContext(ctx)
	if err != nil {
		return err
	}
	ttl := time.Unix(rc.Claims.ExpiresAt, 0).Sub(nowFunc())
	return errors.Wrap(a.blocklist.Revoke(ctx.Request().Context(), rc.Claims.Id, ttl), "revoking token")
}

func getRequestContext(ctx echo.Context) (*RequestContext, error) {
	if rc, ok := ctx.Get(requestContextKey).(*RequestContext); ok {
		return rc, nil
	}
	return nil, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	rc, err := getRequestContext(ctx)
	if err != nil {
		return user.User{}, err
	}
	return rc.User(ctx.Request().Context())
}
