package handler

import (
    "context"
    "errors"
    "net/http"
    "net/mail"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/home-services-marketplace/internal/config"
    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/repository"
    "github.com/iliyamo/home-services-marketplace/internal/utils"
)

const (
    minPasswordLen = 8
    maxPasswordLen = 72 // bcrypt input limit
)

// AccountRepo is the part of the account store the auth endpoints need.
type AccountRepo interface {
    Create(ctx context.Context, name, email, password string, role model.Role, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.Account, error)
    GetByID(ctx context.Context, id uint64) (model.Account, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Options
	Cfg    config.Config
	Users  AccountRepo
	Tokens TokenStore
}

func NewAuthHandler(opts Options, cfg config.Config, u AccountRepo, t TokenStore) *AuthHandler {
	return &AuthHandler{Options: opts, Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}
type authResp struct {
	Success bool      `json:"success"`
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a customer account and returns a token pair.  Any role
// in the payload is ignored.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fail(c, http.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordLen {
		return fail(c, http.StatusBadRequest, "password must be at most 72 bytes")
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return h.internal(c, "create user", err)
	}
	u := model.Account{ID: uid, Name: req.Name, Email: req.Email, Role: model.RoleCustomer}
	return h.issuePair(ctx, c, http.StatusCreated, u)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return h.internal(c, "load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	return h.issuePair(ctx, c, http.StatusOK, u)
}

// Refresh validates a refresh token, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refreshToken required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	u, err := h.accountForRefresh(ctx, hash)
	if err != nil {
		return h.refreshFailed(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return h.internal(c, "revoke refresh", err)
	}
	return h.issuePair(ctx, c, http.StatusOK, u)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refreshToken required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := h.withTimeout(c)
    defer cancel()

    u, err := h.accountForRefresh(ctx, hash)
    if err != nil {
        return h.refreshFailed(c, err)
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, string(u.Role), h.Cfg.AccessTTLMin)
    if err != nil {
        return h.internal(c, "issue access", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "success": true,
        "access":  tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes one refresh token when the body carries it, otherwise
// every session of the bearer.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if raw, found := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); found {
        if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
            uid = claims.UserID
        }
    }

    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := h.withTimeout(c)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return h.refreshFailed(c, err)
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return h.internal(c, "revoke refresh", err)
        }
        return c.NoContent(http.StatusNoContent)
    case uid != 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return h.internal(c, "revoke all refresh", err)
        }
        return c.NoContent(http.StatusNoContent)
    }
    return fail(c, http.StatusBadRequest, "provide Authorization header or refreshToken")
}

// Me returns the stored account of the bearer.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := h.withTimeout(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "account not found")
		}
		return h.internal(c, "load user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    viewOf(u),
	})
}

func (h *AuthHandler) accountForRefresh(ctx context.Context, hash string) (model.Account, error) {
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return model.Account{}, err
	}
	return h.Users.GetByID(ctx, userID)
}

// refreshFailed maps unknown, expired and revoked tokens (and their
// deleted owners) to 401.
func (h *AuthHandler) refreshFailed(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}
	return h.internal(c, "validate refresh", err)
}

func (h *AuthHandler) issuePair(ctx context.Context, c echo.Context, status int, u model.Account) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return h.internal(c, "issue access", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return h.internal(c, "issue refresh", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return h.internal(c, "store refresh", err)
	}
	return c.JSON(status, authResp{
		Success: true,
		User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

func (h *AuthHandler) internal(c echo.Context, op string, err error) error {
	h.logger().Error("auth: "+op+" failed", zap.Error(err))
	body := echo.Map{"success": false, "error": "internal server error"}
	if h.Debug {
		body["detail"] = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, body)
}
