package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/tazhibayda/edu-auth/internal/apperr"
	"github.com/tazhibayda/edu-auth/internal/config"
	"github.com/tazhibayda/edu-auth/internal/domain"
	"github.com/tazhibayda/edu-auth/internal/helper"
	"github.com/tazhibayda/edu-auth/internal/identity"
	"github.com/tazhibayda/edu-auth/internal/log"
	"github.com/tazhibayda/edu-auth/internal/metrics"
	"github.com/tazhibayda/edu-auth/internal/oauth"
	"github.com/tazhibayda/edu-auth/internal/queue"
	"github.com/tazhibayda/edu-auth/internal/repo"
	"github.com/tazhibayda/edu-auth/internal/security"
)

type Handler struct {
	Store          *repo.Store
	Cache          *repo.Redis
	Google         *oauth.GoogleOAuth
	GoogleClientID string
	Resolver       *identity.Resolver
	Events         queue.Publisher
	JWTSecret      string
	AccessTTL      time.Duration
	FrontendURL    string
	Dev            bool
}

func NewHandler(store *repo.Store, cache *repo.Redis, g *oauth.GoogleOAuth, pub queue.Publisher, cfg config.Config) *Handler {
	return &Handler{
		Store:          store,
		Cache:          cache,
		Google:         g,
		GoogleClientID: cfg.GoogleClientID,
		Resolver:       identity.NewResolver(store, repo.IsDup),
		Events:         pub,
		JWTSecret:      cfg.JWTSecret,
		AccessTTL:      time.Duration(cfg.AccessTTLMin) * time.Minute,
		FrontendURL:    cfg.FrontendURL,
		Dev:            cfg.Dev,
	}
}

// loadUser goes through the Redis cache; misses fall back to Mongo and
// repopulate.
func (h *Handler) loadUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if u := h.Cache.GetUser(ctx, id); u != nil {
		return u, nil
	}
	u, err := h.Store.FindUserByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	h.Cache.PutUser(ctx, u)
	return u, nil
}

func (h *Handler) invalidate(ctx context.Context, id primitive.ObjectID) {
	h.Cache.InvalidateUser(ctx, id)
}

func (h *Handler) setAuthCookies(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, access, int(h.AccessTTL.Seconds()), "/", "", !h.Dev, true)
	if refresh != "" {
		c.SetCookie(RefreshCookie, refresh, int(security.RefreshTTL.Seconds()), "/", "", !h.Dev, true)
	}
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", !h.Dev, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", !h.Dev, true)
	c.SetCookie(SessionCookie, "", -1, "/", "", !h.Dev, true)
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register godoc
// @Summary Register user
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid json"))
		return
	}
	email := repo.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if !strings.Contains(email, "@") || name == "" {
		h.fail(c, apperr.New(apperr.KindValidation, "valid email and name are required"))
		return
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		h.fail(c, err)
		return
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	u := &domain.User{Email: email, Name: name, PasswordHash: hash}
	if err := h.Store.CreateUser(c.Request.Context(), u); err != nil {
		if repo.IsDup(err) {
			h.fail(c, apperr.New(apperr.KindDuplicateEmail, "Email already in use"))
			return
		}
		h.fail(c, apperr.Internal(err))
		return
	}

	tok, err := security.MakeAccess(h.JWTSecret, u, h.AccessTTL)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}

	go h.Events.Publish(context.Background(), queue.Exchange, queue.KeyUserRegistered,
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name}, reqID(c))

	c.JSON(http.StatusCreated, gin.H{"success": true, "token": tok, "user": u.Sanitize()})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid json"))
		return
	}
	u, err := h.Store.FindUserByEmail(c.Request.Context(), in.Email)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	// unknown email, wrong password and OAuth-only account must be
	// indistinguishable to the client (no user enumeration)
	if u == nil || !u.HasPassword() || !security.CheckPassword(u.PasswordHash, in.Password) {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		log.WithDD(c.Request.Context(), log.L).Info("login rejected",
			zap.String("email_hash", helper.Hash8(in.Email)))
		h.fail(c, apperr.New(apperr.KindInvalidCredentials, "Invalid credentials"))
		return
	}
	if !u.IsActive {
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		h.fail(c, apperr.New(apperr.KindAccountInactive, "User account is inactive"))
		return
	}

	access, err := security.MakeAccess(h.JWTSecret, u, h.AccessTTL)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	refresh, err := security.MakeRefresh(h.JWTSecret, u)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	h.setAuthCookies(c, access, refresh)
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	go h.Events.Publish(context.Background(), queue.Exchange, queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: u.ID, Email: u.Email}, reqID(c))

	c.JSON(http.StatusOK, gin.H{
		"success": true, "token": access, "refresh": refresh, "user": u.Sanitize(),
	})
}

type refreshReq struct {
	Refresh string `json:"refresh"`
}

// Refresh godoc
// @Summary Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var in refreshReq
	_ = c.ShouldBindJSON(&in)
	raw := in.Refresh
	if raw == "" {
		raw, _ = c.Cookie(RefreshCookie)
	}
	if raw == "" {
		h.fail(c, apperr.New(apperr.KindMissingToken, "Authentication token missing"))
		return
	}

	claims, err := security.ParseToken(h.JWTSecret, raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	uid, err := primitive.ObjectIDFromHex(claims.UID)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.KindTokenInvalid, "Invalid token", err))
		return
	}
	u, err := h.loadUser(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	if u == nil {
		h.fail(c, apperr.New(apperr.KindUserNotFound, "User not found"))
		return
	}
	if !u.IsActive {
		h.fail(c, apperr.New(apperr.KindAccountInactive, "User account is inactive"))
		return
	}

	access, err := security.MakeAccess(h.JWTSecret, u, h.AccessTTL)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	h.setAuthCookies(c, access, "")
	c.JSON(http.StatusOK, gin.H{"success": true, "token": access})
}

// Logout godoc
// @Summary Clear auth cookies
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	// best-effort: tokens stay valid until expiry, there is no revocation list
	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	u := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.Sanitize()})
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword godoc
// @Summary Change password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body changePasswordReq true "change password"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/auth/change-password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	var in changePasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid json"))
		return
	}

	// re-read from Mongo: the cached copy may predate a recent password change
	u, err := h.Store.FindUserByID(c.Request.Context(), CurrentUser(c).ID)
	if err != nil || u == nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	if !u.HasPassword() {
		h.fail(c, apperr.New(apperr.KindOAuthOnlyAccount,
			"Cannot change password for OAuth account. Please set a password first."))
		return
	}
	if err := security.ValidatePassword(in.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	if in.NewPassword == in.CurrentPassword {
		h.fail(c, apperr.New(apperr.KindValidation, "New password cannot be the same as current password"))
		return
	}
	if !security.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		h.fail(c, apperr.New(apperr.KindInvalidCredentials, "Current password is incorrect"))
		return
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	if err := h.Store.UpdatePassword(c.Request.Context(), u.ID, hash); err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	h.invalidate(c.Request.Context(), u.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}

type setPasswordReq struct {
	Password string `json:"password"`
}

// SetPassword godoc
// @Summary Set a first password on an OAuth-only account
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body setPasswordReq true "set password"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/auth/set-password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	var in setPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid json"))
		return
	}

	u, err := h.Store.FindUserByID(c.Request.Context(), CurrentUser(c).ID)
	if err != nil || u == nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	if u.HasPassword() {
		h.fail(c, apperr.New(apperr.KindPasswordAlreadySet,
			"User already has a password. Use change password instead."))
		return
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		h.fail(c, err)
		return
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	if err := h.Store.SetPassword(c.Request.Context(), u.ID, hash); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// filter matched nothing: a concurrent request set it first
			h.fail(c, apperr.Wrap(apperr.KindPasswordAlreadySet,
				"User already has a password. Use change password instead.", err))
			return
		}
		h.fail(c, apperr.Internal(err))
		return
	}
	h.invalidate(c.Request.Context(), u.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password set successfully"})
}

type updateProfileReq struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// UpdateProfile godoc
// @Summary Update name/avatar
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body updateProfileReq true "profile"
// @Success 200 {object} map[string]any
// @Router /api/auth/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in updateProfileReq
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid json"))
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" && in.Avatar == "" {
		h.fail(c, apperr.New(apperr.KindValidation, "At least one field (name or avatar) is required"))
		return
	}

	uid := CurrentUser(c).ID
	u, err := h.Store.UpdateProfile(c.Request.Context(), uid, name, in.Avatar)
	if err != nil || u == nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	h.invalidate(c.Request.Context(), uid)

	c.JSON(http.StatusOK, gin.H{
		"success": true, "message": "Profile updated successfully", "user": u.Sanitize(),
	})
}

// GoogleStart godoc
// @Summary Redirect to Google consent screen
// @Tags oauth
// @Success 302
// @Router /api/auth/google [get]
func (h *Handler) GoogleStart(c *gin.Context) {
	state := h.Google.MakeState(uuid.NewString())
	c.Redirect(http.StatusFound, h.Google.AuthURL(state))
}

// GoogleCallback godoc
// @Summary Google OAuth callback
// @Tags oauth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		h.fail(c, apperr.New(apperr.KindInvalidCredentials, "OAuth sign-in was cancelled"))
		return
	}
	if !h.Google.VerifyState(c.Query("state")) {
		h.fail(c, apperr.New(apperr.KindTokenInvalid, "Invalid token"))
		return
	}

	gu, err := h.Google.ExchangeAndVerify(c.Request.Context(), c.Query("code"), h.GoogleClientID)
	if err != nil {
		h.fail(c, apperr.Wrap(apperr.KindInvalidCredentials, "Invalid credentials", err))
		return
	}

	u, linked, err := h.Resolver.Resolve(c.Request.Context(), identity.Profile{
		Provider:   domain.ProviderGoogle,
		ProviderID: gu.Sub,
		Email:      gu.Email,
		Name:       gu.Name,
		Avatar:     gu.Picture,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if linked {
		h.invalidate(c.Request.Context(), u.ID)
		go h.Events.Publish(context.Background(), queue.Exchange, queue.KeyUserLinked,
			queue.UserLinked{UserID: u.ID, Email: u.Email, Provider: domain.ProviderGoogle}, reqID(c))
	}

	access, err := security.MakeAccess(h.JWTSecret, u, h.AccessTTL)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	refresh, err := security.MakeRefresh(h.JWTSecret, u)
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	h.setAuthCookies(c, access, refresh)

	if h.FrontendURL != "" {
		c.Redirect(http.StatusFound, h.FrontendURL+"/auth/callback?token="+access)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true, "token": access, "refresh": refresh, "user": u.Sanitize(),
	})
}

// DeactivateUser godoc
// @Summary Deactivate an account (admin)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/admin/users/{id} [delete]
func (h *Handler) DeactivateUser(c *gin.Context) {
	uid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.fail(c, apperr.New(apperr.KindValidation, "invalid user id"))
		return
	}
	if err := h.Store.DeactivateUser(c.Request.Context(), uid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
			return
		}
		h.fail(c, apperr.Internal(err))
		return
	}
	h.invalidate(c.Request.Context(), uid)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deactivated"})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
