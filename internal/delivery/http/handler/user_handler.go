package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/internal/config"
	"wanderhub/internal/middleware"
	"wanderhub/internal/usecase/user"
	"wanderhub/pkg/utils"
)

type UserHandler struct {
	service *user.Service
	session *config.SessionConfig
}

func NewUserHandler(service *user.Service, session *config.SessionConfig) *UserHandler {
	return &UserHandler{service: service, session: session}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/login", h.LoginForm)
	router.POST("/login", h.LogIn)
	router.GET("/signup", h.SignupForm)
	router.POST("/signup", h.SignUp)
	router.GET("/logout", h.LogOut)
	router.GET("/forgot", h.ForgotForm)
	router.POST("/forgot", h.ForgotPassword)
	router.GET("/reset/:token", h.ResetForm)
	router.POST("/reset/:token", h.ResetPassword)
}

func (h *UserHandler) RegisterProfileRoutes(router *gin.RouterGroup) {
	router.GET("/profile", h.Profile)
}

func (h *UserHandler) LoginForm(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Login form", gin.H{"form": "login"})
}

func (h *UserHandler) SignupForm(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Signup form", gin.H{"form": "signup"})
}

func (h *UserHandler) ForgotForm(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Forgot password form", gin.H{"form": "forgot"})
}

func (h *UserHandler) SignUp(c *gin.Context) {
	var req user.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.SignUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "/signup")
		return
	}

	h.setSessionCookie(c, result)
	utils.SuccessResponse(c, http.StatusCreated, "Account created", result.User)
}

func (h *UserHandler) LogIn(c *gin.Context) {
	var req user.LogInRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.LogIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "/login")
		return
	}

	h.setSessionCookie(c, result)
	utils.SuccessResponse(c, http.StatusOK, "Logged in", result.User)
}

func (h *UserHandler) LogOut(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.service.LogOut(c.Request.Context(), token); err != nil {
			respondError(c, err, "/login")
			return
		}
	}

	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.SecureOnly, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req user.ForgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resetLink, err := h.service.ForgotPassword(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "/forgot")
		return
	}

	// The link goes out of band (email); it is returned here for the
	// presentation layer to confirm delivery.
	utils.SuccessResponse(c, http.StatusOK, "Password reset link issued", gin.H{
		"reset_link": resetLink,
	})
}

func (h *UserHandler) ResetForm(c *gin.Context) {
	if err := h.service.ValidateResetToken(c.Request.Context(), c.Param("token")); err != nil {
		respondError(c, err, "/forgot")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Reset password form", gin.H{"form": "reset"})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req user.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Token = c.Param("token")

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err, "/forgot")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Password reset, please log in", nil)
}

func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "/listings")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile", gin.H{
		"user":                  profile,
		"is_seller":             middleware.IsSeller(c),
		"pending_request_count": middleware.PendingRequestCount(c),
	})
}

func (h *UserHandler) setSessionCookie(c *gin.Context, result *user.AuthResult) {
	maxAge := int(time.Until(result.SessionExpiresAt).Seconds())
	c.SetCookie(h.session.CookieName, result.SessionToken, maxAge, "/", "", h.session.SecureOnly, true)
}
