package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wanderhub/internal/logger"
	appErrors "wanderhub/pkg/errors"
	"wanderhub/pkg/utils"
)

// respondError maps the error taxonomy onto HTTP behavior. Ownership and
// existence failures become redirects to a safe view (least information
// disclosure); user-correctable failures become inline messages; anything
// else is a logged generic server error.
func respondError(c *gin.Context, err error, safePath string) {
	var appErr *appErrors.AppError

	switch {
	case errors.Is(err, appErrors.ErrForbidden),
		errors.Is(err, appErrors.ErrNotFound):
		c.Redirect(http.StatusSeeOther, safePath)

	case errors.Is(err, appErrors.ErrConflict):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())

	case errors.Is(err, appErrors.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, appErrors.ErrInvalidCredentials.Error())

	case errors.Is(err, appErrors.ErrEmailTaken):
		utils.ErrorResponse(c, http.StatusBadRequest, appErrors.ErrEmailTaken.Error())

	case errors.Is(err, appErrors.ErrTokenInvalid), errors.Is(err, appErrors.ErrTokenUsed):
		utils.ErrorResponse(c, http.StatusBadRequest, appErrors.ErrTokenInvalid.Error())

	case errors.As(err, &appErr):
		utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)

	default:
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Something went wrong")
	}
}
