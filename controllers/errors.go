package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
)

// respondServiceError maps domain errors onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var (
		occupied   *services.TableOccupiedError
		transition *services.TransitionError
	)
	switch {
	case errors.As(err, &occupied):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{
			"tableId":   occupied.TableID,
			"sessionId": occupied.SessionID,
		})
	case errors.As(err, &transition):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{
			"from":    transition.From,
			"to":      transition.To,
			"allowed": transition.Allowed,
		})
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSessionNotOpen),
		errors.Is(err, services.ErrTableAlreadyOccupied),
		errors.Is(err, services.ErrBillExists):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrCustomerSessionMismatch):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrInvalidOrder), errors.Is(err, services.ErrInvalidBill):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrTransientStore):
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("storage temporarily unavailable"))
	default:
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// idParam reads a positive numeric path parameter, answering 400 if it is
// missing or malformed.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}
