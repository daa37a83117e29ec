package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/middleware"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request models.
// Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("clock", validateClock)
	})
	return err
}

// validateClock accepts HH:MM between 00:00 and 23:59
func validateClock(fl validator.FieldLevel) bool {
	_, err := models.ParseClock(fl.Field().String())
	return err == nil
}

// actorFrom returns the authenticated actor or writes 401
func actorFrom(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User context not found",
			Code:    "MISSING_USER_CONTEXT",
		})
	}
	return actor, ok
}

// int64Param parses a positive integer path parameter or writes 400
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: fmt.Sprintf("Invalid %s", name),
			Code:    "VALIDATION_ERROR",
		})
		return 0, false
	}
	return id, true
}

// dateValue parses a YYYY-MM-DD value or writes 400
func dateValue(c *gin.Context, name, value string) (time.Time, bool) {
	d, err := models.ParseDate(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: fmt.Sprintf("Invalid %s: %v", name, err),
			Code:    "VALIDATION_ERROR",
		})
		return time.Time{}, false
	}
	return d, true
}
