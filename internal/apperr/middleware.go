package apperr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/logger"
)

// FieldError is one entry of a 422 response's errors list.
type FieldError struct {
	Field string `json:"field,omitempty"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Middleware renders the last error pushed with c.Error as JSON.
func Middleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		httpErr := From(c.Errors.Last().Err)
		nameFormFields(c, httpErr)
		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.For(c, log).Error("request failed",
				zap.String("path", c.FullPath()),
				zap.Error(httpErr.Err),
			)
		}
		c.AbortWithStatusJSON(httpErr.StatusCode, httpErr)
	}
}

// From maps any error to the HTTPError that should be rendered for it.
func From(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: jsonName(fe), Rule: fe.Tag(), Param: fe.Param()})
		}
		return Unprocessable("Unprocessable entity", fields)
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		rule := "numeric"
		if numErr.Func == "ParseBool" {
			rule = "boolean"
		}
		return Unprocessable("Unprocessable entity", []FieldError{{Rule: rule, Param: numErr.Num}})
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return Unprocessable("Unprocessable entity", []FieldError{{Rule: "datetime", Param: timeErr.Value}})
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return New(http.StatusRequestEntityTooLarge, UnprocessableEntity, "Request body too large")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return Unprocessable("Unprocessable entity", nil)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("Record not found", 0)
	}
	return Internal(err)
}

// nameFormFields fills in the field of form parse errors, which gin reports
// without one, by finding the submitted value that failed to parse.
func nameFormFields(c *gin.Context, httpErr *HTTPError) {
	fields, ok := httpErr.Errors.([]FieldError)
	if !ok || c.Request.PostForm == nil {
		return
	}
	for i := range fields {
		if fields[i].Field != "" {
			continue
		}
		for key, values := range c.Request.PostForm {
			for _, v := range values {
				if v == fields[i].Param {
					fields[i].Field = key
				}
			}
		}
	}
}

func jsonName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if ns == "" {
		return fe.Field()
	}
	return ns
}
