package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/store"
)

const (
	codeOK   = 0
	codeFail = 1
)

type envelope struct {
	Code       int               `json:"code"`
	Data       interface{}       `json:"data,omitempty"`
	Mess       string            `json:"mess"`
	Kind       apperr.Kind       `json:"kind,omitempty"`
	Total      *int64            `json:"total,omitempty"`
	Pagination *store.Pagination `json:"pagination,omitempty"`
}

func respondJSON(c *gin.Context, status int, data interface{}, mess string) {
	c.JSON(status, envelope{Code: codeOK, Data: data, Mess: mess})
}

func respondPage(c *gin.Context, data interface{}, total int64, p store.Pagination, mess string) {
	c.JSON(http.StatusOK, envelope{Code: codeOK, Data: data, Mess: mess, Total: &total, Pagination: &p})
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	mess := err.Error()
	if kind == apperr.KindInternal {
		logFrom(c).WithError(err).Error("request failed")
		mess = "internal error"
	}

	c.AbortWithStatusJSON(status, envelope{Code: codeFail, Mess: mess, Kind: kind})
}

func badRequest(c *gin.Context, op string, err error) {
	respondError(c, apperr.Validation(op, "Invalid request body: %v", err))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidReference, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func logFrom(c *gin.Context) logrus.FieldLogger {
	if l, ok := c.Get(ctxLogger); ok {
		if fl, ok := l.(logrus.FieldLogger); ok {
			return fl
		}
	}
	return logrus.StandardLogger()
}
