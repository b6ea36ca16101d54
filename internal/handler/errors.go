package handler

import (
	"errors"
	"net/http"

	"canteen/internal/domain/model"
	"canteen/internal/middleware"
	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// usecaseのエラーをHTTPステータスに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	return c.JSON(statusOf(err), ErrorResponse{Message: messageOf(err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation), errors.Is(err, usecase.ErrPaymentDeclined):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrIllegalTransition), errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

//500は中身を出さない
func messageOf(err error) string {
	if statusOf(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Message: msg})
}

func getUserContext(c echo.Context) (model.UserContext, bool) {
	return middleware.UserContextFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
}
