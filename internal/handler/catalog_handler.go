package handler

import (
	"net/http"
	"strconv"

	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /catalog の公開API
type CatalogHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

func (h *CatalogHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/catalog", h.list)
	e.GET("/catalog/:id", h.detail)
}

func (h *CatalogHandler) list(c echo.Context) error {
	available := false
	if v := c.QueryParam("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid available")
		}
		available = b
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListCatalogInput{
		Category:      c.QueryParam("category"),
		AvailableOnly: available,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) detail(c echo.Context) error {
	item, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
