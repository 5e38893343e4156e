package tags

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShadyBS/mvRegulador/pkg/pagination"
)

// Handler provides the REST surface for the tag-authoring flow.
type Handler struct {
	svc *Service
}

// NewHandler creates a new tags handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers tag CRUD routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/tags", h.List)
	api.GET("/tags/:name", h.Get)
	api.PUT("/tags/:name", h.Save)
	api.DELETE("/tags/:name", h.Delete)
}

// List handles GET /api/v1/tags
func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	defs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if defs == nil {
		defs = []*TagDefinition{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(defs, total, p.Limit, p.Offset))
}

// Get handles GET /api/v1/tags/:name
func (h *Handler) Get(c echo.Context) error {
	def, err := h.svc.Get(c.Request().Context(), c.Param("name"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "tag not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, def)
}

// Save handles PUT /api/v1/tags/:name
func (h *Handler) Save(c echo.Context) error {
	var def TagDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if def.TagName == "" {
		def.TagName = c.Param("name")
	}
	if SanitizeKey(def.TagName) != SanitizeKey(c.Param("name")) {
		return echo.NewHTTPError(http.StatusBadRequest, "tagName does not match URL")
	}
	if err := h.svc.Save(c.Request().Context(), &def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, def)
}

// Delete handles DELETE /api/v1/tags/:name
func (h *Handler) Delete(c echo.Context) error {
	err := h.svc.Delete(c.Request().Context(), c.Param("name"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "tag not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
