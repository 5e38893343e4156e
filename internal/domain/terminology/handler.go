package terminology

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShadyBS/mvRegulador/pkg/pagination"
)

// Handler provides the REST endpoint backing the tag-authoring code search.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/terminology/search", h.Search)
}

// Search handles GET /api/v1/terminology/search?q=...
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	p := pagination.FromContext(c)
	results, err := h.svc.Search(c.Request().Context(), query, p.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if results == nil {
		results = []*ClinicalCode{}
	}
	return c.JSON(http.StatusOK, results)
}
