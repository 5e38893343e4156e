package tagging

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShadyBS/mvRegulador/internal/platform/sigss"
)

// Handler exposes the tag evaluation pipeline. A failure here renders as an
// error payload for the tags section only; the sidebar's other patient
// sections are fetched independently and keep rendering.
type Handler struct {
	svc           *Service
	defaultPeriod Period
}

// NewHandler creates a new tagging handler.
func NewHandler(svc *Service, defaultPeriod Period) *Handler {
	return &Handler{svc: svc, defaultPeriod: defaultPeriod}
}

// RegisterRoutes registers the evaluation route on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/tags", h.Evaluate)
}

// Evaluate handles GET /api/v1/patients/:id/tags?period=6m|1y|all
func (h *Handler) Evaluate(c echo.Context) error {
	patientID := c.Param("id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient id is required")
	}
	period, err := ParsePeriod(c.QueryParam("period"), h.defaultPeriod)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	matches, err := h.svc.Evaluate(c.Request().Context(), patientID, period)
	if err != nil {
		switch {
		case errors.Is(err, sigss.ErrSessionExpired):
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "Sessão expirada. Faça login no portal SIGSS novamente.",
			})
		case errors.Is(err, ErrRetrieval):
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "Não foi possível carregar o prontuário do paciente.",
			})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Não foi possível avaliar as tags do paciente.",
			})
		}
	}
	return c.JSON(http.StatusOK, matches)
}
