package recommend

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clearia/clearia/internal/platform/apperr"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/recommendations", h.Recommend)
}

func (h *Handler) Recommend(c echo.Context) error {
	var body struct {
		Symptoms string `json:"symptoms"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(body.Symptoms) == "" {
		return apperr.New(apperr.Validation, "symptoms is required")
	}

	payload, err := h.client.Recommend(c.Request().Context(), body.Symptoms)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}
