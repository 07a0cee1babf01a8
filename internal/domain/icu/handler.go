package icu

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clearia/clearia/internal/platform/auth"
	"github.com/clearia/clearia/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireStaff())

	staff.POST("/admissions", h.CreateAdmission)
	staff.GET("/admissions", h.ListAdmissions)
	staff.GET("/admissions/current", h.CurrentAdmissions)
	staff.GET("/admissions/mine", h.MyActiveAdmissions)
	staff.GET("/admissions/:id", h.GetAdmission)
	staff.PATCH("/admissions/:id", h.UpdateAdmission)
	staff.POST("/admissions/:id/discharge", h.Discharge)
	staff.DELETE("/admissions/:id", h.DeleteAdmission)
	staff.GET("/admissions/:id/status-updates", h.ListByAdmission)

	staff.POST("/status-updates", h.CreateStatusUpdate)
	staff.GET("/status-updates", h.ListStatusUpdates)
	staff.GET("/status-updates/stats", h.StatusCounts)
	staff.GET("/status-updates/:id", h.GetStatusUpdate)
	staff.PATCH("/status-updates/:id", h.UpdateStatusUpdate)
	staff.DELETE("/status-updates/:id", h.DeleteStatusUpdate)

	// Patients may check their own current status.
	api.GET("/patients/:id/current-status", h.CurrentStatus)
}

func (h *Handler) CreateAdmission(c echo.Context) error {
	var a Admission
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAdmission(c.Request().Context(), &a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAdmission(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAdmissions(c echo.Context) error {
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		admissions, err := h.svc.ListAdmissionsByPatient(c.Request().Context(), pid)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, admissions)
	}

	pg := pagination.FromContext(c)
	admissions, total, err := h.svc.ListAdmissions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(admissions, total, pg.Limit, pg.Offset))
}

func (h *Handler) CurrentAdmissions(c echo.Context) error {
	current, err := h.svc.CurrentAdmissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, current)
}

func (h *Handler) MyActiveAdmissions(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	admissions, err := h.svc.ActiveAdmissionsByStaff(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admissions)
}

func (h *Handler) UpdateAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateAdmissionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateAdmission(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		DischargeDate *time.Time `json:"discharge_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Discharge(c.Request().Context(), id, body.DischargeDate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAdmission(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CurrentStatus(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	if !id.IsStaff() && id.UserID != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "access restricted to own record")
	}
	result, err := h.svc.CurrentStatus(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateStatusUpdate(c echo.Context) error {
	var su StatusUpdate
	if err := c.Bind(&su); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStatusUpdate(c.Request().Context(), &su); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, su)
}

func (h *Handler) GetStatusUpdate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	su, err := h.svc.GetStatusUpdate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, su)
}

func (h *Handler) ListStatusUpdates(c echo.Context) error {
	pg := pagination.FromContext(c)
	updates, total, err := h.svc.ListStatusUpdates(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(updates, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	updates, err := h.svc.ListStatusUpdatesByAdmission(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updates)
}

func (h *Handler) UpdateStatusUpdate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateStatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	su, err := h.svc.UpdateStatusUpdate(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, su)
}

func (h *Handler) DeleteStatusUpdate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteStatusUpdate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) StatusCounts(c echo.Context) error {
	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		to = &t
	}
	counts, err := h.svc.StatusCounts(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}
