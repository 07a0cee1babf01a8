package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// User roles. PATIENT accounts are scoped to their own records; the staff
// roles may read and write clinical data, with ADMIN implying everything.
const (
	RoleNurse   = "NURSE"
	RoleDoctor  = "DOCTOR"
	RoleAdmin   = "ADMIN"
	RolePatient = "PATIENT"
)

// ValidRole reports whether role is one of the defined user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleNurse, RoleDoctor, RoleAdmin, RolePatient:
		return true
	}
	return false
}

// RequireRole returns middleware that checks if the caller has at least one
// of the specified roles. ADMIN passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}
			if id.Role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if id.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequireStaff is shorthand for RequireRole over the three staff roles.
func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(RoleAdmin, RoleDoctor, RoleNurse)
}
