package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind is the machine-readable tag clients branch on. Kinds are stable;
// messages are not.
type ErrorKind string

const (
	KindUnauthenticated          ErrorKind = "UNAUTHENTICATED"
	KindForbidden                ErrorKind = "FORBIDDEN"
	KindNoTenantContext          ErrorKind = "NO_TENANT_CONTEXT"
	KindTenantNotFound           ErrorKind = "TENANT_NOT_FOUND"
	KindTenantInactive           ErrorKind = "TENANT_INACTIVE"
	KindPlanFeatureGated         ErrorKind = "PLAN_FEATURE_GATED"
	KindQuotaExceeded            ErrorKind = "QUOTA_EXCEEDED"
	KindFreePlanReadOnly         ErrorKind = "FREE_PLAN_READ_ONLY"
	KindComplianceBlocked        ErrorKind = "COMPLIANCE_BLOCKED"
	KindComplianceReasonRequired ErrorKind = "COMPLIANCE_REASON_REQUIRED"
	KindValidation               ErrorKind = "VALIDATION"
	KindNotFound                 ErrorKind = "NOT_FOUND"
	KindInternal                 ErrorKind = "INTERNAL"
)

// AppError is a structured failure carrying a kind tag and optional metadata
// for client branching and UI rendering.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Meta    fiber.Map
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Respond renders the error as a JSON response.
func (e *AppError) Respond(c *fiber.Ctx) error {
	switch e.Kind {
	case KindPlanFeatureGated, KindQuotaExceeded, KindFreePlanReadOnly,
		KindComplianceBlocked, KindComplianceReasonRequired, KindTenantInactive:
		entitlementDenialCounter.WithLabelValues(string(e.Kind)).Inc()
	}
	body := fiber.Map{
		"error": e.Message,
		"kind":  e.Kind,
	}
	for k, v := range e.Meta {
		body[k] = v
	}
	return c.Status(e.Status).JSON(body)
}

func NewUnauthenticated(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Status: fiber.StatusUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Status: fiber.StatusForbidden, Message: message}
}

func NewNoTenantContext() *AppError {
	return &AppError{
		Kind:    KindNoTenantContext,
		Status:  fiber.StatusForbidden,
		Message: "no tenant associated with this account",
	}
}

func NewTenantNotFound() *AppError {
	return &AppError{
		Kind:    KindTenantNotFound,
		Status:  fiber.StatusNotFound,
		Message: "tenant not found",
	}
}

// NewTenantInactive attaches the tenant status so clients can branch on
// expired trial vs suspended vs cancelled.
func NewTenantInactive(status, message string) *AppError {
	return &AppError{
		Kind:    KindTenantInactive,
		Status:  fiber.StatusForbidden,
		Message: message,
		Meta:    fiber.Map{"status": status},
	}
}

func NewPlanFeatureGated(plan, feature string) *AppError {
	return &AppError{
		Kind:    KindPlanFeatureGated,
		Status:  fiber.StatusForbidden,
		Message: fmt.Sprintf("feature %q is not included in the %s plan", feature, plan),
		Meta:    fiber.Map{"plan": plan, "feature": feature},
	}
}

func NewQuotaExceeded(resource string, current int64, limit int) *AppError {
	return &AppError{
		Kind:    KindQuotaExceeded,
		Status:  fiber.StatusForbidden,
		Message: fmt.Sprintf("%s quota reached (%d of %d used)", resource, current, limit),
		Meta:    fiber.Map{"resource": resource, "current": current, "limit": limit},
	}
}

func NewFreePlanReadOnly() *AppError {
	return &AppError{
		Kind:    KindFreePlanReadOnly,
		Status:  fiber.StatusForbidden,
		Message: "free plan accounts are read-only; upgrade to make changes",
	}
}

func NewComplianceBlocked(mode, capability string) *AppError {
	return &AppError{
		Kind:    KindComplianceBlocked,
		Status:  fiber.StatusForbidden,
		Message: fmt.Sprintf("%s operations are blocked by the active compliance policy", capability),
		Meta:    fiber.Map{"mode": mode, "capability": capability},
	}
}

func NewComplianceReasonRequired(mode string) *AppError {
	return &AppError{
		Kind:    KindComplianceReasonRequired,
		Status:  fiber.StatusBadRequest,
		Message: "this operation requires a justification reason",
		Meta:    fiber.Map{"mode": mode},
	}
}

func NewInternal(message string) *AppError {
	return &AppError{Kind: KindInternal, Status: fiber.StatusInternalServerError, Message: message}
}
