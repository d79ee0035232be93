package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/study-share/internal/api/dto"
	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/service"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

// AdminHandler serves the role-gated administrative views.
type AdminHandler struct {
	moderation *service.ModerationService
	admin      *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(moderation *service.ModerationService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{moderation: moderation, admin: admin}
}

// ListAdministrators GET /admin/administrators.
func (h *AdminHandler) ListAdministrators(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	users, err := h.admin.ListAdministrators(c.UserContext(), identity)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items, "viewer": fiber.Map{"id": identity.UserID, "role": identity.Role}})
}

// ListReports GET /admin/reports?status=&question_id=.
func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := service.ReportListFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if status := c.Query("status"); status != "" {
		s := domain.ReportStatus(status)
		filter.Status = &s
	}
	if questionID := c.Query("question_id"); questionID != "" {
		filter.QuestionID = &questionID
	}

	reports, err := h.moderation.ListReports(c.UserContext(), identity, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, dto.NewReportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ResolveReport POST /admin/reports/:id/resolve.
func (h *AdminHandler) ResolveReport(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.moderation.ResolveReport(c.UserContext(), c.Params("id"), identity, req.Outcome)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolveReportResponse{
		Report:          dto.NewReportResponse(result.Report),
		QuestionDeleted: result.QuestionDeleted,
		ReportsRemoved:  result.ReportsRemoved,
	}})
}

// SetRole PUT /admin/users/:id/role.
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.admin.SetRole(c.UserContext(), identity, c.Params("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
