package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/study-share/internal/api/dto"
	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/service"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

// QuestionsHandler manages question and report endpoints for members.
type QuestionsHandler struct {
	service *service.ModerationService
}

// NewQuestionsHandler constructs handler.
func NewQuestionsHandler(moderation *service.ModerationService) *QuestionsHandler {
	return &QuestionsHandler{service: moderation}
}

// ListQuestions GET /questions.
func (h *QuestionsHandler) ListQuestions(c *fiber.Ctx) error {
	questions, err := h.service.ListQuestions(c.UserContext(), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	items := make([]dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		items = append(items, dto.NewQuestionResponse(&questions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetQuestion GET /questions/:slug.
func (h *QuestionsHandler) GetQuestion(c *fiber.Ctx) error {
	question, err := h.service.GetQuestionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionResponse(question)})
}

// CreateQuestion POST /questions.
func (h *QuestionsHandler) CreateQuestion(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	question, err := h.service.CreateQuestion(c.UserContext(), identity.UserID, req.Title, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewQuestionResponse(question)})
}

// UpdateQuestion PATCH /questions/:slug.
func (h *QuestionsHandler) UpdateQuestion(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	question, err := h.service.GetQuestionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	updated, err := h.service.UpdateQuestion(c.UserContext(), question.ID, identity, service.QuestionUpdateInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionResponse(updated)})
}

// DeleteQuestion DELETE /questions/:slug.
func (h *QuestionsHandler) DeleteQuestion(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	question, err := h.service.GetQuestionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	removed, err := h.service.DeleteQuestion(c.UserContext(), question.ID, identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": question.ID, "reports_removed": removed}})
}

// FileReport POST /questions/:slug/reports.
func (h *QuestionsHandler) FileReport(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.FileReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	question, err := h.service.GetQuestionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	report, err := h.service.FileReport(c.UserContext(), question.ID, identity.UserID, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}
