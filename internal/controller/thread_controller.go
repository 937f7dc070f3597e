package controller

import (
	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IThreadController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Index(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	RecommendedQuestions(ctx *fiber.Ctx) error
}

type threadController struct {
	threadService service.IThreadService
}

func NewThreadController(threadService service.IThreadService) IThreadController {
	return &threadController{
		threadService: threadService,
	}
}

func (c *threadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/thread/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.Index)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Get(":id/recommended-questions", c.RecommendedQuestions)
}

func userIdFromToken(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}

func (c *threadController) Create(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)
	projectId := projectIdFromToken(ctx)

	var req dto.CreateThreadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.threadService.CreateThread(ctx.Context(), userId, projectId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create thread", res))
}

func (c *threadController) Index(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	res, err := c.threadService.GetAllThreads(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get threads", res))
}

func (c *threadController) Show(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("id must be a valid uuid")
	}

	res, err := c.threadService.GetThread(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show thread", res))
}

func (c *threadController) Delete(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("id must be a valid uuid")
	}

	if err := c.threadService.DeleteThread(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete thread", nil))
}

func (c *threadController) RecommendedQuestions(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("id must be a valid uuid")
	}

	res, err := c.threadService.GetRecommendedQuestions(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get recommended questions", res))
}
