package controller

import (
	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdjustmentController interface {
	RegisterRoutes(r fiber.Router)
	AdjustSQL(ctx *fiber.Ctx) error
	AdjustReasoning(ctx *fiber.Ctx) error
	ReRun(ctx *fiber.Ctx) error
}

type adjustmentController struct {
	adjustmentService service.IAdjustmentService
}

func NewAdjustmentController(adjustmentService service.IAdjustmentService) IAdjustmentController {
	return &adjustmentController{
		adjustmentService: adjustmentService,
	}
}

func (c *adjustmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/adjustment/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("sql", c.AdjustSQL)
	h.Post("reasoning", c.AdjustReasoning)
	h.Post("rerun", c.ReRun)
}

func (c *adjustmentController) AdjustSQL(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	var req dto.AdjustSQLRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adjustmentService.AdjustSQL(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success adjust sql", res))
}

func (c *adjustmentController) AdjustReasoning(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	var req dto.AdjustReasoningRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adjustmentService.AdjustReasoningSteps(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success adjust reasoning", res))
}

func (c *adjustmentController) ReRun(ctx *fiber.Ctx) error {
	userId := userIdFromToken(ctx)

	var req dto.ReRunRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adjustmentService.ReRun(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success rerun response", res))
}
