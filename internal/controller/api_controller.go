package controller

import (
	"bufio"
	"context"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/service"
	"ai-askdata-be/pkg/streaming"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IApiController interface {
	RegisterRoutes(r fiber.Router)
	RunSQL(ctx *fiber.Ctx) error
	GenerateVegaChart(ctx *fiber.Ctx) error
	GenerateSummary(ctx *fiber.Ctx) error
	StreamGenerateSQL(ctx *fiber.Ctx) error
}

type apiController struct {
	apiService service.IApiService
	logger     logger.ILogger
}

func NewApiController(apiService service.IApiService, log logger.ILogger) IApiController {
	return &apiController{
		apiService: apiService,
		logger:     log,
	}
}

func (c *apiController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("run_sql", c.RunSQL)
	h.Post("generate_vega_chart", c.GenerateVegaChart)
	h.Post("generate_summary", c.GenerateSummary)
	h.Post("stream/generate_sql", c.StreamGenerateSQL)

	// Everything here is POST-only; reject other verbs explicitly instead of
	// falling through to a 404.
	h.All("run_sql", methodNotAllowed)
	h.All("generate_vega_chart", methodNotAllowed)
	h.All("generate_summary", methodNotAllowed)
	h.All("stream/generate_sql", methodNotAllowed)
}

func methodNotAllowed(ctx *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusMethodNotAllowed, "method not allowed, use POST")
}

func projectIdFromToken(ctx *fiber.Ctx) uuid.UUID {
	projectIdStr, _ := ctx.Locals("project_id").(string)
	projectId, _ := uuid.Parse(projectIdStr)
	return projectId
}

func (c *apiController) RunSQL(ctx *fiber.Ctx) error {
	var req dto.RunSQLRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.apiService.RunSQL(ctx.Context(), projectIdFromToken(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *apiController) GenerateVegaChart(ctx *fiber.Ctx) error {
	var req dto.GenerateVegaChartRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.apiService.GenerateVegaChart(ctx.Context(), projectIdFromToken(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *apiController) GenerateSummary(ctx *fiber.Ctx) error {
	var req dto.GenerateSummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.apiService.GenerateSummary(ctx.Context(), projectIdFromToken(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

// StreamGenerateSQL answers with an SSE stream of generation stage frames.
// Deployment and validation failures surface as regular JSON errors before
// any frame is written.
func (c *apiController) StreamGenerateSQL(ctx *fiber.Ctx) error {
	var req dto.GenerateSQLRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	projectId := projectIdFromToken(ctx)

	setSSEHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber context dies with the handler; the stream outlives it.
		err := c.apiService.StreamGenerateSQL(context.Background(), projectId, &req, func(frame dto.SQLGenerationFrame) error {
			return streaming.WriteEvent(w, frame)
		})
		if err != nil {
			c.logger.Warn("ApiController", "Streaming SQL generation ended with error", map[string]interface{}{
				"error": err.Error(),
			})
		}
		_ = streaming.WriteDone(w)
	}))
	return nil
}
