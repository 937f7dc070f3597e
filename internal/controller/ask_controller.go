package controller

import (
	"bufio"
	"context"
	"time"

	"ai-askdata-be/internal/dto"
	"ai-askdata-be/internal/pkg/logger"
	"ai-askdata-be/internal/pkg/serverutils"
	"ai-askdata-be/internal/service"
	"ai-askdata-be/pkg/adapter"
	"ai-askdata-be/pkg/process"
	"ai-askdata-be/pkg/streaming"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IAskController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	StopAsk(ctx *fiber.Ctx) error
	GetAskingTask(ctx *fiber.Ctx) error
	StreamTask(ctx *fiber.Ctx) error
	StreamAnswer(ctx *fiber.Ctx) error
}

type askController struct {
	askService  service.IAskService
	aiClient    *adapter.Client
	accumulator *streaming.Accumulator
	logger      logger.ILogger

	pollInterval time.Duration
}

func NewAskController(
	askService service.IAskService,
	aiClient *adapter.Client,
	accumulator *streaming.Accumulator,
	log logger.ILogger,
	pollInterval time.Duration,
) IAskController {
	return &askController{
		askService:   askService,
		aiClient:     aiClient,
		accumulator:  accumulator,
		logger:       log,
		pollInterval: pollInterval,
	}
}

func (c *askController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ask/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Ask)
	h.Post("stop", c.StopAsk)
	h.Get("task/:queryId", c.GetAskingTask)

	// SSE endpoints are consumed via EventSource, which cannot set an
	// Authorization header, so they live outside the JWT group.
	s := r.Group("/ask_task")
	s.Get("streaming", c.StreamTask)
	s.Get("streaming_answer", c.StreamAnswer)
}

func (c *askController) Ask(ctx *fiber.Ctx) error {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.askService.Ask(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit question", res))
}

func (c *askController) StopAsk(ctx *fiber.Ctx) error {
	var req dto.StopAskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.askService.StopAsk(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success stop question", nil))
}

func (c *askController) GetAskingTask(ctx *fiber.Ctx) error {
	queryId := ctx.Params("queryId")

	task, ok := c.askService.GetAskingTask(queryId)
	if !ok {
		return serverutils.NewNotFoundError("no asking task for query id")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get asking task", task))
}

func setSSEHeaders(ctx *fiber.Ctx) {
	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("Transfer-Encoding", "chunked")
}

// streamHeartbeatEvery bounds how long a progress stream stays silent. A
// peer that went away turns the next heartbeat into a write error.
const streamHeartbeatEvery = 15 * time.Second

// StreamTask pushes asking-task progress as SSE frames until the task ends
// or its run is evicted from the registry.
func (c *askController) StreamTask(ctx *fiber.Ctx) error {
	queryId := ctx.Query("queryId")
	if queryId == "" {
		return serverutils.NewValidationError("queryId is required")
	}
	if _, ok := c.askService.GetAskingTask(queryId); !ok {
		return serverutils.NewNotFoundError("no asking task for query id")
	}

	interval := c.pollInterval
	setSSEHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		var lastStatus string
		lastWrite := time.Now()
		for {
			task, ok := c.askService.GetAskingTask(queryId)
			if !ok {
				break
			}
			if task.Status != lastStatus {
				lastStatus = task.Status
				if err := streaming.WriteEvent(w, task); err != nil {
					return
				}
				lastWrite = time.Now()
			} else if time.Since(lastWrite) >= streamHeartbeatEvery {
				if err := streaming.WriteHeartbeat(w); err != nil {
					return
				}
				lastWrite = time.Now()
			}
			if process.State(task.Status).IsTerminal() {
				break
			}
			time.Sleep(interval)
		}
		_ = streaming.WriteDone(w)
	}))
	return nil
}

// StreamAnswer proxies the generated answer token stream to the client while
// mirroring it server side, so the full text survives even when the client
// disconnects mid stream.
func (c *askController) StreamAnswer(ctx *fiber.Ctx) error {
	responseIdStr := ctx.Query("responseId")
	responseId, err := uuid.Parse(responseIdStr)
	if err != nil {
		return serverutils.NewValidationError("responseId must be a valid uuid")
	}

	queryId, err := c.askService.ResolveQueryId(ctx.Context(), responseId)
	if err != nil {
		return err
	}

	setSSEHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		body, err := c.aiClient.OpenAnswerStream(streamCtx, queryId)
		if err != nil {
			c.logger.Warn("AskController", "Failed to open answer stream", map[string]interface{}{
				"query_id": queryId,
				"error":    err.Error(),
			})
			return
		}
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			frame, ok := streaming.ParseFrame(scanner.Bytes())
			if !ok {
				continue
			}
			if frame.Done {
				_ = streaming.WriteDone(w)
				if err := c.accumulator.Finish(context.Background(), responseId); err != nil {
					c.logger.Error("AskController", "Failed to persist finished answer", map[string]interface{}{
						"response_id": responseId,
						"error":       err.Error(),
					})
				}
				return
			}

			c.accumulator.Append(responseId, frame.Message)
			if err := streaming.WriteEvent(w, frame); err != nil {
				// Client went away; keep what we have.
				if err := c.accumulator.Interrupt(context.Background(), responseId); err != nil {
					c.logger.Error("AskController", "Failed to persist interrupted answer", map[string]interface{}{
						"response_id": responseId,
						"error":       err.Error(),
					})
				}
				return
			}
		}

		// Upstream ended without a done frame.
		if err := c.accumulator.Interrupt(context.Background(), responseId); err != nil {
			c.logger.Error("AskController", "Failed to persist interrupted answer", map[string]interface{}{
				"response_id": responseId,
				"error":       err.Error(),
			})
		}
	}))
	return nil
}
