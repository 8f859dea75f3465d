package controller

import (
	"bufio"
	"context"

	"cs-chatbot-be/internal/dto"
	"cs-chatbot-be/internal/pkg/serverutils"
	"cs-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	SessionStats(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SessionStatus(ctx *fiber.Ctx) error
	AbortSession(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	Greeting(ctx *fiber.Ctx) error
	Escalate(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService       service.IChatService
	escalationService service.IEscalationService
}

func NewChatController(chatService service.IChatService, escalationService service.IEscalationService) IChatController {
	return &chatController{
		chatService:       chatService,
		escalationService: escalationService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("session", c.CreateSession)
	h.Post("stream", c.Stream)
	h.Get("sessions", c.SessionStats)
	h.Delete("session/:id", c.DeleteSession)
	h.Get("status/:id", c.SessionStatus)
	h.Post("abort/:id", c.AbortSession)
	h.Post("reset/:id", c.ResetSession)
	h.Get("greeting/:id", c.Greeting)
	h.Post("escalate/:id", c.Escalate)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	// Body is optional: an empty POST creates a session with a greeting.
	_ = ctx.BodyParser(&req)

	withGreeting := true
	if req.WithGreeting != nil {
		withGreeting = *req.WithGreeting
	}

	res := c.chatService.CreateSession(withGreeting)
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

// Stream runs one chat turn over SSE. Errors inside the turn become error
// events on the stream, so this handler only rejects malformed requests.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	var req dto.ChatStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// fasthttp calls this after the handler returns; the fiber ctx is
		// gone by then, so the turn runs on a fresh context.
		c.chatService.StreamChat(context.Background(), &req, w)
	})

	return nil
}

func (c *chatController) SessionStats(ctx *fiber.Ctx) error {
	res := c.chatService.SessionStats()
	return ctx.JSON(serverutils.SuccessResponse("Success get session stats", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	res := c.chatService.DeleteSession(id)
	return ctx.JSON(serverutils.SuccessResponse("Success delete session", res))
}

func (c *chatController) SessionStatus(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	res := c.chatService.SessionStatus(id)
	return ctx.JSON(serverutils.SuccessResponse("Success get session status", res))
}

func (c *chatController) AbortSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	res := c.chatService.AbortSession(id)
	if !res.Success {
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ApiResponse{
			Success: false,
			Message: res.Message,
			Data:    res,
		})
	}
	return ctx.JSON(serverutils.SuccessResponse("Success abort session", res))
}

func (c *chatController) ResetSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	res := c.chatService.ResetSession(id)
	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}

func (c *chatController) Greeting(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	res := c.chatService.SmartGreeting(ctx.Context(), id)
	return ctx.JSON(serverutils.SuccessResponse("Success get greeting", res))
}

func (c *chatController) Escalate(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	var req dto.EscalateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res := c.escalationService.Escalate(id, req.Reason)
	if !res.Success {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.FailResponse(res.Message))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success escalate session", res))
}
