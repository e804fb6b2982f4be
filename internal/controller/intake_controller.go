package controller

import (
	"context"
	"sync"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/mapper"
	"lab-compare-be/internal/pkg/serverutils"
	"lab-compare-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIntakeController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
}

type intakeController struct {
	dispatcher service.IDispatcherService
	intake     service.IIntakeService
	mapper     *mapper.IntakeMapper
}

func NewIntakeController(dispatcher service.IDispatcherService, intake service.IIntakeService) IIntakeController {
	return &intakeController{
		dispatcher: dispatcher,
		intake:     intake,
		mapper:     mapper.NewIntakeMapper(),
	}
}

func (c *intakeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/intake/v1/:userId")
	h.Post("/start", c.Start)
	h.Post("/messages", c.SendMessage)
	h.Post("/documents", c.UploadDocument)
	h.Post("/cancel", c.Cancel)
	h.Get("/session", c.GetSession)
}

func (c *intakeController) Start(ctx *fiber.Ctx) error {
	return c.dispatch(ctx, dto.IntakeEvent{Kind: dto.IntakeEventStart})
}

func (c *intakeController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendIntakeMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return c.dispatch(ctx, dto.IntakeEvent{Kind: dto.IntakeEventText, Text: req.Text})
}

func (c *intakeController) UploadDocument(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing multipart field 'file'")
	}

	return c.dispatch(ctx, dto.IntakeEvent{
		Kind:     dto.IntakeEventDocument,
		Document: dto.NewMultipartDocument(file),
	})
}

func (c *intakeController) Cancel(ctx *fiber.Ctx) error {
	return c.dispatch(ctx, dto.IntakeEvent{Kind: dto.IntakeEventCancel})
}

func (c *intakeController) GetSession(ctx *fiber.Ctx) error {
	userId := ctx.Params("userId")
	res := c.mapper.ToSessionResponse(c.intake.Session(userId))
	res.UserID = userId

	return ctx.JSON(serverutils.SuccessResponse("Success get intake session", res))
}

// dispatch waits for the event to be processed so the replies it produced
// can be returned in the response body.
func (c *intakeController) dispatch(ctx *fiber.Ctx, event dto.IntakeEvent) error {
	event.UserID = ctx.Params("userId")
	event.ReceivedAt = time.Now()

	replier := &collectingReplier{}
	if err := <-c.dispatcher.Submit(ctx.UserContext(), event, replier); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process intake event", dto.IntakeRepliesResponse{
		UserID:  event.UserID,
		Replies: replier.Replies(),
	}))
}

type collectingReplier struct {
	mu      sync.Mutex
	replies []string
}

func (r *collectingReplier) SendText(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return nil
}

func (r *collectingReplier) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	copy(out, r.replies)
	return out
}
