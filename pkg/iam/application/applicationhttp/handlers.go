package applicationhttp

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationsrv"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/oauthhttp"
	"github.com/gofiber/fiber/v2"
)

// ApplicationHandlers expone la gestión de aplicaciones por HTTP. Every route
// is scoped to the authenticated tenant: the client account on the bearer
// token is the owner account.
type ApplicationHandlers struct {
	service *applicationsrv.ApplicationService
}

func NewApplicationHandlers(service *applicationsrv.ApplicationService) *ApplicationHandlers {
	return &ApplicationHandlers{service: service}
}

func (h *ApplicationHandlers) RegisterRoutes(app fiber.Router, mw *oauthhttp.BearerMiddleware) {
	routes := app.Group("/api/v1/applications", mw.Authenticate())
	routes.Post("/", h.create)
	routes.Get("/", h.list)
	routes.Get("/:id", h.get)
	routes.Put("/:id", h.update)
	routes.Post("/:id/activate", h.activate)
	routes.Post("/:id/suspend", h.suspend)
	routes.Post("/:id/terminate", h.terminate)
	routes.Delete("/:id", h.delete)
}

func (h *ApplicationHandlers) create(c *fiber.Ctx) error {
	var body application.Application
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	actor := oauthhttp.Actor(c)
	created, err := h.service.Create(c.Context(), actor, body, actor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ApplicationHandlers) list(c *fiber.Ctx) error {
	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("size", 0),
	}

	page, err := h.service.FindAllOf(c.Context(), oauthhttp.Actor(c), opts)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *ApplicationHandlers) get(c *fiber.Ctx) error {
	app, err := h.service.FindOneOf(c.Context(), oauthhttp.Actor(c), kernel.NewApplicationID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(app)
}

func (h *ApplicationHandlers) update(c *fiber.Ctx) error {
	var body applicationsrv.UpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	actor := oauthhttp.Actor(c)
	updated, err := h.service.Update(c.Context(), actor, kernel.NewApplicationID(c.Params("id")), body, actor)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *ApplicationHandlers) activate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Activate)
}

func (h *ApplicationHandlers) suspend(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Suspend)
}

func (h *ApplicationHandlers) terminate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Terminate)
}

func (h *ApplicationHandlers) changeStatus(c *fiber.Ctx, change func(context.Context, kernel.ApplicationID, string) (*application.Application, error)) error {
	app, err := change(c.Context(), kernel.NewApplicationID(c.Params("id")), oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(app)
}

func (h *ApplicationHandlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), oauthhttp.Actor(c), kernel.NewApplicationID(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
