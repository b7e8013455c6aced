package tenanthttp

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/oauthhttp"
	"github.com/gofiber/fiber/v2"
)

// TenantHandlers expone la gestión de tenants por HTTP.
type TenantHandlers struct {
	service *tenantsrv.TenantService
}

func NewTenantHandlers(service *tenantsrv.TenantService) *TenantHandlers {
	return &TenantHandlers{service: service}
}

// RegisterRoutes mounts the tenant routes. Registration is open; everything
// else requires a bearer token.
func (h *TenantHandlers) RegisterRoutes(app fiber.Router, mw *oauthhttp.BearerMiddleware) {
	app.Post("/api/v1/tenants", h.register)

	protected := app.Group("/api/v1/tenants", mw.Authenticate())
	protected.Get("/:id", h.get)
	protected.Put("/:id", h.update)
	protected.Put("/:id/password", h.updatePassword)
	protected.Post("/:id/activate", h.activate)
	protected.Post("/:id/inactivate", h.inactivate)
	protected.Post("/:id/lock", h.lock)
	protected.Post("/:id/terminate", h.terminate)
	protected.Delete("/:id", h.delete)
}

func (h *TenantHandlers) register(c *fiber.Ctx) error {
	var body tenant.Tenant
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Register(c.Context(), body, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created.ToDTO())
}

func (h *TenantHandlers) get(c *fiber.Ctx) error {
	t, err := h.service.FindExisting(c.Context(), kernel.NewTenantID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(t.ToDTO())
}

func (h *TenantHandlers) update(c *fiber.Ctx) error {
	var body tenant.Tenant
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(c.Context(), kernel.NewTenantID(c.Params("id")), body, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated.ToDTO())
}

func (h *TenantHandlers) updatePassword(c *fiber.Ctx) error {
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdatePassword(c.Context(), kernel.NewTenantID(c.Params("id")), body.CurrentPassword, body.NewPassword, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated.ToDTO())
}

func (h *TenantHandlers) activate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Activate)
}

func (h *TenantHandlers) inactivate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Inactivate)
}

func (h *TenantHandlers) lock(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Lock)
}

func (h *TenantHandlers) terminate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Terminate)
}

func (h *TenantHandlers) changeStatus(c *fiber.Ctx, change func(context.Context, kernel.TenantID, string) (*tenant.Tenant, error)) error {
	t, err := change(c.Context(), kernel.NewTenantID(c.Params("id")), oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(t.ToDTO())
}

func (h *TenantHandlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), kernel.NewTenantID(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
