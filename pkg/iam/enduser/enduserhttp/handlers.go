package enduserhttp

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/endusersrv"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/oauthhttp"
	"github.com/gofiber/fiber/v2"
)

// EndUserHandlers expone el registro y la gestión de end-users por HTTP.
// Registration and self-service routes are scoped to an application id, which
// doubles as the OAuth2 client id of that application.
type EndUserHandlers struct {
	service *endusersrv.EndUserService
}

func NewEndUserHandlers(service *endusersrv.EndUserService) *EndUserHandlers {
	return &EndUserHandlers{service: service}
}

// RegisterRoutes mounts the end-user routes. Sign-up is open so applications
// can onboard users before they hold a token; the rest is protected.
func (h *EndUserHandlers) RegisterRoutes(app fiber.Router, mw *oauthhttp.BearerMiddleware) {
	app.Post("/api/v1/applications/:appId/users", h.register)

	protected := app.Group("/api/v1/applications/:appId/users", mw.Authenticate())
	protected.Get("/:id", h.get)
	protected.Put("/:id", h.update)
	protected.Put("/:id/profile", h.updateProfile)
	protected.Put("/:id/password", h.updatePassword)
	protected.Post("/:id/activate", h.activate)
	protected.Post("/:id/suspend", h.suspend)
	protected.Post("/:id/terminate", h.terminate)
	protected.Post("/:id/unregister", h.unregister)
	protected.Delete("/:id", h.delete)
}

func (h *EndUserHandlers) register(c *fiber.Ctx) error {
	var body enduser.EndUser
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Register(c.Context(), h.applicationID(c), body, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created.ToDTO())
}

func (h *EndUserHandlers) get(c *fiber.Ctx) error {
	u, err := h.service.FindExisting(c.Context(), kernel.NewEndUserID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(u.ToDTO())
}

func (h *EndUserHandlers) update(c *fiber.Ctx) error {
	var body enduser.EndUser
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(c.Context(), h.applicationID(c), kernel.NewEndUserID(c.Params("id")), body, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated.ToDTO())
}

func (h *EndUserHandlers) updateProfile(c *fiber.Ctx) error {
	var profile iam.UserProfile
	if err := c.BodyParser(&profile); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdateProfile(c.Context(), h.applicationID(c), kernel.NewEndUserID(c.Params("id")), profile, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated.ToDTO())
}

func (h *EndUserHandlers) updatePassword(c *fiber.Ctx) error {
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.UpdatePassword(c.Context(), kernel.NewEndUserID(c.Params("id")), body.CurrentPassword, body.NewPassword, oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated.ToDTO())
}

func (h *EndUserHandlers) activate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Activate)
}

func (h *EndUserHandlers) suspend(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Suspend)
}

func (h *EndUserHandlers) terminate(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Terminate)
}

func (h *EndUserHandlers) unregister(c *fiber.Ctx) error {
	return h.changeStatus(c, h.service.Unregister)
}

func (h *EndUserHandlers) changeStatus(c *fiber.Ctx, change func(context.Context, kernel.EndUserID, string) (*enduser.EndUser, error)) error {
	u, err := change(c.Context(), kernel.NewEndUserID(c.Params("id")), oauthhttp.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(u.ToDTO())
}

func (h *EndUserHandlers) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), h.applicationID(c), kernel.NewEndUserID(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *EndUserHandlers) applicationID(c *fiber.Ctx) kernel.ApplicationID {
	return kernel.NewApplicationID(c.Params("appId"))
}
