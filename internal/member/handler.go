package member

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes member endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a member handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates a new member account.
func (h *Handler) Register(c *fiber.Ctx) error {
	m, err := h.service.Register(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"member_id":  m.ID,
		"balance":    m.Balance,
		"created_at": m.CreatedAt,
	})
}

// Get returns a member with its current point balance.
func (h *Handler) Get(c *fiber.Ctx) error {
	m, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "member not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"member_id":  m.ID,
		"balance":    m.Balance,
		"created_at": m.CreatedAt,
	})
}
