package http

import (
	"github.com/gofiber/fiber/v2"
)

// backendHandler reports the backend new jobs are submitted to.
func backendHandler(c *fiber.Ctx) error {
	name, err := classifierFrom(c).Backend(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Success: false,
			Code:    "REMOTE_ERROR",
			Error:   err.Error(),
		})
	}
	return c.JSON(BackendResponse{Success: true, Backend: name})
}

// backendSelectHandler runs backend selection again.
func backendSelectHandler(c *fiber.Ctx) error {
	name, err := classifierFrom(c).ReselectBackend(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(BackendResponse{Success: true, Backend: name})
}
