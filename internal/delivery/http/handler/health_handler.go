package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthResponse struct {
	Status string    `json:"status" example:"healthy"`
	Time   time.Time `json:"time"`
}

// Health godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} handler.HealthResponse
// @Router /api/v1/health [get]
func Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Time:   time.Now(),
	})
}
