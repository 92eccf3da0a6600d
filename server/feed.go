package server

import (
	"strconv"
	"time"

	"hud/feed"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// feedHandler serves one ranked feed page. Query parameters are rejected when
// invalid, never clamped.
func feedHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := feed.Query{
			UserID: userID(c),
			Limit:  20,
			Weight: feed.DefaultBlendWeight,
		}

		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > 100 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit"})
			}
			query.Limit = limit
		}

		if raw := c.Query("before"); raw != "" {
			before, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid before cursor"})
			}
			query.Before = &before
		}

		if raw := c.Query("mixRatio"); raw != "" {
			weight, err := strconv.ParseFloat(raw, 64)
			if err != nil || !feed.ValidWeight(weight) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mixRatio"})
			}
			query.Weight = weight
		}

		page, err := config.Assembler.Assemble(c.Context(), query)
		if err != nil {
			log.WithFields(log.Fields{
				"user":  query.UserID,
				"error": err,
			}).Error("Could not assemble feed page")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(page)
	}
}
