package server

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type preferencesRequest struct {
	FocusWeight          *float64           `json:"focusWeight"`
	AutoScrollIntervalMs *int               `json:"autoScrollIntervalMs"`
	Theme                *string            `json:"theme"`
	ShowAISummaries      *bool              `json:"showAiSummaries"`
	FocusTopics          map[string]float64 `json:"focusTopics"`
}

func getPreferencesHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, focusTags, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load preferences")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load preferences"})
		}
		if focusTags == nil {
			focusTags = []string{}
		}
		return c.JSON(fiber.Map{
			"preferences": settings.Preferences(),
			"focusTags":   focusTags,
		})
	}
}

// updatePreferencesHandler merges the provided fields into the stored
// settings. Omitted fields keep their current values.
func updatePreferencesHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req preferencesRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if req.FocusWeight != nil && (*req.FocusWeight < 0 || *req.FocusWeight > 1) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "focusWeight must be between 0 and 1"})
		}
		if req.AutoScrollIntervalMs != nil && (*req.AutoScrollIntervalMs < 1000 || *req.AutoScrollIntervalMs > 60000) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "autoScrollIntervalMs must be between 1000 and 60000"})
		}
		if req.Theme != nil && *req.Theme != "light" && *req.Theme != "dark" && *req.Theme != "system" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "theme must be light, dark or system"})
		}

		if err := config.Store.EnsureProfile(c.Context(), userID(c), userEmail(c)); err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Warn("Could not ensure profile")
		}

		settings, focusTags, err := config.Store.GetSettings(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not load preferences")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save preferences"})
		}

		if req.FocusWeight != nil {
			settings.FocusWeight = req.FocusWeight
		}
		if req.AutoScrollIntervalMs != nil {
			settings.AutoScrollIntervalMs = req.AutoScrollIntervalMs
		}
		if req.Theme != nil {
			settings.Theme = *req.Theme
		}
		if req.ShowAISummaries != nil {
			settings.ShowAISummaries = req.ShowAISummaries
		}
		if req.FocusTopics != nil {
			settings.FocusTopics = req.FocusTopics
			focusTags = lo.Keys(req.FocusTopics)
			sort.Strings(focusTags)
		}

		if err := config.Store.SaveSettings(c.Context(), userID(c), settings, focusTags); err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not save preferences")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save preferences"})
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
