package server

import (
	"errors"

	"hud/db"
	"hud/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func listBookmarksHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookmarks, err := config.Store.ListBookmarks(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not list bookmarks")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list bookmarks"})
		}
		if bookmarks == nil {
			bookmarks = []models.Bookmark{}
		}
		return c.JSON(fiber.Map{"bookmarks": bookmarks})
	}
}

func createBookmarkHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			ItemID string `json:"itemId"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if _, err := uuid.Parse(req.ItemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item id"})
		}

		// The item must exist and belong to one of the caller's sources.
		_, owner, err := config.Store.GetItemForUser(c.Context(), req.ItemID)
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		if err != nil {
			log.WithFields(log.Fields{
				"item":  req.ItemID,
				"error": err,
			}).Error("Could not load item for bookmark")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create bookmark"})
		}
		if owner != userID(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		}

		id, err := config.Store.CreateBookmark(c.Context(), userID(c), req.ItemID)
		if err != nil {
			log.WithFields(log.Fields{
				"item":  req.ItemID,
				"error": err,
			}).Error("Could not create bookmark")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create bookmark"})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

func deleteBookmarkHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID := c.Params("itemId")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item id"})
		}

		if err := config.Store.DeleteBookmark(c.Context(), userID(c), itemID); err != nil {
			log.WithFields(log.Fields{
				"item":  itemID,
				"error": err,
			}).Error("Could not delete bookmark")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete bookmark"})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
