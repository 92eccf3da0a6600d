package server

import (
	"net/url"
	"strings"

	"hud/handles"
	"hud/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type createSourceRequest struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
}

func listSourcesHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sources, err := config.Store.ListSources(c.Context(), userID(c))
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not list sources")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list sources"})
		}
		if sources == nil {
			sources = []models.Source{}
		}
		return c.JSON(fiber.Map{"sources": sources})
	}
}

func createSourceHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSourceRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		kind := req.Type
		if kind == "" {
			// Infer the kind from the fields present
			if req.URL != "" {
				kind = models.KindRSS
			} else {
				kind = models.KindTwitter
			}
		}

		src := models.Source{
			UserID:      userID(c),
			Kind:        kind,
			DisplayName: strings.TrimSpace(req.DisplayName),
		}

		switch kind {
		case models.KindRSS:
			parsed, err := url.Parse(strings.TrimSpace(req.URL))
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid feed URL"})
			}
			src.URL = parsed.String()
			if src.DisplayName == "" {
				src.DisplayName = strings.TrimPrefix(parsed.Hostname(), "www.")
			}

		case models.KindTwitter:
			handle, ok := handles.Normalize(req.Handle)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid handle"})
			}
			src.Handle = handle
			if src.DisplayName == "" {
				src.DisplayName = handles.Format(handle)
			}

		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid source type"})
		}

		if err := config.Store.EnsureProfile(c.Context(), userID(c), userEmail(c)); err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Warn("Could not ensure profile")
		}

		created, err := config.Store.CreateSource(c.Context(), src)
		if err != nil {
			log.WithFields(log.Fields{
				"user":  userID(c),
				"error": err,
			}).Error("Could not create source")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create source"})
		}

		queued := enqueueRefresh(c, config, created, "created")

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"source":   created,
			"ingestion": fiber.Map{"queued": queued},
		})
	}
}

// enqueueRefresh records a job row and hands it to the ingest queue. A full
// queue leaves the row pending for the stale scan to pick up later.
func enqueueRefresh(c *fiber.Ctx, config *ServerConfig, src models.Source, reason string) bool {
	jobID, err := config.Store.EnqueueJob(c.Context(), src.ID)
	if err != nil {
		log.WithFields(log.Fields{
			"source": src.ID,
			"error":  err,
		}).Warn("Could not record refresh job")
	}

	job := models.RefreshJob{JobID: jobID, SourceID: src.ID, Kind: src.Kind, Reason: reason}
	select {
	case config.Jobs <- job:
		return true
	default:
		log.WithFields(log.Fields{
			"source": src.ID,
		}).Warn("Refresh queue full, dropping job")
		return false
	}
}

func deleteSourceHandler(config *ServerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid source id"})
		}

		if err := config.Store.DeleteSource(c.Context(), userID(c), id); err != nil {
			log.WithFields(log.Fields{
				"source": id,
				"error":  err,
			}).Error("Could not delete source")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete source"})
		}

		if config.Throttler != nil {
			config.Throttler.Forget(id)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
