package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"hud/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Broadcaster fans new-item events out to connected SSE clients.
type Broadcaster struct {
	sync.RWMutex
	itemClients map[string]chan models.NewItemEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		itemClients: make(map[string]chan models.NewItemEvent, 10000),
	}
}

func (b *Broadcaster) BroadcastItem(event models.NewItemEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.itemClients {
		select {
		case client <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping item for client: %v", id)
		}
	}
}

// Function to add a client to the broadcaster
func (b *Broadcaster) AddClient(key string, itemClient chan models.NewItemEvent) {
	b.Lock()
	defer b.Unlock()
	b.itemClients[key] = itemClient
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.itemClients),
	}).Info("Adding client to broadcaster")
}

// Function to remove a client from the broadcaster
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.itemClients[key]; ok {
		close(client)
		delete(b.itemClients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.itemClients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.itemClients {
		close(client)
		delete(b.itemClients, key)
	}
}

func registerSSE(app *fiber.App, bc *Broadcaster) {

	app.Delete("/dashboard/feed/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.Status(200).SendString("OK")
	})

	app.Get("/dashboard/feed/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		sseItemChannel := make(chan models.NewItemEvent, 10) // Buffered channel
		aliveChan := time.NewTicker(5 * time.Second)

		defer aliveChan.Stop()

		// Register the client
		bc.AddClient(key, sseItemChannel)

		// Cleanup function
		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		// Use StreamWriter to manage SSE streaming
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			// Start streaming loop
			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-sseItemChannel:
					if !ok {
						log.Warnf("Item channel closed for client %s", key)
						return
					}
					jsonItem, err := json.Marshal(event)
					if err != nil {
						log.Errorf("Error marshalling item for client %s: %v", key, err)
						continue
					}
					if _, err := fmt.Fprintf(w, "event: new-item\ndata: %s\n\n", jsonItem); err != nil {
						log.Warnf("Failed to send new-item event to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush new-item event for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})
}
