package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduquest/middleware"
	"eduquest/services"

	"github.com/gofiber/fiber/v2"
)

const streamBatch = 100

// streamGroupMessages pushes new group messages as server-sent events. It
// polls storage every interval, starting after `since` (or now), and stops
// when the client goes away or the caller leaves the group.
func streamGroupMessages(social *services.SocialService, interval time.Duration) fiber.Handler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		groupID := c.Params("groupId")

		if err := social.IsMember(c.UserContext(), userID, groupID); err != nil {
			return err
		}
		cursor, err := parseSince(c)
		if err != nil {
			return err
		}
		if cursor.IsZero() {
			cursor = time.Now()
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		done := c.Context().Done()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			ctx := context.Background()
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case <-ticker.C:
					msgs, err := social.ListMessages(ctx, userID, groupID, cursor, streamBatch)
					if err != nil {
						// membership revoked or group gone
						fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
						_ = w.Flush()
						return
					}
					if len(msgs) == 0 {
						w.WriteString(":\n\n")
					}
					for _, m := range msgs {
						payload, _ := json.Marshal(m)
						fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", m.ID, payload)
						cursor = m.CreatedAt
					}
					if err := w.Flush(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		})
		return nil
	}
}
