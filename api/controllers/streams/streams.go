package streams

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/retailerp-backend/api/responses"
	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
)

const defaultHeartbeat = 25 * time.Second

type subscriber interface {
	Subscribe(collection enums.Collection) *livesync.Subscription
}

// Stream pushes live-sync events for one collection as Server-Sent Events.
// The subscription is released when the client disconnects.
func Stream(hub subscriber, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		collection := enums.Collection(strings.TrimSpace(chi.URLParam(r, "collection")))
		if !collection.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown collection").
				WithDetails(map[string]string{"collection": string(collection)}))
			return
		}

		rc := http.NewResponseController(w)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "stream.flush_unsupported", err)
			}
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "collection", string(collection))
			logg.Info(ctx, "stream.open")
		}
		sub := hub.Subscribe(collection)
		defer func() {
			sub.Close()
			if logg != nil {
				logg.Info(ctx, "stream.close")
			}
		}()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case event, ok := <-sub.C():
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					if logg != nil {
						logg.Error(ctx, "stream.write_failed", err)
					}
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event livesync.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload)
	return err
}
