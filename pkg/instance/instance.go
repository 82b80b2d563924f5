package instance

import (
	"os"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailerp-backend/pkg/env"
)

const EnvInstanceID = "RETAILERP_INSTANCE_ID"

// GetID returns the process instance identifier used to tag live-sync events.
// It prefers RETAILERP_INSTANCE_ID, then the platform dyno name, then
// hostname plus a random suffix so two local processes never collide.
func GetID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return host + "-" + uuid.NewString()[:8]
}
