package dbserver

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/docker/api/types/filters"
	"github.com/google/uuid"
)

// Label keys on burrow containers.
const (
	LabelManaged   = "burrow.managed"
	LabelProject   = "burrow.project"
	LabelComponent = "burrow.component"
	LabelRedisPort = "burrow.redis.port"
	LabelRunID     = "burrow.run_id"
)

// ComponentRedis is the component label of the database container.
const ComponentRedis = "redis"

// BuildLabels returns the label set for a project's Redis container.
func BuildLabels(project, runID string, port int) map[string]string {
	return map[string]string{
		LabelManaged:   "true",
		LabelProject:   project,
		LabelComponent: ComponentRedis,
		LabelRedisPort: strconv.Itoa(port),
		LabelRunID:     runID,
	}
}

// GenerateRunID returns a fresh ID for one `db up`.
func GenerateRunID() string {
	return uuid.New().String()
}

// ContainerName is the Redis container name for a project.
func ContainerName(project string) string {
	return fmt.Sprintf("burrow-redis-%s", project)
}

// projectFilter matches the Redis container of one project, or of every
// project when project is empty.
func projectFilter(project string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("label", LabelManaged+"=true"),
		filters.Arg("label", LabelComponent+"="+ComponentRedis),
	)
	if project != "" {
		args.Add("label", fmt.Sprintf("%s=%s", LabelProject, project))
	}
	return args
}

// RedisHost is the hostname published ports are reachable on. Inside a
// container that is the Docker host.
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// RedisURL builds the URL for a published Redis port.
func RedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), port)
}
