package dbserver

import (
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
)

// Status is the health of a project's database.
type Status string

const (
	StatusRunning  Status = "Running"
	StatusDegraded Status = "Degraded"
	StatusStopped  Status = "Stopped"
	StatusMissing  Status = "Missing"
)

// DetermineStatus summarizes container states.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusMissing
	}

	running := 0
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}

	switch {
	case running == len(containers):
		return StatusRunning
	case running > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}

// Instance describes a project's database container.
type Instance struct {
	Project     string    `json:"project"`
	ContainerID string    `json:"container_id"`
	Name        string    `json:"name"`
	Port        int       `json:"port"`
	RunID       string    `json:"run_id"`
	Status      Status    `json:"status"`
	Created     time.Time `json:"created"`
}

// URL is the Redis URL for the instance's published port.
func (i *Instance) URL() string {
	return RedisURL(i.Port)
}

func instanceFromContainer(c types.Container) *Instance {
	inst := &Instance{
		Project:     c.Labels[LabelProject],
		ContainerID: c.ID,
		RunID:       c.Labels[LabelRunID],
		Status:      DetermineStatus([]types.Container{c}),
		Created:     time.Unix(c.Created, 0),
	}
	if len(c.Names) > 0 {
		inst.Name = strings.TrimPrefix(c.Names[0], "/")
	}
	if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
		inst.Port = port
	}
	return inst
}
