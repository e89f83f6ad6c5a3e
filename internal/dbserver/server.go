package dbserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/sirupsen/logrus"
)

// portSpan is how many ports past the preferred one are tried.
const portSpan = 100

// ErrNotFound means the project has no database container.
var ErrNotFound = errors.New("database container not found")

// UpOptions configure Up.
type UpOptions struct {
	Project string
	Image   string
	// Port is the preferred host port. The next free one is used if taken.
	Port   int
	Logger *logrus.Entry
}

// portBindable reports whether a host port is free. Replaced in tests.
var portBindable = func(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// Find returns the project's database container.
func Find(ctx context.Context, cli DockerAPI, project string) (*Instance, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: projectFilter(project)})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w for project '%s'", ErrNotFound, project)
	}
	return instanceFromContainer(containers[0]), nil
}

// List returns the database containers of every project.
func List(ctx context.Context, cli DockerAPI) ([]*Instance, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: projectFilter("")})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	out := make([]*Instance, 0, len(containers))
	for _, c := range containers {
		out = append(out, instanceFromContainer(c))
	}
	return out, nil
}

// FindNextAvailablePort returns the first port from preferred on that no
// burrow container claims and the host can bind.
func FindNextAvailablePort(ctx context.Context, cli DockerAPI, preferred int) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: projectFilter("")})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	used := make(map[int]bool)
	for _, c := range containers {
		if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
			used[port] = true
		}
	}

	last := preferred + portSpan - 1
	for port := preferred; port <= last; port++ {
		if !used[port] && portBindable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available Redis ports (range %d-%d exhausted)", preferred, last)
}

// Up starts the project's database. A running container is returned as is
// and a stopped one is restarted.
func Up(ctx context.Context, cli DockerAPI, opts UpOptions) (*Instance, error) {
	log := logging.OrDiscard(opts.Logger).WithField("project", opts.Project)

	existing, err := Find(ctx, cli, opts.Project)
	switch {
	case err == nil:
		if existing.Status == StatusRunning {
			log.WithField("container", existing.Name).Debug("Database already running")
			return existing, nil
		}
		if err := cli.ContainerStart(ctx, existing.ContainerID, container.StartOptions{}); err != nil {
			return nil, fmt.Errorf("failed to restart Redis container: %w", err)
		}
		existing.Status = StatusRunning
		logging.Event(log, "db_restarted").WithField("port", existing.Port).Info("Restarted database")
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	port, err := FindNextAvailablePort(ctx, cli, opts.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate Redis port: %w", err)
	}

	if err := pullImage(ctx, cli, opts.Image); err != nil {
		return nil, err
	}

	runID := GenerateRunID()
	name := ContainerName(opts.Project)
	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Labels: BuildLabels(opts.Project, runID, port),
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(port)}},
		},
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	logging.Event(log, "db_started").WithFields(logrus.Fields{
		"container": name,
		"port":      port,
		"run_id":    runID,
	}).Info("Started database")

	return &Instance{
		Project:     opts.Project,
		ContainerID: resp.ID,
		Name:        name,
		Port:        port,
		RunID:       runID,
		Status:      StatusRunning,
	}, nil
}

// Down stops and removes the project's database containers. Returns how
// many were removed.
func Down(ctx context.Context, cli DockerAPI, project string, removeVolumes bool) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: projectFilter(project)})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return 0, fmt.Errorf("%w for project '%s'", ErrNotFound, project)
	}

	timeout := 10
	removed := 0
	for _, c := range containers {
		if c.State == "running" {
			if err := cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
				return removed, fmt.Errorf("failed to stop container %s: %w", c.ID, err)
			}
		}
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: removeVolumes}); err != nil {
			return removed, fmt.Errorf("failed to remove container %s: %w", c.ID, err)
		}
		removed++
	}
	return removed, nil
}

func pullImage(ctx context.Context, cli DockerAPI, image string) error {
	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image '%s': %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image '%s': %w", image, err)
	}
	return nil
}
