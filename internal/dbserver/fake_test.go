package dbserver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeDocker keeps containers in memory and honours label filters.
type fakeDocker struct {
	containers []types.Container
	pulled     []string
	stopped    []string
	nextID     int
	startErr   error
}

func (f *fakeDocker) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	var out []types.Container
	for _, c := range f.containers {
		if matchesLabels(c.Labels, options.Filters.Get("label")) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matchesLabels(labels map[string]string, wanted []string) bool {
	for _, w := range wanted {
		k, v, _ := strings.Cut(w, "=")
		if labels[k] != v {
			return false
		}
	}
	return true
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, _ *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.nextID++
	id := fmt.Sprintf("c%d", f.nextID)
	f.containers = append(f.containers, types.Container{
		ID:     id,
		Names:  []string{"/" + name},
		Image:  config.Image,
		Labels: config.Labels,
		State:  "created",
	})
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	if f.startErr != nil {
		return f.startErr
	}
	return f.setState(id, "running")
}

func (f *fakeDocker) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return f.setState(id, "exited")
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	for i, c := range f.containers {
		if c.ID == id {
			f.containers = append(f.containers[:i], f.containers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such container: %s", id)
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ types.ImagePullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	return io.NopCloser(strings.NewReader(`{"status":"Downloaded"}`)), nil
}

func (f *fakeDocker) setState(id, state string) error {
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers[i].State = state
			return nil
		}
	}
	return fmt.Errorf("no such container: %s", id)
}
