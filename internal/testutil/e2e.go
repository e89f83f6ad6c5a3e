//go:build integration
// +build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/dyluth/burrow/internal/dbserver"
	"github.com/dyluth/burrow/internal/scaffold"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// E2EEnvironment is a project directory backed by a real Redis container
// started through dbserver.Up.
type E2EEnvironment struct {
	T            *testing.T
	Ctx          context.Context
	Dir          string
	Project      string
	Port         int
	DockerClient *client.Client
	Instance     *dbserver.Instance
	DB           *assetdb.Client
}

// SetupE2EEnvironment scaffolds burrow.yml in a temp dir and chdirs into it.
// Teardown is registered with t.Cleanup.
func SetupE2EEnvironment(t *testing.T, project string) *E2EEnvironment {
	t.Helper()
	ctx := context.Background()

	cli, err := dbserver.NewClient(ctx)
	require.NoError(t, err, "Docker must be available for integration tests")

	dir := t.TempDir()
	port, err := dbserver.FindNextAvailablePort(ctx, cli, 16379)
	require.NoError(t, err)

	_, err = scaffold.Initialize(scaffold.Options{Dir: dir, Project: project, Port: port})
	require.NoError(t, err)
	t.Chdir(dir)

	env := &E2EEnvironment{
		T:            t,
		Ctx:          ctx,
		Dir:          dir,
		Project:      project,
		Port:         port,
		DockerClient: cli,
	}
	t.Cleanup(env.Cleanup)

	t.Logf("✓ E2E environment ready: project=%s dir=%s port=%d", project, dir, port)
	return env
}

// StartDatabase brings up the project's Redis container and connects to it.
func (env *E2EEnvironment) StartDatabase() {
	inst, err := dbserver.Up(env.Ctx, env.DockerClient, dbserver.UpOptions{
		Project: env.Project,
		Image:   "redis:7-alpine",
		Port:    env.Port,
	})
	require.NoError(env.T, err, "Failed to start database")
	env.Instance = inst

	opts, err := redis.ParseURL(inst.URL())
	require.NoError(env.T, err)
	env.DB, err = assetdb.NewClient(opts, env.Project)
	require.NoError(env.T, err)

	env.WaitForPing(30 * time.Second)
}

// WaitForPing polls Redis until it answers or timeout elapses.
func (env *E2EEnvironment) WaitForPing(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := env.DB.Ping(env.Ctx); err == nil {
			env.T.Logf("✓ Redis for %s is answering", env.Project)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.Fail(env.T, fmt.Sprintf("Redis for project %s did not answer within %v", env.Project, timeout))
}

// WaitForDocument polls until q matches at least one document.
func (env *E2EEnvironment) WaitForDocument(q assetdb.Query, timeout time.Duration) *assetdb.Document {
	require.NotNil(env.T, env.DB, "database not started - call StartDatabase first")

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		docs, err := env.DB.Find(env.Ctx, q)
		if err == nil && len(docs) > 0 {
			return docs[0]
		}
		time.Sleep(200 * time.Millisecond)
	}
	require.Fail(env.T, fmt.Sprintf("no %s named '%s' within %v", q.Type, q.Name, timeout))
	return nil
}

// ConfigPath is the scaffolded burrow.yml.
func (env *E2EEnvironment) ConfigPath() string {
	return filepath.Join(env.Dir, "burrow.yml")
}

// Cleanup closes the client and removes the project's containers.
func (env *E2EEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if _, err := dbserver.Down(env.Ctx, env.DockerClient, env.Project, true); err != nil {
		fmt.Fprintf(os.Stderr, "cleanup of %s failed: %v\n", env.Project, err)
	}
	_ = env.DockerClient.Close()
}
