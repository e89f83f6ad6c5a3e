package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "burrow.yml")

	validConfig := `version: "1.0"
project: "hero-show"
redis:
  url: "redis://db.local:6380/2"
loader:
  group_by: author
  families: ["avalon.model", "avalon.rig"]
families:
  avalon.model:
    label: Model
    icon: cube
log:
  level: debug
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "hero-show", config.Project)
	assert.Equal(t, "redis://db.local:6380/2", config.Redis.URL)
	assert.Equal(t, "redis:7-alpine", config.Redis.Image)
	assert.Equal(t, "author", config.Loader.GroupBy)
	assert.Equal(t, "(blank)", config.Loader.FallbackGroup)
	assert.Equal(t, []string{"avalon.model", "avalon.rig"}, config.Loader.Families)
	assert.Equal(t, Family{Label: "Model", Icon: "cube"}, config.Families["avalon.model"])
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Parse([]byte(`version: "1.0"
project: demo
`))
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", config.Redis.URL)
	assert.Equal(t, 6379, config.Redis.Port)
	assert.Equal(t, "family", config.Loader.GroupBy)
	assert.Equal(t, []string{"*"}, config.Loader.Families)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoad_EmptyFamilyFilterKept(t *testing.T) {
	config, err := Parse([]byte(`version: "1.0"
project: demo
loader:
  families: []
`))
	require.NoError(t, err)
	assert.NotNil(t, config.Loader.Families)
	assert.Empty(t, config.Loader.Families)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/burrow.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Parse([]byte(`version: "1.0"
project:
  - this is invalid
    yaml syntax
`))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unsupported version", `version: "2.0"
project: demo`, "unsupported version"},
		{"missing project", `version: "1.0"`, "project is required"},
		{"bad project name", `version: "1.0"
project: "Hero Show"`, "invalid project name"},
		{"bad port", `version: "1.0"
project: demo
redis:
  port: 70000`, "redis.port must be between"},
		{"empty family filter entry", `version: "1.0"
project: demo
loader:
  families: ["avalon.model", ""]`, "loader.families[1] cannot be empty"},
		{"bad log level", `version: "1.0"
project: demo
log:
  level: chatty`, "invalid log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault(t *testing.T) {
	config := Default("demo")
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "family", config.Loader.GroupBy)
	assert.NotNil(t, config.Redis)
}

func TestFamilyNames(t *testing.T) {
	config := Default("demo")
	config.Families = map[string]Family{"avalon.rig": {}, "avalon.model": {}}
	assert.Equal(t, []string{"avalon.model", "avalon.rig"}, config.FamilyNames())
}
