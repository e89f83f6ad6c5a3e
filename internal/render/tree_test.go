package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dyluth/burrow/internal/groupby"
	"github.com/dyluth/burrow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProxy(t *testing.T, rows ...testutil.Row) *groupby.Proxy {
	t.Helper()
	table := testutil.NewTable([]string{"subset", "family", "handles"}, rows...)
	p := groupby.NewProxy(groupby.Options{GroupBy: "family"})
	require.NoError(t, p.SetSourceModel(table))
	return p
}

func sampleRows() []testutil.Row {
	return []testutil.Row{
		{"subset": "modelDefault", "family": "avalon.model", "handles": 0},
		{"subset": "rigMain", "family": "avalon.rig"},
		{"subset": "modelProxy", "family": "avalon.model", "handles": 8},
	}
}

func TestTree(t *testing.T) {
	t.Run("renders groups and members", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := Tree(&buf, sampleProxy(t, sampleRows()...), Options{Title: "hero"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		expected := strings.Join([]string{
			"Subsets for asset 'hero' (grouped by family):",
			"",
			"  Subset        Family        Handles",
			"  ------------  ------------  -------",
			"▾ family: avalon.model (2)",
			"  modelDefault  avalon.model  0",
			"  modelProxy    avalon.model  8",
			"▾ family: avalon.rig (1)",
			"  rigMain       avalon.rig    -",
			"",
			"3 subsets in 2 groups",
			"",
		}, "\n")
		assert.Equal(t, expected, buf.String())
	})

	t.Run("collapsed groups hide members", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := Tree(&buf, sampleProxy(t, sampleRows()...), Options{Collapsed: map[string]bool{"avalon.model": true}})
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "▸ family: avalon.model (2)")
		assert.NotContains(t, out, "modelProxy")
		assert.Contains(t, out, "rigMain")
	})

	t.Run("empty view", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := Tree(&buf, sampleProxy(t), Options{Title: "hero"})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, "No subsets found for asset 'hero'\n", buf.String())
	})
}

func TestJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONL(&buf, sampleProxy(t, sampleRows()...)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "avalon.model", first["group"])
	assert.Equal(t, "modelDefault", first["subset"])
	assert.Equal(t, float64(0), first["handles"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "avalon.rig", last["group"])
	assert.Nil(t, last["handles"])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"fits", "model", 8, "model"},
		{"exact", "model", 5, "model"},
		{"cut", "modelDefaultHero", 10, "modelDe..."},
		{"tiny width", "model", 2, "mo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncate(tt.input, tt.width))
		})
	}
}
