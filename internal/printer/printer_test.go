package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		p, _, stderr := newTestPrinter(t)
		err := p.Error("Asset not found", "No asset named 'dragon' exists.", nil)
		require.Error(t, err)
		assert.Equal(t, "Asset not found", err.Error())
		assert.Equal(t, "Asset not found\n\nNo asset named 'dragon' exists.\n", stderr.String())
	})

	t.Run("single suggestion printed plainly", func(t *testing.T) {
		p, _, stderr := newTestPrinter(t)
		_ = p.Error("Title", "Explanation", []string{"Run 'burrow seed'"})
		assert.Contains(t, stderr.String(), "\nRun 'burrow seed'\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		p, _, stderr := newTestPrinter(t)
		_ = p.Error("Title", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	p, stdout, stderr := newTestPrinter(t)
	err := p.ErrorWithContext("Unknown column", "", map[string]string{
		"Requested": "colour",
		"Available": "subset, family",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown column", err.Error())
	assert.Equal(t, "Unknown column\n\n\n  Available: subset, family\n  Requested: colour\n", stderr.String())
	assert.Empty(t, stdout.String())
}

func TestStatusLines(t *testing.T) {
	p, stdout, _ := newTestPrinter(t)

	p.Success("Published %s\n", "hero")
	p.Success("✓ already prefixed\n")
	p.Warning("no subsets\n")
	p.Step("Starting Redis\n")
	p.Info("plain %d\n", 1)

	assert.Equal(t, "✓ Published hero\n✓ already prefixed\n⚠️  no subsets\n→ Starting Redis\nplain 1\n", stdout.String())
}

func TestSetOutput(t *testing.T) {
	prev, prevColor := std, color.NoColor
	t.Cleanup(func() {
		std = prev
		color.NoColor = prevColor
	})
	color.NoColor = true

	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)

	Info("hello\n")
	_ = Error("Boom", "details", nil)
	assert.Equal(t, "hello\n", out.String())
	assert.Contains(t, errOut.String(), "Boom")
}
