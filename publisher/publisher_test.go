package publisher

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation_builder/generator"
)

func TestPublishWritesBundle(t *testing.T) {
	p, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	code := "<!DOCTYPE html><html><body>pendulum</body></html>"
	b, err := p.Publish(context.Background(), PublishParams{
		Title: "Simple Pendulum!",
		Code:  code,
		Transcript: []generator.Message{
			{Role: generator.RoleSystem, Content: "hidden instruction"},
			{Role: generator.RoleUser, Content: "Build a **pendulum** simulation"},
			{Role: generator.RoleAssistant, Content: "Done."},
			{Role: generator.RoleUser, Content: "Add damping"},
			{Role: generator.RoleAssistant, Content: "Added a damping slider."},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(b.Dir, "simple-pendulum-20260301T100000"))

	index, err := os.ReadFile(b.IndexPath)
	require.NoError(t, err)
	assert.Equal(t, code, string(index))

	transcript, err := os.ReadFile(b.TranscriptPath)
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "<strong>pendulum</strong>")
	assert.Contains(t, string(transcript), "<h2>Assistant</h2>")
	assert.NotContains(t, string(transcript), "hidden instruction")

	var m meta
	data, err := os.ReadFile(b.MetaPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 2, m.Turns)
	assert.Equal(t, "Build a **pendulum** simulation", m.Digest)
	assert.Equal(t, len(code), m.CodeBytes)
}

func TestPublishValidation(t *testing.T) {
	p, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), PublishParams{Code: "<html></html>"})
	assert.Error(t, err)
	_, err = p.Publish(context.Background(), PublishParams{Title: "x", Code: "  "})
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ohm-s-law-lab", slugify("  Ohm's Law   Lab "))
	assert.Equal(t, "simulation", slugify("???"))
	assert.LessOrEqual(t, len(slugify(strings.Repeat("a", 100))), 60)
}

func TestDefaultDigest(t *testing.T) {
	assert.Equal(t, "a b c", defaultDigest("a\n b\t c", 120))
	assert.Equal(t, "abcde", defaultDigest("abcdefgh", 5))
}
