package chainreaction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/config"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/preset"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/presetstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoGemini serves generateContent by echoing the prompt with ":OUT".
func newEchoGemini(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid."}}`)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{
					"parts": []any{map[string]any{"text": req.Contents[0].Parts[0].Text + ":OUT"}},
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(t *testing.T, baseURL string) config.Settings {
	t.Helper()
	t.Setenv("CHAINREACTION_TEST_KEY", "test-key")
	s := config.DefaultSettings()
	s.BaseURL = baseURL
	s.Model = "test-model"
	s.APIKeyEnv = "CHAINREACTION_TEST_KEY"
	s.Pacing = 0
	s.LogLevel = "error"
	return s
}

func TestNewFromSettings_RunsAgainstGemini(t *testing.T) {
	srv := newEchoGemini(t)
	s := testSettings(t, srv.URL)

	o, err := NewFromSettings(context.Background(), s)
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, preset.KeyDebate, o.ActivePreset())
	assert.Equal(t, []string{preset.KeyDebate, preset.KeyStory}, o.Presets())

	o.RunChain(context.Background(), "Universal basic income")

	nodes := o.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, 3, nodes.Completed())
	assert.Equal(t,
		"Analyze 'Universal basic income'. Break down 3 logical pillars. Focus on first principles.:OUT",
		nodes[0].Output)
	assert.True(t, strings.HasPrefix(nodes[1].Output, "Attack these arguments: Analyze"))
}

func TestNewFromSettings_MissingKeyFailsEveryNode(t *testing.T) {
	srv := newEchoGemini(t)
	s := testSettings(t, srv.URL)
	s.APIKeyEnv = "CHAINREACTION_UNSET_KEY"
	require.NoError(t, os.Unsetenv("CHAINREACTION_UNSET_KEY"))

	o, err := NewFromSettings(context.Background(), s)
	require.NoError(t, err)

	o.RunChain(context.Background(), "topic")

	for _, n := range o.Nodes() {
		assert.Equal(t, StatusError, n.Status)
		assert.Equal(t, "⚠️ ERROR: CHAINREACTION_UNSET_KEY is missing from the environment.", n.Output)
	}
}

func TestNewFromSettings_PresetsFileAndDefault(t *testing.T) {
	srv := newEchoGemini(t)
	s := testSettings(t, srv.URL)

	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  - key: HAIKU
    name: Haiku Chain
    nodes:
      - id: "1"
        title: Poet
        role: VERSE
        prompt_template: "Write a haiku about {{INPUT}}"
`), 0o600))
	s.PresetsFile = path
	s.DefaultPreset = "HAIKU"

	o, err := NewFromSettings(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "HAIKU", o.ActivePreset())
	o.RunChain(context.Background(), "rain")
	assert.Equal(t, "Write a haiku about rain:OUT", o.Nodes()[0].Output)
}

func TestNewFromSettings_SQLiteStore(t *testing.T) {
	srv := newEchoGemini(t)
	s := testSettings(t, srv.URL)
	dbPath := filepath.Join(t.TempDir(), "presets.db")

	seed, err := presetstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, preset.Save(context.Background(), seed, "STORED", pairPreset()))
	require.NoError(t, seed.Close())

	s.Store = config.StoreSettings{Driver: config.DriverSQLite, Path: dbPath}
	s.DefaultPreset = "STORED"

	o, err := NewFromSettings(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, o.Nodes().IDs())

	custom := preset.Preset{
		Name:  "Solo",
		Nodes: []preset.NodeDefinition{{ID: "s", Title: "Solo", Role: "ONLY", PromptTemplate: "{{INPUT}}"}},
	}
	require.NoError(t, o.SavePreset(context.Background(), "SOLO", custom))
	require.NoError(t, o.Close())

	reopened, err := presetstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	loaded, err := preset.Load(context.Background(), reopened, "SOLO")
	require.NoError(t, err)
	assert.Equal(t, custom, loaded)
}

func TestNewFromSettings_RedisStore(t *testing.T) {
	srv := newEchoGemini(t)
	s := testSettings(t, srv.URL)
	mr := miniredis.RunT(t)

	seed := presetstore.NewRedisStore(mr.Addr(), "", 0, presetstore.WithPrefix("test:"))
	require.NoError(t, preset.Save(context.Background(), seed, "STORED", pairPreset()))
	require.NoError(t, seed.Close())

	s.Store = config.StoreSettings{Driver: config.DriverRedis, Addr: mr.Addr(), Prefix: "test:"}

	o, err := NewFromSettings(context.Background(), s)
	require.NoError(t, err)
	defer o.Close()

	assert.Contains(t, o.Presets(), "STORED")
	require.NoError(t, o.SwitchPreset("STORED"))
	assert.Equal(t, []string{"p1", "p2"}, o.Nodes().IDs())
}

func TestNewFromSettings_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *config.Settings)
	}{
		{"invalid settings", func(s *config.Settings) { s.MaxOutputTokens = 0 }},
		{"missing presets file", func(s *config.Settings) { s.PresetsFile = "/nonexistent/presets.yaml" }},
		{"unknown default preset", func(s *config.Settings) { s.DefaultPreset = "NOPE" }},
		{"sqlite path unusable", func(s *config.Settings) {
			s.Store = config.StoreSettings{Driver: config.DriverSQLite, Path: "/nonexistent/dir/presets.db"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t, "http://127.0.0.1:1")
			tt.mutate(&s)
			_, err := NewFromSettings(context.Background(), s)
			assert.Error(t, err)
		})
	}
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(config.StoreSettings{})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = OpenStore(config.StoreSettings{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &presetstore.MemoryStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenStore(config.StoreSettings{Driver: "etcd"})
	assert.Error(t, err)
}
