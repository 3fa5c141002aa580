package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetloader/internal/assets"
	"github.com/conneroisu/assetloader/internal/config"
	"github.com/conneroisu/assetloader/internal/integrity"
	"github.com/conneroisu/assetloader/internal/notify"
	"github.com/conneroisu/assetloader/internal/tags"
	"github.com/conneroisu/assetloader/internal/testutils"
	"github.com/conneroisu/assetloader/internal/types"
	"github.com/conneroisu/assetloader/internal/watcher"
)

func loadConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("assets.root", dir)
	viper.Set("integrity.cache_path", filepath.Join(dir, ".assetloader", "integrity.json"))
	viper.Set("tags.dynamic_loader", false)
	viper.Set("watch.debounce", "20ms")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newFactory(t *testing.T, cfg *config.Config) (*assets.Factory, *integrity.Storage) {
	t.Helper()

	storage := integrity.Open(cfg.Integrity.CachePath, integrity.WithTTL(cfg.Integrity.TTL))
	provider, err := integrity.NewProvider(storage, cfg.Integrity.Algorithm, nil)
	require.NoError(t, err)

	return assets.NewFactory(assets.SettingsFromConfig(cfg), tags.NewBuilder(provider)), storage
}

func TestIntegration_BundleIntegrityPersists(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	testutils.WriteAssets(t, dir, map[string]string{
		"js/a.js": "a();",
		"js/b.js": "b();",
	})
	cfg := loadConfig(t, dir)

	factory, storage := newFactory(t, cfg)
	markup, err := factory.JS(context.Background(), dir, []string{"js/a.js", "js/b.js"})
	require.NoError(t, err)

	names := testutils.CompiledFiles(t, dir)
	require.Len(t, names, 1)
	artifact := filepath.Join(dir, "compiled", names[0])

	value, ok := storage.Get(artifact)
	require.True(t, ok)
	assert.Equal(t, integrity.Compute(artifact, cfg.Integrity.Algorithm), value)
	assert.Equal(t, `<script src="`+dir+`/compiled/`+names[0]+`" integrity="`+value+`" crossorigin="anonymous"></script>`, markup)

	reopened := integrity.Open(cfg.Integrity.CachePath)
	persisted, ok := reopened.Get(artifact)
	require.True(t, ok)
	assert.Equal(t, value, persisted)

	// A second process renders the same markup without rebuilding
	again, _ := newFactory(t, cfg)
	second, err := again.JS(context.Background(), dir, []string{"js/a.js", "js/b.js"})
	require.NoError(t, err)
	assert.Equal(t, markup, second)
	assert.Len(t, testutils.CompiledFiles(t, dir), 1)
}

func TestIntegration_StaleSourceProducesNewArtifact(t *testing.T) {
	dir := testutils.CreateTempProject(t)
	source := testutils.WriteAsset(t, dir, "css/app.css", "a{}")
	testutils.Touch(t, source, time.Unix(1700000000, 0))
	cfg := loadConfig(t, dir)

	factory, _ := newFactory(t, cfg)
	first, err := factory.CSS(context.Background(), dir, []string{"css/app.css"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(source, []byte("b{}"), 0o644))
	testutils.Touch(t, source, time.Unix(1700000100, 0))

	second, err := factory.CSS(context.Background(), dir, []string{"css/app.css"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, testutils.CompiledFiles(t, dir), 2)
}

func TestIntegration_WatchBroadcastsRebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher integration in short mode")
	}

	dir := testutils.CreateTempProject(t)
	testutils.WriteAsset(t, dir, "css/app.css", "a{}")
	cfg := loadConfig(t, dir)

	factory, _ := newFactory(t, cfg)
	bundle, err := factory.New(context.Background(), types.AssetStylesheet, dir, []string{"css/app.css"})
	require.NoError(t, err)
	_, err = bundle.Compiler.Generate(context.Background(), true)
	require.NoError(t, err)

	hub := notify.NewHub(cfg.Watch.AllowedOrigins, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Origin": {"http://localhost:8080"}},
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, nil)
	require.NoError(t, err)
	fw.AddFilter(watcher.PatternFilter(filepath.Join(dir, "css"), cfg.Assets.CSSPatterns...))
	fw.AddFilter(watcher.ExcludeDirFilter(filepath.Join(dir, "compiled")))
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		changed := make([]string, 0, len(events))
		for _, event := range events {
			changed = append(changed, event.Path)
		}
		bundle.Collection.AddWatchFiles(changed)

		artifacts, err := bundle.Compiler.Generate(ctx, true)
		if err != nil {
			return err
		}
		files := make([]string, 0, len(artifacts))
		for _, artifact := range artifacts {
			if artifact.Rebuilt {
				files = append(files, artifact.File)
			}
		}
		if len(files) == 0 {
			return nil
		}
		return hub.Broadcast(notify.Message{Type: notify.TypeRebuild, Kind: "css", Files: files, Changed: changed})
	})
	require.NoError(t, fw.AddRecursive(dir))
	require.NoError(t, fw.Start(ctx))
	defer fw.Stop()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Staged outside the patterns so the watcher sees a single create
	staged := testutils.WriteAsset(t, dir, "theme.tmp", "$c: red")
	testutils.Touch(t, staged, time.Now().Add(time.Hour))
	theme := filepath.Join(dir, "css", "theme.sass")
	require.NoError(t, os.Rename(staged, theme))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg notify.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, notify.TypeRebuild, msg.Type)
	assert.Equal(t, "css", msg.Kind)
	require.Len(t, msg.Files, 1)
	assert.True(t, strings.HasPrefix(msg.Files[0], "loader-"))
	assert.Contains(t, msg.Changed, theme)
}
