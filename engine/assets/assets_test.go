package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/resolvepipe/engine/assets/loaders"
	"github.com/spaghettifunk/resolvepipe/engine/core"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeScene, DetermineAssetType("levels/Room.Scene.toml"))
	assert.Equal(t, AssetTypePipeline, DetermineAssetType("resolvepipe.toml"))
	assert.Equal(t, AssetTypeNone, DetermineAssetType("notes.txt"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolvepipe.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = 16\nheight = 8\n"), 0o644))

	am := NewAssetManager(core.NewEventBus())
	defer am.Shutdown()

	res, err := am.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "resolvepipe", res.Name)
	assert.Equal(t, AssetTypePipeline, res.Type)

	asset, ok := res.Data.(*loaders.PipelineAsset)
	require.True(t, ok)
	assert.Equal(t, uint32(16), asset.Width)

	info, ok := am.Info(path)
	require.True(t, ok)
	assert.False(t, info.LastLoaded.IsZero())

	_, err = am.Load(filepath.Join(dir, "notes.txt"), nil)
	assert.Error(t, err)
}

func TestWatchFiresEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"a\"\n"), 0o644))

	bus := core.NewEventBus()
	changed := make(chan string, 8)
	bus.Register(core.EVENT_CODE_SCENE_CHANGED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		select {
		case changed <- data.Path:
		default:
		}
		return true
	})

	am := NewAssetManager(bus)
	require.NoError(t, am.Watch(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("name = \"b\"\n"), 0o644))

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	select {
	case got := <-changed:
		assert.Equal(t, abs, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
	assert.Error(t, am.Watch(path))
}
