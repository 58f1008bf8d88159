package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/resolvepipe/engine/assets/loaders"
	"github.com/spaghettifunk/resolvepipe/engine/core"
)

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// AssetManager loads pipeline and scene assets and, once Watch is called,
// fires an event on the bus whenever one of them changes on disk.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex sync.RWMutex

	bus      *core.EventBus
	logger   *log.Logger
	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(bus *core.EventBus) *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[AssetType]Loader),
		bus:     bus,
		logger:  core.NewLogger("assets"),
	}
	// Register loaders
	am.registerLoader(AssetTypePipeline, &loaders.PipelineLoader{})
	am.registerLoader(AssetTypeScene, &loaders.SceneLoader{})
	return am
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// Load an asset using the appropriate loader
func (am *AssetManager) Load(path string, params interface{}) (*Resource, error) {
	assetType := DetermineAssetType(path)
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for %s", path)
	}

	data, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType, LastLoaded: time.Now()}
	am.mutex.Unlock()

	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath: path,
		Type:     assetType,
		Data:     data,
	}, nil
}

func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// Watch starts watching the directories of the given files. Editors often
// replace files instead of writing them, so directories are watched rather
// than the files themselves.
func (am *AssetManager) Watch(paths ...string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = w
		am.done = make(chan struct{})
		am.stopped = make(chan struct{})
		go am.start()
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := am.fsnotify.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		am.mutex.Lock()
		if _, ok := am.assets[abs]; !ok {
			am.assets[abs] = AssetInfo{Path: abs, Type: DetermineAssetType(abs)}
		}
		am.mutex.Unlock()
	}
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			am.logger.Error("watcher failed", "err", err)

		case <-am.done:
			return
		}
	}
}

// Handle the creation or modification of a watched file
func (am *AssetManager) handleFileEvent(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	am.mutex.Lock()
	info, watched := am.assets[abs]
	if watched {
		info.LastLoaded = time.Now()
		am.assets[abs] = info
	}
	am.mutex.Unlock()

	if !watched {
		return
	}

	var code core.SystemEventCode
	switch info.Type {
	case AssetTypePipeline:
		code = core.EVENT_CODE_PIPELINE_CONFIG_CHANGED
	case AssetTypeScene:
		code = core.EVENT_CODE_SCENE_CHANGED
	default:
		return
	}
	am.logger.Info("asset changed", "path", abs, "type", info.Type)
	am.bus.Fire(code, am, core.EventContext{Path: abs})
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	<-am.stopped
	return am.fsnotify.Close()
}

// DetermineAssetType maps a file name to its asset type. Scene files use
// the .scene.toml suffix, any other TOML file is a pipeline asset.
func DetermineAssetType(path string) AssetType {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".scene.toml"):
		return AssetTypeScene
	case filepath.Ext(name) == ".toml":
		return AssetTypePipeline
	default:
		return AssetTypeNone
	}
}
