// Package ingest wires the volume monitor, per-volume file watchers, the
// mapping resolver, and the transfer coordinator together behind the
// shared event bus, per §2's system overview. It is the process
// entry point's composition root; a shell imports it and nothing else.
package ingest

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/geekfreaks/ingestengine/common"
	"github.com/geekfreaks/ingestengine/mapping"
	"github.com/geekfreaks/ingestengine/transfer"
	"github.com/geekfreaks/ingestengine/volume"
	"github.com/geekfreaks/ingestengine/watcher"
)

// Engine owns the lifetime of every subsystem named in §2: it starts
// the volume monitor, spins up one watcher per attached non-excluded
// volume, resolves discovered files through the mapping table, and hands
// matches to the transfer coordinator.
type Engine struct {
	bus      *common.EventBus
	monitor  *volume.Monitor
	resolver *mapping.Resolver
	coord    *transfer.Coordinator

	settings common.Settings

	mu       sync.Mutex
	watchers map[string]*watcher.Watcher // keyed by volume mountpoint
	handles  []common.ListenerHandle
}

// New builds an Engine from settings. logFolder selects where the rotating
// engine log is written; pass "" to use the OS temp directory. New does not
// start anything; call Start.
func New(settings common.Settings, history transfer.HistorySink, logFolder string) *Engine {
	if logFolder == "" {
		logFolder = filepath.Join(os.TempDir(), "ingestengine")
	}
	logger := common.NewEngineLogger("ingest", common.ELogLevel.Info(), logFolder)
	logger.OpenLog()
	common.CurrentEngineLogger = logger

	bus := common.NewEventBus()
	resolver := mapping.NewResolver()
	resolver.LoadAll(settings.Mappings)

	system := common.NewHostSystemInfo()
	coord := transfer.NewCoordinator(bus, transfer.Config{
		WorkerCount:                  settings.ParallelCopies,
		BufferSize:                   settings.BufferSize,
		ChunkSize:                    settings.ChunkSize,
		VerifyMode:                   settings.VerifyMode,
		DeleteSourceOnSuccess:        settings.DeleteSourceOnSuccess,
		BandwidthLimitBytesPerSecond: settings.BandwidthLimitBytesPerSecond,
		SlicePool:                    common.NewMultiSizeSlicePool(32 * 1024 * 1024),
		System:                       system,
		History:                      history,
	})

	monitor := volume.NewMonitor(volume.NewGopsutilPort(), bus, volume.DefaultPollInterval, systemRoot())
	monitor.SetExcluded(settings.ExcludedVolumes)

	e := &Engine{
		bus:      bus,
		monitor:  monitor,
		resolver: resolver,
		coord:    coord,
		settings: settings,
		watchers: make(map[string]*watcher.Watcher),
	}
	return e
}

// Bus exposes the shared event bus so a shell can subscribe before or
// after Start.
func (e *Engine) Bus() *common.EventBus { return e.bus }

// Resolver exposes the mapping table so a shell can mutate it live.
func (e *Engine) Resolver() *mapping.Resolver { return e.resolver }

// Coordinator exposes the transfer coordinator for direct enqueue/pause/
// cancel/retry calls from a shell.
func (e *Engine) Coordinator() *transfer.Coordinator { return e.coord }

// Start begins the volume monitor and wires watcher lifecycle to
// volume_attached/volume_detached events.
func (e *Engine) Start() {
	h1 := e.bus.Subscribe(common.EventVolumeAttached, e.onVolumeAttached)
	h2 := e.bus.Subscribe(common.EventVolumeDetached, e.onVolumeDetached)
	e.mu.Lock()
	e.handles = append(e.handles, h1, h2)
	e.mu.Unlock()

	e.monitor.Start()
}

// Shutdown stops every watcher, the volume monitor, and the coordinator,
// in that order so no watcher discovers work after the coordinator has
// stopped accepting it.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	for _, h := range e.handles {
		e.bus.Unsubscribe(h)
	}
	watchers := make([]*watcher.Watcher, 0, len(e.watchers))
	for _, w := range e.watchers {
		watchers = append(watchers, w)
	}
	e.watchers = make(map[string]*watcher.Watcher)
	e.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	e.monitor.Stop()
	e.coord.Shutdown()

	if common.CurrentEngineLogger != nil {
		common.CurrentEngineLogger.CloseLog()
	}
}

func (e *Engine) onVolumeAttached(payload any) {
	vol, ok := payload.(volume.Volume)
	if !ok || vol.Excluded {
		return
	}

	if !e.settings.AutoStartOnAttach {
		return
	}

	w := watcher.New(vol.MountPoint, extensionsOf(e.settings.Mappings), watcherPollInterval(e.settings), func(f watcher.FoundFile) {
		e.onFileFound(vol, f)
	})

	e.mu.Lock()
	e.watchers[vol.MountPoint] = w
	e.mu.Unlock()

	w.Start()
}

func (e *Engine) onVolumeDetached(payload any) {
	vol, ok := payload.(volume.Volume)
	if !ok {
		return
	}

	e.mu.Lock()
	w, ok := e.watchers[vol.MountPoint]
	delete(e.watchers, vol.MountPoint)
	e.mu.Unlock()

	if ok {
		w.Stop()
	}
	e.coord.CancelBySourceVolume(vol.MountPoint)
}

// onFileFound resolves the discovered file's target directory and, if
// one exists, enqueues it. No mapping means the file is ignored.
func (e *Engine) onFileFound(vol volume.Volume, f watcher.FoundFile) {
	targetDir, ok := e.resolver.Resolve(f.Path)
	if !ok {
		return
	}

	targetPath := filepath.Join(targetDir, filepath.Base(f.Path))

	_, _ = e.coord.Enqueue(f.Path, targetPath, common.EPriority.Normal())
}

func watcherPollInterval(settings common.Settings) time.Duration {
	if settings.PollIntervalSeconds <= 0 {
		return watcher.DefaultPollInterval
	}
	return time.Duration(settings.PollIntervalSeconds) * time.Second
}

func extensionsOf(mappings map[string]string) []string {
	exts := make([]string, 0, len(mappings))
	for ext := range mappings {
		exts = append(exts, ext)
	}
	return exts
}
