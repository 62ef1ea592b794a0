// Package core wires the resource manager to its file system and
// rendering backend from a Configuration.
package core

import (
	"fmt"

	"github.com/devblok/korures/assets"
	"github.com/devblok/korures/gfx/soft"
	"github.com/devblok/korures/resource"
	"github.com/devblok/korures/vfs"
	"github.com/gobuffalo/packr"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Builtin holds assets shipped inside the binary. It is searched last.
var Builtin = packr.NewBox("./builtin")

// Engine owns a resource manager and everything its resources use.
type Engine struct {
	Config  Configuration
	Logger  *log.Logger
	Files   vfs.FileSystem
	Backend *soft.Backend
	Assets  *assets.Provider
	Manager *resource.Manager
	Metrics *resource.Metrics

	archives []*vfs.Archive
}

// NewEngine builds an Engine. A nil logger uses the standard logger,
// a nil registry leaves metrics unregistered.
func NewEngine(cfg Configuration, logger *log.Logger, reg prometheus.Registerer) (*Engine, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.SetLevel(cfg.LogLevel)

	e := &Engine{
		Config: cfg,
		Logger: logger,
	}

	files, err := e.openFiles()
	if err != nil {
		return nil, multierr.Append(err, e.closeArchives())
	}
	e.Files = files

	metricsCfg := resource.DefaultMetricsConfig()
	metricsCfg.Namespace = cfg.Metrics.Namespace
	metricsCfg.Registry = reg
	e.Metrics = resource.NewMetrics(metricsCfg)

	e.Backend = soft.New(logger)
	e.Assets = assets.NewProvider(e.Files, e.Backend, logger)
	e.Manager = resource.NewManager(
		resource.WithLogger(logger),
		resource.WithMetrics(e.Metrics),
	)
	e.Manager.SetTargetState(cfg.Resources.TargetState)
	if err := e.Assets.Register(e.Manager); err != nil {
		return nil, multierr.Append(err, e.closeArchives())
	}
	return e, nil
}

func (e *Engine) openFiles() (vfs.FileSystem, error) {
	var layers vfs.Overlay
	if dir := e.Config.Assets.Directory; dir != "" {
		layers = append(layers, vfs.Dir(dir))
	}
	for _, path := range e.Config.Assets.Archives {
		ar, err := vfs.OpenArchive(path)
		if err != nil {
			return nil, fmt.Errorf("core: archive %s: %w", path, err)
		}
		e.archives = append(e.archives, ar)
		layers = append(layers, ar)
	}
	layers = append(layers, vfs.NewBox(Builtin))

	if e.Config.Assets.CacheEntries <= 0 {
		return layers, nil
	}
	return vfs.NewCaching(layers, e.Config.Assets.CacheEntries, e.Config.Assets.CacheMaxFileSize)
}

// Reconcile moves every section to its target state.
func (e *Engine) Reconcile() error {
	return e.Manager.MakeAllResourcesTargetState(e.Config.Resources.FailFast)
}

// Close releases all resources and closes the archives.
func (e *Engine) Close() error {
	return multierr.Append(e.Manager.Close(), e.closeArchives())
}

func (e *Engine) closeArchives() error {
	var err error
	for _, ar := range e.archives {
		err = multierr.Append(err, ar.Close())
	}
	e.archives = nil
	return err
}
