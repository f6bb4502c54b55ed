package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/effibem/bemviewer/config"
	"github.com/effibem/bemviewer/metrics"
	"github.com/effibem/bemviewer/status"
	"github.com/effibem/bemviewer/utils/gltfutils"
	"github.com/effibem/bemviewer/viewer"
	"github.com/effibem/bemviewer/watch"
	"github.com/effibem/bemviewer/web"
)

func main() {
	var addr, configPath, gltfPath, encoding, sourceRoot string
	var watchFile, diagnostics bool
	flag.StringVar(&addr, "i", "", "Address of server, overrides server.addr")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&gltfPath, "gltf", "", "Path or url of a gltf document to show, built-in example building if empty")
	flag.BoolVar(&watchFile, "watch", false, "Reload -gltf when the local file changes")
	flag.BoolVar(&diagnostics, "diagnostics", false, "Enable geometry diagnostic filters")
	flag.StringVar(&encoding, "encoding", "", "Legacy charmap of the source documents, see x/text charmap names")
	flag.StringVar(&sourceRoot, "root", "", "Directory the web api may load local documents from, overrides source.root")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if diagnostics {
		cfg.Viewer.IncludeGeometryDiagnostics = true
	}
	if encoding != "" {
		cfg.Source.Encoding = encoding
	}
	if sourceRoot != "" {
		cfg.Source.Root = sourceRoot
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := config.SetEncoding(cfg.Source.Encoding); err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, gltfPath, watchFile); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, gltfPath string, watchFile bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg)

	hub := status.NewHub()
	hub.OnConnect = collector.ClientConnected
	hub.OnDisconnect = collector.ClientDisconnected

	vp := viewer.NewViewport(cfg.Viewer.Width, cfg.Viewer.Height)
	opts := viewer.RunOptions{
		Container: vp,
		Options: viewer.Options{
			IncludeGeometryDiagnostics: cfg.Viewer.IncludeGeometryDiagnostics,
			FrameInterval:              cfg.Viewer.FrameInterval(),
			EnableDamping:              cfg.Viewer.EnableDamping,
			DampingFactor:              cfg.Viewer.DampingFactor,
			OnError:                    hub.ReportError,
			Decode:                     config.DecodeSource,
			Metrics:                    collector,
		},
	}

	var v *viewer.Viewer
	var err error
	if gltfPath != "" {
		v, err = viewer.RunFromFile(ctx, gltfPath, opts)
	} else {
		v, err = viewer.RunFromJSON(gltfutils.ExampleBuilding(), opts)
	}
	if err != nil {
		// the page can still load another document
		log.Printf("[main] initial load failed: %v", err)
	}
	defer v.Dispose()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.StartServer(gctx, cfg.Server.Addr, &web.Server{
			Viewer:     v,
			Viewport:   vp,
			Hub:        hub,
			Gatherer:   reg,
			SourceRoot: cfg.Source.Root,
		})
	})
	if watchFile {
		if gltfPath == "" || strings.HasPrefix(gltfPath, "http://") || strings.HasPrefix(gltfPath, "https://") {
			log.Printf("[main] -watch needs a local -gltf file, ignored")
		} else {
			w := &watch.Watcher{Path: strings.TrimPrefix(gltfPath, "file://"), Loader: v}
			g.Go(func() error { return w.Run(gctx) })
		}
	}
	return g.Wait()
}
