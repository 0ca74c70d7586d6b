package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/signalsfoundry/regionmap/dataset"
	"github.com/signalsfoundry/regionmap/internal/config"
	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/mapsvc"
	"github.com/signalsfoundry/regionmap/internal/treecontrol"
	"github.com/signalsfoundry/regionmap/model"
	"github.com/signalsfoundry/regionmap/render"
	"github.com/signalsfoundry/regionmap/selection"
	"github.com/signalsfoundry/regionmap/zoom"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file merged into the environment")
	datasetPath := flag.String("dataset", "", "Path to the county/parish dataset (overrides REGIONMAP_DATASET)")
	scriptPath := flag.String("script", "-", "JSON-lines replay script, - for stdin")
	lastOnly := flag.Bool("last-only", false, "write only the final frame instead of one frame per paint")
	autoLayers := flag.Bool("auto-layers", true, "register one map layer per region before replaying, keyed by label")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}
	if *datasetPath != "" {
		cfg.DatasetPath = *datasetPath
	}
	log := logging.New(cfg.Log)
	ctx := context.Background()

	ds, err := dataset.LoadFile(cfg.DatasetPath)
	if err != nil {
		log.Error(ctx, "failed to load dataset", logging.String("path", cfg.DatasetPath), logging.Err(err))
		os.Exit(1)
	}

	script := io.Reader(os.Stdin)
	if *scriptPath != "-" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			log.Error(ctx, "failed to open script", logging.String("path", *scriptPath), logging.Err(err))
			os.Exit(1)
		}
		defer f.Close()
		script = f
	}

	opts, err := newOptions(cfg, *lastOnly, *autoLayers)
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(2)
	}
	out := bufio.NewWriter(os.Stdout)
	stats, err := replay(ctx, opts, ds, script, out, log)
	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		log.Error(ctx, "replay failed", logging.Int("line", stats.Steps), logging.Err(err))
		os.Exit(1)
	}
	log.Info(ctx, "replay finished",
		logging.Int("steps", stats.Steps),
		logging.Int("frames", stats.Frames),
		logging.Int("camera_requests", stats.CameraRequests),
	)
}

type options struct {
	hoverMode  mapbridge.HoverMode
	lastOnly   bool
	autoLayers bool
}

func newOptions(cfg config.Config, lastOnly, autoLayers bool) (options, error) {
	hoverMode, err := cfg.ParsedHoverMode()
	if err != nil {
		return options{}, fmt.Errorf("hover mode: %w", err)
	}
	return options{hoverMode: hoverMode, lastOnly: lastOnly, autoLayers: autoLayers}, nil
}

// step is one line of a replay script. Map notifications use the same shape
// as the gRPC Notify payload; the other kinds drive the tree control and the
// store directly.
type step struct {
	mapsvc.Notification

	Action   string   `json:"action,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Label    string   `json:"label,omitempty"`
	County   string   `json:"county,omitempty"`
	Expanded bool     `json:"expanded,omitempty"`
	Hover    bool     `json:"hover,omitempty"`
}

const (
	kindApply        = "apply"
	kindSetHover     = "set_hover"
	kindPanel        = "panel"
	kindCheckbox     = "checkbox"
	kindSelectCounty = "select_county"
)

type stats struct {
	Steps          int
	Frames         int
	CameraRequests int
}

// framePainter writes every frame it is handed as one GeoJSON line.
type framePainter struct {
	enc    *json.Encoder
	frames int
}

func (p *framePainter) Paint(_ context.Context, f render.Frame) error {
	p.frames++
	return p.enc.Encode(f.FeatureCollection())
}

func replay(ctx context.Context, opts options, ds *dataset.Dataset, script io.Reader, out io.Writer, log logging.Logger) (stats, error) {
	var st stats

	store := selection.NewStore(selection.WithLogger(log))
	if err := ds.Populate(store); err != nil {
		return st, err
	}
	gate := zoom.NewGate(zoom.WithLogger(log))
	bridge := mapbridge.New(store, gate, mapbridge.WithHoverMode(opts.hoverMode), mapbridge.WithLogger(log))
	camera := treecontrol.CameraFunc(func(ctx context.Context, p model.Point, z int) error {
		st.CameraRequests++
		log.Info(ctx, "camera request", logging.Any("point", p), logging.Int("zoom", z))
		return nil
	})
	tree := treecontrol.New(ds.Counties, store, camera, treecontrol.WithLogger(log))

	if opts.autoLayers {
		for _, label := range store.Labels() {
			bridge.OnLayerAdd(ctx, mapbridge.StaticLayer{ID: label, Label: label})
		}
	}

	var painter render.Painter
	streaming := &framePainter{enc: json.NewEncoder(out)}
	cache := &render.Cache{}
	if opts.lastOnly {
		painter = cache
	} else {
		painter = streaming
	}
	renderer := render.NewRenderer(store, gate, painter, render.WithLogger(log))
	if err := renderer.Start(ctx); err != nil {
		return st, err
	}
	defer renderer.Stop()

	scanner := bufio.NewScanner(script)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		st.Steps++
		var s step
		dec := json.NewDecoder(strings.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return st, fmt.Errorf("step %d: %w", st.Steps, err)
		}
		if err := apply(ctx, s, store, bridge, tree); err != nil {
			return st, fmt.Errorf("step %d: %w", st.Steps, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return st, fmt.Errorf("read script: %w", err)
	}

	if opts.lastOnly {
		f, _ := cache.Latest()
		if err := streaming.Paint(ctx, f); err != nil {
			return st, err
		}
	}
	st.Frames = streaming.frames
	return st, nil
}

func apply(ctx context.Context, s step, store *selection.Store, bridge *mapbridge.Bridge, tree *treecontrol.Controller) error {
	switch s.Kind {
	case kindApply:
		action, err := selection.ParseAction(s.Action)
		if err != nil {
			return err
		}
		store.Apply(ctx, action, s.Labels...)
	case kindSetHover:
		store.SetHover(ctx, s.Label, s.Hover)
	case kindPanel:
		return tree.OnPanelChange(ctx, s.County, s.Expanded)
	case kindCheckbox:
		tree.OnCheckboxToggle(ctx, s.Label)
	case kindSelectCounty:
		tree.SelectCounty(ctx, s.County)
	case mapsvc.KindLayerAdd, mapsvc.KindClick, mapsvc.KindPointerEnter, mapsvc.KindPointerLeave:
		if s.Layer == nil {
			return errors.New(s.Kind + " step requires a layer")
		}
		switch s.Kind {
		case mapsvc.KindLayerAdd:
			bridge.OnLayerAdd(ctx, *s.Layer)
		case mapsvc.KindClick:
			bridge.OnClick(ctx, *s.Layer)
		case mapsvc.KindPointerEnter:
			bridge.OnPointerEnter(ctx, *s.Layer)
		default:
			bridge.OnPointerLeave(ctx, *s.Layer)
		}
	case mapsvc.KindZoom:
		if s.Zoom == nil {
			return errors.New("zoom step requires a level")
		}
		bridge.OnZoomChange(ctx, *s.Zoom)
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}
