// Package mapbridge adapts pointer and zoom notifications from the map
// rendering layer into selection and zoom updates.
package mapbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/selection"
)

// Layer is a rendered map layer as seen by the bridge.
type Layer interface {
	// LayerID identifies the layer across notifications.
	LayerID() string
	// Identity returns the label of the region the layer draws.
	Identity() (label string, ok bool)
	// Permanent marks the persistent label layer.
	Permanent() bool
}

// Listener is the closed set of notifications the rendering layer delivers.
type Listener interface {
	OnLayerAdd(ctx context.Context, layer Layer)
	OnClick(ctx context.Context, layer Layer)
	OnPointerEnter(ctx context.Context, layer Layer)
	OnPointerLeave(ctx context.Context, layer Layer)
	OnZoomChange(ctx context.Context, level int)
}

// Selector is the subset of selection.Store the bridge mutates.
type Selector interface {
	Apply(ctx context.Context, action selection.Action, labels ...string) selection.Snapshot
	SetHover(ctx context.Context, label string, hover bool) bool
}

// ZoomSetter is the subset of zoom.Gate the bridge updates.
type ZoomSetter interface {
	SetLevel(ctx context.Context, level int)
}

// HoverMode selects how pointer enter/leave map onto hover state.
type HoverMode int

const (
	// HoverExplicit sets hover on enter and clears it on leave.
	HoverExplicit HoverMode = iota
	// HoverToggle flips hover on both edges. A missed or doubled edge
	// leaves the hover flag inverted until the next edge.
	HoverToggle
)

func (m HoverMode) String() string {
	switch m {
	case HoverExplicit:
		return "explicit"
	case HoverToggle:
		return "toggle"
	default:
		return fmt.Sprintf("HoverMode(%d)", int(m))
	}
}

// ParseHoverMode accepts "explicit" or "toggle"; empty means explicit.
func ParseHoverMode(s string) (HoverMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "explicit":
		return HoverExplicit, nil
	case "toggle":
		return HoverToggle, nil
	default:
		return 0, fmt.Errorf("unknown hover mode %q", s)
	}
}

// Option customises Bridge construction.
type Option func(*Bridge)

// WithHoverMode overrides the default HoverExplicit.
func WithHoverMode(m HoverMode) Option {
	return func(b *Bridge) {
		b.hover = m
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// Bridge implements Listener on top of a Selector and a ZoomSetter.
type Bridge struct {
	store Selector
	zoom  ZoomSetter
	hover HoverMode
	log   logging.Logger

	mu sync.RWMutex
	// layers maps registered layer IDs to region labels.
	layers map[string]string
}

var _ Listener = (*Bridge)(nil)

// New constructs a bridge. zoom may be nil, in which case zoom changes are
// dropped.
func New(store Selector, zoom ZoomSetter, opts ...Option) *Bridge {
	b := &Bridge{
		store:  store,
		zoom:   zoom,
		log:    logging.Noop(),
		layers: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// HoverMode returns the configured hover mode.
func (b *Bridge) HoverMode() HoverMode { return b.hover }

// OnLayerAdd registers region layers so later pointer notifications reach
// the store. The permanent label layer and layers without an identity are
// ignored.
func (b *Bridge) OnLayerAdd(ctx context.Context, layer Layer) {
	defer b.skipMalformed(ctx, "layer_add")
	if layer == nil || layer.Permanent() {
		return
	}
	label, ok := layer.Identity()
	if !ok || label == "" {
		b.log.Debug(ctx, "ignoring layer without identity", logging.String("layer_id", layer.LayerID()))
		return
	}
	key := layerKey(layer, label)

	b.mu.Lock()
	b.layers[key] = label
	b.mu.Unlock()
}

// OnClick toggles selection of the clicked region.
func (b *Bridge) OnClick(ctx context.Context, layer Layer) {
	defer b.skipMalformed(ctx, "click")
	label, ok := b.lookup(layer)
	if !ok {
		return
	}
	b.store.Apply(ctx, selection.ActionSelect, label)
}

// OnPointerEnter marks the region under the pointer as hovered.
func (b *Bridge) OnPointerEnter(ctx context.Context, layer Layer) {
	defer b.skipMalformed(ctx, "pointer_enter")
	b.pointer(ctx, layer, true)
}

// OnPointerLeave clears hover for the region the pointer left.
func (b *Bridge) OnPointerLeave(ctx context.Context, layer Layer) {
	defer b.skipMalformed(ctx, "pointer_leave")
	b.pointer(ctx, layer, false)
}

// OnZoomChange forwards the new level to the zoom gate.
func (b *Bridge) OnZoomChange(ctx context.Context, level int) {
	if b.zoom == nil {
		return
	}
	b.zoom.SetLevel(ctx, level)
}

// Registered reports whether a layer ID has been registered.
func (b *Bridge) Registered(layerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.layers[layerID]
	return ok
}

func (b *Bridge) pointer(ctx context.Context, layer Layer, entering bool) {
	label, ok := b.lookup(layer)
	if !ok {
		return
	}
	if b.hover == HoverToggle {
		b.store.Apply(ctx, selection.ActionHover, label)
		return
	}
	b.store.SetHover(ctx, label, entering)
}

func (b *Bridge) lookup(layer Layer) (string, bool) {
	if layer == nil || layer.Permanent() {
		return "", false
	}
	id := layer.LayerID()
	if id == "" {
		// Unnamed layers were registered under their label.
		label, ok := layer.Identity()
		if !ok {
			return "", false
		}
		id = label
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	label, ok := b.layers[id]
	return label, ok
}

// skipMalformed turns a panic raised by a malformed layer into a skipped
// notification.
func (b *Bridge) skipMalformed(ctx context.Context, kind string) {
	if r := recover(); r != nil {
		b.log.Warn(ctx, "skipping malformed map notification",
			logging.String("kind", kind),
			logging.Any("panic", r),
		)
	}
}

func layerKey(layer Layer, label string) string {
	if id := layer.LayerID(); id != "" {
		return id
	}
	return label
}
