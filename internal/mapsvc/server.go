// Package mapsvc exposes the region map engine to a remote rendering layer
// over gRPC.
package mapsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/treecontrol"
	"github.com/signalsfoundry/regionmap/render"
	"github.com/signalsfoundry/regionmap/selection"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Store is the selection surface the service drives directly.
type Store interface {
	Apply(ctx context.Context, action selection.Action, labels ...string) selection.Snapshot
	SetHover(ctx context.Context, label string, hover bool) bool
}

// FrameSource returns the latest painted frame.
type FrameSource interface {
	Latest() (render.Frame, uint64)
}

// Backend groups the collaborators a Server dispatches to.
type Backend struct {
	Store  Store
	Bridge mapbridge.Listener
	Tree   *treecontrol.Controller
	Frames FrameSource
	Camera *CameraQueue
	// Flush, when set, is called before reading a frame so pending
	// coalesced changes are painted first.
	Flush func() bool
}

func (b Backend) validate() error {
	switch {
	case b.Store == nil:
		return fmt.Errorf("%w: store", ErrUnavailable)
	case b.Bridge == nil:
		return fmt.Errorf("%w: map bridge", ErrUnavailable)
	case b.Tree == nil:
		return fmt.Errorf("%w: tree control", ErrUnavailable)
	case b.Frames == nil:
		return fmt.Errorf("%w: frame source", ErrUnavailable)
	}
	return nil
}

// Server implements MapServiceServer.
//
// Semantics:
//   - Notify forwards rendering-layer events to the map bridge.
//   - Apply and SetHover reach the selection store directly.
//   - PanelChange and CheckboxToggle go through the tree control.
//   - Frame returns the latest painted frame and drains queued camera
//     requests.
//
// Unknown region labels are never errors.
type Server struct {
	backend Backend
	log     logging.Logger
}

var _ MapServiceServer = (*Server)(nil)

// NewServer constructs a Server. Every Backend field except Camera and
// Flush is required.
func NewServer(backend Backend, log logging.Logger) (*Server, error) {
	if err := backend.validate(); err != nil {
		return nil, fmt.Errorf("mapsvc.NewServer: %w", err)
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Server{backend: backend, log: log}, nil
}

// Notify delivers one rendering-layer notification.
func (s *Server) Notify(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var n Notification
	if err := decodeStruct(in, &n); err != nil {
		return nil, ToStatusError(err)
	}
	if err := n.validate(); err != nil {
		return nil, ToStatusError(err)
	}

	b := s.backend.Bridge
	switch n.Kind {
	case KindLayerAdd:
		b.OnLayerAdd(ctx, *n.Layer)
	case KindClick:
		b.OnClick(ctx, *n.Layer)
	case KindPointerEnter:
		b.OnPointerEnter(ctx, *n.Layer)
	case KindPointerLeave:
		b.OnPointerLeave(ctx, *n.Layer)
	case KindZoom:
		b.OnZoomChange(ctx, *n.Zoom)
	}
	return &emptypb.Empty{}, nil
}

// Apply runs a SELECT, SELECT_ALL or HOVER action.
func (s *Server) Apply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ApplyRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	action, err := selection.ParseAction(req.Action)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	ctx, span := StartChildSpan(ctx, "Selection.Apply", action.String(), req.Labels)
	snap := s.backend.Store.Apply(ctx, action, req.Labels...)
	span.End()

	resp := ApplyResponse{Regions: make([]RegionState, 0, len(snap.Regions))}
	for _, r := range snap.Regions {
		resp.Regions = append(resp.Regions, RegionState{Label: r.Label, Selected: r.Selected, Hover: r.Hover})
	}
	return s.encode(ctx, resp)
}

// SetHover explicitly sets or clears hover on one region.
func (s *Server) SetHover(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req HoverRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireLabel("label", req.Label); err != nil {
		return nil, ToStatusError(err)
	}
	known := s.backend.Store.SetHover(ctx, req.Label, req.Hover)
	return s.encode(ctx, HoverResponse{Known: known})
}

// PanelChange reports a county panel opening or closing.
func (s *Server) PanelChange(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req PanelRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireLabel("county", req.County); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.backend.Tree.OnPanelChange(ctx, req.County, req.Expanded); err != nil {
		logging.FromContext(ctx, s.log).Warn(ctx, "panel change failed",
			logging.String("county", req.County),
			logging.Err(err),
		)
		return nil, ToStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// CheckboxToggle flips selection of one parish.
func (s *Server) CheckboxToggle(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req CheckboxRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireLabel("label", req.Label); err != nil {
		return nil, ToStatusError(err)
	}
	s.backend.Tree.OnCheckboxToggle(ctx, req.Label)
	return &emptypb.Empty{}, nil
}

// Frame returns the latest frame as GeoJSON plus pending camera requests.
func (s *Server) Frame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.backend.Flush != nil {
		s.backend.Flush()
	}
	frame, version := s.backend.Frames.Latest()

	_, span := StartChildSpan(ctx, "Frame.Encode", "", nil,
		attribute.Int("frame.layers", len(frame.Layers)),
		attribute.Int("frame.zoom", frame.Zoom),
	)
	raw, err := json.Marshal(frame.FeatureCollection())
	span.End()
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("encode frame: %w", err))
	}

	resp := FrameResponse{Version: version, Frame: raw}
	if s.backend.Camera != nil {
		resp.Camera = s.backend.Camera.Drain()
	}
	return s.encode(ctx, resp)
}

// Tree returns the checkbox tree view model.
func (s *Server) Tree(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.encode(ctx, TreeResponse{Panels: s.backend.Tree.Panels()})
}

func (s *Server) encode(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := encodeStruct(v)
	if err != nil {
		logging.FromContext(ctx, s.log).Error(ctx, "encode response failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}
