package mapsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/treecontrol"
	"github.com/signalsfoundry/regionmap/model"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Notification kinds accepted by Notify.
const (
	KindLayerAdd     = "layer_add"
	KindClick        = "click"
	KindPointerEnter = "pointer_enter"
	KindPointerLeave = "pointer_leave"
	KindZoom         = "zoom"
)

// Notification is one rendering-layer event.
type Notification struct {
	Kind  string                 `json:"kind"`
	Layer *mapbridge.StaticLayer `json:"layer,omitempty"`
	Zoom  *int                   `json:"zoom,omitempty"`
}

func (n Notification) validate() error {
	switch n.Kind {
	case KindZoom:
		if n.Zoom == nil {
			return fmt.Errorf("%w: zoom notification requires a level", ErrInvalidRequest)
		}
		return nil
	case KindLayerAdd, KindClick, KindPointerEnter, KindPointerLeave:
		if n.Layer == nil {
			return fmt.Errorf("%w: %s notification requires a layer", ErrInvalidRequest, n.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown notification kind %q", ErrInvalidRequest, n.Kind)
	}
}

// ApplyRequest carries a selection action and its target labels.
type ApplyRequest struct {
	Action string   `json:"action"`
	Labels []string `json:"labels"`
}

// RegionState is the runtime state of one region.
type RegionState struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
	Hover    bool   `json:"hover"`
}

// ApplyResponse reports every region after the action.
type ApplyResponse struct {
	Regions []RegionState `json:"regions"`
}

// HoverRequest explicitly sets or clears hover on one region.
type HoverRequest struct {
	Label string `json:"label"`
	Hover bool   `json:"hover"`
}

// HoverResponse reports whether the label named a known region.
type HoverResponse struct {
	Known bool `json:"known"`
}

// PanelRequest reports a county panel opening or closing.
type PanelRequest struct {
	County   string `json:"county"`
	Expanded bool   `json:"expanded"`
}

// CheckboxRequest reports a parish checkbox toggle.
type CheckboxRequest struct {
	Label string `json:"label"`
}

// CameraRequest is a pending fly-to for the rendering layer.
type CameraRequest struct {
	Point model.Point `json:"point"`
	Zoom  int         `json:"zoom"`
}

// FrameResponse carries the latest painted frame as a GeoJSON feature
// collection, along with camera requests queued since the previous call.
type FrameResponse struct {
	Version uint64          `json:"version"`
	Frame   json.RawMessage `json:"frame"`
	Camera  []CameraRequest `json:"camera,omitempty"`
}

// TreeResponse is the checkbox tree view model.
type TreeResponse struct {
	Panels []treecontrol.Panel `json:"panels"`
}

func requireLabel(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	return nil
}

// decodeStruct converts a Struct payload into v. Unknown fields are rejected.
func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidRequest)
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// encodeStruct converts v into a Struct payload via its JSON form.
func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}
