package mapsvc

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed MapService client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Notify sends one rendering-layer notification.
func (c *Client) Notify(ctx context.Context, n Notification, opts ...grpc.CallOption) error {
	_, err := c.invokeEmpty(ctx, "Notify", n, opts...)
	return err
}

// LayerAdd is a shorthand for a layer_add notification.
func (c *Client) LayerAdd(ctx context.Context, layer mapbridge.StaticLayer, opts ...grpc.CallOption) error {
	return c.Notify(ctx, Notification{Kind: KindLayerAdd, Layer: &layer}, opts...)
}

// Click is a shorthand for a click notification.
func (c *Client) Click(ctx context.Context, layer mapbridge.StaticLayer, opts ...grpc.CallOption) error {
	return c.Notify(ctx, Notification{Kind: KindClick, Layer: &layer}, opts...)
}

// Zoom is a shorthand for a zoom notification.
func (c *Client) Zoom(ctx context.Context, level int, opts ...grpc.CallOption) error {
	return c.Notify(ctx, Notification{Kind: KindZoom, Zoom: &level}, opts...)
}

// Apply runs a selection action and returns every region's state.
func (c *Client) Apply(ctx context.Context, req ApplyRequest, opts ...grpc.CallOption) (*ApplyResponse, error) {
	var resp ApplyResponse
	if err := c.invoke(ctx, "Apply", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetHover explicitly sets or clears hover on one region.
func (c *Client) SetHover(ctx context.Context, req HoverRequest, opts ...grpc.CallOption) (*HoverResponse, error) {
	var resp HoverResponse
	if err := c.invoke(ctx, "SetHover", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PanelChange reports a county panel opening or closing.
func (c *Client) PanelChange(ctx context.Context, req PanelRequest, opts ...grpc.CallOption) error {
	_, err := c.invokeEmpty(ctx, "PanelChange", req, opts...)
	return err
}

// CheckboxToggle flips selection of one parish.
func (c *Client) CheckboxToggle(ctx context.Context, req CheckboxRequest, opts ...grpc.CallOption) error {
	_, err := c.invokeEmpty(ctx, "CheckboxToggle", req, opts...)
	return err
}

// Frame fetches the latest frame and decodes its GeoJSON payload.
func (c *Client) Frame(ctx context.Context, opts ...grpc.CallOption) (*FrameResponse, *geojson.FeatureCollection, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod("Frame"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, nil, err
	}
	var resp FrameResponse
	if err := decodeStruct(out, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode Frame response: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(resp.Frame)
	if err != nil {
		return nil, nil, fmt.Errorf("decode Frame geojson: %w", err)
	}
	return &resp, fc, nil
}

// Tree fetches the checkbox tree view model.
func (c *Client) Tree(ctx context.Context, opts ...grpc.CallOption) (*TreeResponse, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod("Tree"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var resp TreeResponse
	if err := decodeStruct(out, &resp); err != nil {
		return nil, fmt.Errorf("decode Tree response: %w", err)
	}
	return &resp, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return err
	}
	if err := decodeStruct(out, resp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func (c *Client) invokeEmpty(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}
	out := &emptypb.Empty{}
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
