package mapsvc

import (
	"errors"

	"github.com/signalsfoundry/regionmap/dataset"
	"github.com/signalsfoundry/regionmap/selection"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidRequest is returned for requests that cannot be decoded or
	// are missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnavailable is returned when a backend collaborator is not wired.
	ErrUnavailable = errors.New("backend unavailable")
)

// ToStatusError maps map service errors onto gRPC status codes. Unknown
// region labels never reach this point: the store ignores them.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, selection.ErrInvalidRegion),
		errors.Is(err, dataset.ErrEmptyLabel),
		errors.Is(err, dataset.ErrNoCoordinates):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, selection.ErrRegionExists),
		errors.Is(err, dataset.ErrDuplicateLabel):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
