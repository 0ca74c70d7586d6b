package mapsvc

import (
	"context"
	"testing"

	"github.com/signalsfoundry/regionmap/model"
)

type flightCounter struct{ n int }

func (f *flightCounter) IncCameraFlights() { f.n++ }

func TestCameraQueueKeepsNewestRequests(t *testing.T) {
	ctx := context.Background()
	rec := &flightCounter{}
	q := NewCameraQueue(2, rec, nil)

	for i := 0; i < 3; i++ {
		if err := q.FlyTo(ctx, model.Point{float64(i), 0}, 10); err != nil {
			t.Fatalf("FlyTo: %v", err)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	got := q.Drain()
	if len(got) != 2 || got[0].Point[0] != 1 || got[1].Point[0] != 2 {
		t.Fatalf("drained = %+v", got)
	}
	if q.Len() != 0 || len(q.Drain()) != 0 {
		t.Fatalf("queue not empty after drain")
	}
	if rec.n != 3 {
		t.Fatalf("recorded flights = %d, want 3", rec.n)
	}
}

func TestCameraQueueDefaultBacklog(t *testing.T) {
	q := NewCameraQueue(0, nil, nil)
	for i := 0; i < DefaultCameraBacklog+4; i++ {
		_ = q.FlyTo(context.Background(), model.Point{}, 10)
	}
	if q.Len() != DefaultCameraBacklog {
		t.Fatalf("len = %d, want %d", q.Len(), DefaultCameraBacklog)
	}
}
