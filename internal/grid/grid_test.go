package grid

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/weiawesome/crowd-playback/internal/camera"
)

type failingSource struct{}

func (failingSource) Cameras(ctx context.Context, deviceID string) ([]string, error) {
	return nil, camera.ErrSourceUnavailable
}

func TestSelectorOpen(t *testing.T) {
	ts := time.Date(2024, 3, 15, 7, 52, 54, 0, time.Local)

	tests := []struct {
		name    string
		sel     *Selector
		want    []string
		wantErr error
	}{
		{
			name: "supplied list without aggregate",
			sel:  NewSelector(camera.NewStaticSource([]string{"Global", "Cam2", "Cam5", "Cam2"})),
			want: []string{"Cam2", "Cam5"},
		},
		{
			name: "empty supplied list falls back to defaults",
			sel:  NewSelector(camera.NewStaticSource(nil)),
			want: DefaultCameras,
		},
		{
			name: "only aggregate falls back to defaults",
			sel:  NewSelector(camera.NewStaticSource([]string{"Global"})),
			want: DefaultCameras,
		},
		{
			name: "nil source uses defaults",
			sel:  NewSelector(nil, WithDefaults([]string{"Door"})),
			want: []string{"Door"},
		},
		{
			name: "failing source uses defaults",
			sel:  NewSelector(failingSource{}),
			want: DefaultCameras,
		},
		{
			name: "custom aggregate",
			sel:  NewSelector(camera.NewStaticSource([]string{"All", "Cam1"}), WithAggregate("All")),
			want: []string{"Cam1"},
		},
		{
			name:    "nothing anywhere is an empty state",
			sel:     NewSelector(camera.NewStaticSource(nil), WithDefaults(nil)),
			want:    []string{},
			wantErr: ErrNoCameras,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.sel.ForDevice("dev-1").Open(context.Background(), ts, 42)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(g.Cameras) != len(tt.want) || (len(tt.want) > 0 && !reflect.DeepEqual(g.Cameras, tt.want)) {
				t.Fatalf("cameras = %v, want %v", g.Cameras, tt.want)
			}
			if !g.Timestamp.Equal(ts) || g.Count != 42 {
				t.Fatalf("grid event = (%v, %d)", g.Timestamp, g.Count)
			}
		})
	}
}

func TestGridChoose(t *testing.T) {
	g := Grid{Cameras: []string{"Cam1", "Cam3"}}
	if err := g.Choose("Cam3"); err != nil {
		t.Fatalf("Choose(Cam3): %v", err)
	}
	if err := g.Choose("Cam9"); !errors.Is(err, ErrUnknownCamera) {
		t.Fatalf("Choose(Cam9) = %v", err)
	}
	if err := (Grid{}).Choose("Cam1"); !errors.Is(err, ErrUnknownCamera) {
		t.Fatalf("Choose on empty grid = %v", err)
	}
}

func TestActivationFromHourly(t *testing.T) {
	loc := time.FixedZone("store", 3*3600)

	ts, count, err := ActivationFromHourly(HourlyPoint{
		HourSlot:      "2024-03-15 07:00:00",
		PeakTimestamp: "2024-03-15 07:52:54",
		MaxCount:      17,
	}, loc)
	if err != nil {
		t.Fatalf("ActivationFromHourly: %v", err)
	}
	if want := time.Date(2024, 3, 15, 7, 52, 54, 0, loc); !ts.Equal(want) || count != 17 {
		t.Fatalf("got (%v, %d), want (%v, 17)", ts, count, want)
	}

	ts, _, err = ActivationFromHourly(HourlyPoint{HourSlot: "2024-03-15T09:00:00", MaxCount: 3}, loc)
	if err != nil {
		t.Fatalf("slot fallback: %v", err)
	}
	if ts.Hour() != 9 || ts.Minute() != 0 {
		t.Fatalf("slot fallback = %v", ts)
	}

	if _, _, err := ActivationFromHourly(HourlyPoint{HourSlot: "2024-03-15 09:00:00"}, loc); !errors.Is(err, ErrNoActivity) {
		t.Fatalf("zero count err = %v", err)
	}
}
