package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/player"
)

var (
	// ErrViewerNotFound is returned for unknown or unmounted viewers.
	ErrViewerNotFound = errors.New("viewer not found")
	// ErrUnknownAction is returned by Navigate for unsupported actions.
	ErrUnknownAction = errors.New("unknown navigation action")
)

// Action is a navigation command from the UI.
type Action string

const (
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionForward  Action = "forward"
	ActionBackward Action = "backward"
	ActionToggle   Action = "toggle"
	ActionGrid     Action = "grid"
	ActionClose    Action = "close"
	ActionDismiss  Action = "dismiss"
)

// Viewer is one mounted player: a navigator owned by its controller.
type Viewer struct {
	ID        string
	DeviceID  string
	CreatedAt time.Time

	ctrl   *player.Controller
	loc    *time.Location
	skip   float64
	pinned bool
}

// Activate opens the camera grid for a data point.
func (v *Viewer) Activate(ctx context.Context, ts time.Time, count int) (player.Snapshot, error) {
	return v.ctrl.Do(ctx, func(ctx context.Context, n *player.Navigator) error {
		_, err := n.ActivateDataPoint(ctx, ts, count)
		return err
	})
}

// ActivateHourly opens the grid for a bar of the hourly chart.
func (v *Viewer) ActivateHourly(ctx context.Context, p grid.HourlyPoint) (player.Snapshot, error) {
	ts, count, err := grid.ActivationFromHourly(p, v.loc)
	if errors.Is(err, grid.ErrNoActivity) {
		return player.Snapshot{}, err
	}
	if err != nil {
		return player.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return v.Activate(ctx, ts, count)
}

// SelectCamera starts a session on the open grid.
func (v *Viewer) SelectCamera(ctx context.Context, camera string) (player.Snapshot, error) {
	return v.ctrl.Do(ctx, func(_ context.Context, n *player.Navigator) error {
		return n.SelectCamera(camera)
	})
}

// Navigate applies an action. seconds overrides the skip step when positive.
func (v *Viewer) Navigate(ctx context.Context, action Action, seconds float64) (player.Snapshot, error) {
	if seconds <= 0 {
		seconds = v.skip
	}

	var cmd player.Command
	switch action {
	case ActionNext:
		cmd = func(_ context.Context, n *player.Navigator) error { return n.NextChunk() }
	case ActionPrevious:
		cmd = func(_ context.Context, n *player.Navigator) error { return n.PreviousChunk() }
	case ActionForward:
		cmd = func(_ context.Context, n *player.Navigator) error { return n.SkipForward(seconds) }
	case ActionBackward:
		cmd = func(_ context.Context, n *player.Navigator) error { return n.SkipBackward(seconds) }
	case ActionToggle:
		cmd = func(_ context.Context, n *player.Navigator) error { return n.TogglePlayPause() }
	case ActionGrid:
		cmd = func(ctx context.Context, n *player.Navigator) error {
			_, err := n.ReturnToGrid(ctx)
			return err
		}
	case ActionClose:
		cmd = func(_ context.Context, n *player.Navigator) error {
			n.Close()
			return nil
		}
	case ActionDismiss:
		cmd = func(_ context.Context, n *player.Navigator) error {
			n.DismissError()
			return nil
		}
	default:
		return player.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return v.ctrl.Do(ctx, cmd)
}

// Key dispatches a keyboard shortcut and reports whether it was bound.
func (v *Viewer) Key(ctx context.Context, key string) (player.Snapshot, bool, error) {
	var handled bool
	snap, err := v.ctrl.Do(ctx, func(ctx context.Context, n *player.Navigator) error {
		var err error
		handled, err = n.HandleKey(ctx, player.ParseKey(key))
		return err
	})
	return snap, handled, err
}

// Snapshot returns the current view.
func (v *Viewer) Snapshot(ctx context.Context) (player.Snapshot, error) {
	return v.ctrl.Snapshot(ctx)
}

// Post forwards a media event from the viewer's surface.
func (v *Viewer) Post(ev player.MediaEvent) bool {
	return v.ctrl.Post(ev)
}

// Done is closed once the viewer is unmounted.
func (v *Viewer) Done() <-chan struct{} {
	return v.ctrl.Done()
}

// LastActive returns when the viewer last received a command or media event.
func (v *Viewer) LastActive() time.Time {
	return v.ctrl.LastActive()
}
