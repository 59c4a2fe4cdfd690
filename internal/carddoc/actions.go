package carddoc

import (
	"context"
	"errors"
	"fmt"
)

// Known action type tags. The set is open: anything unrecognized is
// forwarded to the host callback untouched.
const (
	ActionOpenURL  = "Action.OpenUrl"
	ActionSubmit   = "Action.Submit"
	ActionShowCard = "Action.ShowCard"
	ActionExecute  = "Action.Execute"
	ActionPopover  = "Action.Popover"
)

// ErrPopoverNotDispatchable marks Popover actions reaching the dispatcher:
// they are rendered locally as overlays and must never be forwarded.
var ErrPopoverNotDispatchable = errors.New("popover actions are rendered locally, not dispatched")

// Navigator 是外部导航能力；OpenUrl 动作交给它处理，无返回值约定。
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// ActionCallback receives every action the renderer does not consume
// itself (Submit, Execute, ShowCard and unknown types), verbatim.
type ActionCallback func(ctx context.Context, action Action) error

// Dispatcher routes interactive actions from rendered cards back to the
// host. It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	navigator Navigator
	callback  ActionCallback
}

// NewDispatcher 构造动作分发器；callback 为空时非导航动作会被丢弃并记录。
func NewDispatcher(navigator Navigator, callback ActionCallback) *Dispatcher {
	return &Dispatcher{navigator: navigator, callback: callback}
}

// Dispatch routes one action by its type tag:
//   - OpenUrl hands the URL to the navigator.
//   - Popover is rejected; it is a renderer-local concern.
//   - Everything else goes to the host callback verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) error {
	switch action.Type {
	case ActionOpenURL:
		if d.navigator == nil {
			return errors.New("no navigator configured for Action.OpenUrl")
		}
		if err := d.navigator.Navigate(ctx, action.URL); err != nil {
			return fmt.Errorf("navigate to %q: %w", action.URL, err)
		}
		return nil
	case ActionPopover:
		return ErrPopoverNotDispatchable
	default:
		if d.callback == nil {
			return fmt.Errorf("no callback configured for action type %q", action.Type)
		}
		if err := d.callback(ctx, action); err != nil {
			return fmt.Errorf("dispatch action %q: %w", action.Type, err)
		}
		return nil
	}
}
