package runtime

import (
	"errors"
	"fmt"

	"github.com/drblury/rxflow/internal/runtime/jsoncodec"
)

// NotificationKind names one of the three stream events.
type NotificationKind string

const (
	NotificationNext     NotificationKind = "next"
	NotificationError    NotificationKind = "error"
	NotificationComplete NotificationKind = "complete"
)

// Notification is a stream event captured as a value, as produced by
// operators.Materialize and carried over the message bridge.
type Notification struct {
	Kind  NotificationKind
	Value any
	Err   error
}

func NextNotification(v any) Notification { return Notification{Kind: NotificationNext, Value: v} }

func ErrorNotification(err error) Notification {
	return Notification{Kind: NotificationError, Err: err}
}

func CompleteNotification() Notification { return Notification{Kind: NotificationComplete} }

// Accept replays the notification into sink.
func (n Notification) Accept(sink Sink) {
	switch n.Kind {
	case NotificationNext:
		sink.Next(n.Value)
	case NotificationError:
		sink.Error(n.Err)
	case NotificationComplete:
		sink.Complete()
	}
}

func (n Notification) String() string {
	switch n.Kind {
	case NotificationNext:
		return fmt.Sprintf("next(%v)", n.Value)
	case NotificationError:
		return fmt.Sprintf("error(%v)", n.Err)
	default:
		return string(n.Kind)
	}
}

type notificationWire struct {
	Kind  NotificationKind `json:"kind"`
	Value any              `json:"value,omitempty"`
	Error string           `json:"error,omitempty"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	w := notificationWire{Kind: n.Kind, Value: n.Value}
	if n.Err != nil {
		w.Error = n.Err.Error()
	}
	return jsoncodec.Marshal(w)
}

// UnmarshalJSON restores a notification. Errors come back as plain error
// values carrying the original message.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var w notificationWire
	if err := jsoncodec.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case NotificationNext, NotificationComplete:
		*n = Notification{Kind: w.Kind, Value: w.Value}
	case NotificationError:
		*n = Notification{Kind: w.Kind, Err: errors.New(w.Error)}
	default:
		return fmt.Errorf("rxflow: unknown notification kind %q", w.Kind)
	}
	return nil
}
