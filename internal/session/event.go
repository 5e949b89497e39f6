package session

import (
	"github.com/klwxsrx/storefront-console/pkg/event"
)

const (
	EventTypeSessionStarted   = "session_started"
	EventTypeSessionRefreshed = "session_refreshed"
	EventTypeSessionEnded     = "session_ended"
)

const (
	EndReasonLogout        EndReason = "logout"
	EndReasonRefreshFailed EndReason = "refresh_failed"
	EndReasonInvalidToken  EndReason = "invalid_token"
)

type (
	EndReason string

	EventSessionStarted struct {
		event.Base
		SubjectID *int64
		Roles     []string
	}

	EventSessionRefreshed struct {
		event.Base
		SubjectID *int64
		Rotated   bool
	}

	EventSessionEnded struct {
		event.Base
		SubjectID *int64
		Reason    EndReason
	}
)

func (e EventSessionStarted) Type() string {
	return EventTypeSessionStarted
}

func (e EventSessionRefreshed) Type() string {
	return EventTypeSessionRefreshed
}

func (e EventSessionEnded) Type() string {
	return EventTypeSessionEnded
}
