package zookeeper

import (
	"myregistry/domain"

	"github.com/go-zookeeper/zk"
)

// stateMachine turns raw session events into registry connection states.
// It is owned by the client's event pump and is not safe for concurrent use.
type stateMachine struct {
	hadSession bool
	current    domain.ConnectionState
}

// next returns the state to broadcast for ev, or false when ev does not change it.
func (m *stateMachine) next(ev zk.Event) (domain.ConnectionState, bool) {
	if ev.Type != zk.EventSession {
		return "", false
	}

	var to domain.ConnectionState
	switch ev.State {
	case zk.StateHasSession:
		if m.current.IsConnected() {
			return "", false
		}
		to = domain.ConnectionStateConnected
		if m.hadSession {
			to = domain.ConnectionStateReconnected
		}
		m.hadSession = true
	case zk.StateDisconnected:
		if !m.current.IsConnected() {
			return "", false
		}
		to = domain.ConnectionStateSuspended
	case zk.StateExpired:
		if m.current == domain.ConnectionStateLost || !m.hadSession {
			return "", false
		}
		to = domain.ConnectionStateLost
	default:
		return "", false
	}

	m.current = to
	return to, true
}
