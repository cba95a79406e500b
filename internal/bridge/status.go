package bridge

import "time"

// PeerStatus describes the connection held in a slot.
type PeerStatus struct {
	ConnID      string    `json:"conn_id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Status is a snapshot of both slots. A nil peer means the slot is empty.
type Status struct {
	Device *PeerStatus `json:"device"`
	Client *PeerStatus `json:"client"`
}

// DeviceConnected reports whether a device holds its slot.
func (s Status) DeviceConnected() bool { return s.Device != nil }

// ClientConnected reports whether a client holds its slot.
func (s Status) ClientConnected() bool { return s.Client != nil }

// Status returns the current slot snapshot. Safe for concurrent use.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		Device: peerStatus(b.device),
		Client: peerStatus(b.client),
	}
}

func peerStatus(s slot) *PeerStatus {
	if s.conn == nil {
		return nil
	}
	return &PeerStatus{
		ConnID:      s.conn.ID(),
		RemoteAddr:  s.conn.RemoteAddr(),
		ConnectedAt: s.since,
	}
}
