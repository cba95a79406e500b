package bridge

import (
	"github.com/nerrad567/valve-bridge/internal/protocol"
	"github.com/nerrad567/valve-bridge/internal/transport"
)

// Observer receives bridge activity for metrics and telemetry.
//
// Methods are called from the bridge loop and must not block. A panicking
// observer is recovered and logged.
type Observer interface {
	ConnectionOpened(role transport.Role, remoteAddr string)
	ConnectionClosed(role transport.Role, remoteAddr string)
	ConnectionReplaced(role transport.Role)
	MessageReceived(role transport.Role, kind protocol.Kind)
	ValveAssigned(id int)
	NotificationSent(text string)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the methods you need.
type NopObserver struct{}

func (NopObserver) ConnectionOpened(transport.Role, string)       {}
func (NopObserver) ConnectionClosed(transport.Role, string)       {}
func (NopObserver) ConnectionReplaced(transport.Role)             {}
func (NopObserver) MessageReceived(transport.Role, protocol.Kind) {}
func (NopObserver) ValveAssigned(int)                             {}
func (NopObserver) NotificationSent(string)                       {}
