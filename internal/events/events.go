// Package events provides a lightweight publish/subscribe bus for
// volume and archive-member lifecycle notifications during a backup run.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Stefan-Code/aestar/internal/constants"
)

// EventType identifies the kind of backup lifecycle event.
type EventType string

const (
	EventVolumeOpened    EventType = "volume_opened"
	EventVolumeClosed    EventType = "volume_closed"
	EventVolumeExhausted EventType = "volume_exhausted"
	EventMemberAdded     EventType = "member_added"
	EventMemberPending   EventType = "member_pending"
	EventBackupError     EventType = "backup_error"
	EventBackupComplete  EventType = "backup_complete"
)

// Event is the base interface for all backup events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides the common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// VolumeEvent reports a volume lifecycle transition.
type VolumeEvent struct {
	BaseEvent
	VolumeTag string
	BytesUsed int64
	TapeFiles int
}

// MemberEvent reports an archive member crossing the pending/durable boundary.
type MemberEvent struct {
	BaseEvent
	Path      string
	VolumeTag string
	Pending   bool
}

// ErrorEvent reports a fatal or recovered backup error.
type ErrorEvent struct {
	BaseEvent
	Stage     string
	Err       error
	Recovered bool
}

// CompleteEvent reports the end of a backup run.
type CompleteEvent struct {
	BaseEvent
	FilesBackedUp int
	VolumesUsed   int
	Duration      time.Duration
}

// Bus manages subscriptions and publishes backup lifecycle events
// to any number of listeners (CLI progress reporter, catalogue writer).
type Bus struct {
	mu            sync.RWMutex
	subscribers   map[EventType][]chan Event
	all           []chan Event
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewBus creates a new event bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving only events of the given type.
func (b *Bus) Subscribe(t EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, b.bufferSize)
	b.subscribers[t] = append(b.subscribers[t], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event published on the bus.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish delivers event to every matching subscriber without blocking.
// A subscriber with a full buffer loses the event rather than stalling
// the backup driver.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped due to full buffers.
func (b *Bus) DroppedEventCount() int64 {
	return b.droppedEvents.Load()
}

// NewVolumeEvent builds a VolumeEvent of the given type, stamped with the
// current time.
func NewVolumeEvent(t EventType, volumeTag string, bytesUsed int64, tapeFiles int) VolumeEvent {
	return VolumeEvent{
		BaseEvent: BaseEvent{EventType: t, Time: time.Now()},
		VolumeTag: volumeTag,
		BytesUsed: bytesUsed,
		TapeFiles: tapeFiles,
	}
}

// NewMemberEvent builds a MemberEvent, stamped with the current time.
func NewMemberEvent(t EventType, path, volumeTag string, pending bool) MemberEvent {
	return MemberEvent{
		BaseEvent: BaseEvent{EventType: t, Time: time.Now()},
		Path:      path,
		VolumeTag: volumeTag,
		Pending:   pending,
	}
}

// NewErrorEvent builds an ErrorEvent, stamped with the current time.
func NewErrorEvent(stage string, err error, recovered bool) ErrorEvent {
	return ErrorEvent{
		BaseEvent: BaseEvent{EventType: EventBackupError, Time: time.Now()},
		Stage:     stage,
		Err:       err,
		Recovered: recovered,
	}
}

// NewCompleteEvent builds a CompleteEvent, stamped with the current time.
func NewCompleteEvent(filesBackedUp, volumesUsed int, duration time.Duration) CompleteEvent {
	return CompleteEvent{
		BaseEvent:     BaseEvent{EventType: EventBackupComplete, Time: time.Now()},
		FilesBackedUp: filesBackedUp,
		VolumesUsed:   volumesUsed,
		Duration:      duration,
	}
}
