// Package backupdriver orchestrates one logical backup across however
// many physical volumes it takes, draining a restartable queue into a
// fresh ArchiveWriter per volume and replaying the unconfirmed tail after
// every end-of-medium.
package backupdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Stefan-Code/aestar/internal/archive"
	"github.com/Stefan-Code/aestar/internal/events"
	"github.com/Stefan-Code/aestar/internal/logging"
	"github.com/Stefan-Code/aestar/internal/mediumio"
	"github.com/Stefan-Code/aestar/internal/queue"
)

// ErrFatalDoubleEOT is raised when end-of-medium occurs while the queue is
// already replaying its unconfirmed tail: the per-volume budget was too
// small to absorb even the replay window, and no further local recovery
// is possible.
var ErrFatalDoubleEOT = errors.New("backupdriver: end-of-medium during replay of unconfirmed tail")

// Item is anything the queue can carry into the archive: a path to add
// and the name it should be recorded under inside the archive.
type Item interface {
	Path() string
	Arcname() string
}

// OpenVolumeFunc opens the next physical volume (requesting it from the
// medium-changer collaborator as needed) and returns a fresh ArchiveWriter
// built atop a fresh EncryptedSink atop a fresh MediumFile. volumeSeq is
// 0 for the first volume of the backup, 1 for the second, and so on.
type OpenVolumeFunc func(ctx context.Context, volumeSeq int) (aw *archive.ArchiveWriter, volumeTag string, err error)

// PreAddHook runs before an item is handed to the archive writer — the
// catalogue's "INSERT OR IGNORE" of a file record, per spec §6.
type PreAddHook func(Item) error

// CommitHook runs once an item's bytes are confirmed durable on the
// current volume — the catalogue's backed_up_files insert.
type CommitHook func(item Item, volumeTag string) error

// State names the driver's position in its run loop, per spec §9's
// explicit three-state translation of the original generator-consumer
// loop.
type State int

const (
	StateStreaming State = iota
	StateAwaitingVolume
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateAwaitingVolume:
		return "awaiting_volume"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Driver runs one backup's full volume-spanning write loop.
type Driver struct {
	Queue      *queue.RestartableQueue[Item]
	OpenVolume OpenVolumeFunc
	PreAdd     PreAddHook
	Commit     CommitHook
	Bus        *events.Bus // optional; nil is fine
	Log        *logging.Logger

	state State
}

// New constructs a Driver. Bus and Log may be left nil.
func New(q *queue.RestartableQueue[Item], open OpenVolumeFunc, preAdd PreAddHook, commit CommitHook, bus *events.Bus, log *logging.Logger) *Driver {
	return &Driver{Queue: q, OpenVolume: open, PreAdd: preAdd, Commit: commit, Bus: bus, Log: log}
}

// State reports the driver's current position in its run loop.
func (d *Driver) State() State { return d.state }

func (d *Driver) publish(ev events.Event) {
	if d.Bus != nil {
		d.Bus.Publish(ev)
	}
}

// Run drains the queue across as many volumes as needed. It returns nil
// only after every item has been durably committed and the final volume
// closed cleanly.
func (d *Driver) Run(ctx context.Context) error {
	d.state = StateStreaming
	volumeSeq := 0

	for {
		aw, volumeTag, err := d.OpenVolume(ctx, volumeSeq)
		if err != nil {
			d.state = StateDone
			d.publish(events.NewErrorEvent("open_volume", err, false))
			return fmt.Errorf("backupdriver: open volume %d: %w", volumeSeq, err)
		}
		d.publish(events.NewVolumeEvent(events.EventVolumeOpened, volumeTag, 0, 0))
		if d.Log != nil {
			d.Log.Infof("opened volume %q (sequence %d)", volumeTag, volumeSeq)
		}

		previousCommitted := 0
		eot, runErr := d.drainOneVolume(ctx, aw, volumeTag, &previousCommitted)
		if runErr != nil {
			d.state = StateDone
			d.publish(events.NewErrorEvent("drain_volume", runErr, false))
			return runErr
		}
		if !eot {
			if err := aw.Close(); err != nil {
				d.state = StateDone
				d.publish(events.NewErrorEvent("close_archive", err, false))
				return fmt.Errorf("backupdriver: close final volume: %w", err)
			}
			// Close() flushes the tar trailer and the staging buffer,
			// which promotes the tail of still-pending records (spec
			// §4.4's final purge_pending) — confirm them the same way
			// every mid-loop Add does, or a backup smaller than one
			// staging buffer never commits a single row.
			if cerr := d.confirmUpTo(aw, volumeTag, &previousCommitted); cerr != nil {
				d.state = StateDone
				d.publish(events.NewErrorEvent("commit_final", cerr, false))
				return cerr
			}
			d.publish(events.NewVolumeEvent(events.EventVolumeClosed, volumeTag, 0, 0))
			d.state = StateDone
			return nil
		}

		d.publish(events.NewVolumeEvent(events.EventVolumeExhausted, volumeTag, 0, 0))
		d.state = StateAwaitingVolume
		volumeSeq++
	}
}

// confirmUpTo runs the commit hook over every archive member that has
// newly become durable since *previousCommitted advanced, bringing it up
// to aw.NumCommitted(). Shared by drainOneVolume (after every Add) and by
// Run (once more after Close), since both are the same "finally:
// newly_committed = ... confirm(newly_committed)" step from spec §4.7.
func (d *Driver) confirmUpTo(aw *archive.ArchiveWriter, volumeTag string, previousCommitted *int) error {
	newly := aw.NumCommitted() - *previousCommitted
	*previousCommitted = aw.NumCommitted()
	if newly <= 0 {
		return nil
	}
	for _, it := range d.Queue.Confirm(newly) {
		if cerr := d.Commit(it, volumeTag); cerr != nil {
			d.Queue.SetRestoring(true)
			return fmt.Errorf("backupdriver: commit hook for %q: %w", it.Path(), cerr)
		}
		d.publish(events.NewMemberEvent(events.EventMemberAdded, it.Path(), volumeTag, false))
	}
	return nil
}

// drainOneVolume streams queued items into aw until either the queue is
// exhausted (eot=false, nil) or end-of-medium is hit (eot=true, nil). Any
// other error is fatal and returned directly. previousCommitted tracks
// confirmUpTo's watermark and is shared with Run's post-Close confirm.
func (d *Driver) drainOneVolume(ctx context.Context, aw *archive.ArchiveWriter, volumeTag string, previousCommitted *int) (eot bool, err error) {
	for {
		// Restoring() clears as soon as the last replayed item is handed
		// out, so whether this item is part of the replay is read before Get.
		replayed := d.Queue.Restoring()
		item, ok, getErr := d.Queue.Get(ctx)
		if getErr != nil {
			d.Queue.SetRestoring(true)
			_ = aw.Cancel()
			return false, fmt.Errorf("backupdriver: queue get: %w", getErr)
		}
		if !ok {
			return false, nil
		}

		if d.PreAdd != nil {
			if err := d.PreAdd(item); err != nil {
				d.Queue.SetRestoring(true)
				_ = aw.Cancel()
				return false, fmt.Errorf("backupdriver: pre-add hook for %q: %w", item.Path(), err)
			}
		}

		addErr := aw.Add(item.Path(), item.Arcname())
		if addErr != nil {
			if errors.Is(addErr, mediumio.ErrEndOfMedium) {
				if replayed {
					return false, fmt.Errorf("%w (volume %q)", ErrFatalDoubleEOT, volumeTag)
				}
				d.Queue.SetRestoring(true)
				if cerr := d.confirmUpTo(aw, volumeTag, previousCommitted); cerr != nil {
					return false, cerr
				}
				d.publish(events.NewMemberEvent(events.EventMemberPending, item.Path(), volumeTag, true))
				return true, nil
			}
			d.Queue.SetRestoring(true)
			_ = aw.Cancel()
			return false, fmt.Errorf("backupdriver: add %q: %w", item.Path(), addErr)
		}

		if cerr := d.confirmUpTo(aw, volumeTag, previousCommitted); cerr != nil {
			return false, cerr
		}
	}
}
