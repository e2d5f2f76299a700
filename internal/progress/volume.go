package progress

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// VolumeUI renders one live bar tracking bytes written to the current
// volume against its capacity (when known), replaced wholesale on every
// volume change. It is a distinct concern from CLIProgress: CLIProgress
// tracks the whole backup's byte total, VolumeUI tracks how close the
// current physical volume is to end-of-medium.
type VolumeUI struct {
	progress   *mpb.Progress
	isTerminal bool
	bar        *mpb.Bar
	members    atomic.Int64
}

// NewVolumeUI creates a VolumeUI. Progress rendering is skipped entirely
// when stderr is not a terminal, matching unattended cron/systemd runs.
func NewVolumeUI() *VolumeUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &VolumeUI{progress: p, isTerminal: isTerminal}
}

// OpenVolume starts a fresh bar for a newly opened volume. capacity <= 0
// renders an indeterminate bar (capacity is usually unknown for a raw
// tape device until end-of-medium is actually hit).
func (u *VolumeUI) OpenVolume(volumeTag string, capacity int64) {
	u.members.Store(0)
	if !u.isTerminal {
		fmt.Fprintf(os.Stderr, "volume %s: streaming\n", volumeTag)
		return
	}
	total := capacity
	if total <= 0 {
		total = 100 // indeterminate: percentage is meaningless, bar still animates
	}
	u.bar = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(s decor.Statistics) string {
				return fmt.Sprintf("volume %s  %d members", volumeTag, u.members.Load())
			}, decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
		),
	)
}

// UpdateBytes sets the bar to bytesWritten so far on the current volume.
func (u *VolumeUI) UpdateBytes(bytesWritten int64) {
	if u.bar != nil {
		u.bar.SetCurrent(bytesWritten)
	}
}

// MemberAdded increments the member counter shown in the bar's label.
func (u *VolumeUI) MemberAdded() {
	u.members.Add(1)
}

// CloseVolume aborts and removes the current volume's bar so the next
// OpenVolume starts clean. It does this whether or not the volume ended at
// eot; the bar is not shown as completed in either case.
func (u *VolumeUI) CloseVolume(eot bool) {
	if u.bar == nil {
		return
	}
	if eot {
		u.bar.Abort(true)
	} else {
		u.bar.SetCurrent(u.bar.Current())
		u.bar.Abort(true)
	}
	u.bar = nil
}

// Wait blocks until the underlying mpb container drains its render loop.
func (u *VolumeUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows so
// mpb's escape sequences render instead of printing literally; a no-op on
// every other platform.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
