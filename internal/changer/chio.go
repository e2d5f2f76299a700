// Package changer wraps the `chio` SCSI medium-changer CLI, the same way
// original_source/chio.py shells out to it: aestar has no business talking
// SCSI directly, and chio's own text output is the only documented
// interface a changer vendor guarantees. This package parses that output
// and exposes the subset spec §6 names: status(), load(), unload().
package changer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// SlotStatus is one entry of `chio status -a`'s output: a drive or storage
// slot, its status flags, the voltag of any cartridge currently in it, and
// (for a drive) the source slot a cartridge was loaded from.
type SlotStatus struct {
	Name   string
	Status []string
	Voltag string
	Source string
}

// HasStatus reports whether flag appears in this slot's status list (e.g.
// "FULL", "ACCESS", "EMPTY"), matching the original's `'FULL' in info['status']`
// membership checks.
func (s SlotStatus) HasStatus(flag string) bool {
	for _, f := range s.Status {
		if f == flag {
			return true
		}
	}
	return false
}

var (
	namePattern   = regexp.MustCompile(`(?P<name>[a-zA-Z]+\s[0-9]+):(\s+<(?P<status>\S+)>)?`)
	voltagPattern = regexp.MustCompile(`.*?(\svoltag:\s<(?P<voltag>\S+):\S*?>)`)
	sourcePattern = regexp.MustCompile(`(source:\s<(?P<source>[^>]+?)>)`)
)

// namedGroups runs re against line and returns its named capture groups,
// or nil if the line did not match at all.
func namedGroups(re *regexp.Regexp, line string) map[string]string {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = m[i]
	}
	return out
}

// ParseStatusLine parses one line of `chio status -a` output into a
// SlotStatus, a direct port of chio.py's parse_chio_status_line. Returns
// an error if the line does not even match the mandatory name pattern.
func ParseStatusLine(line string) (SlotStatus, error) {
	nameGroups := namedGroups(namePattern, line)
	if nameGroups == nil {
		return SlotStatus{}, fmt.Errorf("changer: line %q is not a valid chio status line", line)
	}
	s := SlotStatus{Name: nameGroups["name"]}
	if status := nameGroups["status"]; status != "" {
		s.Status = strings.Split(status, ",")
	}
	if voltagGroups := namedGroups(voltagPattern, line); voltagGroups != nil {
		s.Voltag = voltagGroups["voltag"]
	}
	if sourceGroups := namedGroups(sourcePattern, line); sourceGroups != nil {
		s.Source = sourceGroups["source"]
	}
	return s, nil
}

// ParseStatus parses the full multi-line output of `chio status -a` into
// one SlotStatus per non-empty line, matching chio.py's parse_chio_status.
// Lines that fail to parse are skipped rather than aborting the whole scan,
// since trailing blank lines and banners are common in real chio output.
func ParseStatus(output string) map[string]SlotStatus {
	lines := strings.Split(output, "\n")
	result := make(map[string]SlotStatus, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		s, err := ParseStatusLine(line)
		if err != nil {
			continue
		}
		result[s.Name] = s
	}
	return result
}

// Changer is the capability BackupDriver's volume-change collaborator
// needs: status of every slot/drive, and load/unload of a cartridge by
// voltag into/out of a drive, per spec §6.
type Changer struct {
	device string
	runner commandRunner
}

// commandRunner abstracts process execution for testability; the default
// is exec.CommandContext, a fake is substituted in tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("changer: %s %s: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// New constructs a Changer that drives the `chio` binary against the given
// device path (empty uses chio's own default device).
func New(device string) *Changer {
	return &Changer{device: device, runner: execRunner}
}

func (c *Changer) deviceArgs() []string {
	if c.device == "" {
		return nil
	}
	return []string{"-f", c.device}
}

// Status runs `chio [-f device] status -a` and parses its output into a
// map keyed by slot/drive name, matching spec §6's
// `status() → {slot_id: {voltag, status_flags, source}}`.
func (c *Changer) Status(ctx context.Context) (map[string]SlotStatus, error) {
	args := append([]string{}, c.deviceArgs()...)
	args = append(args, "status", "-a")
	out, err := c.runner(ctx, "chio", args...)
	if err != nil {
		return nil, err
	}
	return ParseStatus(string(out)), nil
}

// Load loads the cartridge identified by slot into drive, matching spec
// §6's `load(voltag, drive)`. chio's `move` subcommand takes slot numbers,
// not voltags; resolving a voltag to a slot is the caller's job via
// Status, matching the original's own division of labor (tape.py never
// implements load/unload either — see DESIGN.md).
func (c *Changer) Load(ctx context.Context, slot, drive string) error {
	args := append([]string{}, c.deviceArgs()...)
	args = append(args, "move", slot, drive)
	_, err := c.runner(ctx, "chio", args...)
	return err
}

// Unload moves the cartridge in drive back to slot.
func (c *Changer) Unload(ctx context.Context, drive, slot string) error {
	args := append([]string{}, c.deviceArgs()...)
	args = append(args, "move", drive, slot)
	_, err := c.runner(ctx, "chio", args...)
	return err
}
