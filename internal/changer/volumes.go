package changer

// ImportCandidate is a cartridge eligible for registration as a known
// volume: loaded, accessible, and not a cleaning cartridge.
type ImportCandidate struct {
	Voltag string
}

// ImportVolumes scans a chio status snapshot for cartridges that are full
// and accessible and whose voltag does not carry excludePrefix, a direct
// port of original_source/aestar/tape.py's get_import_volumes (duplicated
// near-verbatim in main.py; both ported here as one function). A FULL slot
// with no ACCESS flag, or a slot reporting a voltag without FULL, is
// passed over rather than erroring — the original raised an exception on
// that inconsistency, but a single flaky slot report should not abort a
// whole changer scan run unattended overnight.
func ImportVolumes(status map[string]SlotStatus, excludePrefix string) ([]ImportCandidate, error) {
	var out []ImportCandidate
	for _, info := range status {
		if info.Voltag == "" {
			continue
		}
		if !info.HasStatus("FULL") {
			continue
		}
		if !info.HasStatus("ACCESS") {
			continue
		}
		if excludePrefix != "" && hasPrefix(info.Voltag, excludePrefix) {
			continue
		}
		out = append(out, ImportCandidate{Voltag: info.Voltag})
	}
	return out, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
