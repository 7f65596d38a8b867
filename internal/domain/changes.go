package domain

import (
	"regexp"
	"strings"
)

// timestampLine matches a diff payload line that only touches a tracker
// record's modification timestamp.
var timestampLine = regexp.MustCompile(`^\s*"updated_at"\s*:`)

// IsTimestampNoise reports whether a unified diff changes nothing but tracker
// record timestamps. Such churn is written by the tracker on every status
// read-modify cycle and is discarded rather than committed.
func IsTimestampNoise(diff string) bool {
	saw := false
	for _, line := range strings.Split(diff, "\n") {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+', '-':
			if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
				continue
			}
			if !timestampLine.MatchString(line[1:]) {
				return false
			}
			saw = true
		}
	}
	return saw
}

// PartitionChanges splits status entries into tracker bookkeeping and
// everything else. dataDir is the tracker's data directory relative to the
// repo root.
func PartitionChanges(changes []FileChange, dataDir string) (tracker, other []FileChange) {
	prefix := strings.TrimSuffix(dataDir, "/") + "/"
	for _, c := range changes {
		if c.Path == dataDir || strings.HasPrefix(c.Path, prefix) {
			tracker = append(tracker, c)
		} else {
			other = append(other, c)
		}
	}
	return tracker, other
}
