package chat

import "strings"

// markerFilter removes a marker from a stream of fragments, including a
// marker split across fragment boundaries. Text that could still turn out to
// be the start of a marker is held back until the next Push or Flush.
type markerFilter struct {
	marker  string
	pending string
	seen    bool
}

func newMarkerFilter(marker string) *markerFilter {
	return &markerFilter{marker: marker}
}

// Push returns the visible part of buf so far.
func (f *markerFilter) Push(s string) string {
	buf := f.pending + s
	for strings.Contains(buf, f.marker) {
		buf = strings.ReplaceAll(buf, f.marker, "")
		f.seen = true
	}

	keep := 0
	for n := min(len(f.marker)-1, len(buf)); n > 0; n-- {
		if strings.HasSuffix(buf, f.marker[:n]) {
			keep = n
			break
		}
	}
	f.pending = buf[len(buf)-keep:]
	return buf[:len(buf)-keep]
}

// Flush releases held-back text once the stream has ended.
func (f *markerFilter) Flush() string {
	p := f.pending
	f.pending = ""
	return p
}

// Seen reports whether the marker appeared in the stream.
func (f *markerFilter) Seen() bool { return f.seen }
