package chunk

import "time"

// ResolveIndex returns the index of the chunk containing target.
//
// Chunks must be ascending and hour aligned. Walking backwards, the first
// chunk whose start is not after target wins; a target at 07:52:54 therefore
// resolves to the 07:00 chunk and never to 08:00. When target precedes the
// whole window the first chunk is returned.
func ResolveIndex(chunks []Descriptor, target time.Time) int {
	for i := len(chunks) - 1; i >= 0; i-- {
		if !chunks[i].StartTime.After(target) {
			return i
		}
	}
	return 0
}
