package terminal

import "unicode/utf8"

// splitUTF8 splits b before a trailing incomplete UTF-8 sequence, if any.
// Invalid bytes are left in chunk; only a sequence that could still be
// completed by the next read is held back.
func splitUTF8(b []byte) (chunk, tail []byte) {
	limit := len(b) - utf8.UTFMax
	if limit < 0 {
		limit = 0
	}
	for i := len(b) - 1; i >= limit; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return b, nil
		}
		return b[:i], b[i:]
	}
	return b, nil
}
