package token

// FindNext scans list[startIdx:endIdx] for the first token of the given
// kind and returns its index, or endIdx (clamped to len(list)) if none is
// found.
func FindNext(list []Token, startIdx, endIdx int, kind Kind) int {
	if endIdx > len(list) {
		endIdx = len(list)
	}
	for i := startIdx; i < endIdx; i++ {
		if list[i].Kind == kind {
			return i
		}
	}
	return endIdx
}

// SkipSpace returns the first index at or after i that is not whitespace
// or a comment, bounded by end (exclusive).
func SkipSpace(list []Token, i, end int) int {
	for i < end && (list[i].Kind == WHITESPACE || list[i].Kind == COMMENT) {
		i++
	}
	return i
}

// SkipSpaceBack returns the last index at or before i that is not
// whitespace or a comment, bounded by start (inclusive); returns start-1
// if every token in [start,i] is insignificant.
func SkipSpaceBack(list []Token, i, start int) int {
	for i >= start && (list[i].Kind == WHITESPACE || list[i].Kind == COMMENT) {
		i--
	}
	return i
}
