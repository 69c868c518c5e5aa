package scenecs

// bitmask256 is a presence set over the first 256 type ordinals. A table
// keeps one so that lookups of absent low-ordinal types skip the slot search.
type bitmask256 [4]uint64

// maskBits is the number of ordinals a bitmask256 can track.
const maskBits = 256

// set enables the bit for ordinal when it fits in the mask.
func (m *bitmask256) set(ordinal uint32) {
	if ordinal >= maskBits {
		return
	}
	m[ordinal>>6] |= uint64(1) << (ordinal & 63)
}

// unset clears the bit for ordinal when it fits in the mask.
func (m *bitmask256) unset(ordinal uint32) {
	if ordinal >= maskBits {
		return
	}
	m[ordinal>>6] &= ^(uint64(1) << (ordinal & 63))
}

// mayContain reports false only when ordinal is tracked by the mask and its
// bit is clear. Ordinals past the mask always answer true.
func (m bitmask256) mayContain(ordinal uint32) bool {
	if ordinal >= maskBits {
		return true
	}
	return m[ordinal>>6]&(uint64(1)<<(ordinal&63)) != 0
}

// reset clears every bit.
func (m *bitmask256) reset() {
	*m = bitmask256{}
}
