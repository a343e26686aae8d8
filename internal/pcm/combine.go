package pcm

// Combine returns a new buffer holding existing followed by incoming.
// Neither input is modified, so the previous result can be passed back in
// as existing for the next block.
func Combine(existing, incoming []byte) []byte {
	out := make([]byte, len(existing)+len(incoming))
	copy(out, existing)
	copy(out[len(existing):], incoming)
	return out
}
