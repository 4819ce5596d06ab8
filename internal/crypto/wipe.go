package crypto

// Wipe overwrites b with zeros. In a garbage-collected runtime this is a
// best-effort measure: copies the runtime made while the slice was live cannot
// be reached. Callers still wipe immediately after last use so the window in
// which key material sits in reachable memory stays as small as possible.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
