// Package codec encodes and decodes Ethernet, ARP and IPv4 headers.
package codec

// Checksum computes the RFC 1071 Internet checksum of b. The result is meant
// to be written big-endian.
func Checksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
		sum = (sum & 0xffff) + (sum >> 16)
	}
	if n&1 == 1 {
		// odd trailing byte is the high half of a zero-padded word
		sum += uint32(b[n-1]) << 8
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// ChecksumFolds reports whether b, carrying its own checksum, sums to zero.
func ChecksumFolds(b []byte) bool {
	return Checksum(b) == 0
}
