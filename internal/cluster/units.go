package cluster

// Unit conversions for CLI-level inputs. The core deals exclusively in
// raw bytes and bits per second; GB/MB/Mbps exist only at the flag
// parsing boundary.

const (
	bytesPerGB = int64(1) << 30
	bytesPerMB = int64(1) << 20
	bpsPerMbps = int64(1_000_000)
)

// GBToBytes converts a gigabyte count (binary, 1 GB = 2^30 bytes) to bytes.
func GBToBytes(gb int) int64 {
	return int64(gb) * bytesPerGB
}

// MBToBytes converts a megabyte count (binary, 1 MB = 2^20 bytes) to bytes.
func MBToBytes(mb int) int64 {
	return int64(mb) * bytesPerMB
}

// MbpsToBPS converts megabits per second (decimal) to bits per second.
func MbpsToBPS(mbps int) int64 {
	return int64(mbps) * bpsPerMbps
}
