// Package sensor implements the frame source: a UDP client speaking the
// acquisition board's request/response protocol. A handshake establishes the
// session geometry, then each Receive call requests and reassembles one raw
// echo frame together with its distance reading.
package sensor

import (
	"encoding/binary"
	"math"
	"time"
)

// Wire protocol constants. Each datagram starts with a header of
// headerFloats little-endian float32 values followed by little-endian int16
// samples.
const (
	infoRequest = "-i 1" // handshake: ask for session geometry
	dataRequest = "-a 1" // steady state: ask for the next data block

	headerFloats = 17
	minHeaderLen = headerFloats * 4

	// Header field offsets in bytes.
	offsetHeaderLen   = 0  // declared header length
	offsetSyncTime    = 20 // board time at handshake, milliseconds
	offsetDistance    = 40 // dmax distance estimate for the frame
	offsetTotalBlocks = 56 // data blocks per frame
	offsetBlockNumber = 60 // block sequence number within the frame
	offsetAcqTime     = 64 // board acquisition timestamp for the block
)

// RawFrame is one reassembled echo frame plus the distance reading carried
// in its header. Immutable once constructed; discarded after conditioning.
type RawFrame struct {
	Samples    []int16
	Sequence   uint64    // local receive sequence, monotonically increasing
	DistanceCm float64   // distance reading paired with this frame
	DeviceTime int64     // board acquisition timestamp, milliseconds
	ReceivedAt time.Time // local receive time
	Complete   bool      // always true for frames returned by Receive
}

// sessionInfo is the geometry learned during the handshake.
type sessionInfo struct {
	headerLen   int
	totalBlocks int
	syncTime    int64
}

func headerFloat(packet []byte, offset int) float64 {
	bits := binary.LittleEndian.Uint32(packet[offset : offset+4])
	return float64(math.Float32frombits(bits))
}

// correctDistance normalizes the board's dmax field to centimeters: values
// under 10 are metres, anything else is already centimeters.
func correctDistance(dmax float64) float64 {
	if dmax < 10 {
		return dmax * 100
	}
	return dmax
}

// decodeSamples appends the little-endian int16 payload of one datagram.
func decodeSamples(dst []int16, payload []byte) []int16 {
	for i := 0; i+1 < len(payload); i += 2 {
		dst = append(dst, int16(binary.LittleEndian.Uint16(payload[i:i+2])))
	}
	return dst
}
