package telemetry

import (
	"encoding/binary"
	"math"
)

// decode converts a big-endian register response into a float64.
func decode(bytes []byte, t DataType) float64 {
	var n float64
	switch t {
	case u16:
		n = float64(binary.BigEndian.Uint16(bytes))
	case i16:
		n = float64(int16(binary.BigEndian.Uint16(bytes)))
	case u32:
		n = float64(binary.BigEndian.Uint32(bytes))
	case i32:
		n = float64(int32(binary.BigEndian.Uint32(bytes)))
	case f32:
		bits := binary.BigEndian.Uint32(bytes)
		n = float64(math.Float32frombits(bits))
	case f64:
		bits := binary.BigEndian.Uint64(bytes)
		n = math.Float64frombits(bits)
	}
	return n
}

// sizeOf returns the number of u16 registers for the datatype.
func sizeOf(t DataType) uint16 {
	switch t {
	case u16, i16:
		return 1
	case u32, i32, f32:
		return 2
	case f64:
		return 4
	}
	return 1
}
