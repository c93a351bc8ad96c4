package loader

import (
	"encoding/binary"
	"math"

	"volumeio/internal/models"
)

// decodeSamples converts one slice of raw file bytes into sample values.
// len(raw) must be len(dst) * t.Size().
func decodeSamples(dst []float64, raw []byte, t models.DataType, order binary.ByteOrder) {
	switch t {
	case models.UnsignedByte:
		for i := range dst {
			dst[i] = float64(raw[i])
		}
	case models.UnsignedShort:
		for i := range dst {
			dst[i] = float64(order.Uint16(raw[2*i:]))
		}
	case models.SignedShort:
		for i := range dst {
			dst[i] = float64(int16(order.Uint16(raw[2*i:])))
		}
	case models.SignedInt:
		for i := range dst {
			dst[i] = float64(int32(order.Uint32(raw[4*i:])))
		}
	case models.Float:
		for i := range dst {
			dst[i] = float64(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	}
}
