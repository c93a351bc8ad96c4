package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// MGH type codes as stored on disk.
const (
	mghUChar = 0
	mghInt   = 1
	mghFloat = 3
	mghShort = 4
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// mghBytes encodes an axis-aligned MGH file (x_ras, y_ras, z_ras along
// x, y, z) followed by the given big-endian payload values.
func mghBytes(t *testing.T, sizes [4]int32, typ int32, payload any) []byte {
	t.Helper()
	var buf bytes.Buffer
	be := binary.BigEndian
	require.NoError(t, binary.Write(&buf, be, int32(1)))
	require.NoError(t, binary.Write(&buf, be, sizes))
	require.NoError(t, binary.Write(&buf, be, typ))
	require.NoError(t, binary.Write(&buf, be, int32(0)))
	require.NoError(t, binary.Write(&buf, be, int16(1)))
	require.NoError(t, binary.Write(&buf, be, [3]float32{1, 1, 1}))
	require.NoError(t, binary.Write(&buf, be, [4][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0}}))
	buf.Write(make([]byte, 194))
	require.Equal(t, 284, buf.Len())
	if payload != nil {
		require.NoError(t, binary.Write(&buf, be, payload))
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}
