// Package loader decodes free format and MGH volumes into a destination
// volume one slice at a time.
//
// A Session is created by OpenFree, OpenMGH or Open. Each call to NextUnit
// decodes exactly one slice and reports the fraction of the volume done, so
// callers can show progress and stop between slices. Close releases the
// session's buffer and file handle.
package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"volumeio/internal/models"
	"volumeio/pkg/geometry"
	"volumeio/pkg/header"
)

// Destination is the volume a session decodes into.
type Destination interface {
	DataType() models.DataType
	SetDataType(models.DataType)
	SetGeometry(sizes [4]int, nDims int, separations, starts [3]float64, dirCos [3][3]float64)
	IsAllocated() bool
	Allocate() error
	SetVoxel(x, y, z, t int, value float64)
	Voxel(x, y, z, t int) float64
	SetVoxelRange(min, max float64)
	SetRealRange(min, max float64)
}

// Options configures a decode session.
type Options struct {
	Geometry geometry.Options
	Logger   log.Logger
	Metrics  *Metrics
}

// DefaultOptions returns options with grid-centred MGH volumes, no logging
// and no metrics.
func DefaultOptions() Options {
	return Options{
		Geometry: geometry.DefaultOptions(),
		Logger:   log.NewNopLogger(),
	}
}

// Session holds the state of one incremental decode.
type Session struct {
	path   string
	format header.Format
	geom   *geometry.Geometry
	dst    Destination
	src    sliceSource

	sampleType models.DataType
	order      binary.ByteOrder
	fileSizes  [3]int
	total      int
	cursor     int

	raw     []byte
	samples []float64

	observedMin, observedMax float64
	quant                    *Quantizer

	trailer *header.Trailer
	closed  bool

	logger  log.Logger
	metrics *Metrics
}

func newSession(path string, h *header.Header, src sliceSource, dst Destination, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	geom, err := geometry.Resolve(h, opts.Geometry)
	if err != nil {
		src.close()
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	s := &Session{
		path:        path,
		format:      h.Format,
		geom:        geom,
		dst:         dst,
		src:         src,
		sampleType:  h.SampleType,
		order:       h.ByteOrder,
		fileSizes:   h.Sizes,
		total:       h.TotalSlices(),
		raw:         make([]byte, h.SliceBytes()),
		samples:     make([]float64, h.SliceSamples()),
		observedMin: math.Inf(1),
		observedMax: math.Inf(-1),
		logger:      log.With(opts.Logger, "path", path, "format", h.Format),
		metrics:     opts.Metrics,
	}

	if dst.DataType() == models.NoDataType {
		dst.SetDataType(h.SampleType)
	}
	dst.SetGeometry(geom.Sizes, geom.NDims, geom.Separations, geom.Starts, geom.DirCos)

	s.metrics.opened(s.format.String())
	level.Debug(s.logger).Log("msg", "opened volume",
		"sizes", fmt.Sprintf("%v", geom.Sizes), "sample_type", h.SampleType,
		"per_slice_files", h.Source.PerSlice(), "slices", s.total)

	if dst.DataType() != h.SampleType {
		if err := s.scanRange(); err != nil {
			src.close()
			return nil, err
		}
	}
	return s, nil
}

// scanRange decodes every slice once to find the range of finite samples,
// fixes the quantization parameters and rewinds the source.
func (s *Session) scanRange() error {
	for k := 0; k < s.total; k++ {
		if err := s.readSlice(k); err != nil {
			return fmt.Errorf("scanning voxel range of %s: %w", s.path, err)
		}
		for _, v := range s.samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < s.observedMin {
				s.observedMin = v
			}
			if v > s.observedMax {
				s.observedMax = v
			}
		}
	}
	if err := s.src.rewind(); err != nil {
		return fmt.Errorf("%w: rewinding %s: %w", ErrIO, s.path, err)
	}
	if s.observedMin > s.observedMax {
		s.observedMin, s.observedMax = 0, 0
	}
	q := NewQuantizer(s.observedMin, s.observedMax, s.dst.DataType())
	s.quant = &q
	level.Debug(s.logger).Log("msg", "scanned voxel range",
		"min", s.observedMin, "max", s.observedMax, "to", s.dst.DataType(), "scale", q.Scale)
	return nil
}

// readSlice reads slice k into the sample buffer.
func (s *Session) readSlice(k int) error {
	if err := s.src.readSlice(k, s.raw); err != nil {
		err = sliceError(k, err)
		s.metrics.failed(s.format.String(), failureKind(err))
		return err
	}
	s.metrics.read(s.format.String(), len(s.raw))
	decodeSamples(s.samples, s.raw, s.sampleType, s.order)
	return nil
}

// NextUnit decodes one slice into the destination. It reports whether more
// slices remain and the fraction of slices decoded so far. A failed slice
// leaves the cursor where it was; calling NextUnit again retries it.
func (s *Session) NextUnit() (more bool, fraction float64, err error) {
	if s.closed {
		return false, s.Fraction(), ErrClosed
	}
	if s.cursor >= s.total {
		return false, 1, ErrEndOfStream
	}
	if !s.dst.IsAllocated() {
		if err := s.dst.Allocate(); err != nil {
			return true, s.Fraction(), fmt.Errorf("allocating volume for %s: %w", s.path, err)
		}
	}

	if err := s.readSlice(s.cursor); err != nil {
		level.Warn(s.logger).Log("msg", "failed to decode slice", "slice", s.cursor, "err", err)
		return true, s.Fraction(), err
	}
	if s.quant != nil {
		for i, v := range s.samples {
			s.samples[i] = s.quant.Apply(v)
		}
	}
	s.scatter(s.cursor)
	s.cursor++
	s.metrics.decoded(s.format.String())

	if s.cursor < s.total {
		return true, s.Fraction(), nil
	}
	s.finish()
	return false, 1, nil
}

// scatter writes the sample buffer for slice k into the destination.
func (s *Session) scatter(k int) {
	perm := s.geom.Perm
	var idx [3]int
	frame := k / s.fileSizes[0]
	idx[perm[0]] = k % s.fileSizes[0]

	n := 0
	for i := 0; i < s.fileSizes[1]; i++ {
		idx[perm[1]] = i
		for j := 0; j < s.fileSizes[2]; j++ {
			idx[perm[2]] = j
			s.dst.SetVoxel(idx[0], idx[1], idx[2], frame, s.samples[n])
			n++
		}
	}
}

// finish records the final voxel range once every slice is in place.
func (s *Session) finish() {
	sizes := s.geom.Sizes
	min, max := math.Inf(1), math.Inf(-1)
	for t := 0; t < sizes[3]; t++ {
		for z := 0; z < sizes[2]; z++ {
			for y := 0; y < sizes[1]; y++ {
				for x := 0; x < sizes[0]; x++ {
					v := s.dst.Voxel(x, y, z, t)
					if v < min {
						min = v
					}
					if v > max {
						max = v
					}
				}
			}
		}
	}
	s.dst.SetVoxelRange(min, max)
	if s.quant != nil {
		s.dst.SetRealRange(s.observedMin, s.observedMax)
	}

	if vf, ok := s.src.(*volumeFile); ok && s.format == header.MGHFormat {
		if tr, err := header.ReadTrailer(vf.f); err == nil {
			s.trailer = &tr
		}
	}
	level.Debug(s.logger).Log("msg", "finished volume", "voxel_min", min, "voxel_max", max)
}

// Close releases the slice buffers and any open file. Closing an already
// closed session does nothing.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.raw = nil
	s.samples = nil
	if err := s.src.close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrIO, s.path, err)
	}
	return nil
}

// Geometry returns the resolved geometry of the volume.
func (s *Session) Geometry() *geometry.Geometry { return s.geom }

// Format returns the on-disk format being decoded.
func (s *Session) Format() header.Format { return s.format }

// Cursor returns the number of slices decoded so far.
func (s *Session) Cursor() int { return s.cursor }

// TotalSlices returns the number of slices in the volume.
func (s *Session) TotalSlices() int { return s.total }

// Done reports whether every slice has been decoded.
func (s *Session) Done() bool { return s.cursor >= s.total }

// Fraction returns the fraction of slices decoded.
func (s *Session) Fraction() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.cursor) / float64(s.total)
}

// Quantizer returns the rescaling applied to samples, if any.
func (s *Session) Quantizer() (Quantizer, bool) {
	if s.quant == nil {
		return Quantizer{}, false
	}
	return *s.quant, true
}

// ObservedRange returns the sample range found by the range scan. It is
// only valid when samples are rescaled.
func (s *Session) ObservedRange() (min, max float64) {
	return s.observedMin, s.observedMax
}

// Trailer returns the MGH acquisition parameters if they were present
// after the voxel data.
func (s *Session) Trailer() (header.Trailer, bool) {
	if s.trailer == nil {
		return header.Trailer{}, false
	}
	return *s.trailer, true
}
