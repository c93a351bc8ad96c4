package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"volumeio/internal/models"
)

// Viewer extracts orthogonal slices and sub-regions from a decoded volume.
type Viewer struct {
	// volume holds the decoded voxels
	volume *models.Volume

	// frame selects the time point of a 4-D volume
	frame int

	// window maps voxel values onto the grey scale
	low, high float64
}

// NewViewer creates a viewer over frame 0 of vol. Grey levels are scaled
// from the volume's voxel range.
func NewViewer(vol *models.Volume) *Viewer {
	low, high := vol.VoxelRange()
	return &Viewer{volume: vol, low: low, high: high}
}

// SetFrame selects the time point used by later extractions.
func (v *Viewer) SetFrame(frame int) error {
	if frame < 0 || frame >= v.volume.Sizes[3] {
		return fmt.Errorf("frame %d outside 0..%d", frame, v.volume.Sizes[3]-1)
	}
	v.frame = frame
	return nil
}

// SetWindow overrides the voxel values mapped to black and white.
func (v *Viewer) SetWindow(low, high float64) {
	v.low, v.high = low, high
}

func (v *Viewer) grey(value float64) color.Gray16 {
	if v.high <= v.low {
		return color.Gray16{}
	}
	scaled := (value - v.low) / (v.high - v.low) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(scaled))))}
}

// ExtractSlice extracts the plane perpendicular to axis at position.
// Slices along x are laid out z by y, along y x by z, along z x by y.
func (v *Viewer) ExtractSlice(axis models.Axis, position int) (*image.Gray16, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if !v.volume.IsAllocated() {
		return nil, fmt.Errorf("volume has no voxel data")
	}
	width, height, depth := v.volume.Sizes[0], v.volume.Sizes[1], v.volume.Sizes[2]

	var img *image.Gray16
	switch axis {
	case models.X:
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}
		img = image.NewGray16(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetGray16(z, y, v.grey(v.volume.Voxel(position, y, z, v.frame)))
			}
		}

	case models.Y:
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}
		img = image.NewGray16(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, z, v.grey(v.volume.Voxel(x, position, z, v.frame)))
			}
		}

	case models.Z:
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}
		img = image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, v.grey(v.volume.Voxel(x, y, position, v.frame)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	return img, nil
}

// ExtractRegion copies a box of voxels out of the current frame, x fastest.
func (v *Viewer) ExtractRegion(start, size [3]int) ([]float64, error) {
	for c := 0; c < 3; c++ {
		if start[c] < 0 {
			return nil, fmt.Errorf("start coordinates must be non-negative")
		}
		if size[c] <= 0 {
			return nil, fmt.Errorf("size dimensions must be positive")
		}
		if start[c]+size[c] > v.volume.Sizes[c] {
			return nil, fmt.Errorf("region extends beyond volume boundaries")
		}
	}

	region := make([]float64, 0, size[0]*size[1]*size[2])
	for z := 0; z < size[2]; z++ {
		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[0]; x++ {
				region = append(region, v.volume.Voxel(start[0]+x, start[1]+y, start[2]+z, v.frame))
			}
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence writes every slice along axis to outputDir as
// slice_<axis>_NNN.jpg. prefix, when set, is prepended to each name.
func (v *Viewer) SaveSliceSequence(axis models.Axis, outputDir, prefix string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}
	if axis < models.X || axis > models.Z {
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	count := v.volume.Sizes[axis]
	for pos := 0; pos < count; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("%sslice_%s_%03d.jpg", prefix, axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}
	return count, nil
}
