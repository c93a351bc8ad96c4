package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"volumeio/internal/models"
	"volumeio/pkg/config"
	"volumeio/pkg/geometry"
	"volumeio/pkg/header"
	"volumeio/pkg/loader"
	"volumeio/pkg/stats"
	"volumeio/pkg/visualization"
)

// result is what one decoded file reports back to main.
type result struct {
	Path     string
	Format   header.Format
	Volume   *models.Volume
	Geometry *geometry.Geometry
	Summary  stats.Summary
	Trailer  *header.Trailer
	Slices   int
	Elapsed  time.Duration
}

// decodeAll decodes every path with at most cfg.Decode.Workers sessions
// running at once. Results are returned in the order of paths; the entry
// for a file that failed is nil.
func decodeAll(ctx context.Context, paths []string, cfg *config.Config, logger log.Logger, metrics *loader.Metrics, progress io.Writer) ([]*result, error) {
	results := make([]*result, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Decode.Workers)
	for i, path := range paths {
		g.Go(func() error {
			report := func(fraction float64) {
				if !cfg.Output.Progress || progress == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(progress, "%s: %5.1f%%\n", filepath.Base(path), fraction*100)
			}
			r, err := decodeFile(ctx, path, cfg, log.With(logger, "file", path), metrics, report)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = r
			return nil
		})
	}
	return results, g.Wait()
}

// decodeFile runs one session to completion and optionally writes slices.
func decodeFile(ctx context.Context, path string, cfg *config.Config, logger log.Logger, metrics *loader.Metrics, progress func(float64)) (*result, error) {
	start := time.Now()
	opts := loader.DefaultOptions()
	opts.Geometry.IgnoreOffsets = !cfg.Decode.UseOffsets
	opts.Logger = logger
	opts.Metrics = metrics

	vol := models.NewVolume(cfg.DataType())
	s, err := loader.Open(path, vol, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := loader.Load(ctx, s, progress); err != nil {
		return nil, err
	}

	r := &result{
		Path:     path,
		Format:   s.Format(),
		Volume:   vol,
		Geometry: s.Geometry(),
		Slices:   s.TotalSlices(),
		Elapsed:  time.Since(start),
	}
	if tr, ok := s.Trailer(); ok {
		r.Trailer = &tr
	}
	if cfg.Output.Stats {
		r.Summary = stats.Summarize(vol.Data)
	}
	level.Info(logger).Log("msg", "decoded volume", "slices", r.Slices, "type", vol.DataType(), "duration", r.Elapsed)

	if cfg.Output.SlicesDir != "" {
		if err := extractSlices(vol, cfg.Output.SlicesDir, path, logger); err != nil {
			return r, err
		}
	}
	return r, nil
}

func extractSlices(vol *models.Volume, dir, path string, logger log.Logger) error {
	viewer := visualization.NewViewer(vol)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, axis := range []models.Axis{models.X, models.Y, models.Z} {
		axisDir := filepath.Join(dir, name, axis.String())
		n, err := viewer.SaveSliceSequence(axis, axisDir, "")
		if err != nil {
			return fmt.Errorf("saving %s-axis slices: %w", axis, err)
		}
		level.Debug(logger).Log("msg", "saved slices", "axis", axis, "count", n, "dir", axisDir)
	}
	return nil
}

func printResult(w io.Writer, r *result, withStats bool) {
	g := r.Geometry
	fmt.Fprintf(w, "\n%s (%s)\n", r.Path, r.Format)
	fmt.Fprintf(w, "=======================================\n")
	fmt.Fprintf(w, "Sizes (x,y,z,t): %v\n", r.Volume.Sizes)
	fmt.Fprintf(w, "Storage type: %s\n", r.Volume.DataType())
	fmt.Fprintf(w, "Separations: %.4g %.4g %.4g\n", g.Separations[0], g.Separations[1], g.Separations[2])
	fmt.Fprintf(w, "Starts: %.4g %.4g %.4g\n", g.Starts[0], g.Starts[1], g.Starts[2])
	for c, axis := range []string{"x", "y", "z"} {
		fmt.Fprintf(w, "%s direction: %.4f %.4f %.4f\n", axis, g.DirCos[c][0], g.DirCos[c][1], g.DirCos[c][2])
	}
	origin := g.VoxelToWorld([3]float64{0, 0, 0})
	fmt.Fprintf(w, "World position of voxel 0: %.4g %.4g %.4g\n", origin[0], origin[1], origin[2])

	vmin, vmax := r.Volume.VoxelRange()
	rmin, rmax := r.Volume.RealRange()
	fmt.Fprintf(w, "Voxel range: %g .. %g (real %g .. %g)\n", vmin, vmax, rmin, rmax)
	if r.Trailer != nil {
		fmt.Fprintf(w, "TR %.4g  flip angle %.4g  TE %.4g  TI %.4g  FoV %.4g\n",
			r.Trailer.TR, r.Trailer.FlipAngle, r.Trailer.TE, r.Trailer.TI, r.Trailer.FoV)
	}
	if withStats {
		s := r.Summary
		fmt.Fprintf(w, "Mean: %.4f  StdDev: %.4f  Median: %.4f\n", s.Mean, s.StdDev, s.Median)
		fmt.Fprintf(w, "Entropy: %.3f bits  Zero voxels: %d of %d\n", s.Entropy, s.Zeros, s.Count)
	}
	fmt.Fprintf(w, "Decoded %d slices in %.2f seconds\n", r.Slices, r.Elapsed.Seconds())
}
