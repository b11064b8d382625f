// Package scraper walks a capture's tile draw calls and writes each one as a
// set of intermediate files.
//
// Work is done in three stages per chunk of draw calls. The host stage moves
// the replay cursor and copies everything a draw call needs into memory. The
// decode stage runs on those copies in parallel. The emit stage resolves
// transforms and writes files in draw call order.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/classify"
	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/mesh"
	"github.com/Faultbox/maps-capture/internal/profiling"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/resolve"
	"github.com/Faultbox/maps-capture/internal/uniforms"
	"github.com/Faultbox/maps-capture/pkg/nparray"
)

// Per draw call errors. They skip the draw call, or only its texture.
var (
	ErrNoUVData              = errors.New("no UV data")
	ErrTextureBindingMissing = errors.New("no texture bound")
)

// Options controls a scraping run.
type Options struct {
	// Prefix is prepended to every output file name.
	Prefix string
	// MaxBlocks bounds the number of draw calls read; 0 or less reads all.
	MaxBlocks int
	// Workers bounds the parallel decode stage; 0 or less means 1.
	Workers int
	// Resolver carries the reference matrix across captures. Nil starts a
	// fresh one.
	Resolver *resolve.Resolver
	// Counters receives stage timings. Nil uses a private set.
	Counters *profiling.Counters
}

// Tile is one emitted draw call.
type Tile struct {
	ID        int
	EventID   uint32
	Transform resolve.Transform
	Textured  bool
}

// Report summarizes a run.
type Report struct {
	Variant  capture.Variant
	Strategy string
	// Relevant is the number of draw calls the classifier selected.
	Relevant int
	Tiles    []Tile
	Skipped  int
}

// File kinds of the intermediate file set.
const (
	KindIndices   = "indices.bin"
	KindPositions = "positions.bin"
	KindUV        = "uv.bin"
	KindConstants = "constants.bin"
	KindTexture   = "texture.png"
)

// FileName returns the path of one file of a draw call's file set.
func FileName(prefix string, id int, kind string) string {
	return fmt.Sprintf("%s%05d-%s", prefix, id, kind)
}

// drawRead holds everything copied out of the host for one draw call, then
// its decoded arrays.
type drawRead struct {
	event capture.Event
	dc    capture.DrawCall

	pos, uv  mesh.Attribute
	indexRaw []byte
	posRaw   []byte
	uvRaw    []byte

	constants uniforms.Set
	// texture is the pending texture file, empty when there is none.
	texture string

	indices   []uint32
	positions [][]float64
	uvs       [][]float64

	err error
}

type scraper struct {
	session  *replay.Session
	opts     Options
	variant  capture.Variant
	counters *profiling.Counters
	log      *zap.Logger
	report   Report
	nextID   int
}

// Run extracts every relevant draw call of the capture open in s.
func Run(ctx context.Context, s *replay.Session, opts Options) (*Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Resolver == nil {
		opts.Resolver = resolve.NewResolver()
	}
	if opts.Counters == nil {
		opts.Counters = profiling.NewCounters()
	}
	if err := os.MkdirAll(filepath.Dir(opts.Prefix+"x"), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	timer := profiling.StartTimer()
	roots, err := s.RootActions()
	if err != nil {
		return nil, fmt.Errorf("reading root actions: %w", err)
	}
	events := capture.Flatten(roots)
	opts.Counters.Get("flatten").Since(timer)

	timer = profiling.StartTimer()
	result, err := classify.Classify(events, uniforms.NewProber(s))
	opts.Counters.Get("classify").Since(timer)
	if err != nil {
		return nil, err
	}

	draws := result.Draws
	if opts.MaxBlocks > 0 && len(draws) > opts.MaxBlocks {
		draws = draws[:opts.MaxBlocks]
	}

	sc := &scraper{
		session:  s,
		opts:     opts,
		variant:  result.Variant,
		counters: opts.Counters,
		log:      logger.ForCapture(s.Path()),
		report: Report{
			Variant:  result.Variant,
			Strategy: result.StrategyName(),
			Relevant: len(result.Draws),
		},
	}
	sc.log.Info("scraping capture",
		zap.String("variant", string(result.Variant)),
		zap.Int("draws", len(draws)))

	chunk := opts.Workers * 4
	for start := 0; start < len(draws); start += chunk {
		end := min(start+chunk, len(draws))
		if err := sc.process(ctx, draws[start:end]); err != nil {
			return &sc.report, err
		}
	}

	sc.counters.Log()
	sc.log.Info("capture scraped",
		zap.Int("tiles", len(sc.report.Tiles)),
		zap.Int("skipped", sc.report.Skipped))
	return &sc.report, nil
}

func (sc *scraper) process(ctx context.Context, draws []capture.Event) error {
	reads := make([]*drawRead, 0, len(draws))
	for _, ev := range draws {
		if err := ctx.Err(); err != nil {
			discard(reads)
			return err
		}
		timer := profiling.StartTimer()
		reads = append(reads, sc.read(ev))
		sc.counters.Get("host").Since(timer)
	}

	if err := sc.decode(ctx, reads); err != nil {
		discard(reads)
		return err
	}

	for i, r := range reads {
		if err := sc.emit(r); err != nil {
			discard(reads[i:])
			return err
		}
	}
	return nil
}

// read copies one draw call out of the host. All reads go through a single
// view, before the cursor moves again.
func (sc *scraper) read(ev capture.Event) *drawRead {
	r := &drawRead{event: ev}
	if err := sc.session.SetFrameEvent(ev.EventID); err != nil {
		r.err = err
		return r
	}
	view, err := sc.session.PipelineState()
	if err != nil {
		r.err = err
		return r
	}
	r.dc = ev.DrawCall(view.Topology)

	attrs, err := mesh.BuildAll(view.PipelineState, r.dc)
	if err != nil {
		r.err = err
		return r
	}
	uvSlot := 1
	if sc.variant == capture.VariantGoogleEarth {
		uvSlot = 2
	}
	if len(attrs) < 2 || uvSlot >= len(attrs) {
		r.err = fmt.Errorf("%w: %d vertex inputs", ErrNoUVData, len(attrs))
		return r
	}
	r.pos, r.uv = attrs[0], attrs[uvSlot]

	if r.pos.Indexed() {
		if r.indexRaw, err = sc.session.BufferData(r.pos.IndexResource, r.pos.IndexByteOffset, 0); err != nil {
			r.err = fmt.Errorf("reading index buffer: %w", err)
			return r
		}
	}
	if r.posRaw, err = r.pos.FetchVertexBytes(sc.session); err != nil {
		r.err = err
		return r
	}
	if r.uvRaw, err = r.uv.FetchVertexBytes(sc.session); err != nil {
		r.err = err
		return r
	}

	if r.constants, err = uniforms.ExtractState(sc.session, view); err != nil {
		r.err = err
		return r
	}

	timer := profiling.StartTimer()
	r.texture, err = sc.saveTexture(view)
	sc.counters.Get("texture").Since(timer)
	if err != nil {
		sc.log.Warn("tile has no texture",
			zap.Uint32("event", ev.EventID),
			zap.Error(err))
	}
	return r
}

// saveTexture exports the texture of the last fragment sampler to a pending
// path. It is renamed once the draw call is emitted.
func (sc *scraper) saveTexture(view *replay.View) (string, error) {
	frag := view.Fragment
	if len(frag.Samplers) == 0 {
		return "", ErrTextureBindingMissing
	}
	bind := frag.Samplers[len(frag.Samplers)-1]
	if bind < 0 || bind >= len(frag.ReadOnlyResources) || len(frag.ReadOnlyResources[bind]) == 0 {
		return "", fmt.Errorf("%w: sampler slot %d has no resource", ErrTextureBindingMissing, bind)
	}

	path := fmt.Sprintf("%spending-%d-%s", sc.opts.Prefix, view.EventID, KindTexture)
	save := replay.TextureSave{Resource: frag.ReadOnlyResources[bind][0], Alpha: replay.AlphaPreserve}
	if err := sc.session.SaveTexture(view, save, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("saving texture: %w", err)
	}
	return path, nil
}

func (sc *scraper) decode(ctx context.Context, reads []*drawRead) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sc.opts.Workers)
	for _, r := range reads {
		if r.err != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			timer := profiling.StartTimer()
			r.err = decodeDraw(r)
			sc.counters.Get("decode").Since(timer)
			return nil
		})
	}
	return g.Wait()
}

func decodeDraw(r *drawRead) error {
	var err error
	if r.pos.Indexed() {
		r.indices, err = r.pos.DecodeIndices(r.indexRaw)
	} else {
		r.indices, err = r.pos.FetchIndices(nil)
	}
	if err != nil {
		return err
	}
	if r.positions, err = r.pos.DecodeData(r.posRaw, r.indices); err != nil {
		return err
	}
	if r.uvs, err = r.uv.DecodeData(r.uvRaw, r.indices); err != nil {
		return err
	}
	r.indexRaw, r.posRaw, r.uvRaw = nil, nil, nil
	return nil
}

// emit resolves and writes one draw call. Only an error that must abort the
// whole capture is returned.
func (sc *scraper) emit(r *drawRead) error {
	if r.err != nil {
		sc.skip(r, r.err)
		return nil
	}

	tr, ok, err := sc.opts.Resolver.Resolve(r.constants.Globals())
	var unrecognized *resolve.UnrecognizedUniformSetError
	switch {
	case errors.As(err, &unrecognized):
		discard([]*drawRead{r})
		sc.log.Error("cannot identify the capture from its first draw call",
			zap.Uint32("event", r.event.EventID),
			zap.String("globals", unrecognized.Globals.String()))
		return err
	case err != nil:
		sc.skip(r, err)
		return nil
	case !ok:
		sc.skip(r, resolve.ErrUnrecognizedUniformSet)
		return nil
	}

	timer := profiling.StartTimer()
	id := sc.nextID
	if err := sc.write(id, r); err != nil {
		discard([]*drawRead{r})
		return fmt.Errorf("writing draw call %d: %w", id, err)
	}
	sc.counters.Get("write").Since(timer)

	sc.nextID++
	sc.report.Tiles = append(sc.report.Tiles, Tile{
		ID:        id,
		EventID:   r.event.EventID,
		Transform: tr,
		Textured:  r.texture != "",
	})
	sc.log.Debug("draw call emitted",
		zap.Int("id", id),
		zap.Uint32("event", r.event.EventID),
		zap.String("variant", tr.Variant),
		zap.Int("indices", len(r.indices)))
	return nil
}

func (sc *scraper) write(id int, r *drawRead) error {
	prefix := sc.opts.Prefix
	if err := nparray.WriteFile(FileName(prefix, id, KindIndices), nparray.FromUint32(r.indices)); err != nil {
		return err
	}
	if err := nparray.WriteFile(FileName(prefix, id, KindPositions), nparray.FromRows(r.positions)); err != nil {
		return err
	}
	if err := nparray.WriteFile(FileName(prefix, id, KindUV), nparray.FromRows(r.uvs)); err != nil {
		return err
	}
	constants := r.constants.WithDrawCall(r.dc.Topology, sc.variant)
	if err := uniforms.Write(FileName(prefix, id, KindConstants), constants); err != nil {
		return err
	}
	if r.texture != "" {
		if err := os.Rename(r.texture, FileName(prefix, id, KindTexture)); err != nil {
			return fmt.Errorf("moving texture: %w", err)
		}
	}
	return nil
}

func (sc *scraper) skip(r *drawRead, err error) {
	discard([]*drawRead{r})
	sc.report.Skipped++
	sc.log.Info("skipping draw call",
		zap.Uint32("event", r.event.EventID),
		zap.String("name", r.event.Name),
		zap.Error(err))
}

// discard removes pending textures of draw calls that will not be emitted.
func discard(reads []*drawRead) {
	for _, r := range reads {
		if r.texture != "" {
			os.Remove(r.texture)
			r.texture = ""
		}
	}
}
