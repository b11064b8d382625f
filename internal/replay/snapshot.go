package replay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/maps-capture/internal/capture"
)

// ManifestName is the file name of a snapshot manifest inside its directory.
const ManifestName = "manifest.yaml"

const snapshotVersion = 1

// EventState is what a snapshot records for one event: the pipeline state
// and the contents of its constant blocks, keyed by stage then block name.
type EventState struct {
	State     PipelineState                          `yaml:"state"`
	Constants map[string]map[string][]ShaderVariable `yaml:"constants,omitempty"`
}

// Manifest is the YAML index of a snapshot directory.
type Manifest struct {
	Version     int                    `yaml:"version"`
	LocalReplay bool                   `yaml:"local_replay"`
	Actions     []capture.Event        `yaml:"actions"`
	Events      map[uint32]*EventState `yaml:"events"`
	Buffers     map[ResourceID]string  `yaml:"buffers,omitempty"`
	Textures    map[ResourceID]string  `yaml:"textures,omitempty"`
}

// Snapshot is an offline dump of a capture: everything a Controller needs,
// held in memory.
type Snapshot struct {
	Manifest
	// BufferData holds raw buffer contents.
	BufferData map[ResourceID][]byte
	// TextureData holds encoded images (PNG, BMP, TIFF, WebP or JPEG).
	TextureData map[ResourceID][]byte
}

// NewSnapshot returns an empty snapshot that can be replayed locally.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Manifest: Manifest{
			Version:     snapshotVersion,
			LocalReplay: true,
			Events:      make(map[uint32]*EventState),
		},
		BufferData:  make(map[ResourceID][]byte),
		TextureData: make(map[ResourceID][]byte),
	}
}

// LoadSnapshot reads a snapshot directory written by WriteSnapshot or by the
// capture bridge.
func LoadSnapshot(dir string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrOpenFailed, err)
	}

	snap := NewSnapshot()
	if err := yaml.Unmarshal(data, &snap.Manifest); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %v", ErrOpenFailed, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrReplayInit, snap.Version)
	}
	if !snap.LocalReplay {
		return nil, ErrReplayUnsupported
	}
	if snap.Events == nil {
		snap.Events = make(map[uint32]*EventState)
	}

	for id, name := range snap.Buffers {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: reading buffer %d: %v", ErrOpenFailed, id, err)
		}
		snap.BufferData[id] = b
	}
	for id, name := range snap.Textures {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: reading texture %d: %v", ErrOpenFailed, id, err)
		}
		snap.TextureData[id] = b
	}

	return snap, nil
}

// WriteSnapshot stores a snapshot in dir, creating it if needed. Buffer and
// texture file names are derived from resource ids.
func WriteSnapshot(dir string, snap *Snapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	m := snap.Manifest
	m.Buffers = make(map[ResourceID]string, len(snap.BufferData))
	m.Textures = make(map[ResourceID]string, len(snap.TextureData))

	for id, b := range snap.BufferData {
		name := fmt.Sprintf("buffer-%d.bin", id)
		if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
			return fmt.Errorf("writing buffer %d: %w", id, err)
		}
		m.Buffers[id] = name
	}
	for id, b := range snap.TextureData {
		name := fmt.Sprintf("texture-%d.img", id)
		if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
			return fmt.Errorf("writing texture %d: %w", id, err)
		}
		m.Textures[id] = name
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// snapshotController replays a Snapshot.
type snapshotController struct {
	snap    *Snapshot
	known   map[uint32]bool
	cursor  uint32
	cleanup func()
}

// NewSnapshotController returns a Controller backed by an in-memory
// snapshot.
func NewSnapshotController(snap *Snapshot) Controller {
	known := make(map[uint32]bool)
	for _, ev := range capture.Flatten(snap.Actions) {
		known[ev.EventID] = true
	}
	return &snapshotController{snap: snap, known: known}
}

func (c *snapshotController) RootActions() ([]capture.Event, error) {
	return c.snap.Actions, nil
}

func (c *snapshotController) SetFrameEvent(eventID uint32) error {
	if !c.known[eventID] {
		return fmt.Errorf("%w: %d", ErrUnknownEvent, eventID)
	}
	c.cursor = eventID
	return nil
}

// PipelineState returns an empty state for events the snapshot recorded
// nothing for, such as clears and markers.
func (c *snapshotController) PipelineState() (*PipelineState, error) {
	es, ok := c.snap.Events[c.cursor]
	if !ok {
		return &PipelineState{}, nil
	}
	state := es.State
	return &state, nil
}

func (c *snapshotController) BufferData(id ResourceID, offset, length uint64) ([]byte, error) {
	b, ok := c.snap.BufferData[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	size := uint64(len(b))
	if offset >= size {
		return nil, nil
	}
	end := size
	if length > 0 && offset+length < size {
		end = offset + length
	}
	out := make([]byte, end-offset)
	copy(out, b[offset:end])
	return out, nil
}

func (c *snapshotController) ConstantBlockContents(stage Stage, block ConstantBlock) ([]ShaderVariable, error) {
	es, ok := c.snap.Events[c.cursor]
	if !ok {
		return nil, fmt.Errorf("%w: no state recorded for event %d", ErrUnknownEvent, c.cursor)
	}
	vars, ok := es.Constants[stage.String()][block.Name]
	if !ok {
		return nil, fmt.Errorf("%w: constant block %q (%s) at event %d", ErrUnknownResource, block.Name, stage, c.cursor)
	}
	return vars, nil
}

// SaveTexture decodes the stored image in whatever format it was dumped in
// and writes it to path as PNG.
func (c *snapshotController) SaveTexture(save TextureSave, path string) error {
	data, ok := c.snap.TextureData[save.Resource]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, save.Resource)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding texture %d: %w", save.Resource, err)
	}
	if save.Alpha == AlphaDiscard {
		img = opaque(img)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating texture file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding texture %d from %s: %w", save.Resource, format, err)
	}
	return f.Close()
}

func (c *snapshotController) Shutdown() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}

func opaque(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// isSnapshotDir reports whether dir holds a snapshot manifest.
func isSnapshotDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestName))
	return !errors.Is(err, os.ErrNotExist)
}
