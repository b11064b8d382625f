package replay_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/replay/replaytest"
)

func writeSnapshot(t *testing.T, b *replaytest.Builder) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "snapshot")
	require.NoError(t, replay.WriteSnapshot(dir, b.Snapshot()))
	return dir
}

func TestSnapshot_RoundTrip(t *testing.T) {
	b := twoDraws()
	dir := writeSnapshot(t, b)

	loaded, err := replay.LoadSnapshot(dir)
	require.NoError(t, err)

	want := b.Snapshot()
	assert.Equal(t, want.Actions, loaded.Actions)
	assert.Equal(t, want.BufferData, loaded.BufferData)
	require.Contains(t, loaded.Events, uint32(2))
	assert.Equal(t, want.Events[2].State, loaded.Events[2].State)
	assert.Equal(t, want.Events[2].Constants, loaded.Events[2].Constants)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		_, err := replay.LoadSnapshot(t.TempDir())
		assert.Equal(t, replay.ExitOpenFailed, replay.ExitCode(err))
	})

	t.Run("version", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, replay.ManifestName), []byte("version: 7\nlocal_replay: true\n"), 0644))
		_, err := replay.LoadSnapshot(dir)
		assert.True(t, errors.Is(err, replay.ErrReplayInit))
	})

	t.Run("no local replay", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, replay.ManifestName), []byte("version: 1\nlocal_replay: false\n"), 0644))
		_, err := replay.LoadSnapshot(dir)
		assert.Equal(t, replay.ExitReplayUnsupported, replay.ExitCode(err))
	})

	t.Run("missing buffer file", func(t *testing.T) {
		dir := writeSnapshot(t, twoDraws())
		require.NoError(t, os.Remove(filepath.Join(dir, "buffer-1.bin")))
		_, err := replay.LoadSnapshot(dir)
		assert.True(t, errors.Is(err, replay.ErrOpenFailed))
	})
}

func bmpBytes(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestSaveTexture_Reencodes(t *testing.T) {
	tests := []struct {
		name    string
		texture []byte
		alpha   replay.AlphaMapping
		wantA   uint32
	}{
		{"png preserve", replaytest.PNG(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 128}), replay.AlphaPreserve, 0x8080},
		{"png discard", replaytest.PNG(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 128}), replay.AlphaDiscard, 0xffff},
		{"bmp", bmpBytes(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), replay.AlphaPreserve, 0xffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := replaytest.New().Draw(replaytest.Draw{
				EventID:   1,
				Name:      "DrawIndexed(3)",
				Indices:   []uint32{0, 1, 2},
				Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Texture:   tt.texture,
			}).Session()
			defer s.Close()

			require.NoError(t, s.SetFrameEvent(1))
			view, err := s.PipelineState()
			require.NoError(t, err)

			tex := view.Fragment.ReadOnlyResources[view.Fragment.Samplers[0]][0]
			path := filepath.Join(t.TempDir(), "out.png")
			require.NoError(t, s.SaveTexture(view, replay.TextureSave{Resource: tex, Alpha: tt.alpha}, path))

			img := decodePNG(t, path)
			assert.Equal(t, 3, img.Bounds().Dx())
			assert.Equal(t, 2, img.Bounds().Dy())
			_, _, _, a := img.At(0, 0).RGBA()
			assert.Equal(t, tt.wantA, a)
		})
	}
}

func TestSaveTexture_UnknownResource(t *testing.T) {
	s := twoDraws().Session()
	defer s.Close()

	require.NoError(t, s.SetFrameEvent(2))
	view, err := s.PipelineState()
	require.NoError(t, err)
	err = s.SaveTexture(view, replay.TextureSave{Resource: 999}, filepath.Join(t.TempDir(), "x.png"))
	assert.True(t, errors.Is(err, replay.ErrUnknownResource))
}

func TestOpen_Snapshot(t *testing.T) {
	dir := writeSnapshot(t, twoDraws())

	for _, path := range []string{dir, filepath.Join(dir, replay.ManifestName)} {
		s, err := replay.Open(context.Background(), path, replay.Options{})
		require.NoError(t, err)
		assert.Equal(t, path, s.Path())

		roots, err := s.RootActions()
		require.NoError(t, err)
		assert.Len(t, roots, 3)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := replay.Open(context.Background(), filepath.Join(t.TempDir(), "missing.rdc"), replay.Options{})
	assert.Equal(t, replay.ExitOpenFailed, replay.ExitCode(err))

	_, err = replay.Open(context.Background(), t.TempDir(), replay.Options{})
	assert.True(t, errors.Is(err, replay.ErrOpenFailed))

	capturePath := filepath.Join(t.TempDir(), "frame.rdc")
	require.NoError(t, os.WriteFile(capturePath, []byte("RDOC"), 0644))

	_, err = replay.Open(context.Background(), capturePath, replay.Options{})
	assert.Equal(t, replay.ExitModuleMissing, replay.ExitCode(err))

	_, err = replay.Open(context.Background(), capturePath, replay.Options{BridgeCommand: "no-such-capture-bridge"})
	assert.True(t, errors.Is(err, replay.ErrModuleMissing))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("bridge scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "bridge.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestOpen_Bridge(t *testing.T) {
	snapDir := writeSnapshot(t, twoDraws())
	bridge := writeScript(t, `cp "$1"/* "$3"/`)

	captureDir := t.TempDir()
	capturePath := filepath.Join(captureDir, "frame.rdc")
	require.NoError(t, os.WriteFile(capturePath, []byte("RDOC"), 0644))

	workDir := t.TempDir()
	s, err := replay.Open(context.Background(), capturePath, replay.Options{
		BridgeCommand: bridge,
		BridgeArgs:    []string{snapDir},
		WorkDir:       workDir,
	})
	require.NoError(t, err)

	roots, err := s.RootActions()
	require.NoError(t, err)
	assert.Len(t, roots, 3)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "bridge output lives in the work directory")

	require.NoError(t, s.Close())
	entries, err = os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "closing the session removes bridge output")
}

func TestOpen_BridgeExitCodes(t *testing.T) {
	capturePath := filepath.Join(t.TempDir(), "frame.rdc")
	require.NoError(t, os.WriteFile(capturePath, []byte("RDOC"), 0644))

	tests := []struct {
		exit int
		want error
	}{
		{20, replay.ErrModuleMissing},
		{21, replay.ErrModuleUnloadable},
		{30, replay.ErrOpenFailed},
		{31, replay.ErrReplayUnsupported},
		{1, replay.ErrReplayInit},
	}
	for _, tt := range tests {
		bridge := writeScript(t, "echo failing >&2; exit "+strconv.Itoa(tt.exit))
		workDir := t.TempDir()
		_, err := replay.Open(context.Background(), capturePath, replay.Options{BridgeCommand: bridge, WorkDir: workDir})
		assert.True(t, errors.Is(err, tt.want), "exit %d: %v", tt.exit, err)
		assert.Contains(t, err.Error(), "failing")

		entries, err := os.ReadDir(workDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}
