package classify

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/vitia/backend/internal/logging"
)

type fakeDetector struct {
	detections []Detection
	err        error
	calls      int
	lastBounds image.Rectangle
}

func (f *fakeDetector) Detect(_ context.Context, img image.Image) ([]Detection, error) {
	f.calls++
	f.lastBounds = img.Bounds()
	return f.detections, f.err
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestClassifyAveragesPerClass(t *testing.T) {
	det := &fakeDetector{detections: []Detection{
		{Class: "Tempranillo", Confidence: 0.80},
		{Class: "Garnacha", Confidence: 0.95},
		{Class: "Tempranillo", Confidence: 0.90},
		{Class: "Garnacha", Confidence: 0.05},
	}}
	c := NewClassifier(det, logging.Discard())

	preds, err := c.Classify(context.Background(), encodeJPEG(t, 100, 60))
	require.NoError(t, err)

	require.Len(t, preds, 2)
	assert.Equal(t, Prediction{Variety: "Tempranillo", Confidence: 85}, preds[0])
	assert.Equal(t, Prediction{Variety: "Garnacha", Confidence: 50}, preds[1])
	assert.Equal(t, 1, det.calls)
	assert.Equal(t, image.Rect(0, 0, 100, 60), det.lastBounds)
}

func TestClassifyNoDetectionsIsEmpty(t *testing.T) {
	c := NewClassifier(&fakeDetector{}, logging.Discard())

	preds, err := c.Classify(context.Background(), encodeJPEG(t, 10, 10))
	require.NoError(t, err)
	assert.NotNil(t, preds)
	assert.Empty(t, preds)
}

func TestClassifyDetectorFailureIsEmpty(t *testing.T) {
	c := NewClassifier(&fakeDetector{err: errors.New("runtime exploded")}, logging.Discard())

	preds, err := c.Classify(context.Background(), encodeJPEG(t, 10, 10))
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestClassifyRejectsNonImage(t *testing.T) {
	det := &fakeDetector{}
	c := NewClassifier(det, logging.Discard())

	_, err := c.Classify(context.Background(), []byte("definitely not a jpeg"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = c.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, det.calls)
}

// pngDeclaring encodes a 1x1 PNG and rewrites its IHDR to claim w x h.
func pngDeclaring(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc(4)
	ihdr := data[12 : 12+4+13]
	binary.BigEndian.PutUint32(ihdr[4:8], w)
	binary.BigEndian.PutUint32(ihdr[8:12], h)
	binary.BigEndian.PutUint32(data[12+4+13:], crc32.ChecksumIEEE(ihdr))
	return data
}

func TestClassifyRejectsOversizedDimensions(t *testing.T) {
	det := &fakeDetector{}
	c := NewClassifier(det, logging.Discard())

	data := pngDeclaring(t, 12000, 12000)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 12000, cfg.Width)

	_, err = c.Classify(context.Background(), data)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, det.calls)
}

func TestDecodeDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 128})
	src.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)

	left := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(0xff), left.A)
	assert.InDelta(t, 255, int(left.R), 2)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(1, 0))
}

func TestAggregateRoundsAndBreaksTies(t *testing.T) {
	preds := Aggregate([]Detection{
		{Class: "Verdejo", Confidence: 0.123456},
		{Class: "Albariño", Confidence: 0.5},
		{Class: "Airén", Confidence: 0.5},
	})

	require.Len(t, preds, 3)
	assert.Equal(t, "Airén", preds[0].Variety)
	assert.Equal(t, "Albariño", preds[1].Variety)
	assert.Equal(t, 12.35, preds[2].Confidence)
}

func TestIsImageContentType(t *testing.T) {
	assert.True(t, IsImageContentType("image/jpeg"))
	assert.True(t, IsImageContentType("image/png; charset=binary"))
	assert.False(t, IsImageContentType("application/pdf"))
	assert.False(t, IsImageContentType(""))
}
