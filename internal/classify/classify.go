// Package classify suggests grape varieties for a photo by running an
// object-detection model over it and averaging the confidence of every box
// per detected class.
package classify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"mime"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when the uploaded bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// MaxPixels bounds the decoded raster. The header is checked before any
// pixel data is read.
const MaxPixels = 40_000_000

// Detection is one bounding box reported by the model.
type Detection struct {
	Class      string
	Confidence float64 // 0..1
	Box        image.Rectangle
}

// Detector runs the detection model over an RGB image. Implementations must
// be safe for concurrent use; the Classifier shares one across requests.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Prediction is the averaged confidence, in percent, for one variety.
type Prediction struct {
	Variety    string  `json:"variedad"`
	Confidence float64 `json:"confianza"`
}

// Classifier turns raw upload bytes into ranked predictions.
type Classifier struct {
	detector Detector
	logger   *slog.Logger
}

func NewClassifier(detector Detector, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{detector: detector, logger: logger}
}

// Classify decodes data, runs the detector once and returns one prediction
// per detected class, highest confidence first. Classes without boxes are
// omitted. A detector failure yields an empty list, not an error.
func (c *Classifier) Classify(ctx context.Context, data []byte) ([]Prediction, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	detections, err := c.detector.Detect(ctx, img)
	if err != nil {
		c.logger.Warn("detector failed", "error", err)
		return []Prediction{}, nil
	}
	return Aggregate(detections), nil
}

// Decode parses data as an image and returns it as an opaque RGB raster.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return toRGB(src), nil
}

// toRGB copies src into an RGBA raster and discards its alpha channel.
func toRGB(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			px := dst.RGBAAt(x, y)
			if px.A == 0xff {
				continue
			}
			// Undo premultiplication so the visible color is kept.
			if px.A != 0 {
				px.R = uint8(uint32(px.R) * 0xff / uint32(px.A))
				px.G = uint8(uint32(px.G) * 0xff / uint32(px.A))
				px.B = uint8(uint32(px.B) * 0xff / uint32(px.A))
			}
			dst.SetRGBA(x, y, color.RGBA{R: px.R, G: px.G, B: px.B, A: 0xff})
		}
	}
	return dst
}

// Aggregate groups detections by class, averages their confidence and sorts
// the result by that average, descending. Ties are ordered by name.
func Aggregate(detections []Detection) []Prediction {
	type acc struct {
		sum   float64
		count int
	}
	byClass := make(map[string]*acc)
	for _, d := range detections {
		a, ok := byClass[d.Class]
		if !ok {
			a = &acc{}
			byClass[d.Class] = a
		}
		a.sum += d.Confidence
		a.count++
	}

	predictions := make([]Prediction, 0, len(byClass))
	for class, a := range byClass {
		avg := a.sum / float64(a.count) * 100
		predictions = append(predictions, Prediction{
			Variety:    class,
			Confidence: math.Round(avg*100) / 100,
		})
	}

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Confidence != predictions[j].Confidence {
			return predictions[i].Confidence > predictions[j].Confidence
		}
		return predictions[i].Variety < predictions[j].Variety
	})
	return predictions
}

// IsImageContentType reports whether a multipart part declared an image/* type.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	major, _, _ := strings.Cut(mediaType, "/")
	return major == "image"
}
