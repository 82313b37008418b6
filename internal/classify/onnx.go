package classify

import (
	"context"
	"errors"
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	onnxInputName  = "images"
	onnxOutputName = "output0"
)

// ONNXOptions configures LoadONNXDetector.
type ONNXOptions struct {
	ModelPath     string
	RuntimeLib    string
	Labels        Labels
	InputSize     int
	Confidence    float64
	IoU           float64
	MaxDetections int
}

// ONNXDetector runs a YOLO-style detection model exported to ONNX. The model
// is loaded once by LoadONNXDetector and then only read; Detect allocates
// its own tensors per call, so concurrent calls share nothing but the
// session, which onnxruntime allows to Run from several goroutines.
type ONNXDetector struct {
	session *ort.DynamicAdvancedSession
	opts    ONNXOptions
	anchors int
}

// LoadONNXDetector initializes the onnxruntime environment and loads the
// model. It must be called once at startup; Close releases both.
func LoadONNXDetector(opts ONNXOptions) (*ONNXDetector, error) {
	if opts.ModelPath == "" {
		return nil, errors.New("onnx: model path is required")
	}
	if len(opts.Labels.Names) == 0 {
		return nil, errors.New("onnx: labels are required")
	}
	if opts.InputSize <= 0 || opts.InputSize%32 != 0 {
		return nil, fmt.Errorf("onnx: input size %d must be a positive multiple of 32", opts.InputSize)
	}

	if opts.RuntimeLib != "" {
		ort.SetSharedLibraryPath(opts.RuntimeLib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{onnxInputName},
		[]string{onnxOutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: load model %s: %w", opts.ModelPath, err)
	}

	return &ONNXDetector{
		session: session,
		opts:    opts,
		anchors: anchorCount(opts.InputSize),
	}, nil
}

// Detect implements Detector.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := d.opts.InputSize
	classes := len(d.opts.Labels.Names)
	data, lb := prepareInput(img, size)

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), data)
	if err != nil {
		return nil, fmt.Errorf("onnx: input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+classes), int64(d.anchors)))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := d.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	cands := decodeYOLO(output.GetData(), classes, d.anchors, float32(d.opts.Confidence))
	kept := nonMaxSuppression(cands, float32(d.opts.IoU), d.opts.MaxDetections)

	bounds := img.Bounds()
	detections := make([]Detection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, Detection{
			Class:      d.opts.Labels.Name(c.class),
			Confidence: float64(c.confidence),
			Box:        c.toSource(lb, bounds),
		})
	}
	return detections, nil
}

// Close releases the session and the runtime environment.
func (d *ONNXDetector) Close() error {
	var errs []error
	if d.session != nil {
		errs = append(errs, d.session.Destroy())
	}
	errs = append(errs, ort.DestroyEnvironment())
	return errors.Join(errs...)
}
