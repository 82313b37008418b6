package classify

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// letterbox records how an image was fitted into the square model input.
type letterbox struct {
	scale      float32
	padX, padY float32
}

var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 0xff}

// prepareInput resizes img into a size x size canvas, keeping its aspect
// ratio and padding the remainder, and returns it as a normalized CHW
// float32 tensor.
func prepareInput(img image.Image, size int) ([]float32, letterbox) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := min(float32(size)/float32(w), float32(size)/float32(h))
	newW := max(1, int(float32(w)*scale))
	newH := max(1, int(float32(h)*scale))
	padX := (size - newW) / 2
	padY := (size - newH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, xdraw.Src)
	target := image.Rect(padX, padY, padX+newW, padY+newH)
	xdraw.BiLinear.Scale(canvas, target, img, b, xdraw.Src, nil)

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := canvas.RGBAAt(x, y)
			i := y*size + x
			data[i] = float32(px.R) / 255
			data[plane+i] = float32(px.G) / 255
			data[2*plane+i] = float32(px.B) / 255
		}
	}

	return data, letterbox{scale: scale, padX: float32(padX), padY: float32(padY)}
}
