package gpu

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"montage/internal/transform"
)

// applySpatial runs the static spatial ops of a chain on img. Time ops and
// the per-frame ops (animated scale, fade) are handled by the compositor.
func applySpatial(img *image.RGBA, ops []transform.Op) *image.RGBA {
	for _, op := range ops {
		switch op := op.(type) {
		case transform.ScaleOp:
			img = scaleTo(img, op.Width, op.Height)
		case transform.BlurOp:
			img = gaussianBlur(img, op.Sigma)
		case transform.CropOp:
			img = cropRect(img, image.Rect(op.X, op.Y, op.X+op.Width, op.Y+op.Height))
		case transform.RotateOp:
			size := transform.RotatedSize(transform.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, op.Degrees)
			img = rotate(img, op.Degrees, size.Width, size.Height)
		case transform.AlphaOp:
			multiplyAlpha(img, op.Alpha)
		}
	}
	return img
}

// toRGBA returns img as a zero-origin *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func scaleTo(img *image.RGBA, w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		return img
	}
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out
}

func cropRect(img *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	return toRGBA(img.SubImage(r))
}

// rotate turns img clockwise by degrees about its centre into a w×h frame
// with transparent corners.
func rotate(img *image.RGBA, degrees float64, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	sb := img.Bounds()
	scx, scy := float64(sb.Dx())/2, float64(sb.Dy())/2
	dcx, dcy := float64(w)/2, float64(h)/2
	m := f64.Aff3{
		cos, -sin, dcx - (cos*scx - sin*scy),
		sin, cos, dcy - (sin*scx + cos*scy),
	}
	xdraw.BiLinear.Transform(out, m, img, sb, xdraw.Over, nil)
	return out
}

// multiplyAlpha scales every premultiplied channel by a.
func multiplyAlpha(img *image.RGBA, a float64) {
	if a >= 1 {
		return
	}
	if a < 0 {
		a = 0
	}
	for i := range img.Pix {
		img.Pix[i] = uint8(float64(img.Pix[i])*a + 0.5)
	}
}

// gaussianBlur applies a separable Gaussian of standard deviation sigma with
// clamped edges. Premultiplied input keeps transparent borders from bleeding
// colour.
func gaussianBlur(img *image.RGBA, sigma float64) *image.RGBA {
	if sigma <= 0 {
		return img
	}
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]float64, w*h*4)
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			var acc [4]float64
			for k, weight := range kernel {
				sx := min(max(x+k-radius, 0), w-1)
				for c := 0; c < 4; c++ {
					acc[c] += weight * float64(row[sx*4+c])
				}
			}
			copy(tmp[(y*w+x)*4:], acc[:])
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for k, weight := range kernel {
				sy := min(max(y+k-radius, 0), h-1)
				for c := 0; c < 4; c++ {
					acc[c] += weight * tmp[(sy*w+x)*4+c]
				}
			}
			o := y*out.Stride + x*4
			for c := 0; c < 4; c++ {
				out.Pix[o+c] = uint8(math.Max(0, math.Min(255, acc[c]+0.5)))
			}
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(sigma * 3))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}
