package deckcontent

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoding
)

// FilterBank holds the eight filter parameters of an image element.
// 100 is the neutral value for brightness, contrast and saturation;
// 0 is neutral for the rest. Hue and invert are stored and bounded but
// not consumed by any pipeline stage.
type FilterBank struct {
	Brightness int `json:"brightness"` // 0-200
	Contrast   int `json:"contrast"`   // 0-200
	Saturation int `json:"saturation"` // 0-200
	Hue        int `json:"hue"`        // 0-360
	Blur       int `json:"blur"`       // 0-20
	Grayscale  int `json:"grayscale"`  // 0-100
	Sepia      int `json:"sepia"`      // 0-100
	Invert     int `json:"invert"`     // 0-100
}

// DefaultFilterBank returns the neutral filter bank.
func DefaultFilterBank() FilterBank {
	return FilterBank{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
	}
}

// thumbnailMaxSize bounds thumbnail dimensions, aspect ratio preserved.
const thumbnailMaxSize = 150

// thumbnailQuality is the JPEG quality used for thumbnails.
const thumbnailQuality = 85

// runFilterPipeline decodes the image at srcPath, applies every non-neutral
// filter stage in fixed order and encodes the result to dstPath. Each stage
// operates on the output of the previous one; the source file is never
// modified, so repeated runs recompute from the original.
func runFilterPipeline(srcPath, dstPath string, filters FilterBank, quality int) error {
	src, err := decodeImageFile(srcPath)
	if err != nil {
		return err
	}

	img := toNRGBA(src)
	if filters.Brightness != 100 {
		img = adjustBrightness(img, filters.Brightness)
	}
	if filters.Contrast != 100 {
		img = adjustContrast(img, filters.Contrast)
	}
	if filters.Saturation != 100 {
		img = adjustSaturation(img, filters.Saturation)
	}
	if filters.Blur > 0 {
		img = gaussianBlur(img, float64(filters.Blur))
	}
	if filters.Sepia > 0 {
		img = applySepia(img, filters.Sepia)
	}
	if filters.Grayscale > 0 {
		img = applyGrayscale(img, filters.Grayscale)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0750); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}
	return encodeImageFile(dstPath, img, quality)
}

// createThumbnail writes a bounded downscale of srcPath to dstPath as JPEG.
// An existing thumbnail is reused verbatim and never regenerated, even when
// filter parameters changed since it was created.
func createThumbnail(srcPath, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return nil
	}

	src, err := decodeImageFile(srcPath)
	if err != nil {
		return err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := thumbnailSize(w, h)

	var thumb image.Image = src
	if tw != w || th != h {
		dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		thumb = dst
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0750); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	encodeErr := jpeg.Encode(f, thumb, &jpeg.Options{Quality: thumbnailQuality})
	closeErr := f.Close()
	if encodeErr != nil {
		os.Remove(dstPath)
		return fmt.Errorf("failed to encode thumbnail: %w", encodeErr)
	}
	return closeErr
}

// thumbnailSize fits w x h into the thumbnail bound, never upscaling.
func thumbnailSize(w, h int) (int, int) {
	if w <= thumbnailMaxSize && h <= thumbnailMaxSize {
		return w, h
	}
	if w >= h {
		return thumbnailMaxSize, max(1, h*thumbnailMaxSize/w)
	}
	return max(1, w*thumbnailMaxSize/h), thumbnailMaxSize
}

// decodeImageFile opens and decodes a raster image file.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// encodeImageFile encodes img to path in the format implied by the file
// extension. Formats that cannot be encoded (webp, svg) report an error.
func encodeImageFile(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	encodeErr := encodeImage(f, filepath.Ext(path), img, quality)
	closeErr := f.Close()
	if encodeErr != nil {
		os.Remove(path)
		return encodeErr
	}
	return closeErr
}

func encodeImage(w io.Writer, ext string, img image.Image, quality int) error {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: clampInt(quality, 1, 100)})
	case ".png":
		return png.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("cannot encode image format %q", ext)
	}
}

// toNRGBA copies an image into straight-alpha RGBA form for pixel math.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		out := image.NewNRGBA(n.Bounds())
		copy(out.Pix, n.Pix)
		return out
	}
	bounds := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Src)
	return out
}

// luminance computes the integer luma of a pixel: (299R+587G+114B)/1000.
func luminance(r, g, b int) int {
	return (299*r + 587*g + 114*b) / 1000
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// adjustBrightness scales every channel by p/100. Alpha passes through.
func adjustBrightness(img *image.NRGBA, p int) *image.NRGBA {
	factor := float64(p) / 100
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = clamp8(int(float64(pix[i]) * factor))
		pix[i+1] = clamp8(int(float64(pix[i+1]) * factor))
		pix[i+2] = clamp8(int(float64(pix[i+2]) * factor))
	}
	return img
}

// adjustContrast interpolates each pixel between the image's mean luminance
// gray and itself by p/100.
func adjustContrast(img *image.NRGBA, p int) *image.NRGBA {
	pix := img.Pix
	n := len(pix) / 4
	if n == 0 {
		return img
	}
	var sum int64
	for i := 0; i < len(pix); i += 4 {
		sum += int64(luminance(int(pix[i]), int(pix[i+1]), int(pix[i+2])))
	}
	mean := float64(sum) / float64(n)

	factor := float64(p) / 100
	for i := 0; i < len(pix); i += 4 {
		pix[i] = clamp8(int(mean + (float64(pix[i])-mean)*factor))
		pix[i+1] = clamp8(int(mean + (float64(pix[i+1])-mean)*factor))
		pix[i+2] = clamp8(int(mean + (float64(pix[i+2])-mean)*factor))
	}
	return img
}

// adjustSaturation interpolates each pixel between its own luminance gray
// and itself by p/100.
func adjustSaturation(img *image.NRGBA, p int) *image.NRGBA {
	factor := float64(p) / 100
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		l := float64(luminance(int(pix[i]), int(pix[i+1]), int(pix[i+2])))
		pix[i] = clamp8(int(l + (float64(pix[i])-l)*factor))
		pix[i+1] = clamp8(int(l + (float64(pix[i+1])-l)*factor))
		pix[i+2] = clamp8(int(l + (float64(pix[i+2])-l)*factor))
	}
	return img
}

// gaussianBlur applies a separable Gaussian blur with standard deviation
// radius. The kernel extends to three standard deviations.
func gaussianBlur(img *image.NRGBA, radius float64) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	half := int(3*radius + 0.5)
	if half < 1 {
		half = 1
	}
	kernel := make([]float64, 2*half+1)
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * radius * radius))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	horizontal := blurPass(img, kernel, half, true)
	return blurPass(horizontal, kernel, half, false)
}

func blurPass(img *image.NRGBA, kernel []float64, half int, horizontal bool) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b, a float64
			for k := -half; k <= half; k++ {
				sx, sy := x, y
				if horizontal {
					sx = clampInt(x+k, 0, w-1)
				} else {
					sy = clampInt(y+k, 0, h-1)
				}
				weight := kernel[k+half]
				o := img.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)
				r += weight * float64(img.Pix[o])
				g += weight * float64(img.Pix[o+1])
				b += weight * float64(img.Pix[o+2])
				a += weight * float64(img.Pix[o+3])
			}
			o := out.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			out.Pix[o] = clamp8(int(r + 0.5))
			out.Pix[o+1] = clamp8(int(g + 0.5))
			out.Pix[o+2] = clamp8(int(b + 0.5))
			out.Pix[o+3] = clamp8(int(a + 0.5))
		}
	}
	return out
}

// sepiaTransform applies the fixed luminance-weighted sepia matrix to one
// pixel, truncating and clamping each channel to 255.
func sepiaTransform(r, g, b int) (int, int, int) {
	tr := int(0.393*float64(r) + 0.769*float64(g) + 0.189*float64(b))
	tg := int(0.349*float64(r) + 0.686*float64(g) + 0.168*float64(b))
	tb := int(0.272*float64(r) + 0.534*float64(g) + 0.131*float64(b))
	if tr > 255 {
		tr = 255
	}
	if tg > 255 {
		tg = 255
	}
	if tb > 255 {
		tb = 255
	}
	return tr, tg, tb
}

// applySepia blends each pixel toward its sepia transform by intensity/100.
func applySepia(img *image.NRGBA, intensity int) *image.NRGBA {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		tr, tg, tb := sepiaTransform(r, g, b)
		pix[i] = clamp8(r + (tr-r)*intensity/100)
		pix[i+1] = clamp8(g + (tg-g)*intensity/100)
		pix[i+2] = clamp8(b + (tb-b)*intensity/100)
	}
	return img
}

// applyGrayscale blends each pixel toward its luminance gray by p/100.
func applyGrayscale(img *image.NRGBA, p int) *image.NRGBA {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		l := luminance(r, g, b)
		pix[i] = clamp8(r + (l-r)*p/100)
		pix[i+1] = clamp8(g + (l-g)*p/100)
		pix[i+2] = clamp8(b + (l-b)*p/100)
	}
	return img
}

// probeImageInfo reads format, pixel size, byte size, color mode and
// transparency from an image file. Decode failures yield empty metadata;
// they never propagate.
func probeImageInfo(path string) ImageInfo {
	stat, err := os.Stat(path)
	if err != nil {
		return ImageInfo{}
	}
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}
	}
	return ImageInfo{
		Format:          strings.ToUpper(format),
		Size:            [2]int{cfg.Width, cfg.Height},
		FileSize:        stat.Size(),
		ColorMode:       colorModeName(cfg.ColorModel),
		HasTransparency: modelHasAlpha(cfg.ColorModel),
	}
}

func colorModeName(m color.Model) string {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "RGB"
}

func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}
