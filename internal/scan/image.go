// Package scan prepares shelf photos and sends them to the hosted
// image-recognition function.
package scan

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultMaxDimension bounds the long edge of an uploaded photo.
const DefaultMaxDimension = 1024

const (
	blurHashSize = 64
	jpegQuality  = 85
	maxImageSize = 20 << 20
)

// ErrInvalidImage is returned for input that is not a decodable image.
var ErrInvalidImage = errors.New("invalid image")

// Prepared is a photo ready for upload.
type Prepared struct {
	JPEG     []byte
	Format   string // format of the original upload
	BlurHash string
	Width    int
	Height   int
}

// Base64 returns the JPEG bytes base64-encoded.
func (p *Prepared) Base64() string {
	return base64.StdEncoding.EncodeToString(p.JPEG)
}

// DecodeBase64 accepts plain base64 or a data URL.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		s = payload
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(s)) > maxImageSize {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrInvalidImage, maxImageSize)
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip the padding.
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	return raw, nil
}

// Prepare decodes raw, scales it so neither edge exceeds maxDim, re-encodes
// it as JPEG and computes a BlurHash placeholder.
func Prepare(raw []byte, maxDim int) (*Prepared, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	scaled := fit(img, maxDim, draw.CatmullRom)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, fit(scaled, blurHashSize, draw.ApproxBiLinear))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	b := scaled.Bounds()
	return &Prepared{
		JPEG:     buf.Bytes(),
		Format:   format,
		BlurHash: hash,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// fit scales img down so its long edge is at most limit, keeping the aspect
// ratio. Smaller images are returned as they are.
func fit(img image.Image, limit int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	dw, dh := limit, limit
	if w > h {
		dh = max(1, h*limit/w)
	} else {
		dw = max(1, w*limit/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
