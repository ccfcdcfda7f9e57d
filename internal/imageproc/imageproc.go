// Package imageproc validates uploaded images and re-encodes them for storage.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/utils"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = fmt.Errorf("file size exceeds the %s limit", utils.FormatFileSize(constants.MaxUploadSize))
	ErrUnsupportedType  = errors.New("invalid file type. Please upload PNG, JPG, JPEG, GIF, or WEBP files")
	ErrInvalidExtension = errors.New("invalid file extension. Allowed: .png, .jpg, .jpeg, .gif, .webp")
	ErrCorruptImage     = errors.New("file is not a readable image")
	ErrTooSmall         = fmt.Errorf("image dimensions too small. Minimum: %dx%d pixels", constants.MinImageDimension, constants.MinImageDimension)
	ErrTooLarge         = fmt.Errorf("image dimensions too large. Maximum: %dx%d pixels", constants.MaxImageDimension, constants.MaxImageDimension)
)

// Supported formats keyed by sniffed MIME type.
var formats = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Info describes a validated upload.
type Info struct {
	Format string
	MIME   string
	Width  int
	Height int
	Size   int64
}

// Validate checks size, sniffed type, extension and pixel dimensions.
func Validate(data []byte, filename string) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > constants.MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	format, ok := formats[mime.String()]
	if !ok {
		return nil, ErrUnsupportedType
	}

	if filename != "" && !extensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, ErrInvalidExtension
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrCorruptImage
	}
	if cfg.Width < constants.MinImageDimension || cfg.Height < constants.MinImageDimension {
		return nil, ErrTooSmall
	}
	if cfg.Width > constants.MaxImageDimension || cfg.Height > constants.MaxImageDimension {
		return nil, ErrTooLarge
	}

	return &Info{
		Format: format,
		MIME:   mime.String(),
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   int64(len(data)),
	}, nil
}

// Result is a re-encoded image ready for storage.
type Result struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// Original wraps the unmodified upload as a Result. Used when re-encoding fails.
func Original(data []byte, info *Info) *Result {
	ext := "." + info.Format
	if info.Format == "jpeg" {
		ext = ".jpg"
	}
	return &Result{
		Data:        data,
		Ext:         ext,
		ContentType: info.MIME,
		Width:       info.Width,
		Height:      info.Height,
	}
}

// Compress applies EXIF orientation, flattens transparency onto white, fits
// the image inside the maximum dimensions and re-encodes it. JPEG input stays
// JPEG and everything else becomes PNG.
func Compress(data []byte, format string) (*Result, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > constants.MaxCompressedDimension || bounds.Dy() > constants.MaxCompressedDimension {
		img = imaging.Fit(img, constants.MaxCompressedDimension, constants.MaxCompressedDimension, imaging.Lanczos)
	}
	img = flatten(img)

	var (
		buf         bytes.Buffer
		ext         string
		contentType string
	)
	switch format {
	case "jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(constants.JPEGQuality))
		ext, contentType = ".jpg", "image/jpeg"
	default:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		ext, contentType = ".png", "image/png"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := img.Bounds()
	return &Result{
		Data:        buf.Bytes(),
		Ext:         ext,
		ContentType: contentType,
		Width:       out.Dx(),
		Height:      out.Dy(),
	}, nil
}

// Thumbnail renders a JPEG no larger than size x size.
func Thumbnail(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img = flatten(imaging.Fit(img, size, size, imaging.Lanczos))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}
