package entities

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/satriahrh/palmistry/domain"
)

const (
	// MaxEncodedBytes is the transport ceiling for a single image payload.
	MaxEncodedBytes = 15 * 1024 * 1024

	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeWEBP = "image/webp"
	MediaTypeGIF  = "image/gif"
)

var allowedMediaTypes = map[string]bool{
	MediaTypeJPEG: true,
	MediaTypePNG:  true,
	MediaTypeWEBP: true,
	MediaTypeGIF:  true,
}

// EncodedImage is a still image ready for network transfer.
type EncodedImage struct {
	MIMEType string
	Data     []byte
	// Width and Height are known only when the image was produced locally.
	Width  int
	Height int
}

// AllowedMediaType reports whether mimeType may be uploaded as a file.
func AllowedMediaType(mimeType string) bool {
	return allowedMediaTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// NewUploadedImage wraps raw file bytes with their declared media type.
// Only JPEG, PNG, WEBP and GIF are accepted.
func NewUploadedImage(data []byte, mimeType string) (EncodedImage, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !AllowedMediaType(mimeType) {
		return EncodedImage{}, domain.Wrap(domain.ErrUnsupportedMedia, "upload image",
			fmt.Sprintf("Unsupported image mimeType: %s. Allowed: jpeg/png/webp/gif", mimeType), nil)
	}
	img := EncodedImage{MIMEType: mimeType, Data: data}
	if err := img.Validate(); err != nil {
		return EncodedImage{}, err
	}
	return img, nil
}

// ParseImagePayload accepts a data URI or raw base64. Unprefixed input is
// assumed to be JPEG.
func ParseImagePayload(payload string) (EncodedImage, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return EncodedImage{}, domain.Wrap(domain.ErrValidation, "parse image", "image is empty", nil)
	}

	mimeType := MediaTypeJPEG
	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return EncodedImage{}, domain.Wrap(domain.ErrDecode, "parse image", "malformed data URI", nil)
		}
		mediaType, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return EncodedImage{}, domain.Wrap(domain.ErrDecode, "parse image", "data URI is not base64", nil)
		}
		if mediaType != "" {
			mimeType = strings.ToLower(mediaType)
		}
		encoded = body
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return EncodedImage{}, domain.Wrap(domain.ErrDecode, "parse image", "invalid base64 payload", err)
	}

	img := EncodedImage{MIMEType: mimeType, Data: data}
	if err := img.Validate(); err != nil {
		return EncodedImage{}, err
	}
	return img, nil
}

// Validate reports whether the image is non-empty and under the ceiling.
func (i EncodedImage) Validate() error {
	if len(i.Data) == 0 {
		return domain.Wrap(domain.ErrValidation, "validate image", "image is empty", nil)
	}
	if len(i.Data) > MaxEncodedBytes {
		return domain.Wrap(domain.ErrValidation, "validate image",
			fmt.Sprintf("image is %d bytes, limit is %d", len(i.Data), MaxEncodedBytes), nil)
	}
	if i.MIMEType == "" {
		return domain.Wrap(domain.ErrValidation, "validate image", "media type is missing", nil)
	}
	return nil
}

// Base64 returns the payload without a media type prefix.
func (i EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the self-describing form, e.g. data:image/jpeg;base64,....
func (i EncodedImage) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
