package chat

import (
	"encoding/base64"
	"strings"

	"relaychat/internal/pkg/errs"
)

const (
	// MaxImageSizeMB is the maximum allowed decoded image size in megabytes.
	MaxImageSizeMB = 5

	// MaxImageBase64Bytes caps the encoded payload. Base64 inflates by 4/3,
	// plus slack for the data-URL prefix browsers prepend.
	MaxImageBase64Bytes = MaxImageSizeMB*1024*1024*4/3 + 256
)

// ValidateImagePayload checks that an inline image payload is non-empty, within
// the size cap, and valid base64. A data-URL prefix ("data:image/png;base64,")
// is tolerated; only the part after the comma is decoded.
func ValidateImagePayload(fileBase64 string) *errs.CustomError {
	if fileBase64 == "" {
		return errs.NewError(errs.ErrImagePayloadInvalid)
	}

	if len(fileBase64) > MaxImageBase64Bytes {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	encoded := fileBase64
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.IndexByte(encoded, ',')
		if idx < 0 {
			return errs.NewError(errs.ErrImagePayloadInvalid)
		}
		encoded = encoded[idx+1:]
	}

	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		return errs.NewError(errs.ErrImagePayloadInvalid)
	}

	return nil
}
