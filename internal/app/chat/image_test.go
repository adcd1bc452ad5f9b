package chat

import (
	"encoding/base64"
	"strings"
	"testing"

	"relaychat/internal/pkg/errs"
)

func TestValidateImagePayloadAcceptsPlainBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png bytes"))
	if customErr := ValidateImagePayload(encoded); customErr != nil {
		t.Fatalf("expected valid payload, got %v", customErr)
	}
}

func TestValidateImagePayloadAcceptsDataURLPrefix(t *testing.T) {
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))
	if customErr := ValidateImagePayload(encoded); customErr != nil {
		t.Fatalf("expected valid payload, got %v", customErr)
	}
}

func TestValidateImagePayloadRejectsEmpty(t *testing.T) {
	customErr := ValidateImagePayload("")
	if customErr == nil || customErr.Code != errs.ErrImagePayloadInvalid {
		t.Fatalf("expected image payload error, got %v", customErr)
	}
}

func TestValidateImagePayloadRejectsOversize(t *testing.T) {
	oversized := strings.Repeat("A", MaxImageBase64Bytes+1)
	customErr := ValidateImagePayload(oversized)
	if customErr == nil || customErr.Code != errs.ErrFileSizeTooLarge {
		t.Fatalf("expected size error, got %v", customErr)
	}
}

func TestValidateImagePayloadRejectsBadEncoding(t *testing.T) {
	customErr := ValidateImagePayload("@@definitely not base64@@")
	if customErr == nil || customErr.Code != errs.ErrImagePayloadInvalid {
		t.Fatalf("expected image payload error, got %v", customErr)
	}
}

func TestValidateImagePayloadRejectsDataURLWithoutComma(t *testing.T) {
	customErr := ValidateImagePayload("data:image/png;base64")
	if customErr == nil || customErr.Code != errs.ErrImagePayloadInvalid {
		t.Fatalf("expected image payload error, got %v", customErr)
	}
}
