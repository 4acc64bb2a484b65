// Package qr renders field values as QR code images for placement onto
// synthesized documents.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer produces PNG-encoded code images.
type Renderer struct {
	// Level is the error correction level. The zero value (Low) suits
	// short identifiers; callers with dense payloads can raise it.
	Level qrcode.RecoveryLevel
}

// Render encodes value as a QR code of sizePx by sizePx pixels and returns
// the PNG bytes. Empty values are an error: skipping them is the caller's
// decision, not a silent blank image.
func (r Renderer) Render(value string, sizePx int) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("empty code value")
	}
	if sizePx <= 0 {
		return nil, fmt.Errorf("invalid code size %dpx", sizePx)
	}
	png, err := qrcode.Encode(value, r.Level, sizePx)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", value, err)
	}
	return png, nil
}
