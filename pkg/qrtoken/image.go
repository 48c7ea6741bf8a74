package qrtoken

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultImageSize = 256

// RenderPNG encodes the framed value as a QR code PNG.
func RenderPNG(qrData string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultImageSize
	}
	png, err := qrcode.Encode(qrData, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR image: %w", err)
	}
	return png, nil
}

// DataURI wraps a PNG so clients can drop it straight into an <img> tag.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
