package navigation

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize is the default edge length of share codes in pixels
const QRSize = 256

// QRCode encodes the intent's href as a PNG QR code
func QRCode(intent Intent, baseURL string, size int) ([]byte, error) {
	if size <= 0 {
		size = QRSize
	}
	png, err := qrcode.Encode(intent.Href(baseURL), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// QRCodeDataURL returns the share code as a base64 PNG data URL, for embedding inline
func QRCodeDataURL(intent Intent, baseURL string, size int) (string, error) {
	png, err := QRCode(intent, baseURL, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
