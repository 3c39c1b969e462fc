// Package qr renders session codes, decodes scanned frames and builds deep links.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strings"

	"github.com/makiuchi-d/gozxing"
	gzqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

// Level is the error correction level of a rendered code.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// DefaultSize is the rendered edge length in pixels.
const DefaultSize = 256

var ErrNoCode = errors.New("qr: no code found in image")

func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelM:
		return qrcode.Medium
	case LevelQ:
		return qrcode.High
	default:
		return qrcode.Highest
	}
}

// ParseLevel accepts L, M, Q or H; empty means H.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case "":
		return LevelH, nil
	case LevelL, LevelM, LevelQ, LevelH:
		return l, nil
	}
	return "", fmt.Errorf("qr: unknown level %q", s)
}

// Render encodes payload as a PNG.
func Render(payload string, level Level, size int) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("qr: empty payload")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(payload, level.recovery(), size)
}

// Decode reads the first QR code in a PNG or JPEG image.
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("qr: decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr: binarize: %w", err)
	}
	res, err := gzqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return res.GetText(), nil
}

// DecodeBytes is Decode over an in-memory image.
func DecodeBytes(b []byte) (string, error) {
	return Decode(bytes.NewReader(b))
}

// DeepLink builds the attendee landing URL for a session. name is optional.
func DeepLink(base, sessionID, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("qr: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("session", sessionID)
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
