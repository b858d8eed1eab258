// Package qr encodes student identity payloads into QR images and decodes them
// back from captured frames.
package qr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"

	"hackattend/internal/model"
)

// ImageSize is the edge length in pixels of generated codes.
const ImageSize = 256

const dataURLPrefix = "data:image/png;base64,"

// ErrNoCode is returned when a frame contains no readable QR code.
var ErrNoCode = errors.New("qr: no code in frame")

// Payload is the JSON object embedded in a student's code.
type Payload struct {
	StudentID string `json:"studentId"`
	ID        string `json:"id"`
	Name      string `json:"name"`
}

// PayloadFor builds the payload for u.
func PayloadFor(u model.User) Payload {
	return Payload{StudentID: u.StudentID, ID: u.ID, Name: u.FullName()}
}

// ParsePayload decodes scanned text. All three fields must be present.
func ParsePayload(text string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return Payload{}, fmt.Errorf("qr: invalid payload: %w", err)
	}
	if p.ID == "" || p.StudentID == "" || p.Name == "" {
		return Payload{}, errors.New("qr: incomplete payload")
	}
	return p, nil
}

// Text is the exact string encoded into the image.
func (p Payload) Text() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// PNG renders p as a QR image.
func PNG(p Payload) ([]byte, error) {
	return qrcode.Encode(p.Text(), qrcode.Medium, ImageSize)
}

// DataURL renders p as an inline PNG suitable for an <img> src.
func DataURL(p Payload) (string, error) {
	png, err := PNG(p)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Decode reads the text of the first QR code found in a PNG or JPEG frame.
func Decode(frame []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return "", fmt.Errorf("qr: decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr: binarize: %w", err)
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", ErrNoCode
	}
	return res.GetText(), nil
}

// DecodeDataURL reverses DataURL.
func DecodeDataURL(s string) (Payload, error) {
	raw, ok := strings.CutPrefix(s, dataURLPrefix)
	if !ok {
		return Payload{}, errors.New("qr: not a png data url")
	}
	png, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("qr: data url: %w", err)
	}
	text, err := Decode(png)
	if err != nil {
		return Payload{}, err
	}
	return ParsePayload(text)
}
