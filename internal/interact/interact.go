// interact.go — Interactor (spec §4.4, component C4).
//
// Click, sendKeys, and screenshot all post through framework.Host so the
// widget's own handler path runs exactly as it would for a real user action
// (spec §4.4 "indistinguishable from a user click"). Every method here must
// run on the UI thread — callers dispatch through internal/uithread.
package interact

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// ErrInvalidButton is returned for a button name outside left|middle|right.
var ErrInvalidButton = errors.New("interact: invalid button")

var validButtons = map[string]bool{"left": true, "middle": true, "right": true}

// Interactor synthesizes user actions against a framework.Host.
type Interactor struct {
	host framework.Host
}

// New returns an Interactor over host.
func New(host framework.Host) *Interactor {
	return &Interactor{host: host}
}

// Click synthesizes a press-then-release at the widget's centre (useCentre)
// or a given local offset, with the given button.
func (it *Interactor) Click(id types.ObjectID, button string, useCentre bool, x, y int) error {
	if button == "" {
		button = "left"
	}
	if !validButtons[button] {
		return ErrInvalidButton
	}
	press := framework.InputEvent{Kind: framework.InputClick, TargetID: id, Button: button, UseCentre: useCentre, X: x, Y: y, Press: true}
	if err := it.host.PostInputEvent(press); err != nil {
		return err
	}
	release := press
	release.Press = false
	return it.host.PostInputEvent(release)
}

// SendKeys decodes text into key strokes and posts a press/release pair for
// each one.
func (it *Interactor) SendKeys(id types.ObjectID, text string) error {
	strokes, err := DecodeKeys(text)
	if err != nil {
		return err
	}
	for _, stroke := range strokes {
		press := framework.InputEvent{Kind: framework.InputKey, TargetID: id, Key: stroke.Key, Modifiers: stroke.Modifiers, Press: true}
		if err := it.host.PostInputEvent(press); err != nil {
			return err
		}
		release := press
		release.Press = false
		if err := it.host.PostInputEvent(release); err != nil {
			return err
		}
	}
	return nil
}

// ScreenshotResult is the {format, width, height, base64 data} response
// shape of spec §4.4.
type ScreenshotResult struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

// Screenshot captures id (or the full screen if id is zero) and encodes it
// in the requested format, defaulting to PNG.
func (it *Interactor) Screenshot(id types.ObjectID, format string) (ScreenshotResult, error) {
	if format == "" {
		format = "png"
	}
	img, err := it.host.Render(id)
	if err != nil {
		return ScreenshotResult{}, err
	}
	data, err := encode(img, format)
	if err != nil {
		return ScreenshotResult{}, err
	}
	bounds := img.Bounds()
	return ScreenshotResult{
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf("interact: unsupported screenshot format %q", format)
	}
	return buf.Bytes(), nil
}
