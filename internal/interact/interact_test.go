package interact

import (
	"testing"

	"github.com/stretchr/testify/require"

	fakehost "github.com/ssss2art/qtmcp/internal/framework/fake"
	"github.com/ssss2art/qtmcp/internal/types"
)

func TestClickPostsPressAndRelease(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QPushButton", "ok", 0, false, true)
	it := New(host)

	require.NoError(t, it.Click(id, "left", true, 0, 0))

	events := host.PostedEvents()
	require.Len(t, events, 2)
	require.True(t, events[0].Press)
	require.False(t, events[1].Press)
}

func TestClickInvalidButton(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QPushButton", "ok", 0, false, true)
	it := New(host)

	err := it.Click(id, "sideways", true, 0, 0)
	require.ErrorIs(t, err, ErrInvalidButton)
}

func TestSendKeysDecodesNamedKey(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QLineEdit", "edit", 0, false, true)
	it := New(host)

	require.NoError(t, it.SendKeys(id, "hi<Enter>"))
	events := host.PostedEvents()
	// "h", "i", "<Enter>" => 3 strokes * 2 events
	require.Len(t, events, 6)
	require.Equal(t, "Return", events[4].Key)
}

func TestSendKeysUnknownModifierIsRequestError(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QLineEdit", "edit", 0, false, true)
	it := New(host)

	err := it.SendKeys(id, "<Foo+A>")
	require.ErrorIs(t, err, ErrUnknownModifier)
}

func TestScreenshotDefaultsToPNG(t *testing.T) {
	host := fakehost.New()
	id := host.AddObject("QWidget", "panel", 0, false, true)
	host.SetGeometry(id, types.Geometry{Width: 10, Height: 10})
	it := New(host)

	result, err := it.Screenshot(id, "")
	require.NoError(t, err)
	require.Equal(t, "png", result.Format)
	require.Equal(t, 10, result.Width)
	require.Equal(t, 10, result.Height)
	require.NotEmpty(t, result.Data)
}

func TestScreenshotFullScreenWhenNoTarget(t *testing.T) {
	host := fakehost.New()
	it := New(host)
	result, err := it.Screenshot(0, "png")
	require.NoError(t, err)
	require.Equal(t, 64, result.Width)
}
