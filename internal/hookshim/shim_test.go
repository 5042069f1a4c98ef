package hookshim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/framework"
	fakehost "github.com/ssss2art/qtmcp/internal/framework/fake"
	"github.com/ssss2art/qtmcp/internal/types"
)

type recordingListener struct {
	constructed []types.TrackedObject
	destroyed   []types.ObjectID
}

func (r *recordingListener) OnConstructed(obj types.TrackedObject) { r.constructed = append(r.constructed, obj) }
func (r *recordingListener) OnDestroyed(id types.ObjectID)         { r.destroyed = append(r.destroyed, id) }

type noopEmission struct{}

func (noopEmission) OnEmission(framework.Emission) {}

func TestInstallSynthesizesExistingTopLevels(t *testing.T) {
	host := fakehost.New()
	host.AddObject("QApplication", "", 0, false, false)

	shim := New(host)
	listener := &recordingListener{}
	shim.Install(listener, noopEmission{})

	require.Len(t, listener.constructed, 1)
	require.Equal(t, "QApplication", listener.constructed[0].ClassName)
}

func TestInstallIsIdempotent(t *testing.T) {
	host := fakehost.New()
	shim := New(host)
	listener := &recordingListener{}

	shim.Install(listener, noopEmission{})
	shim.Install(listener, noopEmission{}) // second call must be a no-op

	host.AddObject("QWidget", "", 0, false, true)
	require.Len(t, listener.constructed, 1)
}

func TestUninstallStopsForwarding(t *testing.T) {
	host := fakehost.New()
	shim := New(host)
	listener := &recordingListener{}
	shim.Install(listener, noopEmission{})
	shim.Uninstall()

	host.AddObject("QWidget", "", 0, false, true)
	require.Empty(t, listener.constructed)
	require.False(t, shim.Installed())
}
