package dmgcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoreStartsWithoutACartridge(t *testing.T) {
	c := New(Options{})
	require.NotNil(t, c)
	require.NotNil(t, c.Framebuffer())
}

func TestTickAdvancesOneExternalCycleAtATime(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.Tick())
}

func TestRunForCyclesAdvancesExactly(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.RunForCycles(1000))
}

func TestFrameCountsCompletedFrames(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.Frame())
	assert.Equal(t, uint64(1), c.FrameCount())
}

func TestSaveLoadStateRoundTrips(t *testing.T) {
	c := New(Options{})
	require.NoError(t, c.RunForCycles(500))

	data := c.SaveState()
	require.NotEmpty(t, data)

	c2 := New(Options{})
	require.NoError(t, c2.LoadState(data))
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	c := New(Options{})
	err := c.LoadState([]byte("not a save state"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateFormatError)
}

func TestLoadROMRejectsTooSmallImage(t *testing.T) {
	c := New(Options{})
	err := c.LoadROM(make([]byte, 100))
	require.Error(t, err)
}

func TestSetKeyRoutesThroughJoypad(t *testing.T) {
	c := New(Options{})
	c.SetKey(KeyA, true)
	c.SetKey(KeyA, false)
}
