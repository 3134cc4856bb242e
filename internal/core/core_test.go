package core_test

import (
	"sync"
	"testing"

	"codeberg.org/mutker/cyclectl/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialTickIsAbsent(t *testing.T) {
	c := core.New()

	_, ok := c.LastTick().Get()
	assert.False(t, ok)
	assert.Zero(t, c.CycleCount())

	c.Run(core.Absent())
	c.Run(core.Absent())
	assert.False(t, c.LastTick().IsPresent(), "absent ticks must not set a value")
	assert.EqualValues(t, 2, c.CycleCount())
}

func TestRunStoresTick(t *testing.T) {
	c := core.New()

	c.Run(core.Present(42))

	tick, ok := c.LastTick().Get()
	require.True(t, ok)
	assert.Equal(t, core.Tick(42), tick)
}

func TestRunStoresEveryTick(t *testing.T) {
	c := core.New()

	for _, want := range []core.Tick{0, 1, 99, 1 << 31, core.Tick(^uint32(0))} {
		c.Run(core.Present(want))
		got, ok := c.LastTick().Get()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestAbsentTickKeepsLast(t *testing.T) {
	c := core.New()

	c.Run(core.Present(100))
	c.Run(core.Absent())

	tick, ok := c.LastTick().Get()
	require.True(t, ok)
	assert.Equal(t, core.Tick(100), tick)
}

func TestCycleCountAdvancesOncePerRun(t *testing.T) {
	c := core.New()

	for i := 0; i < 50; i++ {
		before := c.CycleCount()
		if i%3 == 0 {
			c.Run(core.Absent())
		} else {
			c.Run(core.Present(core.Tick(i)))
		}
		assert.Equal(t, before+1, c.CycleCount())
	}
	assert.EqualValues(t, 50, c.CycleCount())
}

func TestReportSensorFaultHasNoStateEffect(t *testing.T) {
	c := core.New()
	c.Run(core.Present(5))

	c.ReportSensorFault(core.SensorTemperature)

	tick, ok := c.LastTick().Get()
	require.True(t, ok)
	assert.Equal(t, core.Tick(5), tick)
	assert.EqualValues(t, 1, c.CycleCount())
}

func TestReportSensorFaultForwardsToRecorder(t *testing.T) {
	var got []core.SensorID
	c := core.New(core.WithRecorder(core.RecorderFunc(func(s core.SensorID) {
		got = append(got, s)
	})))

	c.ReportSensorFault(core.SensorVoltage)
	c.ReportSensorFault(core.SensorSystemTick)

	assert.Equal(t, []core.SensorID{core.SensorVoltage, core.SensorSystemTick}, got)
	assert.Zero(t, c.CycleCount())
}

func TestNilRecorderKeepsDefault(t *testing.T) {
	c := core.New(core.WithRecorder(nil))
	assert.NotPanics(t, func() { c.ReportSensorFault(core.SensorTemperature) })
}

func TestReset(t *testing.T) {
	c := core.New()
	c.Run(core.Present(9))

	c.Reset()

	assert.False(t, c.LastTick().IsPresent())
	assert.Zero(t, c.CycleCount())
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := core.New(), core.New()

	a.Run(core.Present(1))

	assert.False(t, b.LastTick().IsPresent())
	assert.Zero(t, b.CycleCount())
}

func TestConcurrentRunCountsEveryCall(t *testing.T) {
	c := core.New()
	const workers, perWorker = 8, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					c.Run(core.Absent())
				} else {
					c.Run(core.Present(core.Tick(w)))
				}
				c.ReportSensorFault(core.SensorVoltage)
			}
		}(w)
	}
	wg.Wait()

	assert.EqualValues(t, workers*perWorker, c.CycleCount())
	assert.True(t, c.LastTick().IsPresent())
}

func TestOptionalTick(t *testing.T) {
	assert.Equal(t, "none", core.Absent().String())
	assert.Equal(t, "17", core.Present(17).String())
	assert.Equal(t, core.Tick(3), core.Absent().ValueOr(3))
	assert.Equal(t, core.Tick(17), core.Present(17).ValueOr(3))
}

func TestSensorID(t *testing.T) {
	assert.Equal(t, "system_tick", core.SensorSystemTick.String())
	assert.Equal(t, "temperature", core.SensorTemperature.String())
	assert.Equal(t, "voltage", core.SensorVoltage.String())
	assert.Equal(t, "unknown", core.SensorID(200).String())
	assert.False(t, core.SensorID(200).Valid())
	assert.Len(t, core.Sensors(), 3)
}
