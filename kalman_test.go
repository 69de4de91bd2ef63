package ukf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsEst(t *testing.T) {
	implements := func(Estimate) {}
	implements(UKFEstimate{})
}

func TestImplementsNoise(t *testing.T) {
	implements := func(Noise) {}
	implements(SensorNoise{})
	implements(new(SensorNoise))
}

func TestImplementsModel(t *testing.T) {
	implements := func(MeasurementModel) {}
	implements(LidarModel{})
	implements(RadarModel{})
}

func TestImplementsObserver(t *testing.T) {
	implements := func(Observer) {}
	implements(new(SlogObserver))
}

func TestImplementsExporter(t *testing.T) {
	implements := func(Exporter) {}
	implements(new(CSVExporter))
}

func TestSensorKind(t *testing.T) {
	assert.Equal(t, 2, Lidar.Dim())
	assert.Equal(t, 3, Radar.Dim())
	assert.Equal(t, 0, SensorKind(42).Dim())
	assert.Equal(t, "lidar", Lidar.String())
	assert.Equal(t, "radar", Radar.String())
	assert.Equal(t, "SensorKind(42)", SensorKind(42).String())
}

func TestParseSensorKind(t *testing.T) {
	for tag, want := range map[string]SensorKind{"L": Lidar, "l": Lidar, "lidar": Lidar, "R": Radar, "r": Radar, "radar": Radar} {
		k, err := ParseSensorKind(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, k, tag)
	}
	_, err := ParseSensorKind("X")
	assert.True(t, errors.Is(err, ErrUnknownSensor))
}

func TestMeasurementVectorCopies(t *testing.T) {
	m := Measurement{Kind: Lidar, Raw: []float64{1, 2}}
	v := m.Vector()
	v.SetVec(0, 10)
	assert.Equal(t, 1.0, m.Raw[0], "Vector must not alias Raw")
	assert.Equal(t, 2, v.Len())
}
