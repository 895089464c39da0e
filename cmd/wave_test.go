package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/godg/InputParameters"
)

func TestWaveParameters(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
CFL: 0.25
PolynomialOrder: 3
FinalTime: 2.
WaveSpeed: 1.5
Dimensions: 2
ElementsPerAxis: 8
BoxMin: [0., 0.]
BoxMax: [2., 1.]
SourceOmega: 3.
SourceWidth: 0.05
SourceCenter: [0.1, 0.22]
`)
	ip := InputParameters.DefaultWaveParameters()
	assert.NoError(t, ip.Parse(fileInput))
	assert.NoError(t, ip.Validate())
	assert.Equal(t, 0.25, ip.CFL)
	assert.Equal(t, 3, ip.PolynomialOrder)
	assert.Equal(t, []float64{2, 1}, ip.BoxMax)
	assert.Equal(t, 3., ip.SourceOmega)
	ip.Print()

	// geometry defaults fill in when the file leaves the box out
	ip2 := InputParameters.DefaultWaveParameters()
	assert.NoError(t, ip2.Validate())
	assert.Equal(t, []float64{0, 0}, ip2.BoxMin)
	assert.Equal(t, []float64{1, 1}, ip2.BoxMax)

	// inconsistent inputs are rejected
	ip3 := InputParameters.DefaultWaveParameters()
	ip3.Dimensions = 4
	assert.Error(t, ip3.Validate())
}
