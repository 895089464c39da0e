package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/pkg/errors"
)

// Parameters obtained from the YAML input file
type WaveParameters struct {
	Title           string    `yaml:"Title"`
	CFL             float64   `yaml:"CFL"`
	PolynomialOrder int       `yaml:"PolynomialOrder"`
	FinalTime       float64   `yaml:"FinalTime"`
	WaveSpeed       float64   `yaml:"WaveSpeed"`
	Dimensions      int       `yaml:"Dimensions"`
	ElementsPerAxis int       `yaml:"ElementsPerAxis"`
	BoxMin          []float64 `yaml:"BoxMin"`
	BoxMax          []float64 `yaml:"BoxMax"`
	SourceOmega     float64   `yaml:"SourceOmega"`
	SourceWidth     float64   `yaml:"SourceWidth"`
	SourceCenter    []float64 `yaml:"SourceCenter"`
	LogFrequency    int       `yaml:"LogFrequency"`
}

// DefaultWaveParameters is the baseline run a bare command invocation gets.
func DefaultWaveParameters() *WaveParameters {
	return &WaveParameters{
		Title:           "Radiating Bump",
		CFL:             0.5,
		PolynomialOrder: 4,
		FinalTime:       1,
		WaveSpeed:       1,
		Dimensions:      2,
		ElementsPerAxis: 16,
		LogFrequency:    10,
	}
}

func (ip *WaveParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Validate fills derived defaults and rejects inconsistent geometry.
func (ip *WaveParameters) Validate() error {
	if ip.Dimensions < 1 || ip.Dimensions > 3 {
		return errors.Errorf("Dimensions must be 1, 2 or 3, got %d", ip.Dimensions)
	}
	if ip.PolynomialOrder < 1 {
		return errors.Errorf("PolynomialOrder must be at least 1, got %d", ip.PolynomialOrder)
	}
	if ip.ElementsPerAxis < 1 {
		return errors.Errorf("ElementsPerAxis must be at least 1, got %d", ip.ElementsPerAxis)
	}
	if ip.WaveSpeed <= 0 {
		return errors.Errorf("WaveSpeed must be positive, got %g", ip.WaveSpeed)
	}
	if len(ip.BoxMin) == 0 {
		ip.BoxMin = make([]float64, ip.Dimensions)
	}
	if len(ip.BoxMax) == 0 {
		ip.BoxMax = make([]float64, ip.Dimensions)
		for a := range ip.BoxMax {
			ip.BoxMax[a] = 1
		}
	}
	if len(ip.BoxMin) != ip.Dimensions || len(ip.BoxMax) != ip.Dimensions {
		return errors.Errorf("BoxMin/BoxMax must have %d entries", ip.Dimensions)
	}
	for a := range ip.BoxMin {
		if ip.BoxMax[a] <= ip.BoxMin[a] {
			return errors.Errorf("BoxMax[%d] must exceed BoxMin[%d]", a, a)
		}
	}
	if ip.SourceOmega != 0 {
		if ip.SourceWidth <= 0 {
			return errors.New("SourceWidth must be positive when SourceOmega is set")
		}
		if len(ip.SourceCenter) != ip.Dimensions {
			return errors.Errorf("SourceCenter must have %d entries", ip.Dimensions)
		}
	}
	return nil
}

func (ip *WaveParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("%8.5f\t\t= WaveSpeed\n", ip.WaveSpeed)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("[%d]\t\t\t\t= Dimensions\n", ip.Dimensions)
	fmt.Printf("[%d]\t\t\t\t= Elements Per Axis\n", ip.ElementsPerAxis)
	fmt.Printf("%v -> %v\t= Box\n", ip.BoxMin, ip.BoxMax)
	if ip.SourceOmega != 0 {
		fmt.Printf("omega = %g, width = %g, center = %v\t= Source\n",
			ip.SourceOmega, ip.SourceWidth, ip.SourceCenter)
	}
}
