package InputParameters

import (
	"fmt"
	"runtime"

	"github.com/ghodss/yaml"
	"go.uber.org/multierr"
)

// Largest minimum angle for which refinement is guaranteed to terminate
const MaxGuaranteedAngle = 20.7

// Parameters obtained from the YAML input file. ghodss/yaml goes through
// encoding/json, so the field names come from the json tags.
type RefineParameters struct {
	Title        string  `json:"Title"`
	MinAngle     float64 `json:"MinAngle"`   // Degrees
	Workers      int     `json:"Workers"`    // Zero means one per CPU
	MaxRetries   int     `json:"MaxRetries"` // Attempts on a degenerate cavity
	OutputPrefix string  `json:"OutputPrefix"`
	Verify       bool    `json:"Verify"`
}

func NewRefineParameters() *RefineParameters {
	return &RefineParameters{
		Title:      "Refinement",
		MinAngle:   20,
		Workers:    runtime.NumCPU(),
		MaxRetries: 8,
		Verify:     true,
	}
}

// Parse overlays the values present in data onto ip
func (ip *RefineParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	if ip.Workers == 0 {
		ip.Workers = runtime.NumCPU()
	}
	return ip.Validate()
}

func (ip *RefineParameters) Validate() (err error) {
	if ip.MinAngle <= 0 || ip.MinAngle >= 60 {
		err = multierr.Append(err, fmt.Errorf("MinAngle %g must be between 0 and 60 degrees", ip.MinAngle))
	}
	if ip.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("Workers %d must be positive", ip.Workers))
	}
	if ip.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("MaxRetries %d must not be negative", ip.MaxRetries))
	}
	return
}

func (ip *RefineParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= Minimum Angle\n", ip.MinAngle)
	if ip.MinAngle > MaxGuaranteedAngle {
		fmt.Printf("\t\t\t  (above %g, refinement may not terminate)\n", MaxGuaranteedAngle)
	}
	fmt.Printf("[%d]\t\t\t\t= Workers\n", ip.Workers)
	fmt.Printf("[%d]\t\t\t\t= Max Retries\n", ip.MaxRetries)
	if len(ip.OutputPrefix) != 0 {
		fmt.Printf("[%s]\t\t\t= Output Prefix\n", ip.OutputPrefix)
	}
}
