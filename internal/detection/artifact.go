package detection

import (
	"encoding/json"
	"os"
	"path/filepath"

	"clipscribe/internal/vad"
)

// ContextFileName is the per-item context artifact consumed by the
// rendering stage when it records a learning session.
const ContextFileName = "context.json"

// ContextReport is the persisted outcome of gaming context analysis.
type ContextReport struct {
	Context          string  `json:"context"`
	Confidence       float64 `json:"confidence"`
	RMSEnergy        float64 `json:"rms_energy"`
	TransientDensity float64 `json:"transient_density"`
	SpectralCentroid float64 `json:"spectral_centroid"`
	HarmonicRatio    float64 `json:"harmonic_ratio"`
}

func writeContext(workDir string, analysis vad.ContextAnalysis) error {
	report := ContextReport{
		Context:          string(analysis.Context),
		Confidence:       analysis.Confidence,
		RMSEnergy:        analysis.Features.RMSEnergy,
		TransientDensity: analysis.Features.TransientDensity,
		SpectralCentroid: analysis.Features.SpectralCentroid,
		HarmonicRatio:    analysis.Features.HarmonicRatio,
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(workDir, ContextFileName), payload, 0o644)
}

// ReadContext loads the context artifact written by Execute. A missing file
// returns a zero report without error so rendering can proceed.
func ReadContext(workDir string) (ContextReport, error) {
	payload, err := os.ReadFile(filepath.Join(workDir, ContextFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return ContextReport{}, nil
		}
		return ContextReport{}, err
	}
	var report ContextReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return ContextReport{}, err
	}
	return report, nil
}
