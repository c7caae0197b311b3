package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	ID               string             `json:"id"`
	Material         string             `json:"material"`
	Termination      string             `json:"termination"`
	Duration         float64            `json:"duration"`
	Steps            int                `json:"steps"`
	Times            []float64          `json:"times"`
	PeakTemperatures []float64          `json:"peak_temperatures"`
	MaxMeltFraction  []float64          `json:"max_melt_fraction"`
	Metrics          map[string]float64 `json:"metrics"`
	Final            FieldData          `json:"final"`
}

// FieldData holds a field row-major by radial index, Temperature[i][j].
type FieldData struct {
	Time          float64     `json:"time"`
	Temperature   [][]float64 `json:"temperature"`
	MeltFraction  [][]float64 `json:"melt_fraction"`
	VaporFraction [][]float64 `json:"vapor_fraction"`
}

// Export gathers a stored run into one document.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	h, err := s.LoadHistory(runID)
	if err != nil {
		return nil, err
	}
	f, err := s.LoadField(runID)
	if err != nil {
		return nil, err
	}

	rows := func(data []float64) [][]float64 {
		out := make([][]float64, meta.NR)
		for i := range out {
			out[i] = data[i*meta.NZ : (i+1)*meta.NZ]
		}
		return out
	}
	return &ExportData{
		ID:               meta.ID,
		Material:         meta.Material,
		Termination:      meta.Termination,
		Duration:         meta.Duration,
		Steps:            meta.StepsExecuted,
		Times:            h.Times,
		PeakTemperatures: h.PeakTemperatures,
		MaxMeltFraction:  h.MaxMeltFraction,
		Metrics:          meta.Metrics,
		Final: FieldData{
			Time:          f.Time,
			Temperature:   rows(f.Temperature.Data),
			MeltFraction:  rows(f.MeltFraction.Data),
			VaporFraction: rows(f.VaporFraction.Data),
		},
	}, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
