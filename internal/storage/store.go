// Package storage keeps finished runs on disk, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/furnacesim/internal/config"
	"github.com/san-kum/furnacesim/internal/dynamo"
	"github.com/san-kum/furnacesim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	historyFile  = "history.csv"
	fieldFile    = "field.csv"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Material      string             `json:"material"`
	Timestamp     time.Time          `json:"timestamp"`
	Height        float64            `json:"height"`
	Radius        float64            `json:"radius"`
	NR            int                `json:"nr"`
	NZ            int                `json:"nz"`
	Duration      float64            `json:"duration"`
	SimulatedTime float64            `json:"simulated_time"`
	StepsExecuted int                `json:"steps_executed"`
	StepsPlanned  int                `json:"steps_planned"`
	Frames        int                `json:"frames"`
	Termination   string             `json:"termination"`
	ExecutionTime float64            `json:"execution_time_s"`
	Metrics       map[string]float64 `json:"metrics"`
}

// History is the per-frame summary kept in history.csv.
type History struct {
	Steps            []int
	Times            []float64
	PeakTemperatures []float64
	MinTemperatures  []float64
	MaxMeltFraction  []float64
	MaxVaporFraction []float64
}

func (h *History) Len() int { return len(h.Times) }

// Summarize reduces every recorded frame of a result to one history row.
func Summarize(result *sim.Result) *History {
	n := len(result.Frames)
	h := &History{
		Steps:            make([]int, n),
		Times:            make([]float64, n),
		PeakTemperatures: make([]float64, n),
		MinTemperatures:  make([]float64, n),
		MaxMeltFraction:  make([]float64, n),
		MaxVaporFraction: make([]float64, n),
	}
	for k, f := range result.Frames {
		h.Steps[k] = f.Step
		h.Times[k] = f.Time
		h.PeakTemperatures[k] = f.Temperature.Max()
		h.MinTemperatures[k] = f.Temperature.Min()
		h.MaxMeltFraction[k] = f.MeltFraction.Max()
		h.MaxVaporFraction[k] = f.VaporFraction.Max()
	}
	return h
}

// Save writes the run under a new directory named after the material and
// returns the run id.
func (s *Store) Save(name string, result *sim.Result) (string, error) {
	final, ok := result.Final()
	if !ok {
		return "", fmt.Errorf("storage: result has no frames")
	}
	if err := s.Init(); err != nil {
		return "", err
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.Unix())
	for k := 1; ; k++ {
		if _, err := os.Stat(filepath.Join(s.baseDir, runID)); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", name, now.Unix(), k)
	}
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Material:      name,
		Timestamp:     now,
		NR:            final.Temperature.NR,
		NZ:            final.Temperature.NZ,
		Duration:      result.Config.Duration,
		SimulatedTime: final.Time,
		StepsExecuted: result.StepsExecuted,
		StepsPlanned:  result.StepsPlanned,
		Frames:        len(result.Frames),
		Termination:   result.Termination.String(),
		ExecutionTime: result.ExecutionTime.Seconds(),
		Metrics:       result.Metrics,
	}
	if sc := result.Scenario; sc != nil {
		meta.Height = sc.Geometry.Height
		meta.Radius = sc.Geometry.Radius
		if err := config.Save(filepath.Join(runDir, configFile), sc); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), Summarize(result)); err != nil {
		return "", err
	}
	if err := writeField(filepath.Join(runDir, fieldFile), final); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeHistory(path string, h *History) error {
	header := []string{"step", "time", "peak_temperature", "min_temperature", "max_melt_fraction", "max_vapor_fraction"}
	return writeCSV(path, header, func(w *csv.Writer) error {
		for k := range h.Times {
			row := []string{
				strconv.Itoa(h.Steps[k]),
				formatFloat(h.Times[k]),
				formatFloat(h.PeakTemperatures[k]),
				formatFloat(h.MinTemperatures[k]),
				formatFloat(h.MaxMeltFraction[k]),
				formatFloat(h.MaxVaporFraction[k]),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeField(path string, f dynamo.Frame) error {
	header := []string{"i", "j", "temperature", "enthalpy", "melt_fraction", "vapor_fraction"}
	return writeCSV(path, header, func(w *csv.Writer) error {
		for i := 0; i < f.Temperature.NR; i++ {
			for j := 0; j < f.Temperature.NZ; j++ {
				row := []string{
					strconv.Itoa(i),
					strconv.Itoa(j),
					formatFloat(f.Temperature.At(i, j)),
					formatFloat(f.Enthalpy.At(i, j)),
					formatFloat(f.MeltFraction.At(i, j)),
					formatFloat(f.VaporFraction.At(i, j)),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].Timestamp.Before(runs[b].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig returns the configuration the run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

func parseRow(path string, line int, record []string, n int) ([]float64, error) {
	if len(record) != n {
		return nil, fmt.Errorf("storage: %s line %d: got %d columns, want %d", path, line, len(record), n)
	}
	out := make([]float64, n)
	for k, s := range record {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", path, line, err)
		}
		out[k] = v
	}
	return out, nil
}

func (s *Store) LoadHistory(runID string) (*History, error) {
	path := filepath.Join(s.baseDir, runID, historyFile)
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	h := &History{}
	for k, record := range records {
		row, err := parseRow(path, k+2, record, 6)
		if err != nil {
			return nil, err
		}
		h.Steps = append(h.Steps, int(row[0]))
		h.Times = append(h.Times, row[1])
		h.PeakTemperatures = append(h.PeakTemperatures, row[2])
		h.MinTemperatures = append(h.MinTemperatures, row[3])
		h.MaxMeltFraction = append(h.MaxMeltFraction, row[4])
		h.MaxVaporFraction = append(h.MaxVaporFraction, row[5])
	}
	return h, nil
}

// LoadField returns the final recorded frame of a run.
func (s *Store) LoadField(runID string) (dynamo.Frame, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return dynamo.Frame{}, err
	}
	path := filepath.Join(s.baseDir, runID, fieldFile)
	records, err := readCSV(path)
	if err != nil {
		return dynamo.Frame{}, err
	}

	f := dynamo.Frame{
		Step:          meta.StepsExecuted,
		Time:          meta.SimulatedTime,
		Temperature:   dynamo.NewField(meta.NR, meta.NZ),
		Enthalpy:      dynamo.NewField(meta.NR, meta.NZ),
		MeltFraction:  dynamo.NewField(meta.NR, meta.NZ),
		VaporFraction: dynamo.NewField(meta.NR, meta.NZ),
	}
	for k, record := range records {
		row, err := parseRow(path, k+2, record, 6)
		if err != nil {
			return dynamo.Frame{}, err
		}
		i, j := int(row[0]), int(row[1])
		if i < 0 || i >= meta.NR || j < 0 || j >= meta.NZ {
			return dynamo.Frame{}, fmt.Errorf("storage: %s line %d: cell (%d,%d) outside %dx%d mesh", path, k+2, i, j, meta.NR, meta.NZ)
		}
		f.Temperature.Set(i, j, row[2])
		f.Enthalpy.Set(i, j, row[3])
		f.MeltFraction.Set(i, j, row[4])
		f.VaporFraction.Set(i, j, row[5])
	}
	return f, nil
}
