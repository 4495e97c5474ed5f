package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrRunNotFound = errors.New("telemetry: run not found")

var frameHeader = []string{"frame", "time", "bodies", "dynamic", "kinetic_energy", "mean_y"}

type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Frames    int                `json:"frames"`
	Steps     int                `json:"steps"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and frames.csv into a new run directory and
// returns the run id. A zero Timestamp is set to now.
func (s *Store) Save(meta RunMetadata, frames []Frame) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Frames = len(frames)
	runDir, id, err := s.claimRunDir(fmt.Sprintf("%s_%d", slug(meta.Scene), meta.Timestamp.UnixMilli()))
	if err != nil {
		return "", err
	}
	meta.ID = id

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	if err := WriteCSV(csvFile, frames); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteCSV writes frames with a header row.
func WriteCSV(out io.Writer, frames []Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(frameHeader); err != nil {
		return err
	}
	for _, f := range frames {
		row := []string{
			strconv.Itoa(f.Index),
			strconv.FormatFloat(f.Time, 'f', 6, 64),
			strconv.Itoa(f.Bodies),
			strconv.Itoa(f.Dynamic),
			strconv.FormatFloat(f.KineticEnergy, 'f', 6, 64),
			strconv.FormatFloat(f.MeanY, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes metadata and frames as one indented JSON document.
func WriteJSON(out io.Writer, meta RunMetadata, frames []Frame) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunMetadata
		Samples []Frame `json:"samples"`
	}{meta, frames})
}

// List returns the saved runs, oldest first. Unreadable entries are skipped.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrames reads frames.csv back. Malformed rows are skipped.
func (s *Store) LoadFrames(runID string) ([]Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, max(len(records)-1, 0))
	for i := 1; i < len(records); i++ {
		f, ok := parseFrame(records[i])
		if !ok {
			continue
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func parseFrame(rec []string) (Frame, bool) {
	if len(rec) < len(frameHeader) {
		return Frame{}, false
	}
	var (
		f    Frame
		errs [6]error
	)
	f.Index, errs[0] = strconv.Atoi(rec[0])
	f.Time, errs[1] = strconv.ParseFloat(rec[1], 64)
	f.Bodies, errs[2] = strconv.Atoi(rec[2])
	f.Dynamic, errs[3] = strconv.Atoi(rec[3])
	f.KineticEnergy, errs[4] = strconv.ParseFloat(rec[4], 64)
	f.MeanY, errs[5] = strconv.ParseFloat(rec[5], 64)
	return f, errors.Join(errs[:]...) == nil
}

// claimRunDir creates a fresh directory for base, adding a numeric suffix
// when a run with the same id already exists.
func (s *Store) claimRunDir(base string) (string, string, error) {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", "", err
	}
	id := base
	for n := 2; ; n++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, id, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", err
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "scene"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		}
		return '-'
	}, name)
}
