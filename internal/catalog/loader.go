package catalog

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zktrails/zktrails/internal/validation"
)

// fileCatalog is the on-disk catalog layout shared by TOML and YAML.
type fileCatalog struct {
	Version  string        `toml:"version" yaml:"version"`
	Missions []fileMission `toml:"missions" yaml:"missions"`
}

type fileMission struct {
	ID          string `toml:"id" yaml:"id"`
	Title       string `toml:"title" yaml:"title"`
	Description string `toml:"description" yaml:"description"`
	Category    string `toml:"category" yaml:"category"`
	Kind        string `toml:"kind" yaml:"kind"`
	Method      string `toml:"method" yaml:"method"`
	Reward      int    `toml:"reward" yaml:"reward"`
	XP          int    `toml:"xp" yaml:"xp"`
	Difficulty  string `toml:"difficulty" yaml:"difficulty"`

	Geofence *fileGeofence  `toml:"geofence" yaml:"geofence"`
	Ledger   *fileLedger    `toml:"ledger" yaml:"ledger"`
	Memo     *fileMemo      `toml:"memo" yaml:"memo"`
	Quiz     []fileQuestion `toml:"questions" yaml:"questions"`
}

// fileGeofence bounds are written in degrees.
type fileGeofence struct {
	Zone          string  `toml:"zone" yaml:"zone"`
	LatMin        float64 `toml:"lat_min" yaml:"lat_min"`
	LatMax        float64 `toml:"lat_max" yaml:"lat_max"`
	LonMin        float64 `toml:"lon_min" yaml:"lon_min"`
	LonMax        float64 `toml:"lon_max" yaml:"lon_max"`
	MaxAgeSeconds int     `toml:"max_age_seconds" yaml:"max_age_seconds"`
}

type fileLedger struct {
	Contract  string `toml:"contract" yaml:"contract"`
	TokenIn   string `toml:"token_in" yaml:"token_in"`
	TokenOut  string `toml:"token_out" yaml:"token_out"`
	MinAmount int64  `toml:"min_amount" yaml:"min_amount"`
}

type fileMemo struct {
	QuestAddress string `toml:"quest_address" yaml:"quest_address"`
	RequiredMemo string `toml:"required_memo" yaml:"required_memo"`
}

type fileQuestion struct {
	ID      string   `toml:"id" yaml:"id"`
	Text    string   `toml:"text" yaml:"text"`
	Options []string `toml:"options" yaml:"options"`
	Correct int      `toml:"correct" yaml:"correct"`
}

// ToMicroDegrees converts degrees to the fixed-point unit used for bounds.
func ToMicroDegrees(deg float64) MicroDegrees {
	return MicroDegrees(math.Round(deg * 1e6))
}

// Load reads a catalog from a .toml, .yaml or .yml file. An empty path
// returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var fc fileCatalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&fc); err != nil {
			return nil, fmt.Errorf("parsing catalog TOML: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			return nil, fmt.Errorf("parsing catalog YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (use .toml or .yaml)", filepath.Ext(path))
	}

	return fc.build()
}

func (fc *fileCatalog) build() (*Catalog, error) {
	if err := validation.ValidateVersion(fc.Version); err != nil {
		return nil, fmt.Errorf("catalog version: %w", err)
	}
	if len(fc.Missions) == 0 {
		return nil, fmt.Errorf("%w: catalog has no missions", ErrInvalidMission)
	}

	missions := make([]Mission, 0, len(fc.Missions))
	for _, fm := range fc.Missions {
		m, err := fm.toMission()
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return New(validation.NormalizeVersion(fc.Version), missions)
}

func (fm fileMission) toMission() (Mission, error) {
	if err := validation.ValidateMissionID(fm.ID); err != nil {
		return Mission{}, fmt.Errorf("%w: %v", ErrInvalidMission, err)
	}

	m := Mission{
		ID:          fm.ID,
		Title:       fm.Title,
		Description: fm.Description,
		Category:    fm.Category,
		Kind:        Kind(fm.Kind),
		Method:      Method(fm.Method),
		Reward:      fm.Reward,
		XP:          fm.XP,
		Difficulty:  Difficulty(strings.ToUpper(fm.Difficulty)),
	}
	if m.Kind == "" {
		m.Kind = KindOnline
		if m.Method == MethodGeofence {
			m.Kind = KindPhysical
		}
	}

	if g := fm.Geofence; g != nil {
		if err := validation.ValidateCoordinates(g.LatMin, g.LonMin); err != nil {
			return Mission{}, fmt.Errorf("%w %q: %v", ErrInvalidMission, fm.ID, err)
		}
		if err := validation.ValidateCoordinates(g.LatMax, g.LonMax); err != nil {
			return Mission{}, fmt.Errorf("%w %q: %v", ErrInvalidMission, fm.ID, err)
		}
		m.Geofence = &GeofenceParams{
			ZoneName:      g.Zone,
			LatMin:        ToMicroDegrees(g.LatMin),
			LatMax:        ToMicroDegrees(g.LatMax),
			LonMin:        ToMicroDegrees(g.LonMin),
			LonMax:        ToMicroDegrees(g.LonMax),
			MaxAgeSeconds: g.MaxAgeSeconds,
		}
	}
	if l := fm.Ledger; l != nil {
		if l.Contract != "" {
			if err := validation.ValidateContractID(l.Contract); err != nil {
				return Mission{}, fmt.Errorf("%w %q: %v", ErrInvalidMission, fm.ID, err)
			}
		}
		m.Ledger = &LedgerParams{
			ContractID: l.Contract,
			TokenIn:    l.TokenIn,
			TokenOut:   l.TokenOut,
			MinAmount:  l.MinAmount,
		}
	}
	if mm := fm.Memo; mm != nil {
		m.Memo = &MemoParams{QuestAddress: mm.QuestAddress, RequiredMemo: mm.RequiredMemo}
	}
	if len(fm.Quiz) > 0 {
		qs := make([]Question, len(fm.Quiz))
		for i, q := range fm.Quiz {
			qs[i] = Question{ID: q.ID, Text: q.Text, Options: q.Options, CorrectIndex: q.Correct}
		}
		m.Quiz = &QuizParams{Questions: qs}
	}
	return m, nil
}
