package catalog

import (
	"errors"
	"fmt"
	"math"
)

// MaxReward is the largest reward the mission-manager contract accepts (u32 points).
const MaxReward = math.MaxUint32

// Kind separates missions played on site from missions played on-chain.
type Kind string

const (
	KindPhysical Kind = "physical"
	KindOnline   Kind = "online"
)

// Method selects the evidence-checking strategy for a mission.
type Method string

const (
	MethodGeofence        Method = "geofence"
	MethodSwapTransaction Method = "swap_transaction"
	MethodDexTrade        Method = "dex_trade"
	MethodGovernanceVote  Method = "governance_vote"
	MethodMemoTransaction Method = "memo_transaction"
	MethodQuiz            Method = "quiz"
)

// Methods lists every supported verification method.
var Methods = []Method{
	MethodGeofence,
	MethodSwapTransaction,
	MethodDexTrade,
	MethodGovernanceVote,
	MethodMemoTransaction,
	MethodQuiz,
}

// IsLedger reports whether the method is checked against the ledger explorer.
func (m Method) IsLedger() bool {
	switch m {
	case MethodSwapTransaction, MethodDexTrade, MethodGovernanceVote, MethodMemoTransaction:
		return true
	}
	return false
}

// Difficulty is a display-only rating.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyExpert Difficulty = "EXPERT"
	DifficultyLegend Difficulty = "LEGEND"
)

func (d Difficulty) valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert, DifficultyLegend:
		return true
	}
	return false
}

// MicroDegrees is a coordinate scaled by 10^6.
type MicroDegrees = int64

// GeofenceParams is an inclusive bounding box in micro-degrees.
type GeofenceParams struct {
	ZoneName      string
	LatMin        MicroDegrees
	LatMax        MicroDegrees
	LonMin        MicroDegrees
	LonMax        MicroDegrees
	MaxAgeSeconds int // 0 disables the freshness check
}

// LedgerParams describes the on-chain action required by swap, trade and vote missions.
type LedgerParams struct {
	ContractID string
	TokenIn    string
	TokenOut   string
	MinAmount  int64 // stroops
}

// MemoParams requires a payment carrying an exact memo.
type MemoParams struct {
	QuestAddress string
	RequiredMemo string
}

// Question is a single multiple-choice quiz question including its answer key.
type Question struct {
	ID           string
	Text         string
	Options      []string
	CorrectIndex int
}

// QuizParams is the ordered question set of a quiz mission.
type QuizParams struct {
	Questions []Question
}

// Mission is a catalog entry. Exactly one parameter bag is set, selected by Method.
type Mission struct {
	ID          string
	Title       string
	Description string
	Category    string
	Kind        Kind
	Method      Method
	Reward      int
	XP          int
	Difficulty  Difficulty

	Geofence *GeofenceParams
	Ledger   *LedgerParams
	Memo     *MemoParams
	Quiz     *QuizParams
}

// ErrInvalidMission is returned when a catalog entry violates its invariants.
var ErrInvalidMission = errors.New("invalid mission")

// Validate checks the structural invariants of a mission.
func (m *Mission) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidMission, m.ID, fmt.Sprintf(format, args...))
	}

	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMission)
	}
	if m.Reward < 0 || m.XP < 0 {
		return invalid("reward and xp must be non-negative")
	}
	if int64(m.Reward) > MaxReward {
		return invalid("reward %d exceeds %d", m.Reward, int64(MaxReward))
	}
	if m.Difficulty != "" && !m.Difficulty.valid() {
		return invalid("unknown difficulty %q", m.Difficulty)
	}

	set := 0
	for _, present := range []bool{m.Geofence != nil, m.Ledger != nil, m.Memo != nil, m.Quiz != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return invalid("exactly one parameter set is required, got %d", set)
	}

	switch m.Method {
	case MethodGeofence:
		if m.Geofence == nil {
			return invalid("geofence method requires geofence parameters")
		}
		if m.Kind != KindPhysical {
			return invalid("geofence missions must be physical")
		}
		g := m.Geofence
		if g.LatMin > g.LatMax || g.LonMin > g.LonMax {
			return invalid("geofence min bound exceeds max bound")
		}
		if g.MaxAgeSeconds < 0 {
			return invalid("max age must be non-negative")
		}
	case MethodSwapTransaction, MethodDexTrade, MethodGovernanceVote:
		if m.Ledger == nil {
			return invalid("%s method requires ledger parameters", m.Method)
		}
		if m.Kind != KindOnline {
			return invalid("ledger missions must be online")
		}
	case MethodMemoTransaction:
		if m.Memo == nil || m.Memo.RequiredMemo == "" {
			return invalid("memo method requires a required memo")
		}
		if m.Kind != KindOnline {
			return invalid("memo missions must be online")
		}
	case MethodQuiz:
		if m.Quiz == nil || len(m.Quiz.Questions) == 0 {
			return invalid("quiz method requires at least one question")
		}
		if m.Kind != KindOnline {
			return invalid("quiz missions must be online")
		}
		seen := make(map[string]bool, len(m.Quiz.Questions))
		for _, q := range m.Quiz.Questions {
			if q.ID == "" {
				return invalid("quiz question missing id")
			}
			if seen[q.ID] {
				return invalid("duplicate question id %q", q.ID)
			}
			seen[q.ID] = true
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return invalid("question %q correct index out of range", q.ID)
			}
		}
	default:
		return invalid("unknown verification method %q", m.Method)
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate published content.
func (m Mission) clone() Mission {
	if m.Geofence != nil {
		g := *m.Geofence
		m.Geofence = &g
	}
	if m.Ledger != nil {
		l := *m.Ledger
		m.Ledger = &l
	}
	if m.Memo != nil {
		mp := *m.Memo
		m.Memo = &mp
	}
	if m.Quiz != nil {
		qs := make([]Question, len(m.Quiz.Questions))
		for i, q := range m.Quiz.Questions {
			q.Options = append([]string(nil), q.Options...)
			qs[i] = q
		}
		m.Quiz = &QuizParams{Questions: qs}
	}
	return m
}
