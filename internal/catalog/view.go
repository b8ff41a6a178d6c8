package catalog

// MissionView is the client-facing projection of a mission. It has no fields
// for geofence bounds or quiz answer keys.
type MissionView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      string        `json:"category,omitempty"`
	Kind          Kind          `json:"type"`
	Method        Method        `json:"verificationMethod"`
	Reward        int           `json:"reward"`
	XP            int           `json:"xp"`
	Difficulty    Difficulty    `json:"difficulty,omitempty"`
	ZoneName      string        `json:"zoneName,omitempty"`
	MaxAgeSeconds int           `json:"maxAgeSeconds,omitempty"`
	QuestionCount int           `json:"questionCount,omitempty"`
	Requirements  *Requirements `json:"requirements,omitempty"`
}

// Requirements are the public conditions of an online mission.
type Requirements struct {
	ContractID   string `json:"contractId,omitempty"`
	TokenIn      string `json:"tokenIn,omitempty"`
	TokenOut     string `json:"tokenOut,omitempty"`
	MinAmount    int64  `json:"minAmount,omitempty"`
	QuestAddress string `json:"questAddress,omitempty"`
	RequiredMemo string `json:"requiredMemo,omitempty"`
}

// QuestionView is a quiz question without its correct index.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// NewMissionView projects a mission for clients.
func NewMissionView(m *Mission) MissionView {
	v := MissionView{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Kind:        m.Kind,
		Method:      m.Method,
		Reward:      m.Reward,
		XP:          m.XP,
		Difficulty:  m.Difficulty,
	}
	switch {
	case m.Geofence != nil:
		v.ZoneName = m.Geofence.ZoneName
		v.MaxAgeSeconds = m.Geofence.MaxAgeSeconds
	case m.Ledger != nil:
		v.Requirements = &Requirements{
			ContractID: m.Ledger.ContractID,
			TokenIn:    m.Ledger.TokenIn,
			TokenOut:   m.Ledger.TokenOut,
			MinAmount:  m.Ledger.MinAmount,
		}
	case m.Memo != nil:
		v.Requirements = &Requirements{
			QuestAddress: m.Memo.QuestAddress,
			RequiredMemo: m.Memo.RequiredMemo,
		}
	case m.Quiz != nil:
		v.QuestionCount = len(m.Quiz.Questions)
	}
	return v
}

// NewQuestionView projects a question for clients.
func NewQuestionView(q Question) QuestionView {
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
	}
}
