package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_InsertionOrder(t *testing.T) {
	c := Default()

	var ids []string
	for _, m := range c.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4", "m5"}, ids)

	// Stable across calls
	again := c.List()
	for i := range again {
		assert.Equal(t, ids[i], again[i].ID)
	}
}

func TestGet(t *testing.T) {
	c := Default()

	m, err := c.Get("m0")
	require.NoError(t, err)
	assert.Equal(t, MethodGeofence, m.Method)
	assert.Equal(t, int64(40413000), m.Geofence.LatMin)

	for _, id := range []string{"missing", "", "../etc/passwd", "m0 ", "💥"} {
		_, err := c.Get(id)
		assert.True(t, errors.Is(err, ErrNotFound), "id %q", id)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := Default()

	m, err := c.Get("m5")
	require.NoError(t, err)
	m.Quiz.Questions[0].CorrectIndex = 3
	m.Quiz.Questions[0].Options[0] = "tampered"

	fresh, err := c.Get("m5")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Quiz.Questions[0].CorrectIndex)
	assert.Equal(t, "ETH", fresh.Quiz.Questions[0].Options[0])
}

func TestViews_Redacted(t *testing.T) {
	c := Default()

	data, err := json.Marshal(c.Views())
	require.NoError(t, err)
	body := string(data)

	assert.NotContains(t, body, "40413000")
	assert.NotContains(t, body, "latMin")
	assert.NotContains(t, body, "correct")
	assert.Contains(t, body, "ZK-TRAILS-QUEST")
	assert.Contains(t, body, "Madrid Central")

	v, err := c.View("m5")
	require.NoError(t, err)
	assert.Equal(t, 5, v.QuestionCount)
}

func TestQuestions(t *testing.T) {
	c := Default()

	qs, err := c.Questions("m5")
	require.NoError(t, err)
	require.Len(t, qs, 5)
	assert.Equal(t, "q1", qs[0].ID)

	data, err := json.Marshal(qs)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "orrect")

	_, err = c.Questions("m0")
	assert.True(t, errors.Is(err, ErrNotQuiz))

	_, err = c.Questions("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNew_RejectsInvalid(t *testing.T) {
	geofence := func() Mission {
		return Mission{
			ID: "g", Kind: KindPhysical, Method: MethodGeofence,
			Geofence: &GeofenceParams{LatMin: 1, LatMax: 2, LonMin: 1, LonMax: 2},
		}
	}

	tests := []struct {
		name   string
		mutate func(m *Mission)
	}{
		{"missing id", func(m *Mission) { m.ID = "" }},
		{"inverted bounds", func(m *Mission) { m.Geofence.LatMin = 3 }},
		{"wrong kind", func(m *Mission) { m.Kind = KindOnline }},
		{"two parameter sets", func(m *Mission) { m.Memo = &MemoParams{RequiredMemo: "x"} }},
		{"no parameter set", func(m *Mission) { m.Geofence = nil }},
		{"unknown method", func(m *Mission) { m.Method = "teleport" }},
		{"negative reward", func(m *Mission) { m.Reward = -1 }},
		{"reward above u32", func(m *Mission) { m.Reward = MaxReward + 1 }},
		{"unknown difficulty", func(m *Mission) { m.Difficulty = "TRIVIAL" }},
		{"quiz without questions", func(m *Mission) {
			m.Kind, m.Method, m.Geofence, m.Quiz = KindOnline, MethodQuiz, nil, &QuizParams{}
		}},
		{"quiz index out of range", func(m *Mission) {
			m.Kind, m.Method, m.Geofence = KindOnline, MethodQuiz, nil
			m.Quiz = &QuizParams{Questions: []Question{{ID: "q", Options: []string{"a"}, CorrectIndex: 1}}}
		}},
		{"quiz duplicate question", func(m *Mission) {
			m.Kind, m.Method, m.Geofence = KindOnline, MethodQuiz, nil
			m.Quiz = &QuizParams{Questions: []Question{
				{ID: "q", Options: []string{"a"}},
				{ID: "q", Options: []string{"a"}},
			}}
		}},
		{"memo without memo", func(m *Mission) {
			m.Kind, m.Method, m.Geofence, m.Memo = KindOnline, MethodMemoTransaction, nil, &MemoParams{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := geofence()
			tt.mutate(&m)
			_, err := New("1.0.0", []Mission{m})
			assert.True(t, errors.Is(err, ErrInvalidMission), "got %v", err)
		})
	}
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	ms := DefaultMissions()
	ms = append(ms, ms[0])
	_, err := New("1.0.0", ms)
	assert.True(t, errors.Is(err, ErrInvalidMission))
}

func TestMethod_IsLedger(t *testing.T) {
	assert.True(t, MethodSwapTransaction.IsLedger())
	assert.True(t, MethodMemoTransaction.IsLedger())
	assert.False(t, MethodQuiz.IsLedger())
	assert.False(t, MethodGeofence.IsLedger())
}
