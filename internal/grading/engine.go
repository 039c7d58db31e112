package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Key is the canonical answer key of one question as the store holds it.
// Known is false when the submitted id does not resolve to a question of the
// submitted exam (deleted, never existed, or from another exam).
type Key struct {
	Known        bool
	Type         string
	CorrectIndex int
}

// Answer is one detail record of a submission. Type is the client-declared
// question type; it decides the strategy and whether the record counts
// toward the maximum.
type Answer struct {
	QuestionID int64
	Type       string
	Selected   json.RawMessage
}

// Result is the outcome of grading a single answer.
type Result struct {
	AutoPoints  int      // points awarded automatically
	MaxPoints   int      // contribution to max_score
	NeedsManual bool     // true if an examiner must review the answer
	Feedback    []string // optional notes
}

// Strategy grades a single answer.
type Strategy interface {
	Grade(ctx context.Context, k Key, a Answer) (Result, error)
}

// Grader routes by answer type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, k Key, a Answer) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, k Key, a Answer) (Result, error) {
	s, ok := g.strategies[a.Type]
	if !ok {
		return Result{NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, k, a)
}

type Option func(*config)

type config struct {
	extra map[string]Strategy
}

// WithStrategy installs or replaces the strategy for an answer type.
func WithStrategy(typ string, s Strategy) Option {
	return func(c *config) { c.extra[typ] = s }
}

// NewDefaultGrader installs the built-in objective and theory strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{extra: map[string]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	strategies := map[string]Strategy{
		"objective": objectiveStrategy{},
		"theory":    theoryStrategy{},
	}
	for typ, s := range cfg.extra {
		strategies[typ] = s
	}
	return &defaultGrader{strategies: strategies}
}

// --- Strategies ---

// objectiveStrategy: one point max; one point when the selected option index
// equals the stored correct index. Unknown questions and questions stored as
// theory still count toward the maximum but can never score.
type objectiveStrategy struct{}

func (objectiveStrategy) Grade(_ context.Context, k Key, a Answer) (Result, error) {
	res := Result{MaxPoints: 1}
	if !k.Known {
		res.Feedback = append(res.Feedback, "unknown question")
		return res, nil
	}
	if k.Type != "objective" {
		res.Feedback = append(res.Feedback, "question is not objective")
		return res, nil
	}
	sel, ok := Integral(a.Selected)
	if !ok {
		return res, nil
	}
	if sel == int64(k.CorrectIndex) {
		res.AutoPoints = 1
	}
	return res, nil
}

type theoryStrategy struct{}

func (theoryStrategy) Grade(_ context.Context, _ Key, _ Answer) (Result, error) {
	return Result{NeedsManual: true, Feedback: []string{"manual grading required"}}, nil
}

// --- Answer decoding ---

// ParseAnswer reads one detail record. Records that are not objects decode to
// an Answer with an empty Type, which no strategy scores.
func ParseAnswer(raw json.RawMessage) Answer {
	var rec struct {
		ID       json.RawMessage `json:"id"`
		Type     string          `json:"type"`
		Selected json.RawMessage `json:"selected"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Answer{}
	}
	id, _ := Integral(rec.ID)
	return Answer{QuestionID: id, Type: rec.Type, Selected: rec.Selected}
}

// Integral decodes a JSON integer or a numeric string holding an integer.
// null, absent, fractional, boolean and other values report false.
func Integral(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int64(f), true
}

// Tally grades every answer against its key and sums the points. keys is
// indexed by question id; ids missing from it grade as unknown.
func Tally(ctx context.Context, g Grader, keys map[int64]Key, answers []Answer) (score, maxScore int, err error) {
	for _, a := range answers {
		res, err := g.Grade(ctx, keys[a.QuestionID], a)
		if err != nil {
			return 0, 0, err
		}
		score += res.AutoPoints
		maxScore += res.MaxPoints
	}
	return score, maxScore, nil
}
