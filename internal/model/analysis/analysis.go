package analysis

// MaxMessageLength bounds the text accepted for a single analysis, in code points.
const MaxMessageLength = 2000

// Sentiment is the overall polarity the model assigns to a text.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Valid reports whether s is one of the three known labels. Matching is case-sensitive.
func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	default:
		return false
	}
}

// Request is the inbound payload of POST /api/generate.
type Request struct {
	Message string `json:"message"`
}

// Insight is a single titled observation about the analysed text.
type Insight struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Result is a fully validated analysis. Values are only produced by the
// response validator and are treated as read-only afterwards.
type Result struct {
	Summary     string    `json:"summary"`
	Sentiment   Sentiment `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	Mood        string    `json:"mood"`
	Tone        string    `json:"tone"`
	Highlights  []Insight `json:"highlights"`
	Suggestions []string  `json:"suggestions"`
}
