// Package render draws analysis cards and transcript bubbles for terminals.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/model/chat"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiGreen = "\x1b[32m"
	ansiGrey  = "\x1b[90m"
	ansiRed   = "\x1b[31m"
)

// Options controls terminal output.
type Options struct {
	Color bool
}

type palette struct {
	label string
	color string
}

var palettes = map[analysis.Sentiment]palette{
	analysis.Positive: {label: "Positive", color: ansiGreen},
	analysis.Neutral:  {label: "Neutral", color: ansiGrey},
	analysis.Negative: {label: "Negative", color: ansiRed},
}

// SentimentLabel returns the display label for s.
func SentimentLabel(s analysis.Sentiment) string {
	if p, ok := palettes[s]; ok {
		return p.label
	}
	return string(s)
}

// ConfidencePercent formats confidence as a whole percentage.
func ConfidencePercent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence*100)))
}

// FormatTimestamp renders t as h:mm AM/PM in its own location.
func FormatTimestamp(t time.Time) string {
	return t.Format("3:04 PM")
}

// SpeakerLabel names the author of a transcript bubble.
func SpeakerLabel(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "Astra (AI)"
}

func (o Options) paint(color, text string) string {
	if !o.Color || color == "" {
		return text
	}
	return color + text + ansiReset
}

// Card writes the analysis card for result.
func Card(w io.Writer, result analysis.Result, opts Options) error {
	var b strings.Builder

	p := palettes[result.Sentiment]
	fmt.Fprintf(&b, "%s %s\n",
		opts.paint(ansiBold+p.color, SentimentLabel(result.Sentiment)),
		opts.paint(ansiGrey, ConfidencePercent(result.Confidence)+" confidence"))
	fmt.Fprintf(&b, "%s\n", result.Summary)
	fmt.Fprintf(&b, "Tone: %s  Mood: %s\n", result.Tone, result.Mood)

	b.WriteString("\n" + opts.paint(ansiBold, "Highlights") + "\n")
	for _, h := range result.Highlights {
		fmt.Fprintf(&b, "  - %s: %s\n", opts.paint(ansiBold, h.Title), h.Detail)
	}

	b.WriteString("\n" + opts.paint(ansiBold, "Suggestions") + "\n")
	for i, s := range result.Suggestions {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Bubble writes one transcript entry. Assistant entries carrying an analysis
// are followed by its card.
func Bubble(w io.Writer, msg chat.Message, opts Options) error {
	header := fmt.Sprintf("%s  %s", opts.paint(ansiBold, SpeakerLabel(msg.Role)), opts.paint(ansiGrey, FormatTimestamp(msg.CreatedAt)))
	if _, err := fmt.Fprintf(w, "%s\n", header); err != nil {
		return err
	}

	if msg.Analysis != nil {
		return Card(w, *msg.Analysis, opts)
	}
	_, err := fmt.Fprintf(w, "%s\n", msg.Content)
	return err
}
