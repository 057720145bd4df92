// Package recognition decides what happens to each face found in a frame:
// which identity it is, whether attendance gets marked and how it is labeled.
package recognition

import (
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/matcher"
	"github.com/amirhossein5/efl/attendance/internal/models"
)

type Outcome string

const (
	OutcomeMarked        Outcome = "marked"
	OutcomeAlreadyMarked Outcome = "already-marked"
	OutcomeUnrecognized  Outcome = "unrecognized"
)

const (
	LabelAlreadyMarked = "Already marked present"
	LabelUnrecognized  = "Cannot recognize you"
)

var outcomeColors = map[Outcome]color.RGBA{
	OutcomeMarked:        {R: 0, G: 255, B: 0, A: 0},
	OutcomeAlreadyMarked: {R: 255, G: 191, B: 0, A: 0},
	OutcomeUnrecognized:  {R: 255, G: 0, B: 0, A: 0},
}

// Color is the box and label color for o.
func (o Outcome) Color() color.RGBA {
	return outcomeColors[o]
}

// Marker records attendance. alreadyMarked is true when name was marked
// earlier the same day.
type Marker interface {
	Mark(name string) (alreadyMarked bool, err error)
}

// Annotation is what gets drawn for one face.
type Annotation struct {
	Rect     image.Rectangle
	Label    string
	Outcome  Outcome
	Name     string
	Distance float64
}

// Event is emitted for every recognized face.
type Event struct {
	Name    string    `json:"name"`
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// Processor turns detected faces into annotations, marking attendance for
// recognized ones.
type Processor struct {
	table     *matcher.Table
	marker    Marker
	tolerance float64
	logger    *slog.Logger
	now       func() time.Time
	onEvent   func(Event)

	// announced maps a name to the day of its last event.
	announced map[string]string
}

type Option func(*Processor)

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithEvents registers fn to receive an Event for every fresh mark, and at
// most one already-marked Event per name and day.
func WithEvents(fn func(Event)) Option {
	return func(p *Processor) { p.onEvent = fn }
}

func NewProcessor(table *matcher.Table, marker Marker, tolerance float64, opts ...Option) *Processor {
	p := &Processor{
		table:     table,
		marker:    marker,
		tolerance: tolerance,
		logger:    slog.Default(),
		now:       time.Now,
		announced: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles every face of one frame independently.
func (p *Processor) Process(faces []models.DetectedFace) []Annotation {
	annotations := make([]Annotation, 0, len(faces))
	for _, f := range faces {
		annotations = append(annotations, p.processFace(f))
	}
	return annotations
}

func (p *Processor) processFace(f models.DetectedFace) Annotation {
	unrecognized := Annotation{
		Rect:    f.Rect,
		Label:   LabelUnrecognized,
		Outcome: OutcomeUnrecognized,
	}

	res := p.table.Match(f.Descriptor, p.tolerance)
	if !res.Found {
		return unrecognized
	}
	unrecognized.Distance = res.Distance
	if !res.Accepted {
		return unrecognized
	}

	name := res.Identity.Name
	alreadyMarked, err := p.marker.Mark(name)
	if err != nil {
		p.logger.Error("failed to mark attendance", "name", name, "error", err)
		return unrecognized
	}

	a := Annotation{
		Rect:     f.Rect,
		Label:    name,
		Outcome:  OutcomeMarked,
		Name:     name,
		Distance: res.Distance,
	}
	if alreadyMarked {
		a.Label = LabelAlreadyMarked
		a.Outcome = OutcomeAlreadyMarked
	} else {
		p.logger.Info("marked present", "name", name, "distance", res.Distance)
	}

	p.announce(name, a.Outcome)
	return a
}

func (p *Processor) announce(name string, outcome Outcome) {
	if p.onEvent == nil {
		return
	}

	now := p.now()
	day := now.Format(models.DayLayout)
	if outcome == OutcomeAlreadyMarked && p.announced[name] == day {
		return
	}
	p.announced[name] = day

	p.onEvent(Event{Name: name, Outcome: outcome, At: now})
}
