package recognition

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/matcher"
	"github.com/amirhossein5/efl/attendance/internal/models"
	"github.com/stretchr/testify/require"
)

type memoryMarker struct {
	marked map[string]bool
	calls  []string
	err    error
}

func (m *memoryMarker) Mark(name string) (bool, error) {
	m.calls = append(m.calls, name)
	if m.err != nil {
		return false, m.err
	}
	if m.marked == nil {
		m.marked = make(map[string]bool)
	}
	if m.marked[name] {
		return true, nil
	}
	m.marked[name] = true
	return false, nil
}

const tolerance = 0.6

func descriptor(v float32) models.Descriptor {
	var d models.Descriptor
	d[0] = v
	return d
}

func face(v float32) models.DetectedFace {
	return models.DetectedFace{
		Rect:       image.Rect(10, 20, 110, 120),
		Descriptor: descriptor(v),
	}
}

func testTable() *matcher.Table {
	return matcher.NewTable([]matcher.Identity{
		{Name: "alice", Descriptor: descriptor(0)},
		{Name: "bob", Descriptor: descriptor(5)},
	})
}

func TestProcessMarksThenReportsAlreadyMarked(t *testing.T) {
	marker := &memoryMarker{}
	p := NewProcessor(testTable(), marker, tolerance)

	got := p.Process([]models.DetectedFace{face(0.1)})
	require.Len(t, got, 1)
	require.Equal(t, OutcomeMarked, got[0].Outcome)
	require.Equal(t, "alice", got[0].Label)
	require.Equal(t, image.Rect(10, 20, 110, 120), got[0].Rect)

	got = p.Process([]models.DetectedFace{face(0.1)})
	require.Equal(t, OutcomeAlreadyMarked, got[0].Outcome)
	require.Equal(t, LabelAlreadyMarked, got[0].Label)
	require.Equal(t, "alice", got[0].Name)

	require.Equal(t, []string{"alice", "alice"}, marker.calls)
}

func TestProcessUnrecognizedBeyondTolerance(t *testing.T) {
	marker := &memoryMarker{}
	p := NewProcessor(testTable(), marker, tolerance)

	got := p.Process([]models.DetectedFace{face(2.5)})
	require.Equal(t, OutcomeUnrecognized, got[0].Outcome)
	require.Equal(t, LabelUnrecognized, got[0].Label)
	require.InDelta(t, 2.5, got[0].Distance, 1e-6)
	require.Empty(t, marker.calls)
}

func TestProcessEmptyTable(t *testing.T) {
	marker := &memoryMarker{}
	p := NewProcessor(matcher.NewTable(nil), marker, tolerance)

	got := p.Process([]models.DetectedFace{face(0), face(5)})
	require.Len(t, got, 2)
	for _, a := range got {
		require.Equal(t, OutcomeUnrecognized, a.Outcome)
	}
	require.Empty(t, marker.calls)
}

func TestProcessEachFaceIndependently(t *testing.T) {
	marker := &memoryMarker{}
	p := NewProcessor(testTable(), marker, tolerance)

	got := p.Process([]models.DetectedFace{face(0), face(5.2), face(2.5)})
	require.Equal(t, []Outcome{OutcomeMarked, OutcomeMarked, OutcomeUnrecognized},
		[]Outcome{got[0].Outcome, got[1].Outcome, got[2].Outcome})
	require.Equal(t, "bob", got[1].Label)
}

func TestProcessMarkError(t *testing.T) {
	marker := &memoryMarker{err: errors.New("read-only filesystem")}
	p := NewProcessor(testTable(), marker, tolerance)

	got := p.Process([]models.DetectedFace{face(0)})
	require.Equal(t, OutcomeUnrecognized, got[0].Outcome)
}

func TestProcessEvents(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var events []Event
	p := NewProcessor(testTable(), &memoryMarker{}, tolerance,
		WithClock(func() time.Time { return at }),
		WithEvents(func(e Event) { events = append(events, e) }),
	)

	p.Process([]models.DetectedFace{face(0), face(0), face(3)})

	require.Equal(t, []Event{
		{Name: "alice", Outcome: OutcomeMarked, At: at},
	}, events)
}

func TestProcessAlreadyMarkedEventOncePerDay(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	marker := &memoryMarker{marked: map[string]bool{"alice": true}}
	var events []Event
	p := NewProcessor(testTable(), marker, tolerance,
		WithClock(func() time.Time { return at }),
		WithEvents(func(e Event) { events = append(events, e) }),
	)

	for i := 0; i < 30; i++ {
		got := p.Process([]models.DetectedFace{face(0)})
		require.Equal(t, OutcomeAlreadyMarked, got[0].Outcome)
	}
	require.Equal(t, []Event{
		{Name: "alice", Outcome: OutcomeAlreadyMarked, At: at},
	}, events)

	at = at.AddDate(0, 0, 1)
	p.Process([]models.DetectedFace{face(0)})
	require.Len(t, events, 2)
	require.Equal(t, at, events[1].At)
}

func TestOutcomeColorsDiffer(t *testing.T) {
	require.NotEqual(t, OutcomeMarked.Color(), OutcomeAlreadyMarked.Color())
	require.NotEqual(t, OutcomeMarked.Color(), OutcomeUnrecognized.Color())
	require.NotEqual(t, OutcomeAlreadyMarked.Color(), OutcomeUnrecognized.Color())
}
