package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mabletask/tracker/models"
)

func TestTargetIDPrefersIdentityAttrs(t *testing.T) {
	s := newFakeSurface("input", map[string]string{"data-track-id": "title-field", "id": "f1"})
	assert.Equal(t, "title-field", TargetID(s))

	s = newFakeSurface("input", map[string]string{"id": "f1", "name": "email"})
	assert.Equal(t, "f1", TargetID(s))

	s = newFakeSurface("input", map[string]string{"name": "email"})
	assert.Equal(t, "email", TargetID(s))
}

func TestTargetIDStructuralPathIsBounded(t *testing.T) {
	// body > div > section > textarea, all without identity attributes. The
	// path keeps only the deepest three segments.
	body := newFakeSurface("body", nil)
	div := newFakeSurface("div", nil)
	div.parent = body
	section := newFakeSurface("section", nil)
	section.parent = div
	section.sibling = 2
	area := newFakeSurface("textarea", nil)
	area.parent = section

	assert.Equal(t, "div/section.2/textarea", TargetID(area))
}

func TestNormalizeSnapshotsSurfaceState(t *testing.T) {
	s := newFakeSurface("textarea", map[string]string{"id": "body-field"})
	s.text = "hello world"
	s.cursor = 5
	s.selStart = 0
	s.selEnd = 5

	ev := Normalize(Signal{Kind: SignalKeyDown, Key: "d"}, s)

	assert.Equal(t, models.EventKeyDown, ev.Kind)
	assert.Equal(t, "body-field", ev.TargetID)
	assert.Equal(t, "d", ev.Key)
	assert.Equal(t, "hello world", ev.TextAfter)
	require.NotNil(t, ev.CursorPos)
	assert.Equal(t, 5, *ev.CursorPos)
	require.NotNil(t, ev.Selection)
	assert.Equal(t, models.SelectionRange{Start: 0, End: 5}, *ev.Selection)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNormalizeSwallowsExtractionErrors(t *testing.T) {
	s := newFakeSurface("input", map[string]string{"id": "broken"})
	s.failExtract = true

	// must not panic and must still produce an event with empty fields
	ev := Normalize(Signal{Kind: SignalFocus}, s)

	assert.Equal(t, models.EventFocus, ev.Kind)
	assert.Equal(t, "broken", ev.TargetID)
	assert.Empty(t, ev.TextAfter)
	assert.Nil(t, ev.CursorPos)
	assert.Nil(t, ev.Selection)
}

func TestNormalizeOmitsEmptySelection(t *testing.T) {
	s := newFakeSurface("input", map[string]string{"id": "f"})
	ev := Normalize(Signal{Kind: SignalKeyUp}, s)
	assert.Nil(t, ev.Selection)
}
