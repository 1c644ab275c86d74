package browser

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginSnapshot() *Snapshot {
	return &Snapshot{
		URL:   "https://example.com/login",
		Title: "Login",
		Tabs:  []Tab{{PageID: 0, URL: "https://example.com/login"}},
		Elements: []Element{
			{Index: 0, Text: "Welcome back"},
			{Index: 1, Tag: "input", Attributes: []Attribute{{Name: "type", Value: "text"}, {Name: "data-x", Value: "ignored"}}},
			{Index: 2, Tag: "button", Text: "Submit"},
		},
	}
}

func TestClickableElementsToString(t *testing.T) {
	snap := loginSnapshot()

	got := snap.ClickableElementsToString([]string{"type"})
	assert.Equal(t, "_[:]Welcome back\n1[:]<input type=\"text\"></input>\n2[:]<button>Submit</button>", got)

	all := snap.ClickableElementsToString(nil)
	assert.Contains(t, all, `data-x="ignored"`)
}

func TestClickableElementsToString_Empty(t *testing.T) {
	assert.Equal(t, "", (&Snapshot{}).ClickableElementsToString(nil))
	var nilSnap *Snapshot
	assert.Equal(t, "", nilSnap.ClickableElementsToString(nil))
}

func TestSelectorMapAndHasIndex(t *testing.T) {
	snap := loginSnapshot()

	m := snap.SelectorMap()
	require.Len(t, m, 2)
	assert.Equal(t, "button", m[2].Tag)

	assert.True(t, snap.HasIndex(1))
	assert.True(t, snap.HasIndex(2))
	assert.False(t, snap.HasIndex(0), "text rows are not addressable")
	assert.False(t, snap.HasIndex(7))
}

func TestFingerprint(t *testing.T) {
	base := loginSnapshot()
	fp := base.Fingerprint()
	assert.Equal(t, fp, loginSnapshot().Fingerprint(), "fingerprint is deterministic")

	typed := loginSnapshot()
	typed.Elements[1].Attributes = append(typed.Elements[1].Attributes, Attribute{Name: "value", Value: "hi"})
	assert.Equal(t, fp, typed.Fingerprint(), "typing into a field keeps the structure")

	dropdown := loginSnapshot()
	dropdown.Elements = append(dropdown.Elements, Element{Index: 3, Tag: "li", Text: "hi there"})
	assert.NotEqual(t, fp, dropdown.Fingerprint())

	navigated := loginSnapshot()
	navigated.URL = "https://example.com/home"
	assert.NotEqual(t, fp, navigated.Fingerprint())

	newTab := loginSnapshot()
	newTab.Tabs = append(newTab.Tabs, Tab{PageID: 1})
	assert.NotEqual(t, fp, newTab.Fingerprint())
}

func TestDecodeScriptResult(t *testing.T) {
	raw := `{"url":"https://example.com","title":"Example","pixels_above":0,"pixels_below":1200,` +
		`"elements":[{"index":1,"tag":"a","attrs":[{"name":"title","value":"More"}],"text":"More information"}]}`

	res, err := decodeScriptResult(raw)
	require.NoError(t, err)
	snap := res.toSnapshot()
	assert.Equal(t, "https://example.com", snap.URL)
	assert.Equal(t, 1200, snap.PixelsBelow)
	require.Len(t, snap.Elements, 1)
	v, ok := snap.Elements[0].Attr("title")
	assert.True(t, ok)
	assert.Equal(t, "More", v)

	_, err = decodeScriptResult(42)
	assert.Error(t, err)
	_, err = decodeScriptResult("{not json")
	assert.Error(t, err)
}

func TestScrollExpression(t *testing.T) {
	assert.Equal(t, "window.scrollBy(0, window.innerHeight)", scrollExpression(false, 0))
	assert.Equal(t, "window.scrollBy(0, -window.innerHeight)", scrollExpression(true, 0))
	assert.Equal(t, "window.scrollBy(0, -300)", scrollExpression(true, 300))
}

func TestParseKeyCombo(t *testing.T) {
	key, mods := parseKeyCombo("Enter")
	assert.Equal(t, kb.Enter, key)
	assert.Empty(t, mods)

	key, mods = parseKeyCombo("Control+a")
	assert.Equal(t, "a", key)
	assert.Equal(t, []input.Modifier{input.ModifierCtrl}, mods)

	key, mods = parseKeyCombo("Shift+Tab")
	assert.Equal(t, kb.Tab, key)
	assert.Equal(t, []input.Modifier{input.ModifierShift}, mods)
}
