package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCodeFullDocument(t *testing.T) {
	reply := "Here you go:\n```html\n<!DOCTYPE html><html></html>\n```\nEnjoy!"
	ex := ExtractCode(reply)

	assert.True(t, ex.Found)
	assert.Equal(t, UpdateFull, ex.Kind)
	assert.Equal(t, "<!DOCTYPE html><html></html>", ex.Code)
	assert.Equal(t, "Here you go:\n\nEnjoy!", ex.Display)
}

func TestExtractCodeNoFence(t *testing.T) {
	for _, reply := range []string{
		"",
		"Sure, I can explain how the pendulum works.",
		"  leading and trailing space  ",
	} {
		ex := ExtractCode(reply)
		assert.False(t, ex.Found)
		assert.Equal(t, UpdateNone, ex.Kind)
		assert.Equal(t, reply, ex.Display)
	}
}

func TestExtractCodeUntaggedFenceIsIgnored(t *testing.T) {
	reply := "Try this:\n```\n<html><body></body></html>\n```"
	ex := ExtractCode(reply)

	assert.False(t, ex.Found)
	assert.Equal(t, reply, ex.Display)
}

func TestExtractCodePartial(t *testing.T) {
	reply := "Change the color:\n```css\nbody { background: #000; }\n```"
	ex := ExtractCode(reply)

	assert.True(t, ex.Found)
	assert.Equal(t, UpdatePartial, ex.Kind)
	assert.Equal(t, "body { background: #000; }", ex.Code)
	assert.Equal(t, "Change the color:", ex.Display)
}

func TestExtractCodeFirstTaggedBlockWins(t *testing.T) {
	reply := "```python\nprint(1)\n```\nfirst:\n```javascript\nconst a = 1;\n```\nsecond:\n```html\n<html></html>\n```\ndone"
	ex := ExtractCode(reply)

	assert.True(t, ex.Found)
	assert.Equal(t, "const a = 1;", ex.Code)
	assert.Equal(t, UpdatePartial, ex.Kind)
	assert.NotContains(t, ex.Display, "```")
	assert.NotContains(t, ex.Display, "print(1)")
	assert.NotContains(t, ex.Display, "<html>")
	assert.Contains(t, ex.Display, "first:")
	assert.Contains(t, ex.Display, "done")
}

func TestExtractCodeCaseInsensitiveMarker(t *testing.T) {
	ex := ExtractCode("```html\n<!doctype HTML>\n<HTML><body></body></HTML>\n```")
	assert.Equal(t, UpdateFull, ex.Kind)
}

func TestExtractCodeEmptyBody(t *testing.T) {
	ex := ExtractCode("```html```")

	assert.True(t, ex.Found)
	assert.Equal(t, "", ex.Code)
	assert.Equal(t, UpdatePartial, ex.Kind)
	assert.Equal(t, "", ex.Display)
}

func TestDisplayTextFallsBackWhenOnlyCode(t *testing.T) {
	assert.Equal(t, codeOnlyReply, displayText("```html\n<html></html>\n```"))
	assert.Equal(t, codeOnlyReply, displayText("   \n"))
	assert.Equal(t, "ok", displayText("ok\n```js\nx()\n```"))
}

func TestDisplayTextStripsStrayFence(t *testing.T) {
	assert.Equal(t, "half open", displayText("half open ```"))
}
