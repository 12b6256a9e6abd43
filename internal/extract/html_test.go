package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const pageWithWrappers = `<html>
<head><title>Deployment Guide</title></head>
<body>
<nav>Home | Docs | About</nav>
<article id="_content">
  <header>breadcrumbs</header>
  <div class="section h2-container">
    <h2>Getting Started</h2>
    <p>Install the agent first.</p>
    <p>Then configure credentials.</p>
  </div>
  <div class="section h2-container">
    <h2>Troubleshooting</h2>
    <p>Check the service logs.</p>
  </div>
  <footer>copyright</footer>
</article>
</body></html>`

const pageWithHeadings = `<html>
<head><title>Runbook</title></head>
<body>
<article id="_content">
  <h2>Rollout</h2>
  <p>Push to the canary region.</p>
  <p>Wait for health checks.</p>
  <h2>Rollback</h2>
  <p>Revert to the previous build.</p>
</article>
</body></html>`

func TestHTMLExtractor_Extract(t *testing.T) {
	e := NewHTMLExtractor()

	t.Run("Title From Head", func(t *testing.T) {
		c, err := e.Extract(pageWithWrappers)
		assert.NoError(t, err)
		assert.Equal(t, "Deployment Guide", c.Title)
	})

	t.Run("Main Text Excludes Navigation", func(t *testing.T) {
		c, err := e.Extract(pageWithWrappers)
		assert.NoError(t, err)
		assert.Contains(t, c.MainText, "Install the agent first.")
		assert.NotContains(t, c.MainText, "Home | Docs")
		assert.NotContains(t, c.MainText, "breadcrumbs")
		assert.NotContains(t, c.MainText, "copyright")
	})

	t.Run("Wrapper Sections", func(t *testing.T) {
		c, err := e.Extract(pageWithWrappers)
		assert.NoError(t, err)
		assert.Len(t, c.Sections, 2)

		assert.Equal(t, "Getting Started", c.Sections[0].Title)
		assert.Contains(t, c.Sections[0].Content, "Install the agent first.")
		assert.NotContains(t, c.Sections[0].Content, "Getting Started")

		assert.Equal(t, "Troubleshooting", c.Sections[1].Title)
		assert.Contains(t, c.Sections[1].Content, "Check the service logs.")
	})

	t.Run("Heading Sections", func(t *testing.T) {
		c, err := e.Extract(pageWithHeadings)
		assert.NoError(t, err)
		assert.Len(t, c.Sections, 2)
		assert.Equal(t, "Rollout", c.Sections[0].Title)
		assert.Contains(t, c.Sections[0].Content, "Push to the canary region.")
		assert.Contains(t, c.Sections[0].Content, "Wait for health checks.")
		assert.NotContains(t, c.Sections[0].Content, "Revert")
		assert.Equal(t, "Rollback", c.Sections[1].Title)
	})

	t.Run("Container Without Headings Is One Untitled Section", func(t *testing.T) {
		page := `<html><body><article id="_content"><p>Only text.</p></article></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)
		assert.Len(t, c.Sections, 1)
		assert.Equal(t, "Untitled Section", c.Sections[0].Title)
		assert.Equal(t, "Only text.", c.Sections[0].Content)
	})

	t.Run("No Container Falls Back To Paragraphs", func(t *testing.T) {
		page := `<html><body><p>First.</p><p>Second.</p><p>  </p></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)

		assert.Equal(t, "First.\nSecond.", c.MainText)
		assert.Len(t, c.Sections, 2)
		assert.Equal(t, "Section 1", c.Sections[0].Title)
		assert.Equal(t, "First.", c.Sections[0].Content)
		assert.Equal(t, "Section 2", c.Sections[1].Title)
	})

	t.Run("No Paragraphs Falls Back To Full Text", func(t *testing.T) {
		page := `<html><body><div>bare div text</div></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)
		assert.Contains(t, c.MainText, "bare div text")
		assert.Len(t, c.Sections, 1)
		assert.Equal(t, "Untitled Section", c.Sections[0].Title)
	})

	t.Run("Empty Sections Dropped", func(t *testing.T) {
		page := `<html><body><article id="_content">
		  <div class="h2-container"><h2>Empty One</h2></div>
		  <div class="h2-container"><h2>Kept</h2><p>body text</p></div>
		</article></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)
		assert.Len(t, c.Sections, 1)
		assert.Equal(t, "Kept", c.Sections[0].Title)
	})

	t.Run("Wrapper Without Heading Gets Positional Title", func(t *testing.T) {
		page := `<html><body><article id="_content">
		  <div class="h2-container"><p>anonymous content</p></div>
		</article></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)
		assert.Len(t, c.Sections, 1)
		assert.Equal(t, "Section 1", c.Sections[0].Title)
	})

	t.Run("Script And Style Excluded", func(t *testing.T) {
		page := `<html><body><article id="_content">
		  <script>var x = 1;</script>
		  <style>.a{}</style>
		  <p>visible</p>
		</article></body></html>`
		c, err := e.Extract(page)
		assert.NoError(t, err)
		assert.NotContains(t, c.MainText, "var x")
		assert.NotContains(t, c.MainText, ".a{}")
		assert.Contains(t, c.MainText, "visible")
	})

	t.Run("Empty Document", func(t *testing.T) {
		c, err := e.Extract("")
		assert.NoError(t, err)
		assert.True(t, c.Empty())
	})
}

func TestContent_Empty(t *testing.T) {
	assert.True(t, (&Content{}).Empty())
	assert.True(t, (&Content{MainText: "  \n "}).Empty())
	assert.False(t, (&Content{MainText: "text"}).Empty())
	assert.False(t, (&Content{Sections: []Section{{Title: "t", Content: "c"}}}).Empty())
}
