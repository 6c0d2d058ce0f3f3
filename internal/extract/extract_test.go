package extract

import (
	"strings"
	"testing"
)

func TestFromHTML_SkipsBoilerplate(t *testing.T) {
	html := `<!doctype html>
    <html>
      <head><title>Test Page</title></head>
      <body>
        <nav>Nav should be ignored</nav>
        <div id="cookie-banner">We use cookies</div>
        <main>
          <h1>Main Heading</h1>
          <p>This is the main content paragraph.</p>
        </main>
        <script>var tracking = 1;</script>
        <footer>Footer text</footer>
      </body>
    </html>`

	doc := FromHTML([]byte(html))
	if doc.Title != "Test Page" {
		t.Fatalf("expected title 'Test Page', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Main Heading") || !strings.Contains(doc.Text, "This is the main content paragraph.") {
		t.Fatalf("expected main content, got %q", doc.Text)
	}
	for _, unwanted := range []string{"Nav should be ignored", "Footer text", "We use cookies", "tracking"} {
		if strings.Contains(doc.Text, unwanted) {
			t.Fatalf("did not expect %q in extracted content", unwanted)
		}
	}
}

func TestFromHTML_ListItemsAsBullets(t *testing.T) {
	html := `<html><head><title>List</title></head><body>
        <h3>Missions</h3>
        <ul>
          <li>First item</li>
          <li>Second   item</li>
        </ul></body></html>`

	doc := FromHTML([]byte(html))
	if !strings.Contains(doc.Text, "\n- First item\n") || !strings.HasSuffix(doc.Text, "\n- Second item") {
		t.Fatalf("expected bullet lines; got: %q", doc.Text)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld again", 12); got != "héllo wörld" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("Truncate short = %q", got)
	}
}
