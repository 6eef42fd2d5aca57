package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/justyntemme/jianyue/internal/epub/epubtest"
)

const navXHTML = `<ol>
  <li><a href="Text/ch1.xhtml">One</a>
    <ol><li><a href="Text/ch1.xhtml#s2">One, part two</a></li></ol>
  </li>
  <li><span>Part II</span>
    <ol><li><a href="Text/ch%202.xhtml">Two</a></li></ol>
  </li>
</ol>`

const ncxXML = `<navPoint id="n1"><navLabel><text>One</text></navLabel><content src="Text/ch1.xhtml"/>
  <navPoint id="n2"><navLabel><text>Inner</text></navLabel><content src="Text/ch1.xhtml#s2"/></navPoint>
</navPoint>
<navPoint id="n3"><navLabel><text>Two</text></navLabel><content src="Text/ch%202.xhtml"/></navPoint>`

func fixture() epubtest.Book {
	return epubtest.Book{
		Title:  "Fixture",
		Author: "Tester",
		OPFDir: "OEBPS",
		Chapters: []epubtest.Chapter{
			{Href: "Text/ch1.xhtml", Body: `<h1>One</h1><p id="s2">Body one</p>`},
			{Href: "Text/ch%202.xhtml", Body: `<h1>Two</h1><p>Body two</p>`},
		},
	}
}

func TestOpen_Nav(t *testing.T) {
	fx := fixture()
	fx.Nav = navXHTML
	data, err := epubtest.Build(fx)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}

	b, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Title != "Fixture" || b.Author != "Tester" {
		t.Errorf("unexpected metadata %q / %q", b.Title, b.Author)
	}
	if len(b.Spine) != 2 || b.Spine[1].Href != "Text/ch%202.xhtml" {
		t.Fatalf("unexpected spine %+v", b.Spine)
	}
	if b.NavDir != "." {
		t.Errorf("expected nav dir '.', got %q", b.NavDir)
	}

	if len(b.TOC) != 2 {
		t.Fatalf("expected 2 top-level entries, got %d", len(b.TOC))
	}
	if b.TOC[0].Children[0].Href != "Text/ch1.xhtml#s2" {
		t.Errorf("nested href should be kept verbatim, got %q", b.TOC[0].Children[0].Href)
	}
	if b.TOC[1].Label != "Part II" || b.TOC[1].Href != "" {
		t.Errorf("span entry: got %+v", b.TOC[1])
	}
	if b.TOC[1].Children[0].Href != "Text/ch%202.xhtml" {
		t.Errorf("encoded href should be kept verbatim, got %q", b.TOC[1].Children[0].Href)
	}

	raw, err := b.ReadItem("Text/ch%202.xhtml")
	if err != nil {
		t.Fatalf("ReadItem: %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected chapter contents")
	}
}

func TestOpen_NCX(t *testing.T) {
	fx := fixture()
	fx.NCX = ncxXML
	data, err := epubtest.Build(fx)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	b, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(b.TOC) != 2 {
		t.Fatalf("expected 2 entries, got %+v", b.TOC)
	}
	if got := b.TOC[0].Children[0]; got.Label != "Inner" || got.Href != "Text/ch1.xhtml#s2" {
		t.Errorf("unexpected nested entry %+v", got)
	}
}

func TestOpen_NoNavigation(t *testing.T) {
	data, err := epubtest.Build(fixture())
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	b, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(b.TOC) != 0 {
		t.Errorf("expected empty toc, got %+v", b.TOC)
	}
}

func TestOpen_Invalid(t *testing.T) {
	if _, err := Open([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip data")
	}
}

func TestOpen_NoRootfile(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("META-INF/container.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`<?xml version="1.0"?><container version="1.0"><rootfiles/></container>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(buf.Bytes()); !errors.Is(err, ErrNoRootfile) {
		t.Errorf("expected ErrNoRootfile, got %v", err)
	}
}

func TestParseContent(t *testing.T) {
	doc, err := ParseContent([]byte(`<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title><style>p{}</style></head>
<body>
  <h1 id="top">Chapter <em>One</em></h1>
  <p>First para with <a href="../Text/ch%202.xhtml#b1">a link</a>.</p>
  <p id="s2">Second<br/>line</p>
  <script>x()</script>
</body></html>`))
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}

	want := []Block{
		{Text: "Chapter One", Heading: true},
		{Text: "First para with a link.", Links: []Link{{Text: "a link", Href: "../Text/ch%202.xhtml#b1"}}},
		{Text: "Second\nline"},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(doc.Blocks), doc.Blocks)
	}
	for i, w := range want {
		got := doc.Blocks[i]
		if got.Text != w.Text || got.Heading != w.Heading || len(got.Links) != len(w.Links) {
			t.Errorf("block %d: expected %+v, got %+v", i, w, got)
			continue
		}
		for j := range w.Links {
			if got.Links[j] != w.Links[j] {
				t.Errorf("block %d link %d: expected %+v, got %+v", i, j, w.Links[j], got.Links[j])
			}
		}
	}

	if i, ok := doc.Anchor("s2"); !ok || i != 2 {
		t.Errorf("expected anchor s2 at block 2, got %d ok=%v", i, ok)
	}
	if i, ok := doc.Anchor("top"); !ok || i != 0 {
		t.Errorf("expected anchor top at block 0, got %d ok=%v", i, ok)
	}
	if _, ok := doc.Anchor("missing"); ok {
		t.Error("unexpected anchor")
	}
}
