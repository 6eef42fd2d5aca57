// Package epubtest builds small EPUB archives for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Chapter is one spine document of a fixture book
type Chapter struct {
	Href string // relative to the package document
	Body string // inner XHTML of <body>
}

// Book describes a fixture. OPFDir is the directory holding content.opf.
type Book struct {
	Title    string
	Author   string
	OPFDir   string
	Chapters []Chapter
	// Nav is the inner XHTML of the toc <nav>, written to NavHref when set
	Nav     string
	NavHref string
	// NCX is the inner XML of <navMap>, written to toc.ncx when set
	NCX string
}

// Build returns the archive bytes for b
func Build(b Book) ([]byte, error) {
	files := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + join(b.OPFDir, "content.opf") + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
	}

	var manifest, spine strings.Builder
	for i, ch := range b.Chapters {
		id := fmt.Sprintf("ch%d", i+1)
		fmt.Fprintf(&manifest, `<item id="%s" href="%s" media-type="application/xhtml+xml"/>`+"\n", id, ch.Href)
		fmt.Fprintf(&spine, `<itemref idref="%s"/>`+"\n", id)
		files[join(b.OPFDir, unescape(ch.Href))] = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>` + id + `</title></head><body>` + ch.Body + `</body></html>`
	}
	if b.Nav != "" {
		href := b.NavHref
		if href == "" {
			href = "nav.xhtml"
		}
		fmt.Fprintf(&manifest, `<item id="nav" href="%s" media-type="application/xhtml+xml" properties="nav"/>`+"\n", href)
		files[join(b.OPFDir, href)] = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"><head><title>nav</title></head>
<body><nav epub:type="toc">` + b.Nav + `</nav></body></html>`
	}
	tocAttr := ""
	if b.NCX != "" {
		manifest.WriteString(`<item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
		tocAttr = ` toc="ncx"`
		files[join(b.OPFDir, "toc.ncx")] = `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>` + b.NCX + `</navMap></ncx>`
	}

	files[join(b.OPFDir, "content.opf")] = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>` + b.Title + `</dc:title>
    <dc:creator>` + b.Author + `</dc:creator>
  </metadata>
  <manifest>
` + manifest.String() + `  </manifest>
  <spine` + tocAttr + `>
` + spine.String() + `  </spine>
</package>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func join(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}

// unescape maps a percent-encoded href to its archive entry name
func unescape(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		return dec
	}
	return s
}
