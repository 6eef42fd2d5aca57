// Package epub reads the parts of an EPUB container needed for reading:
// the package document, the spine and the table of contents.
package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/justyntemme/jianyue/pkg/models"
)

// ErrNoRootfile is returned when META-INF/container.xml names no package document
var ErrNoRootfile = errors.New("epub: no rootfile in container")

// ManifestItem is one resource listed in the package document
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// Book is an opened EPUB. Hrefs are relative to the package document.
type Book struct {
	Title  string
	Author string

	// Spine holds the hrefs of the linear reading order
	Spine []ManifestItem
	// TOC is the navigation tree with hrefs exactly as written
	TOC []models.TocNode
	// NavDir is the directory of the navigation document relative to the package
	NavDir string

	opfDir   string
	manifest map[string]ManifestItem
	files    map[string]*zip.File
}

// Open parses an EPUB held in memory
func Open(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("epub: %w", err)
	}

	b := &Book{
		manifest: make(map[string]ManifestItem),
		files:    make(map[string]*zip.File, len(zr.File)),
		NavDir:   ".",
	}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	opfPath, err := b.rootfile()
	if err != nil {
		return nil, err
	}
	b.opfDir = path.Dir(opfPath)

	if err := b.readPackage(opfPath); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) readXML(name string) (*etree.Document, error) {
	data, err := b.readFile(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("epub: parse %s: %w", name, err)
	}
	return doc, nil
}

func (b *Book) readFile(name string) ([]byte, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("epub: %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *Book) rootfile() (string, error) {
	doc, err := b.readXML("META-INF/container.xml")
	if err != nil {
		return "", err
	}
	for _, rf := range doc.FindElements("//rootfile") {
		if p := rf.SelectAttrValue("full-path", ""); p != "" {
			return p, nil
		}
	}
	return "", ErrNoRootfile
}

func (b *Book) readPackage(opfPath string) error {
	doc, err := b.readXML(opfPath)
	if err != nil {
		return err
	}
	pkg := doc.SelectElement("package")
	if pkg == nil {
		return fmt.Errorf("epub: %s has no package element", opfPath)
	}

	if md := pkg.SelectElement("metadata"); md != nil {
		if t := md.SelectElement("title"); t != nil {
			b.Title = strings.TrimSpace(t.Text())
		}
		if c := md.SelectElement("creator"); c != nil {
			b.Author = strings.TrimSpace(c.Text())
		}
	}

	if m := pkg.SelectElement("manifest"); m != nil {
		for _, it := range m.SelectElements("item") {
			item := ManifestItem{
				ID:         it.SelectAttrValue("id", ""),
				Href:       it.SelectAttrValue("href", ""),
				MediaType:  it.SelectAttrValue("media-type", ""),
				Properties: it.SelectAttrValue("properties", ""),
			}
			if item.ID != "" {
				b.manifest[item.ID] = item
			}
		}
	}

	spine := pkg.SelectElement("spine")
	if spine == nil {
		return fmt.Errorf("epub: %s has no spine", opfPath)
	}
	for _, ref := range spine.SelectElements("itemref") {
		if ref.SelectAttrValue("linear", "yes") == "no" {
			continue
		}
		if item, ok := b.manifest[ref.SelectAttrValue("idref", "")]; ok {
			b.Spine = append(b.Spine, item)
		}
	}
	if len(b.Spine) == 0 {
		return fmt.Errorf("epub: empty spine")
	}

	b.readNavigation(spine.SelectAttrValue("toc", ""))
	return nil
}

// readNavigation prefers the EPUB 3 nav document and falls back to the NCX.
// A book without either simply has no table of contents.
func (b *Book) readNavigation(ncxID string) {
	for _, item := range b.manifest {
		if hasProperty(item.Properties, "nav") {
			if toc, err := b.readNav(item.Href); err == nil && len(toc) > 0 {
				b.TOC = toc
				b.NavDir = path.Dir(item.Href)
				return
			}
		}
	}

	ncx, ok := b.manifest[ncxID]
	if !ok {
		for _, item := range b.manifest {
			if item.MediaType == "application/x-dtbncx+xml" {
				ncx, ok = item, true
				break
			}
		}
	}
	if !ok {
		return
	}
	if toc, err := b.readNCX(ncx.Href); err == nil {
		b.TOC = toc
		b.NavDir = path.Dir(ncx.Href)
	}
}

func hasProperty(props, want string) bool {
	for _, p := range strings.Fields(props) {
		if p == want {
			return true
		}
	}
	return false
}

func (b *Book) readNav(href string) ([]models.TocNode, error) {
	doc, err := b.readXML(b.zipName(href))
	if err != nil {
		return nil, err
	}
	var toc *etree.Element
	for _, nav := range doc.FindElements("//nav") {
		if hasProperty(nav.SelectAttrValue("epub:type", ""), "toc") {
			toc = nav
			break
		}
	}
	if toc == nil {
		return nil, fmt.Errorf("epub: %s has no toc nav", href)
	}
	ol := toc.SelectElement("ol")
	if ol == nil {
		return nil, nil
	}
	return navList(ol), nil
}

func navList(ol *etree.Element) []models.TocNode {
	var nodes []models.TocNode
	for _, li := range ol.SelectElements("li") {
		var node models.TocNode
		if a := li.SelectElement("a"); a != nil {
			node.Label = collapseSpace(elementText(a))
			node.Href = a.SelectAttrValue("href", "")
		} else if span := li.SelectElement("span"); span != nil {
			node.Label = collapseSpace(elementText(span))
		}
		if sub := li.SelectElement("ol"); sub != nil {
			node.Children = navList(sub)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (b *Book) readNCX(href string) ([]models.TocNode, error) {
	doc, err := b.readXML(b.zipName(href))
	if err != nil {
		return nil, err
	}
	navMap := doc.FindElement("//navMap")
	if navMap == nil {
		return nil, fmt.Errorf("epub: %s has no navMap", href)
	}
	return navPoints(navMap), nil
}

func navPoints(parent *etree.Element) []models.TocNode {
	var nodes []models.TocNode
	for _, np := range parent.SelectElements("navPoint") {
		var node models.TocNode
		if label := np.FindElement("navLabel/text"); label != nil {
			node.Label = collapseSpace(label.Text())
		}
		if content := np.SelectElement("content"); content != nil {
			node.Href = content.SelectAttrValue("src", "")
		}
		node.Children = navPoints(np)
		nodes = append(nodes, node)
	}
	return nodes
}

func elementText(e *etree.Element) string {
	var sb strings.Builder
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			sb.WriteString(elementText(t))
		}
	}
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// zipName maps a package-relative href to the archive entry name
func (b *Book) zipName(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	name := path.Join(b.opfDir, href)
	if _, ok := b.files[name]; ok {
		return name
	}
	if dec, err := url.PathUnescape(href); err == nil {
		return path.Join(b.opfDir, dec)
	}
	return name
}

// ReadItem returns the raw bytes of a package-relative resource
func (b *Book) ReadItem(href string) ([]byte, error) {
	return b.readFile(b.zipName(href))
}
