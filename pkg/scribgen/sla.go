package scribgen

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
)

// SLA element and attribute names used by the engine.
const (
	tagDocument   = "DOCUMENT"
	tagPage       = "PAGE"
	tagPageObject = "PAGEOBJECT"
	tagIText      = "ITEXT"
	tagColor      = "COLOR"
	tagStorage    = "JAVA"

	attrVersion    = "Version"
	attrPageCount  = "ANZPAGES"
	attrPageHeight = "PAGEHEIGHT"
	attrVGap       = "GapVertical"
	attrGroupCount = "GROUPC"
	attrContrib    = "DOCCONTRIB"
	attrTextChars  = "CH"
)

// SLADocument wraps a parsed Scribus SLA tree. The zero value is not usable;
// construct one with ParseSLA or ParseSLAFile.
type SLADocument struct {
	doc *etree.Document
}

// ParseSLAFile parses the SLA file at path.
func ParseSLAFile(path string) (*SLADocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, NewTemplateParseError(path, err)
	}
	return wrapSLA(doc, path)
}

// ParseSLA parses an SLA document from its serialized form.
func ParseSLA(content string) (*SLADocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return nil, NewTemplateParseError("", err)
	}
	return wrapSLA(doc, "")
}

func wrapSLA(doc *etree.Document, path string) (*SLADocument, error) {
	root := doc.Root()
	if root == nil {
		return nil, NewTemplateParseError(path, errors.New("document has no root element"))
	}
	if root.SelectElement(tagDocument) == nil {
		return nil, NewTemplateParseError(path, errors.New("root element has no DOCUMENT child"))
	}
	return &SLADocument{doc: doc}, nil
}

// Root returns the document's root element.
func (d *SLADocument) Root() *etree.Element {
	return d.doc.Root()
}

// DocElement returns the DOCUMENT container. Presence is checked at parse
// time.
func (d *SLADocument) DocElement() *etree.Element {
	return d.doc.Root().SelectElement(tagDocument)
}

// Version returns the document format version declared on the root element.
func (d *SLADocument) Version() string {
	return d.doc.Root().SelectAttrValue(attrVersion, "")
}

// Copy returns a deep copy of the document.
func (d *SLADocument) Copy() *SLADocument {
	return &SLADocument{doc: d.doc.Copy()}
}

// Serialize returns the document's serialized form.
func (d *SLADocument) Serialize() (string, error) {
	return d.doc.WriteToString()
}

// WriteFile writes the document to path, creating parent directories as
// needed. With clean set, empty text nodes and their childless page objects
// are removed first.
func (d *SLADocument) WriteFile(path string, clean bool) error {
	if clean {
		d.RemoveEmptyTexts()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return d.doc.WriteToFile(path)
}

// RemoveEmptyTexts removes ITEXT elements whose character content is empty,
// then removes any page object left without text children. Cleanup targets
// text frames whose placeholders all resolved to nothing. Returns the number
// of ITEXT elements removed.
func (d *SLADocument) RemoveEmptyTexts() int {
	removed := 0
	for _, itext := range d.doc.FindElements("//" + tagIText) {
		if itext.SelectAttrValue(attrTextChars, "") != "" {
			continue
		}
		parent := itext.Parent()
		if parent == nil {
			continue
		}
		parent.RemoveChild(itext)
		removed++
		if parent.Tag == tagPageObject && len(parent.SelectElements(tagIText)) == 0 {
			if grandparent := parent.Parent(); grandparent != nil {
				grandparent.RemoveChild(parent)
			}
		}
	}
	return removed
}

// PageObjects returns every page object in the document.
func (d *SLADocument) PageObjects() []*etree.Element {
	return d.doc.FindElements("//" + tagPageObject)
}
