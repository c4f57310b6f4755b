package scribgen

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

const (
	attrPageYPos = "PAGEYPOS"
	attrPageNum  = "NUM"
	attrXPos     = "XPOS"
	attrYPos     = "YPOS"
	attrWidth    = "WIDTH"
	attrHeight   = "HEIGHT"
	attrOwnPage  = "OwnPage"
	attrItemID   = "ItemID"
	attrNextItem = "NEXTITEM"
	attrBackItem = "BACKITEM"

	// noLink marks an unlinked frame and is never renumbered.
	noLink = "-1"
)

// ReferenceGeometry captures the layout of the first folded record's
// document. Every later record is offset and renumbered against it.
type ReferenceGeometry struct {
	PageCount   int
	PageHeight  float64
	VGap        float64
	GroupCount  int
	ObjectCount int
	Version     string
}

// CaptureReference reads the reference geometry from a rendered document.
// Missing or malformed numeric attributes are fatal; the geometry model
// cannot proceed without them.
func CaptureReference(d *SLADocument) (*ReferenceGeometry, error) {
	docElt := d.DocElement()

	pages, err := intAttr(docElt, attrPageCount)
	if err != nil {
		return nil, err
	}
	height, err := floatAttr(docElt, attrPageHeight)
	if err != nil {
		return nil, err
	}
	vgap, err := floatAttr(docElt, attrVGap)
	if err != nil {
		return nil, err
	}
	groups := 0
	if docElt.SelectAttr(attrGroupCount) != nil {
		if groups, err = intAttr(docElt, attrGroupCount); err != nil {
			return nil, err
		}
	}

	return &ReferenceGeometry{
		PageCount:   pages,
		PageHeight:  height,
		VGap:        vgap,
		GroupCount:  groups,
		ObjectCount: len(d.PageObjects()),
		Version:     d.Version(),
	}, nil
}

// GeometryState is the running shift context for one consolidation run. It
// owns the run-wide set of allocated item identifiers, so renumbered IDs
// never collide across folded records.
type GeometryState struct {
	Ref *ReferenceGeometry

	scheme  linkScheme
	usedIDs map[string]bool
}

// NewGeometryState builds the shift context for a reference document. The
// link addressing scheme is resolved once from the document format version.
func NewGeometryState(ref *ReferenceGeometry) *GeometryState {
	return &GeometryState{
		Ref:     ref,
		scheme:  schemeForVersion(ref.Version),
		usedIDs: make(map[string]bool),
	}
}

// ReserveIDs records the item identifiers already present in a document so
// later renumbering cannot reuse them.
func (st *GeometryState) ReserveIDs(d *SLADocument) {
	for _, obj := range d.PageObjects() {
		if id := obj.SelectAttrValue(attrItemID, ""); id != "" {
			st.usedIDs[id] = true
		}
	}
}

// Shift offsets the pages and page objects of a rendered record's DOCUMENT
// element so they can be appended to the consolidated document. index is the
// record's 0-based position among folded records; the first record (index 0)
// is the reference itself and is never shifted. Returns the shifted elements
// in document order (pages first).
func (st *GeometryState) Shift(docElt *etree.Element, index int) ([]*etree.Element, error) {
	voffset := (st.Ref.PageHeight + st.Ref.VGap) * float64(index)
	stride := st.Ref.ObjectCount * index
	pageStride := st.Ref.PageCount * index

	var shifted []*etree.Element
	for _, page := range docElt.SelectElements(tagPage) {
		if err := addFloatAttr(page, attrPageYPos, voffset); err != nil {
			return nil, err
		}
		if err := addIntAttr(page, attrPageNum, pageStride); err != nil {
			return nil, err
		}
		shifted = append(shifted, page)
	}

	objs := docElt.SelectElements(tagPageObject)
	if err := st.scheme.renumber(objs, stride, st.usedIDs); err != nil {
		return nil, err
	}
	for _, obj := range objs {
		if err := addFloatAttr(obj, attrYPos, voffset); err != nil {
			return nil, err
		}
		if err := addIntAttr(obj, attrOwnPage, pageStride); err != nil {
			return nil, err
		}
		shifted = append(shifted, obj)
	}
	return shifted, nil
}

// linkScheme renumbers object identifiers and the linked-frame references
// between them. Two schemes exist across document format generations.
type linkScheme interface {
	renumber(objs []*etree.Element, stride int, used map[string]bool) error
}

func schemeForVersion(version string) linkScheme {
	if strings.HasPrefix(version, "1.4") {
		return positionLinkScheme{}
	}
	return itemIDLinkScheme{}
}

// positionLinkScheme handles documents whose linked frames reference each
// other by position index: the per-record object stride is added to every
// live link.
type positionLinkScheme struct{}

func (positionLinkScheme) renumber(objs []*etree.Element, stride int, used map[string]bool) error {
	for _, obj := range objs {
		for _, name := range []string{attrNextItem, attrBackItem} {
			attr := obj.SelectAttr(name)
			if attr == nil || attr.Value == noLink {
				continue
			}
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return NewGeometryAttributeError(obj.Tag, name, attr.Value)
			}
			attr.Value = strconv.Itoa(n + stride)
		}
	}
	return nil
}

// itemIDLinkScheme handles documents whose linked frames reference each other
// by unique item identifier. Each object's ID keeps its numeric suffix while
// the fixed-width prefix is overwritten with the stride, which keeps IDs
// distinct across folded records; a prefix collision falls back to a fresh
// identifier. Links follow the old-to-new mapping either way.
type itemIDLinkScheme struct{}

func (itemIDLinkScheme) renumber(objs []*etree.Element, stride int, used map[string]bool) error {
	strideStr := strconv.Itoa(stride)
	mapping := make(map[string]string, len(objs))

	for _, obj := range objs {
		attr := obj.SelectAttr(attrItemID)
		if attr == nil {
			return NewGeometryAttributeError(obj.Tag, attrItemID, "")
		}
		if _, err := strconv.ParseInt(attr.Value, 10, 64); err != nil {
			return NewGeometryAttributeError(obj.Tag, attrItemID, attr.Value)
		}

		renumbered := strideStr + idSuffix(attr.Value)
		if used[renumbered] {
			renumbered = freshItemID(used)
		}
		mapping[attr.Value] = renumbered
		used[renumbered] = true
		attr.Value = renumbered
	}

	for _, obj := range objs {
		for _, name := range []string{attrNextItem, attrBackItem} {
			attr := obj.SelectAttr(name)
			if attr == nil || attr.Value == noLink {
				continue
			}
			if renumbered, ok := mapping[attr.Value]; ok {
				attr.Value = renumbered
				continue
			}
			// Link into content outside this fragment: apply the prefix
			// rule directly.
			if _, err := strconv.ParseInt(attr.Value, 10, 64); err != nil {
				return NewGeometryAttributeError(obj.Tag, name, attr.Value)
			}
			attr.Value = strideStr + idSuffix(attr.Value)
		}
	}
	return nil
}

// idSuffix drops the fixed-width prefix of an item identifier.
func idSuffix(id string) string {
	if len(id) > 3 {
		return id[3:]
	}
	return id
}

// freshItemID allocates an identifier not yet used in this run.
func freshItemID(used map[string]bool) string {
	for {
		id := strconv.FormatUint(uint64(uuid.New().ID()), 10)
		if !used[id] {
			return id
		}
	}
}

func floatAttr(el *etree.Element, name string) (float64, error) {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return 0, NewGeometryAttributeError(el.Tag, name, "")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewGeometryAttributeError(el.Tag, name, v)
	}
	return f, nil
}

func intAttr(el *etree.Element, name string) (int, error) {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return 0, NewGeometryAttributeError(el.Tag, name, "")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewGeometryAttributeError(el.Tag, name, v)
	}
	return n, nil
}

func addFloatAttr(el *etree.Element, name string, delta float64) error {
	f, err := floatAttr(el, name)
	if err != nil {
		return err
	}
	el.CreateAttr(name, strconv.FormatFloat(f+delta, 'f', -1, 64))
	return nil
}

func addIntAttr(el *etree.Element, name string, delta int) error {
	n, err := intAttr(el, name)
	if err != nil {
		return err
	}
	el.CreateAttr(name, strconv.Itoa(n+delta))
	return nil
}
