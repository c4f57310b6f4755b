package scribgen

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

const (
	attrObjName      = "ANNAME"
	attrGroupControl = "isGroupControl"
	attrGroupID      = "NUMGROUP"

	// RepeatPrefix starts every repeat designator name.
	RepeatPrefix = "SGrepeat_"
)

// repeatGrammar: SGrepeat_<Dir1><Limit1>?(_<Dir2>)?(_<mDir1><m1>)?(_<mDir2><m2>)?<suffix>
// Directions are RLUD (uppercase for tiling, lowercase for margins); the
// suffix is free text that keeps sibling designators distinct.
var repeatGrammar = regexp.MustCompile(`^SGrepeat_([RLUD])(\d+)?(?:_([RLUD]))?(?:_([rlud])(\d+))?(?:_([rlud])(\d+))?(.+)$`)

// Direction is a tiling direction on the page.
type Direction byte

const (
	DirRight Direction = 'R'
	DirLeft  Direction = 'L'
	DirUp    Direction = 'U'
	DirDown  Direction = 'D'
)

func (d Direction) horizontal() bool {
	return d == DirRight || d == DirLeft
}

func (d Direction) sign() float64 {
	if d == DirLeft || d == DirUp {
		return -1
	}
	return 1
}

// RepeatSpec is a repeat designator parsed into a typed tiling
// specification. Tiles advance along Dir1; with a limit and a secondary
// direction, every Limit1 tiles wrap one step along Dir2 and reset the
// primary axis. MarginX/MarginY add spacing between consecutive tiles on top
// of the unit's own extent.
type RepeatSpec struct {
	Dir1    Direction
	Limit1  int
	Dir2    Direction
	MarginX float64
	MarginY float64
	Suffix  string
}

// IsRepeatDesignator reports whether name claims to be a repeat designator.
func IsRepeatDesignator(name string) bool {
	return len(name) >= len(RepeatPrefix) && name[:len(RepeatPrefix)] == RepeatPrefix
}

// ParseRepeatSpec parses a repeat designator name into its specification.
func ParseRepeatSpec(name string) (*RepeatSpec, error) {
	m := repeatGrammar.FindStringSubmatch(name)
	if m == nil {
		return nil, NewRepeatGrammarError(name, "does not match the repeat grammar")
	}

	spec := &RepeatSpec{
		Dir1:   Direction(m[1][0]),
		Suffix: m[8],
	}
	if m[2] != "" {
		limit, err := strconv.Atoi(m[2])
		if err != nil || limit < 1 {
			return nil, NewRepeatGrammarError(name, "primary limit must be a positive integer")
		}
		spec.Limit1 = limit
	}
	if m[3] != "" {
		spec.Dir2 = Direction(m[3][0])
		if spec.Limit1 == 0 {
			return nil, NewRepeatGrammarError(name, "secondary direction requires a primary limit")
		}
		if spec.Dir2.horizontal() == spec.Dir1.horizontal() {
			return nil, NewRepeatGrammarError(name, "secondary direction must cross the primary axis")
		}
	}
	applyMargin(spec, m[4], m[5])
	applyMargin(spec, m[6], m[7])
	return spec, nil
}

func applyMargin(spec *RepeatSpec, dir, value string) {
	if dir == "" || value == "" {
		return
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return
	}
	switch dir {
	case "r", "l":
		spec.MarginX = v
	case "u", "d":
		spec.MarginY = v
	}
}

// step returns the per-tile displacement for one axis given the unit extent.
func (s *RepeatSpec) step(dir Direction, width, height float64) (dx, dy float64) {
	if dir.horizontal() {
		return dir.sign() * (width + s.MarginX), 0
	}
	return 0, dir.sign() * (height + s.MarginY)
}

// offset returns the displacement of tile k (1-based among copies).
func (s *RepeatSpec) offset(k int, width, height float64) (dx, dy float64) {
	steps1, steps2 := k, 0
	if s.Limit1 > 0 && s.Dir2 != 0 {
		steps1 = k % s.Limit1
		steps2 = k / s.Limit1
	}
	dx1, dy1 := s.step(s.Dir1, width, height)
	dx, dy = float64(steps1)*dx1, float64(steps1)*dy1
	if s.Dir2 != 0 {
		dx2, dy2 := s.step(s.Dir2, width, height)
		dx += float64(steps2) * dx2
		dy += float64(steps2) * dy2
	}
	return dx, dy
}

// Expander tiles repeat-designated page objects once per data record.
type Expander struct {
	doc     *SLADocument
	subst   *Substitution
	log     *Logger
	groups  int // highest group id seen, for fresh group numbers
	usedIDs map[string]bool
}

// NewExpander builds an expander over the parsed template. header must
// already be ampersand-normalized.
func NewExpander(d *SLADocument, header Record, log *Logger) *Expander {
	e := &Expander{
		doc:     d,
		subst:   NewSubstitution(header, GetGlobalConfig().RemoveEmptyText),
		log:     log,
		usedIDs: make(map[string]bool),
	}
	for _, obj := range d.PageObjects() {
		if g, err := strconv.Atoi(obj.SelectAttrValue(attrGroupID, "")); err == nil && g > e.groups {
			e.groups = g
		}
		if id := obj.SelectAttrValue(attrItemID, ""); id != "" {
			e.usedIDs[id] = true
		}
	}
	return e
}

// Expand scans for repeat designators and tiles each matching unit once per
// data record. rows excludes the header; the unit itself receives the first
// record's substitution and each copy the corresponding later record's.
// Grammar or geometry problems on a node are reported and leave that node
// unexpanded. Returns the number of designators expanded.
func (e *Expander) Expand(rows []Record) int {
	expanded := 0
	for _, obj := range e.doc.Root().FindElements("//" + tagPageObject + "[@" + attrObjName + "]") {
		name := obj.SelectAttrValue(attrObjName, "")
		if !IsRepeatDesignator(name) {
			continue
		}
		spec, err := ParseRepeatSpec(name)
		if err != nil {
			e.log.Warn("%v", err)
			continue
		}
		if err := e.expandUnit(obj, spec, rows); err != nil {
			e.log.Warn("%v", NewRepeatGrammarError(name, err.Error()))
			continue
		}
		expanded++
	}
	return expanded
}

// expandUnit tiles one replication unit: the designated object, or the whole
// group when the object is its group control member.
func (e *Expander) expandUnit(control *etree.Element, spec *RepeatSpec, rows []Record) error {
	unit := []*etree.Element{control}
	grouped := control.SelectAttrValue(attrGroupControl, "") == "1"
	if grouped {
		groupID := control.SelectAttrValue(attrGroupID, "")
		if groupID == "" {
			return errors.New("group control member has no group identifier")
		}
		for _, member := range e.doc.Root().FindElements("//" + tagPageObject + "[@" + attrGroupID + "='" + groupID + "']") {
			if member != control {
				unit = append(unit, member)
			}
		}
	}

	width, err := floatAttr(control, attrWidth)
	if err != nil {
		return fmt.Errorf("unit has no usable extent: %v", err)
	}
	height, err := floatAttr(control, attrHeight)
	if err != nil {
		return fmt.Errorf("unit has no usable extent: %v", err)
	}

	// Capture the unit's serialized form before any substitution touches it.
	templates := make([]string, len(unit))
	for i, member := range unit {
		s, err := elementToString(member)
		if err != nil {
			return err
		}
		templates[i] = s
	}

	docElt := e.doc.DocElement()
	for k, row := range rows {
		record := NormalizeAmpersands(row)
		if k == 0 {
			// The unit itself becomes tile 0.
			for i, member := range unit {
				substituted, _ := e.subst.Apply(record, templates[i])
				replacement, err := elementFromString(substituted)
				if err != nil {
					return err
				}
				parent := member.Parent()
				parent.InsertChildAt(member.Index(), replacement)
				parent.RemoveChild(member)
			}
			continue
		}

		dx, dy := spec.offset(k, width, height)
		e.groups++
		idMap := make(map[string]string)
		var tile []*etree.Element
		for i := range unit {
			substituted, _ := e.subst.Apply(record, templates[i])
			copyElt, err := elementFromString(substituted)
			if err != nil {
				return err
			}
			if err := addFloatAttr(copyElt, attrXPos, dx); err != nil {
				return err
			}
			if err := addFloatAttr(copyElt, attrYPos, dy); err != nil {
				return err
			}
			if grouped {
				copyElt.CreateAttr(attrGroupID, strconv.Itoa(e.groups))
			}
			if old := copyElt.SelectAttrValue(attrItemID, ""); old != "" {
				fresh := freshItemID(e.usedIDs)
				e.usedIDs[fresh] = true
				idMap[old] = fresh
				copyElt.CreateAttr(attrItemID, fresh)
			}
			renameCopy(copyElt, spec, k)
			tile = append(tile, copyElt)
		}

		// Intra-unit links must follow the fresh identifiers.
		for _, copyElt := range tile {
			for _, linkAttr := range []string{attrNextItem, attrBackItem} {
				attr := copyElt.SelectAttr(linkAttr)
				if attr == nil || attr.Value == noLink {
					continue
				}
				if fresh, ok := idMap[attr.Value]; ok {
					attr.Value = fresh
				}
			}
		}

		for _, copyElt := range tile {
			docElt.AddChild(copyElt)
		}
	}
	return nil
}

// renameCopy keeps sibling names distinct and strips the designator so a
// copy is never itself detected as repeatable.
func renameCopy(copyElt *etree.Element, spec *RepeatSpec, k int) {
	if copyElt.SelectAttr(attrObjName) == nil {
		return
	}
	name := copyElt.SelectAttrValue(attrObjName, "")
	if IsRepeatDesignator(name) {
		name = spec.Suffix
	}
	copyElt.CreateAttr(attrObjName, fmt.Sprintf("%s_%d", name, k))
}

// elementToString serializes a single element as its own document.
func elementToString(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.AddChild(el.Copy())
	return doc.WriteToString()
}

// elementFromString parses a single element from its serialized form.
func elementFromString(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty element serialization")
	}
	return root, nil
}
