package scribgen

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	tagItemAttribute = "ItemAttribute"
	annotationKind   = "SGAttribute"

	attrAnnotationType  = "Type"
	attrAnnotationName  = "Name"
	attrAnnotationValue = "Value"
	attrAnnotationParam = "Parameter"
)

// AttributeOverride is one meta-attribute annotation, parsed from its
// ItemAttribute element exactly once. At resolution time Value overwrites
// attribute Name on every node TargetPath designates, relative to the owning
// page object. Value may itself contain placeholder markers; overrides run
// before substitution.
type AttributeOverride struct {
	Name       string
	Value      string
	TargetPath string

	owner *etree.Element
}

// collectOverrides gathers every annotation of the recognized kind. The
// annotation sits two levels below its page object
// (PAGEOBJECT/PageItemAttributes/ItemAttribute).
func collectOverrides(root *etree.Element) []AttributeOverride {
	var overrides []AttributeOverride
	for _, ann := range root.FindElements("//" + tagItemAttribute + "[@" + attrAnnotationType + "='" + annotationKind + "']") {
		owner := ann.Parent()
		if owner != nil {
			owner = owner.Parent()
		}
		if owner == nil {
			continue
		}

		path := ann.SelectAttrValue(attrAnnotationParam, "")
		switch {
		case path == "":
			// Default target is the owning page object.
			path = "."
		case strings.HasPrefix(path, "/"):
			// Absolute-style paths are searched relative to the owner.
			path = "." + path
		}

		overrides = append(overrides, AttributeOverride{
			Name:       ann.SelectAttrValue(attrAnnotationName, ""),
			Value:      ann.SelectAttrValue(attrAnnotationValue, ""),
			TargetPath: path,
			owner:      owner,
		})
	}
	return overrides
}

// ResolveAttributeOverrides applies every attribute override annotation in
// the document. Invalid target paths and paths designating no node are
// reported as warnings and skipped; the run never aborts here. Returns the
// number of attributes overwritten.
func ResolveAttributeOverrides(d *SLADocument, log *Logger) int {
	applied := 0
	for _, ov := range collectOverrides(d.Root()) {
		path, err := etree.CompilePath(ov.TargetPath)
		if err != nil {
			log.Warn("%v", NewOverrideTargetError(ov.Name, ov.TargetPath, err))
			continue
		}

		targets := ov.owner.FindElementsPath(path)
		if len(targets) == 0 {
			log.Warn("%v", NewOverrideTargetError(ov.Name, ov.TargetPath, nil))
			continue
		}

		for _, target := range targets {
			log.Debug("overwriting %s on %s with %q", ov.Name, target.Tag, ov.Value)
			target.CreateAttr(ov.Name, ov.Value)
			applied++
		}
	}
	return applied
}
