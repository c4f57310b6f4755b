package scribgen

import (
	"testing"
)

func TestCaptureReference(t *testing.T) {
	doc := mustParseSLA(t, testTemplate)

	ref, err := CaptureReference(doc)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	if ref.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", ref.PageCount)
	}
	if ref.PageHeight != 842 {
		t.Errorf("PageHeight = %v, want 842", ref.PageHeight)
	}
	if ref.VGap != 40 {
		t.Errorf("VGap = %v, want 40", ref.VGap)
	}
	if ref.ObjectCount != 1 {
		t.Errorf("ObjectCount = %d, want 1", ref.ObjectCount)
	}
	if ref.Version != "1.5.5" {
		t.Errorf("Version = %q, want 1.5.5", ref.Version)
	}
}

func TestCaptureReferenceMissingAttribute(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{
			name:     "no page count",
			template: `<SCRIBUSUTF8NEW Version="1.5.5"><DOCUMENT PAGEHEIGHT="842" GapVertical="40"/></SCRIBUSUTF8NEW>`,
		},
		{
			name:     "malformed page height",
			template: `<SCRIBUSUTF8NEW Version="1.5.5"><DOCUMENT ANZPAGES="1" PAGEHEIGHT="tall" GapVertical="40"/></SCRIBUSUTF8NEW>`,
		},
		{
			name:     "no vertical gap",
			template: `<SCRIBUSUTF8NEW Version="1.5.5"><DOCUMENT ANZPAGES="1" PAGEHEIGHT="842"/></SCRIBUSUTF8NEW>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParseSLA(t, tt.template)
			_, err := CaptureReference(doc)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsGeometryAttributeError(err) {
				t.Errorf("error type = %T, want GeometryAttributeError", err)
			}
		})
	}
}

func TestShiftOffsetsPagesAndObjects(t *testing.T) {
	base := mustParseSLA(t, testTemplate)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)
	st.ReserveIDs(base)

	second := mustParseSLA(t, testTemplate)
	shifted, err := st.Shift(second.DocElement(), 1)
	if err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if len(shifted) != 2 {
		t.Fatalf("shifted %d elements, want 2 (one page, one object)", len(shifted))
	}

	page := second.DocElement().SelectElement(tagPage)
	if got := page.SelectAttrValue(attrPageYPos, ""); got != "902" {
		t.Errorf("PAGEYPOS = %q, want 902 (20 + 842 + 40)", got)
	}
	if got := page.SelectAttrValue(attrPageNum, ""); got != "1" {
		t.Errorf("page NUM = %q, want 1", got)
	}

	obj := second.PageObjects()[0]
	if got := obj.SelectAttrValue(attrYPos, ""); got != "982" {
		t.Errorf("YPOS = %q, want 982 (100 + 842 + 40)", got)
	}
	if got := obj.SelectAttrValue(attrOwnPage, ""); got != "1" {
		t.Errorf("OwnPage = %q, want 1", got)
	}
	if got := obj.SelectAttrValue(attrItemID, ""); got != "1456789" {
		t.Errorf("ItemID = %q, want 1456789 (stride prefix over the original suffix)", got)
	}
	if got := obj.SelectAttrValue(attrNextItem, ""); got != noLink {
		t.Errorf("NEXTITEM = %q, unlinked frames must stay %q", got, noLink)
	}
}

func TestShiftThirdRecordDoesNotCollide(t *testing.T) {
	base := mustParseSLA(t, testTemplate)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)
	st.ReserveIDs(base)

	second := mustParseSLA(t, testTemplate)
	if _, err := st.Shift(second.DocElement(), 1); err != nil {
		t.Fatalf("Shift(1): %v", err)
	}
	third := mustParseSLA(t, testTemplate)
	if _, err := st.Shift(third.DocElement(), 2); err != nil {
		t.Fatalf("Shift(2): %v", err)
	}

	page2 := second.DocElement().SelectElement(tagPage)
	page3 := third.DocElement().SelectElement(tagPage)
	if page2.SelectAttrValue(attrPageNum, "") == page3.SelectAttrValue(attrPageNum, "") {
		t.Error("page numbers of folded records collide")
	}
	if got := page3.SelectAttrValue(attrPageNum, ""); got != "2" {
		t.Errorf("third record page NUM = %q, want 2", got)
	}
	if got := page3.SelectAttrValue(attrPageYPos, ""); got != "1784" {
		t.Errorf("third record PAGEYPOS = %q, want 1784 (20 + 2 * (842 + 40))", got)
	}

	obj3 := third.PageObjects()[0]
	if got := obj3.SelectAttrValue(attrOwnPage, ""); got != "2" {
		t.Errorf("third record OwnPage = %q, want 2", got)
	}
	if obj3.SelectAttrValue(attrItemID, "") == second.PageObjects()[0].SelectAttrValue(attrItemID, "") {
		t.Error("renumbered identifiers of folded records collide")
	}
}

const linkedTemplate14 = `<SCRIBUSUTF8NEW Version="1.4.6">
  <DOCUMENT ANZPAGES="1" PAGEHEIGHT="842" GapVertical="40">
    <PAGE NUM="0" PAGEYPOS="20"/>
    <PAGEOBJECT ANNAME="a" XPOS="50" YPOS="100" WIDTH="200" HEIGHT="50" OwnPage="0" NEXTITEM="1" BACKITEM="-1"/>
    <PAGEOBJECT ANNAME="b" XPOS="50" YPOS="200" WIDTH="200" HEIGHT="50" OwnPage="0" NEXTITEM="-1" BACKITEM="0"/>
  </DOCUMENT>
</SCRIBUSUTF8NEW>
`

func TestShiftPositionLinkScheme(t *testing.T) {
	base := mustParseSLA(t, linkedTemplate14)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)

	second := mustParseSLA(t, linkedTemplate14)
	if _, err := st.Shift(second.DocElement(), 1); err != nil {
		t.Fatalf("Shift: %v", err)
	}

	objs := second.PageObjects()
	if got := objs[0].SelectAttrValue(attrNextItem, ""); got != "3" {
		t.Errorf("first frame NEXTITEM = %q, want 3 (1 + stride 2)", got)
	}
	if got := objs[0].SelectAttrValue(attrBackItem, ""); got != noLink {
		t.Errorf("first frame BACKITEM = %q, must stay %q", got, noLink)
	}
	if got := objs[1].SelectAttrValue(attrBackItem, ""); got != "2" {
		t.Errorf("second frame BACKITEM = %q, want 2 (0 + stride 2)", got)
	}
}

const linkedTemplate15 = `<SCRIBUSUTF8NEW Version="1.5.5">
  <DOCUMENT ANZPAGES="1" PAGEHEIGHT="842" GapVertical="40">
    <PAGE NUM="0" PAGEYPOS="20"/>
    <PAGEOBJECT ANNAME="a" XPOS="50" YPOS="100" WIDTH="200" HEIGHT="50" OwnPage="0" ItemID="300000001" NEXTITEM="300000002" BACKITEM="-1"/>
    <PAGEOBJECT ANNAME="b" XPOS="50" YPOS="200" WIDTH="200" HEIGHT="50" OwnPage="0" ItemID="300000002" NEXTITEM="-1" BACKITEM="300000001"/>
  </DOCUMENT>
</SCRIBUSUTF8NEW>
`

func TestShiftItemIDLinkScheme(t *testing.T) {
	base := mustParseSLA(t, linkedTemplate15)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)
	st.ReserveIDs(base)

	second := mustParseSLA(t, linkedTemplate15)
	if _, err := st.Shift(second.DocElement(), 1); err != nil {
		t.Fatalf("Shift: %v", err)
	}

	objs := second.PageObjects()
	idA := objs[0].SelectAttrValue(attrItemID, "")
	idB := objs[1].SelectAttrValue(attrItemID, "")
	if idA == "300000001" || idB == "300000002" {
		t.Error("item identifiers must be renumbered")
	}
	if idA == idB {
		t.Error("renumbered identifiers collide")
	}
	if got := objs[0].SelectAttrValue(attrNextItem, ""); got != idB {
		t.Errorf("NEXTITEM = %q, want the renumbered id %q", got, idB)
	}
	if got := objs[1].SelectAttrValue(attrBackItem, ""); got != idA {
		t.Errorf("BACKITEM = %q, want the renumbered id %q", got, idA)
	}
}

func TestShiftItemIDCollisionFallsBackToFreshID(t *testing.T) {
	base := mustParseSLA(t, linkedTemplate15)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)
	st.ReserveIDs(base)

	// Occupy the ids the prefix rule would produce for index 1 (stride 2).
	st.usedIDs["2000002"] = true
	st.usedIDs["2000001"] = true

	second := mustParseSLA(t, linkedTemplate15)
	if _, err := st.Shift(second.DocElement(), 1); err != nil {
		t.Fatalf("Shift: %v", err)
	}

	objs := second.PageObjects()
	idA := objs[0].SelectAttrValue(attrItemID, "")
	idB := objs[1].SelectAttrValue(attrItemID, "")
	if idA == "2000001" || idB == "2000002" {
		t.Error("occupied identifiers were reused")
	}
	if got := objs[0].SelectAttrValue(attrNextItem, ""); got != idB {
		t.Errorf("NEXTITEM = %q, want %q even after the fallback", got, idB)
	}
}

func TestShiftMissingGeometryIsFatal(t *testing.T) {
	base := mustParseSLA(t, testTemplate)
	ref, err := CaptureReference(base)
	if err != nil {
		t.Fatalf("CaptureReference: %v", err)
	}
	st := NewGeometryState(ref)

	broken := mustParseSLA(t, `<SCRIBUSUTF8NEW Version="1.5.5">
  <DOCUMENT ANZPAGES="1" PAGEHEIGHT="842" GapVertical="40">
    <PAGE NUM="0"/>
  </DOCUMENT>
</SCRIBUSUTF8NEW>`)
	_, err = st.Shift(broken.DocElement(), 1)
	if err == nil {
		t.Fatal("expected an error for the page without a vertical position")
	}
	if !IsGeometryAttributeError(err) {
		t.Errorf("error type = %T, want GeometryAttributeError", err)
	}
}
