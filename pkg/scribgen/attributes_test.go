package scribgen

import (
	"strings"
	"testing"
)

const overrideTemplate = `<SCRIBUSUTF8NEW Version="1.5.5">
  <DOCUMENT ANZPAGES="1" PAGEHEIGHT="842" GapVertical="40">
    <PAGE NUM="0" PAGEYPOS="20"/>
    <PAGEOBJECT ANNAME="styled" FONT="Arial Regular" XPOS="50" YPOS="100">
      <PageItemAttributes>
        <ItemAttribute Type="SGAttribute" Name="FONT" Value="%VAR_font%" Parameter="PARAM"/>
      </PageItemAttributes>
      <ITEXT CH="hello" FONT="Arial Regular"/>
    </PAGEOBJECT>
  </DOCUMENT>
</SCRIBUSUTF8NEW>
`

func overrideDoc(t *testing.T, param string) *SLADocument {
	t.Helper()
	content := strings.Replace(overrideTemplate, `Parameter="PARAM"`, `Parameter="`+param+`"`, 1)
	return mustParseSLA(t, content)
}

func TestResolveAttributeOverrides(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		applied int
		check   func(t *testing.T, doc *SLADocument)
	}{
		{
			name:    "empty target path defaults to the page object",
			param:   "",
			applied: 1,
			check: func(t *testing.T, doc *SLADocument) {
				obj := doc.PageObjects()[0]
				if got := obj.SelectAttrValue("FONT", ""); got != "%VAR_font%" {
					t.Errorf("FONT = %q, want the override value", got)
				}
			},
		},
		{
			name:    "relative path targets descendants",
			param:   "./ITEXT",
			applied: 1,
			check: func(t *testing.T, doc *SLADocument) {
				itext := doc.Root().FindElement("//ITEXT")
				if got := itext.SelectAttrValue("FONT", ""); got != "%VAR_font%" {
					t.Errorf("ITEXT FONT = %q, want the override value", got)
				}
				obj := doc.PageObjects()[0]
				if got := obj.SelectAttrValue("FONT", ""); got != "Arial Regular" {
					t.Errorf("page object FONT = %q, must stay untouched", got)
				}
			},
		},
		{
			name:    "absolute-style path is normalized to relative",
			param:   "/ITEXT",
			applied: 1,
			check: func(t *testing.T, doc *SLADocument) {
				itext := doc.Root().FindElement("//ITEXT")
				if got := itext.SelectAttrValue("FONT", ""); got != "%VAR_font%" {
					t.Errorf("ITEXT FONT = %q, want the override value", got)
				}
			},
		},
		{
			name:    "path matching no node is skipped",
			param:   "./NOSUCH",
			applied: 0,
			check: func(t *testing.T, doc *SLADocument) {
				obj := doc.PageObjects()[0]
				if got := obj.SelectAttrValue("FONT", ""); got != "Arial Regular" {
					t.Errorf("FONT = %q, must stay untouched", got)
				}
			},
		},
		{
			name:    "invalid path syntax is skipped",
			param:   "./ITEXT[",
			applied: 0,
			check:   func(t *testing.T, doc *SLADocument) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := overrideDoc(t, tt.param)
			applied := ResolveAttributeOverrides(doc, quietLogger())
			if applied != tt.applied {
				t.Errorf("applied %d overrides, want %d", applied, tt.applied)
			}
			tt.check(t, doc)
		})
	}
}

func TestOverrideValueSubstitutedLater(t *testing.T) {
	doc := overrideDoc(t, "")
	ResolveAttributeOverrides(doc, quietLogger())

	serialized, err := doc.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	subst := NewSubstitution(Record{"font"}, false)
	substituted, _ := subst.Apply(Record{"Courier New"}, serialized)

	rendered := mustParseSLA(t, substituted)
	obj := rendered.PageObjects()[0]
	if got := obj.SelectAttrValue("FONT", ""); got != "Courier New" {
		t.Errorf("FONT = %q after substitution, want 'Courier New'", got)
	}
}

func TestCollectOverridesParsesOnce(t *testing.T) {
	doc := overrideDoc(t, "./ITEXT")
	overrides := collectOverrides(doc.Root())
	if len(overrides) != 1 {
		t.Fatalf("collected %d overrides, want 1", len(overrides))
	}
	ov := overrides[0]
	if ov.Name != "FONT" || ov.Value != "%VAR_font%" || ov.TargetPath != "./ITEXT" {
		t.Errorf("unexpected override: %+v", ov)
	}
}
