package scribgen

import (
	"os"
	"path/filepath"
	"testing"
)

// testTemplate is a minimal 1.5-format SLA document with one page and one
// text frame.
const testTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SCRIBUSUTF8NEW Version="1.5.5">
  <DOCUMENT ANZPAGES="1" PAGEHEIGHT="842" GapVertical="40" GROUPC="0" DOCCONTRIB="">
    <COLOR NAME="Black" RGB="#000000"/>
    <PAGE NUM="0" PAGEYPOS="20"/>
    <PAGEOBJECT ANNAME="intro" XPOS="50" YPOS="100" WIDTH="200" HEIGHT="50" OwnPage="0" ItemID="123456789" NEXTITEM="-1" BACKITEM="-1">
      <ITEXT CH="%VAR_name% likes %VAR_color%"/>
    </PAGEOBJECT>
  </DOCUMENT>
</SCRIBUSUTF8NEW>
`

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func mustParseSLA(t *testing.T, content string) *SLADocument {
	t.Helper()
	doc, err := ParseSLA(content)
	if err != nil {
		t.Fatalf("parsing test document: %v", err)
	}
	return doc
}

// quietLogger discards diagnostics in tests that provoke warnings.
func quietLogger() *Logger {
	return NewLogger(nil, LogOff)
}
