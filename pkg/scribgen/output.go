package scribgen

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// OutputNamer computes the file name for each record in multi-output mode.
// Without a name template it falls back to the zero-padded record index.
// Identical sanitized names are detected and suffixed, never silently
// overwritten.
type OutputNamer struct {
	template string
	subst    *Substitution
	width    int
	seen     map[string]bool
	log      *Logger
}

// NewOutputNamer builds a namer for the given output-name template. header
// is the raw (unnormalized) header row; width is the zero-padding width for
// index-derived names.
func NewOutputNamer(nameTemplate string, header Record, width int, log *Logger) *OutputNamer {
	n := &OutputNamer{
		template: nameTemplate,
		width:    width,
		seen:     make(map[string]bool),
		log:      log,
	}
	if nameTemplate != "" {
		n.subst = NewSubstitution(header, true)
	}
	return n
}

// Name returns the output name for the record at the given 1-based index.
func (n *OutputNamer) Name(index int, row Record) string {
	name := fmt.Sprintf("%0*d", n.width, index)
	if n.template != "" {
		substituted, _ := n.subst.Apply(row, n.template)
		name = sanitizeFileName(substituted)
	}
	if n.seen[name] {
		n.log.Warn("output name %q already used, appending record index", name)
		name = fmt.Sprintf("%s_%0*d", name, n.width, index)
	}
	n.seen[name] = true
	return name
}

// sanitizeFileName replaces characters that are illegal in file names.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '?', '"', ':', '|', '\\', '/', '*':
			return '_'
		}
		return r
	}, name)
}

// outputPath builds the output file path for a name and extension.
func outputPath(dir, name, extension string) string {
	return filepath.Join(dir, name+"."+extension)
}

// Renderer produces a multi-page fixed-layout export of a native document.
// The engine treats it purely as an output sink.
type Renderer interface {
	RenderPDF(slaPath, pdfPath string) error
}

// exportScript drives the host application's scripting API: open the
// document, export every page to the destination, close.
const exportScript = `import sys
import scribus
src, dst = sys.argv[1], sys.argv[2]
scribus.openDoc(src)
pdf = scribus.PDFfile()
pdf.file = dst
pdf.pages = list(range(1, scribus.pageCount() + 1))
pdf.save()
scribus.closeDoc()
`

// ScribusRenderer shells out to the host application for PDF export.
type ScribusRenderer struct {
	// Command is the host application binary; "scribus" when empty.
	Command string
}

func (r *ScribusRenderer) RenderPDF(slaPath, pdfPath string) error {
	command := r.Command
	if command == "" {
		command = "scribus"
	}

	if dir := filepath.Dir(pdfPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	script, err := os.CreateTemp("", "scribgen-export-*.py")
	if err != nil {
		return err
	}
	defer os.Remove(script.Name())
	if _, err := script.WriteString(exportScript); err != nil {
		script.Close()
		return err
	}
	if err := script.Close(); err != nil {
		return err
	}

	cmd := exec.Command(command, "-g", "-py", script.Name(), slaPath, pdfPath)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pdf export of '%s' failed: %w", slaPath, err)
	}
	return nil
}
