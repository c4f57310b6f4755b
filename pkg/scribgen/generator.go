package scribgen

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ContribText is appended once to the consolidated document's contribution
// notice.
const ContribText = "\ngenerated with scribgen - https://github.com/scribgen/scribgen"

// Generator sequences one merge run: read data, parse and prepare the
// template, then either expand repeating elements, write one document per
// record, or fold every record into a single consolidated document.
//
// A run is strictly sequential: single-output consolidation carries a
// geometric and identifier state that must advance record by record.
type Generator struct {
	settings *Settings
	log      *Logger
	renderer Renderer
}

// New creates a generator for the given settings.
func New(settings *Settings) *Generator {
	return &Generator{
		settings: settings,
		log:      GetLogger(),
		renderer: &ScribusRenderer{},
	}
}

// SetLogger replaces the generator's diagnostics sink.
func (g *Generator) SetLogger(log *Logger) {
	g.log = log
}

// SetRenderer replaces the external render collaborator. A nil renderer
// disables fixed-layout export.
func (g *Generator) SetRenderer(r Renderer) {
	g.renderer = r
}

// RunResult reports what a run produced.
type RunResult struct {
	// OutputFiles lists the native documents written (and possibly deleted
	// again after export, when retention is off).
	OutputFiles []string
	// Exported lists fixed-layout exports produced by the renderer.
	Exported []string
	// Records is the number of data records processed.
	Records int
	// Expanded is the number of repeat designators expanded; a run that
	// expands never renders per record.
	Expanded int
	// Consolidated is set when all records were folded into one document.
	Consolidated bool
}

// Run executes the merge. Fatal conditions (unusable data source, template
// parse failure, broken geometry) abort with an error and no further
// outputs; recoverable conditions are logged and the run continues with
// best-effort output.
func (g *Generator) Run() (*RunResult, error) {
	cfg := GetGlobalConfig()
	s := g.settings

	if s.SingleOutput && s.OutputName == "" {
		base := filepath.Base(s.TemplatePath)
		s.OutputName = strings.TrimSuffix(base, filepath.Ext(base)) + "__single"
	}

	g.log.Debug("reading data source %s", s.DataPath)
	rows, err := OpenDataSource(s.DataPath, s.separatorRune()).Read()
	if err != nil {
		return nil, err
	}
	rows = g.selectRange(rows)

	header := rows[0]
	data := rows[1:]
	normalizedHeader := NormalizeAmpersands(header)

	g.log.Debug("parsing template %s", s.TemplatePath)
	tpl, err := ParseSLAFile(s.TemplatePath)
	if err != nil {
		return nil, err
	}

	ResolveAttributeOverrides(tpl, g.log)

	if s.SaveSettings {
		if err := s.StoreIn(tpl); err != nil {
			g.log.Warn("could not store settings in template: %v", err)
		} else if err := tpl.WriteFile(s.TemplatePath, false); err != nil {
			g.log.Warn("could not write settings back to template: %v", err)
		}
	}

	// Expansion and per-record rendering are mutually exclusive phases:
	// tiling multiplies page objects, which would invalidate the stride
	// capture consolidation depends on.
	if cfg.ExpandRepeats && g.hasRepeats(tpl) {
		return g.runExpansion(tpl, normalizedHeader, data, cfg)
	}

	serialized, err := tpl.Serialize()
	if err != nil {
		return nil, err
	}
	subst := NewSubstitution(normalizedHeader, cfg.RemoveEmptyText)
	namer := NewOutputNamer(s.OutputName, header, len(strconv.Itoa(len(data))), g.log)
	result := &RunResult{Records: len(data)}

	var (
		consolidated *SLADocument
		state        *GeometryState
	)
	for i, row := range data {
		content, removed := subst.Apply(NormalizeAmpersands(row), serialized)
		if removed > 0 {
			g.log.Debug("cleaned %d unresolved markers for record %d", removed, i+1)
		}
		rendered, err := ParseSLA(content)
		if err != nil {
			return nil, err
		}

		if !s.SingleOutput {
			outPath := outputPath(s.OutputDir, namer.Name(i+1, row), ExtensionSLA)
			if err := rendered.WriteFile(outPath, cfg.RemoveEmptyText); err != nil {
				return nil, err
			}
			g.log.Info("scribus file created: %s", outPath)
			result.OutputFiles = append(result.OutputFiles, outPath)
			continue
		}

		if i == 0 {
			g.log.Debug("building reference document from record 1")
			consolidated = rendered
			ref, err := CaptureReference(rendered)
			if err != nil {
				return nil, err
			}
			state = NewGeometryState(ref)
			state.ReserveIDs(rendered)

			docElt := consolidated.DocElement()
			docElt.CreateAttr(attrPageCount, strconv.Itoa(ref.PageCount*len(data)))
			docElt.CreateAttr(attrContrib, docElt.SelectAttrValue(attrContrib, "")+ContribText)
		} else {
			g.log.Debug("folding record %d into the reference document", i+1)
			shifted, err := state.Shift(rendered.DocElement(), i)
			if err != nil {
				return nil, err
			}
			docElt := consolidated.DocElement()
			for _, el := range shifted {
				docElt.AddChild(el)
			}
		}
	}

	if s.SingleOutput && consolidated != nil {
		outPath := outputPath(s.OutputDir, s.OutputName, ExtensionSLA)
		if err := consolidated.WriteFile(outPath, cfg.RemoveEmptyText); err != nil {
			return nil, err
		}
		g.log.Info("scribus file created: %s", outPath)
		result.OutputFiles = append(result.OutputFiles, outPath)
		result.Consolidated = true
	}

	return g.export(result)
}

// runExpansion tiles the template's repeat units and writes the expanded
// document as this run's single output.
func (g *Generator) runExpansion(tpl *SLADocument, normalizedHeader Record, data []Record, cfg *Config) (*RunResult, error) {
	s := g.settings

	expander := NewExpander(tpl, normalizedHeader, g.log)
	expanded := expander.Expand(data)
	g.log.Info("expanded %d repeating elements", expanded)

	outName := s.OutputName
	if outName == "" {
		base := filepath.Base(s.TemplatePath)
		outName = strings.TrimSuffix(base, filepath.Ext(base)) + "__expanded"
	}
	outPath := outputPath(s.OutputDir, sanitizeFileName(outName), ExtensionSLA)
	if err := tpl.WriteFile(outPath, cfg.RemoveEmptyText); err != nil {
		return nil, err
	}
	g.log.Info("scribus file created: %s", outPath)

	return g.export(&RunResult{
		OutputFiles: []string{outPath},
		Records:     len(data),
		Expanded:    expanded,
	})
}

// export runs the external renderer over each native output, then deletes
// intermediates unless retention is requested.
func (g *Generator) export(result *RunResult) (*RunResult, error) {
	s := g.settings

	if s.OutputFormat == FormatPDF && g.renderer != nil {
		for _, slaPath := range result.OutputFiles {
			pdfPath := strings.TrimSuffix(slaPath, "."+ExtensionSLA) + "." + ExtensionPDF
			if err := g.renderer.RenderPDF(slaPath, pdfPath); err != nil {
				return result, err
			}
			g.log.Info("pdf file created: %s", pdfPath)
			result.Exported = append(result.Exported, pdfPath)
		}
	}

	if s.OutputFormat != FormatSLA && s.OutputFormat != "" && !s.KeepNative {
		for _, slaPath := range result.OutputFiles {
			if err := os.Remove(slaPath); err != nil {
				g.log.Warn("could not delete intermediate file %s: %v", slaPath, err)
			}
		}
	}

	return result, nil
}

// selectRange applies the optional 1-based inclusive row bounds. Unparsable
// or inverted bounds fall back to the full range with a warning; in-range
// values clamp.
func (g *Generator) selectRange(rows []Record) []Record {
	s := g.settings
	dataCount := len(rows) - 1
	if dataCount < 1 {
		return rows
	}

	first := 1
	if s.FirstRow != "" {
		if v, err := strconv.Atoi(s.FirstRow); err == nil {
			if v > first {
				first = v
			}
		} else {
			g.log.Warn("could not parse 'first row' value %q, using the full range", s.FirstRow)
		}
	}

	last := dataCount
	if s.LastRow != "" {
		if v, err := strconv.Atoi(s.LastRow); err == nil {
			if v < last {
				last = v
			}
		} else {
			g.log.Warn("could not parse 'last row' value %q, using the full range", s.LastRow)
		}
	}

	if first > last {
		g.log.Warn("row range %d..%d selects nothing, using the full range", first, last)
		return rows
	}
	if first == 1 && last == dataCount {
		return rows
	}

	selected := make([]Record, 0, 1+last-first+1)
	selected = append(selected, rows[0])
	selected = append(selected, rows[first:last+1]...)
	return selected
}

func (g *Generator) hasRepeats(d *SLADocument) bool {
	for _, obj := range d.PageObjects() {
		if IsRepeatDesignator(obj.SelectAttrValue(attrObjName, "")) {
			return true
		}
	}
	return false
}
