package scribgen

import (
	"encoding/json"

	"github.com/beevik/etree"
)

const (
	// StorageName keys the settings blob inside the template. The name is
	// shared with earlier generator tooling so annotated templates keep
	// working.
	StorageName = "ScribusGeneratorDefaultSettings"

	storageAttr = "SCRIPT"
	storageKey  = "NAME"

	settingsComment = "automated placeholder for scribgen default settings, modify at your own risk"
)

// Output formats.
const (
	FormatSLA = "Scribus"
	FormatPDF = "PDF"
)

// File extensions for the output formats.
const (
	ExtensionSLA = "sla"
	ExtensionPDF = "pdf"
)

// Settings carries one run's configuration. TemplatePath and SaveSettings
// are never persisted into the template blob.
type Settings struct {
	TemplatePath string
	DataPath     string
	OutputDir    string
	OutputName   string
	OutputFormat string
	KeepNative   bool
	Separator    string
	SingleOutput bool
	FirstRow     string
	LastRow      string
	SaveSettings bool
}

// DefaultSettings returns settings with the default separator and SLA output.
func DefaultSettings() *Settings {
	return &Settings{
		OutputFormat: FormatSLA,
		Separator:    ",",
	}
}

func (s *Settings) separatorRune() rune {
	if s.Separator == "" {
		return ','
	}
	return []rune(s.Separator)[0]
}

// MarshalBlob serializes the persistable settings as compact key-sorted JSON.
func (s *Settings) MarshalBlob() (string, error) {
	// A map marshals with sorted keys.
	blob := map[string]interface{}{
		"_comment":  settingsComment,
		"csvfile":   s.DataPath,
		"outdir":    s.OutputDir,
		"outname":   s.OutputName,
		"outformat": s.OutputFormat,
		"keepsla":   s.KeepNative,
		"separator": s.Separator,
		"single":    s.SingleOutput,
		"from":      s.FirstRow,
		"to":        s.LastRow,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalBlob loads persisted settings from their serialized form. Absent
// keys default to empty; TemplatePath and SaveSettings are untouched.
func (s *Settings) UnmarshalBlob(blob string) error {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return NewSettingsLoadError(err)
	}

	s.DataPath = blobString(raw, "csvfile")
	s.OutputDir = blobString(raw, "outdir")
	s.OutputName = blobString(raw, "outname")
	s.OutputFormat = blobString(raw, "outformat")
	s.KeepNative = blobBool(raw, "keepsla")
	s.Separator = blobString(raw, "separator")
	s.SingleOutput = blobBool(raw, "single")
	s.FirstRow = blobString(raw, "from")
	s.LastRow = blobString(raw, "to")
	return nil
}

func blobString(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

// blobBool accepts bool and numeric encodings; blobs written by older
// tooling store flags as 0/1.
func blobBool(raw map[string]interface{}, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return parseBool(v)
	default:
		return false
	}
}

// LoadSettingsBlob reads the settings blob stored in the template document.
// A template without a storage node returns ("", false).
func LoadSettingsBlob(d *SLADocument) (string, bool) {
	storage := d.DocElement().FindElement("./" + tagStorage + "[@" + storageKey + "='" + StorageName + "']")
	if storage == nil {
		return "", false
	}
	return storage.SelectAttrValue(storageAttr, ""), true
}

// StoreIn writes the settings blob into the template document, creating the
// storage node adjacent to the color definitions when absent.
func (s *Settings) StoreIn(d *SLADocument) error {
	blob, err := s.MarshalBlob()
	if err != nil {
		return err
	}

	docElt := d.DocElement()
	storage := docElt.FindElement("./" + tagStorage + "[@" + storageKey + "='" + StorageName + "']")
	if storage == nil {
		storage = etree.NewElement(tagStorage)
		storage.CreateAttr(storageKey, StorageName)
		if color := docElt.SelectElement(tagColor); color != nil {
			docElt.InsertChildAt(color.Index(), storage)
		} else {
			docElt.AddChild(storage)
		}
	}
	storage.CreateAttr(storageAttr, blob)
	return nil
}
