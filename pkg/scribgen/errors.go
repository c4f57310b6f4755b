// Package scribgen merges tabular data into Scribus SLA templates.
package scribgen

import (
	"fmt"
)

// DataSourceError reports a data source that cannot drive a run: missing,
// unreadable, or holding fewer than a header row plus one data row.
// It is fatal.
type DataSourceError struct {
	Path  string
	Rows  int
	Cause error
}

func (e *DataSourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data source error for '%s': %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("data source error for '%s': got %d rows, need a header row and at least one data row", e.Path, e.Rows)
}

func (e *DataSourceError) Unwrap() error {
	return e.Cause
}

// NewDataSourceError creates a new data source error
func NewDataSourceError(path string, rows int, cause error) error {
	return &DataSourceError{
		Path:  path,
		Rows:  rows,
		Cause: cause,
	}
}

// OverrideTargetError reports an attribute override annotation whose target
// path is invalid or resolves to no node. Recovered per annotation.
type OverrideTargetError struct {
	Attribute string
	Path      string
	Cause     error
}

func (e *OverrideTargetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("override target '%s' for attribute '%s' could not be parsed: %v", e.Path, e.Attribute, e.Cause)
	}
	return fmt.Sprintf("override target '%s' for attribute '%s' designates no node", e.Path, e.Attribute)
}

func (e *OverrideTargetError) Unwrap() error {
	return e.Cause
}

// NewOverrideTargetError creates a new override target error
func NewOverrideTargetError(attribute, path string, cause error) error {
	return &OverrideTargetError{
		Attribute: attribute,
		Path:      path,
		Cause:     cause,
	}
}

// RepeatGrammarError reports a repeat designator that does not match the
// grammar, or matches but yields a tiling spec the node cannot satisfy.
// Recovered per node; the node is left unexpanded.
type RepeatGrammarError struct {
	Name    string
	Message string
}

func (e *RepeatGrammarError) Error() string {
	return fmt.Sprintf("repeat designator '%s': %s", e.Name, e.Message)
}

// NewRepeatGrammarError creates a new repeat grammar error
func NewRepeatGrammarError(name, message string) error {
	return &RepeatGrammarError{
		Name:    name,
		Message: message,
	}
}

// GeometryAttributeError reports a missing or malformed numeric attribute on
// a page or page object during shifting. The geometry model cannot proceed
// without it, so it is fatal.
type GeometryAttributeError struct {
	Tag       string
	Attribute string
	Value     string
}

func (e *GeometryAttributeError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("geometry error: %s is missing required attribute %s", e.Tag, e.Attribute)
	}
	return fmt.Sprintf("geometry error: %s attribute %s has non-numeric value '%s'", e.Tag, e.Attribute, e.Value)
}

// NewGeometryAttributeError creates a new geometry attribute error
func NewGeometryAttributeError(tag, attribute, value string) error {
	return &GeometryAttributeError{
		Tag:       tag,
		Attribute: attribute,
		Value:     value,
	}
}

// SettingsLoadError reports a persisted settings blob that could not be
// decoded. Recovered: the run proceeds with provided or default settings.
type SettingsLoadError struct {
	Cause error
}

func (e *SettingsLoadError) Error() string {
	return fmt.Sprintf("settings blob could not be loaded: %v", e.Cause)
}

func (e *SettingsLoadError) Unwrap() error {
	return e.Cause
}

// NewSettingsLoadError creates a new settings load error
func NewSettingsLoadError(cause error) error {
	return &SettingsLoadError{Cause: cause}
}

// TemplateParseError reports a template document that could not be parsed
// or lacks its document-level container. Fatal.
type TemplateParseError struct {
	Path  string
	Cause error
}

func (e *TemplateParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("template '%s' could not be parsed: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("template could not be parsed: %v", e.Cause)
}

func (e *TemplateParseError) Unwrap() error {
	return e.Cause
}

// NewTemplateParseError creates a new template parse error
func NewTemplateParseError(path string, cause error) error {
	return &TemplateParseError{
		Path:  path,
		Cause: cause,
	}
}

// IsTemplateParseError checks if an error is a template parse error
func IsTemplateParseError(err error) bool {
	_, ok := err.(*TemplateParseError)
	return ok
}

// IsDataSourceError checks if an error is a data source error
func IsDataSourceError(err error) bool {
	_, ok := err.(*DataSourceError)
	return ok
}

// IsOverrideTargetError checks if an error is an override target error
func IsOverrideTargetError(err error) bool {
	_, ok := err.(*OverrideTargetError)
	return ok
}

// IsRepeatGrammarError checks if an error is a repeat grammar error
func IsRepeatGrammarError(err error) bool {
	_, ok := err.(*RepeatGrammarError)
	return ok
}

// IsGeometryAttributeError checks if an error is a geometry attribute error
func IsGeometryAttributeError(err error) bool {
	_, ok := err.(*GeometryAttributeError)
	return ok
}

// IsSettingsLoadError checks if an error is a settings load error
func IsSettingsLoadError(err error) bool {
	_, ok := err.(*SettingsLoadError)
	return ok
}
