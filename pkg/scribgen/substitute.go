package scribgen

import (
	"regexp"
	"strings"
)

// placeholderPrefix starts every substitution marker: %VAR_<field>%.
const placeholderPrefix = "%VAR_"

// residualPattern matches any leftover marker together with surrounding
// whitespace, so cleanup leaves no residue.
var residualPattern = regexp.MustCompile(`\s*%VAR_\w*%\s*`)

// Placeholder returns the marker for a header field.
func Placeholder(field string) string {
	return placeholderPrefix + field + "%"
}

// Substitution replaces placeholder markers in serialized template text with
// record values. It is built once per run; Apply is called once per record.
type Substitution struct {
	header       Record
	skipPrefixes []string
	clean        bool
}

// NewSubstitution builds a substitution for the given (ampersand-normalized)
// header. Skip prefixes come from the engine configuration. With clean set,
// markers that match no header field are stripped along with surrounding
// whitespace.
func NewSubstitution(header Record, clean bool) *Substitution {
	return &Substitution{
		header:       header,
		skipPrefixes: GetGlobalConfig().SkipLinePrefixes,
		clean:        clean,
	}
}

// Apply substitutes record's values into text, line by line. It returns the
// substituted text and the number of unmatched markers removed by cleanup.
// Applying the same record to already-substituted text is a no-op.
func (s *Substitution) Apply(record Record, text string) (string, int) {
	lines := strings.Split(text, "\n")
	removed := 0
	for li, line := range lines {
		if !s.skip(line) {
			for i, field := range s.header {
				if i >= len(record) {
					break
				}
				line = strings.ReplaceAll(line, Placeholder(field), record[i])
			}
		}
		if s.clean {
			if matches := residualPattern.FindAllString(line, -1); len(matches) > 0 {
				line = residualPattern.ReplaceAllString(line, "")
				removed += len(matches)
			}
		}
		lines[li] = line
	}
	return strings.Join(lines, "\n"), removed
}

func (s *Substitution) skip(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range s.skipPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
