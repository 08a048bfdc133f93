// Package config parses the `acme <name> { ... }` stanza of the
// surrounding proxy configuration file and turns it into validated
// acme.Config values. The stanza is HAProxy's own directive grammar
// (one directive per line, first token names the directive, remaining
// tokens are its space-separated arguments) rather than JSON/YAML/TOML:
// no general-purpose serialization library in the example corpus models
// this line-oriented grammar, so the parser is hand-rolled against the
// standard library's bufio.Scanner, the same way HAProxy's own config
// reader works.
package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Directive is one parsed line: a name and its space-separated arguments.
type Directive struct {
	Name string
	Args []string
	Line int
}

// RawSection is one unvalidated `acme <name> { ... }` stanza, in source
// order. Conversion into an acme.Config happens in Build.
type RawSection struct {
	Name       string
	Directives []Directive
	Line       int
}

// Parse reads r line by line looking for `acme <name>` stanzas opened with
// `{` and closed with a lone `}`, collecting every directive line between
// them. Blank lines and lines whose first non-space character is `#` are
// ignored anywhere. Parse does not itself validate directive names or
// argument counts; that is Build's job, and Build stops at the first
// malformed stanza.
func Parse(r io.Reader) ([]RawSection, error) {
	scanner := bufio.NewScanner(r)
	var sections []RawSection
	var current *RawSection
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if current == nil {
			fields := strings.Fields(line)
			if len(fields) < 2 || fields[0] != "acme" {
				continue
			}
			name := fields[1]
			if len(fields) >= 3 && fields[len(fields)-1] == "{" {
				current = &RawSection{Name: name, Line: lineNo}
				continue
			}
			return nil, fmt.Errorf("config: line %d: %q stanza must open with a trailing '{'", lineNo, line)
		}

		if line == "}" {
			sections = append(sections, *current)
			current = nil
			continue
		}

		fields := strings.Fields(line)
		current.Directives = append(current.Directives, Directive{
			Name: fields[0],
			Args: fields[1:],
			Line: lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading input: %w", err)
	}
	if current != nil {
		return nil, fmt.Errorf("config: line %d: stanza %q missing closing '}'", current.Line, current.Name)
	}
	return sections, nil
}
