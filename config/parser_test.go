package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleStanza(t *testing.T) {
	input := `
# a comment, ignored anywhere
acme www {
	uri https://acme.example/directory
	contact mailto:admin@example.com
	challenge HTTP-01

	bits 4096
}
`
	sections, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 1)

	s := sections[0]
	assert.Equal(t, "www", s.Name)
	require.Len(t, s.Directives, 4)
	assert.Equal(t, Directive{Name: "uri", Args: []string{"https://acme.example/directory"}, Line: 4}, s.Directives[0])
	assert.Equal(t, Directive{Name: "contact", Args: []string{"mailto:admin@example.com"}, Line: 5}, s.Directives[1])
	assert.Equal(t, Directive{Name: "challenge", Args: []string{"HTTP-01"}, Line: 6}, s.Directives[2])
	assert.Equal(t, Directive{Name: "bits", Args: []string{"4096"}, Line: 8}, s.Directives[3])
}

func TestParse_MultipleStanzas(t *testing.T) {
	input := `
acme a {
	uri https://one.example/directory
}
acme b {
	uri https://two.example/directory
}
`
	sections, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "a", sections[0].Name)
	assert.Equal(t, "b", sections[1].Name)
}

func TestParse_UnterminatedStanza(t *testing.T) {
	input := `
acme www {
	uri https://acme.example/directory
`
	_, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing closing")
}

func TestParse_MissingOpeningBrace(t *testing.T) {
	input := `acme www`
	_, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing '{'")
}

func TestParse_IgnoresUnrelatedLines(t *testing.T) {
	input := `
frontend web
	bind *:443
acme www {
	uri https://acme.example/directory
}
`
	sections, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "www", sections[0].Name)
}
