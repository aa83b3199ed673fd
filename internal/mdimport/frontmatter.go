package mdimport

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// frontmatterRE matches a YAML frontmatter block at the start of a file. The
// closing "---" must be unindented; "---" inside YAML block scalars is always
// indented.
var frontmatterRE = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n`)

// Frontmatter is the YAML header a Markdown draft may start with.
type Frontmatter struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

// ParseFrontmatter splits content into its frontmatter and body. When content
// has no frontmatter block, ok is false and body is content unchanged.
func ParseFrontmatter(content []byte) (fm Frontmatter, body []byte, ok bool, err error) {
	loc := frontmatterRE.FindSubmatchIndex(content)
	if loc == nil {
		return Frontmatter{}, content, false, nil
	}
	if err := yaml.Unmarshal(content[loc[2]:loc[3]], &fm); err != nil {
		return Frontmatter{}, nil, false, fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, content[loc[1]:], true, nil
}
