package cmake

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

const (
	blockOpen   = "ExternalProject_Add("
	blockClose  = "    )"
	valueIndent = "        "
)

var keywordLine = regexp.MustCompile(`^    [A-Z][A-Z0-9_]*$`)

// Unescape reverses Escape.
func Unescape(s string) string {
	return strings.ReplaceAll(s, `\\`, `\`)
}

// ParseDescriptors reads back the ExternalProject_Add blocks of a manifest
// written by this package. Other lines are skipped, as are keywords the
// Descriptor has no field for. A value spans every line up to the next
// keyword or the end of the block, so inlined commands containing newlines
// survive. Scripts are not recovered.
func ParseDescriptors(text string) ([]Descriptor, error) {
	var (
		descs   []Descriptor
		current *Descriptor
		keyword string
		value   []string
		lineNo  int
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if current == nil {
			if strings.HasPrefix(line, blockOpen) {
				current = &Descriptor{Name: Unescape(strings.TrimPrefix(line, blockOpen))}
				keyword, value = "", nil
			}

			continue
		}

		switch {
		case line == blockClose:
			descs = append(descs, *current)
			current = nil
		case keywordLine.MatchString(line):
			keyword, value = strings.TrimSpace(line), nil
		case value != nil:
			value = append(value, Unescape(line))
			current.set(keyword, strings.Join(value, "\n"))
		case strings.HasPrefix(line, valueIndent):
			if keyword == "" {
				return nil, fmt.Errorf("line %d: value without keyword in block %s", lineNo, current.Name)
			}

			value = []string{Unescape(strings.TrimPrefix(line, valueIndent))}
			current.set(keyword, value[0])
		default:
			return nil, fmt.Errorf("line %d: unexpected %q in block %s", lineNo, line, current.Name)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	if current != nil {
		return nil, fmt.Errorf("unterminated ExternalProject_Add block %s", current.Name)
	}

	return descs, nil
}

func (d *Descriptor) set(keyword, value string) {
	switch keyword {
	case "GIT_REPOSITORY":
		d.GitRepository = value
	case "GIT_TAG":
		d.GitTag = value
	case "CONFIGURE_COMMAND":
		d.ConfigureCommand = value
	case "BUILD_COMMAND":
		d.BuildCommand = value
	case "INSTALL_COMMAND":
		d.InstallCommand = value
	case "DEPENDS":
		d.Depends = strings.Fields(value)
	}
}
