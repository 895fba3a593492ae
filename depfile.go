package hancho

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
)

// DepFormat selects which depfile parser to use.
type DepFormat string

const (
	DepFormatGCC  DepFormat = "gcc"
	DepFormatMSVC DepFormat = "msvc"
)

// parseDepfile reads and parses path under format, returning the
// transitive dependency paths it lists. An unreadable or malformed
// depfile is not fatal: the caller treats a
// non-nil error here as "no extra deps", not a build failure.
func parseDepfile(path string, format DepFormat) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case DepFormatMSVC:
		return parseMSVCDepfile(data)
	default:
		return parseGCCDepfile(data)
	}
}

// parseGCCDepfile parses the classic Makefile-rule depfile GCC/Clang
// emit with -MMD/-MF: "target: dep1 dep2 \\\n  dep3 ...". Only the
// first rule's dependency list is parsed. A backslash
// followed by a space represents a literal space in a path; a trailing
// backslash at end-of-line continues the rule onto the next line.
func parseGCCDepfile(data []byte) ([]string, error) {
	text := string(data)

	// Join backslash-newline continuations into one logical line,
	// first protecting "\ " (escaped space) from being mistaken for a
	// line continuation.
	const spacePlaceholder = "\x00"
	text = strings.ReplaceAll(text, "\\ ", spacePlaceholder)
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rule string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rule = line
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	colon := strings.Index(rule, ":")
	if colon < 0 {
		return nil, nil
	}
	depsPart := rule[colon+1:]
	fields := strings.Fields(depsPart)
	deps := make([]string, 0, len(fields))
	for _, f := range fields {
		deps = append(deps, strings.ReplaceAll(f, spacePlaceholder, " "))
	}
	return deps, nil
}

// msvcDepfile mirrors the small structured JSON-shaped document MSVC's
// /sourceDependencies emits: a top-level object with an "Includes"
// array of header paths.
type msvcDepfile struct {
	Data struct {
		Includes []string `json:"Includes"`
	} `json:"Data"`
	Includes []string `json:"Includes"`
}

// parseMSVCDepfile extracts every path listed under "Includes",
// tolerating both the bare top-level shape and the nested "Data"
// wrapper MSVC actually emits.
func parseMSVCDepfile(data []byte) ([]string, error) {
	var doc msvcDepfile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Data.Includes) > 0 {
		return doc.Data.Includes, nil
	}
	return doc.Includes, nil
}
