package components

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

var (
	aliasLine    = regexp.MustCompile(`^\s*alias\s*([A-Z][a-zA-Z_\d\.]+)$`)
	aliasAsLine  = regexp.MustCompile(`^\s*alias\s+([A-Z][a-zA-Z_\d\.]+)\s*,\s*as:\s*([A-Z][a-zA-Z_\d]*)\s*$`)
	aliasManyRow = regexp.MustCompile(`^\s*alias\s+([A-Z][a-zA-Z_\d\.]*)\.\{([^}]*)\}\s*$`)
	aliasMember  = regexp.MustCompile(`^[A-Z][a-zA-Z_\d\.]*$`)
)

// Aliases maps the short names visible in a template to qualified module
// names.
type Aliases map[string]string

// Resolve returns the qualified name a short name was aliased to.
func (a Aliases) Resolve(short string) (string, bool) {
	qualified, ok := a[short]
	return qualified, ok
}

// CompanionPath returns the path of the module file next to a template:
// the template path with its last extension replaced by ext.
func CompanionPath(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		path = path[:i]
	}
	return path + ext
}

// ReadAliases scans the companion module of a template for alias
// declarations. A missing companion yields no aliases.
func ReadAliases(fs afero.Fs, path string) (Aliases, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return Aliases{}, nil
		}
		return nil, errors.Errorf("failed to read %s: %w", path, err)
	}
	return ParseAliases(data), nil
}

// ParseAliases extracts `alias A.B`, `alias A.B, as: C` and `alias A.{B, C}`
// declarations, one per line.
func ParseAliases(data []byte) Aliases {
	aliases := Aliases{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	// A line can be as long as the whole file.
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(data)+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := aliasAsLine.FindStringSubmatch(line); m != nil {
			aliases[m[2]] = m[1]
			continue
		}
		if m := aliasManyRow.FindStringSubmatch(line); m != nil {
			for _, member := range strings.Split(m[2], ",") {
				member = strings.TrimSpace(member)
				if !aliasMember.MatchString(member) {
					continue
				}
				aliases[shortName(member)] = m[1] + "." + member
			}
			continue
		}
		if m := aliasLine.FindStringSubmatch(line); m != nil {
			aliases[shortName(m[1])] = m[1]
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warningf("%s", errors.Errorf("failed to scan aliases: %w", err))
	}
	return aliases
}
