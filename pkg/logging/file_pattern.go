package logging

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ExpandPattern turns a file pattern into a path.
//
//	%t  temporary directory
//	%h  user home directory (refused when restricted)
//	%g  generation number
//	%u  unique number
//	%%  a literal percent sign
//
// Placeholders are matched case-insensitively. %t and %h discard whatever
// precedes them. Without %g and with count > 1 ".<generation>" is appended;
// without %u and with unique > 0 ".<unique>" is appended after that.
func ExpandPattern(pattern string, generation, unique, count int, restricted bool) (string, error) {
	if pattern == "" {
		return "", ErrInvalidPattern
	}

	elems := strings.FieldsFunc(pattern, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})

	var (
		result     string
		word       strings.Builder
		sawG, sawU bool
	)
	for i, elem := range elems {
		if i > 0 {
			result = filepath.Join(result, word.String())
		}
		word.Reset()

		for ix := 0; ix < len(elem); ix++ {
			ch := elem[ix]
			if ch == '%' && ix+1 < len(elem) {
				switch elem[ix+1] {
				case 't', 'T':
					result = tempDir()
					word.Reset()
					ix++
					continue
				case 'h', 'H':
					if restricted {
						return "", ErrRestrictedHome
					}
					home, err := os.UserHomeDir()
					if err != nil {
						return "", &ConfigError{Key: pattern, Message: "cannot resolve %h", Err: err}
					}
					result = home
					word.Reset()
					ix++
					continue
				case 'g', 'G':
					word.WriteString(strconv.Itoa(generation))
					sawG = true
					ix++
					continue
				case 'u', 'U':
					word.WriteString(strconv.Itoa(unique))
					sawU = true
					ix++
					continue
				case '%':
					word.WriteByte('%')
					ix++
					continue
				}
			}
			word.WriteByte(ch)
		}
	}

	if count > 1 && !sawG {
		word.WriteByte('.')
		word.WriteString(strconv.Itoa(generation))
	}
	if unique > 0 && !sawU {
		word.WriteByte('.')
		word.WriteString(strconv.Itoa(unique))
	}

	name := filepath.Join(result, word.String())
	if filepath.IsAbs(pattern) && !filepath.IsAbs(name) {
		name = string(filepath.Separator) + name
	}
	return name, nil
}

func tempDir() string {
	if dir := os.TempDir(); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return home
}
