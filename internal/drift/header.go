// Public domain.

package drift

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Header holds keyword values from a FITS style header dump.
type Header map[string]string

// ReadHeaderFile reads a header dump from file fn.
func ReadHeaderFile(fn string) (Header, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseHeader(f)
}

// ParseHeader reads lines of the form
//
//	KEY = VALUE / comment
//
// Blank lines, lines starting with # and lines without = are skipped.
// Keys are upper cased.  String values may be single quoted.  An END line
// ends the header.
func ParseHeader(r io.Reader) (Header, error) {
	h := Header{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if line == "END" {
			break
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(line[:eq]))
		if key == "" {
			continue
		}
		h[key] = value(line[eq+1:])
	}
	return h, sc.Err()
}

func value(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "'") {
		if end := strings.IndexByte(v[1:], '\''); end >= 0 {
			return strings.TrimSpace(v[1 : end+1])
		}
		return strings.TrimSpace(v[1:])
	}
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// Float returns the numeric value of key.  The second result is false if
// the key is missing.  A value present but not numeric is returned as NaN.
func (h Header) Float(key string) (float64, bool) {
	s, ok := h[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), true
	}
	return f, true
}

// Write writes h as KEY = VALUE lines ordered by key, ending with END.
func (h Header) Write(w io.Writer) error {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		fmt.Fprintf(bw, "%-8s= %s\n", k, h[k])
	}
	fmt.Fprintln(bw, "END")
	return bw.Flush()
}
