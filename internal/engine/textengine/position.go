package textengine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPosition is returned when a position id cannot be displayed
var ErrBadPosition = errors.New("textengine: bad position")

const (
	positionPrefix = "epubcfi(/6/"
	positionSep    = "!/4/"
	positionSuffix = ")"
)

// formatPosition encodes a spine index, block index and character offset
// the way EPUB CFIs number child nodes: even steps starting at 2, with an
// optional ":offset" into the text.
func formatPosition(section, block, char int) string {
	if char > 0 {
		return fmt.Sprintf("%s%d%s%d:%d%s", positionPrefix, (section+1)*2, positionSep, (block+1)*2, char, positionSuffix)
	}
	return fmt.Sprintf("%s%d%s%d%s", positionPrefix, (section+1)*2, positionSep, (block+1)*2, positionSuffix)
}

func isPosition(target string) bool {
	return strings.HasPrefix(target, "epubcfi(")
}

func parsePosition(id string) (section, block, char int, err error) {
	bad := fmt.Errorf("%w: %q", ErrBadPosition, id)
	body, ok := strings.CutPrefix(id, positionPrefix)
	if !ok {
		return 0, 0, 0, bad
	}
	body, ok = strings.CutSuffix(body, positionSuffix)
	if !ok {
		return 0, 0, 0, bad
	}
	s, b, ok := strings.Cut(body, positionSep)
	if !ok {
		return 0, 0, 0, bad
	}
	b, off, hasOffset := strings.Cut(b, ":")
	if hasOffset {
		if char, err = strconv.Atoi(off); err != nil || char < 0 {
			return 0, 0, 0, bad
		}
	}
	if section, err = step(s); err != nil {
		return 0, 0, 0, bad
	}
	if block, err = step(b); err != nil {
		return 0, 0, 0, bad
	}
	return section, block, char, nil
}

func step(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 2 || n%2 != 0 {
		return 0, fmt.Errorf("invalid step %d", n)
	}
	return n/2 - 1, nil
}
