package mmap

import (
	"errors"
	"fmt"
	"strings"
)

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
	// AccessWillNeed expects data to be accessed in the near future.
	AccessWillNeed
	// AccessDontNeed expects data to not be accessed in the near future.
	AccessDontNeed
)

var patternNames = [...]string{
	AccessDefault:    "normal",
	AccessSequential: "sequential",
	AccessRandom:     "random",
	AccessWillNeed:   "willneed",
	AccessDontNeed:   "dontneed",
}

func (p AccessPattern) String() string {
	if p >= 0 && int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("AccessPattern(%d)", int(p))
}

// ParseAccessPattern maps a name such as "sequential" to its AccessPattern.
// The empty string and "normal" both select AccessDefault.
func ParseAccessPattern(s string) (AccessPattern, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AccessDefault, nil
	}
	for i, name := range patternNames {
		if name == s {
			return AccessPattern(i), nil
		}
	}
	return AccessDefault, fmt.Errorf("mmap: unknown access pattern %q", s)
}

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrEmpty is returned when mapping a zero-length file.
	ErrEmpty = errors.New("mmap: cannot map empty file")
	// ErrInvalidSize is returned when the file size is invalid (e.g. negative or too large).
	ErrInvalidSize = errors.New("mmap: invalid file size")
)
