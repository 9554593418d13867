// Package paths canonicalizes user supplied path strings into virtual paths
// rooted at "/" and joins them onto a storage base path. All functions are
// pure string operations; nothing here touches a filesystem.
package paths

import (
	"errors"
	"strings"
)

// Separator is the only separator present in a normalized path
const Separator = "/"

// Root is the virtual path of a storage root
const Root = "/"

const homeMarker = "~"

var (
	// ErrEmptyPath is returned when a blank string is resolved
	ErrEmptyPath = errors.New("empty path")
	// ErrEscapesRoot is returned when ".." segments climb above "/"
	ErrEscapesRoot = errors.New("path escapes root")
)

// Patch trims surrounding whitespace and collapses every run of separators
// into a single separator.
func Patch(p string) string {
	p = strings.TrimSpace(p)
	if !strings.Contains(p, "//") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Trunk strips leading separators, home markers ("~/", "/~", "~") and a drive
// prefix such as "C:" until none is left. The result never begins with a
// separator or "~".
func Trunk(p string) string {
	p = strings.TrimLeft(toSlash(p), Separator)
	switch {
	case strings.HasPrefix(p, homeMarker+Separator):
		return Trunk(p[2:])
	case strings.HasPrefix(p, homeMarker):
		return Trunk(p[1:])
	case hasDrive(p):
		return Trunk(p[2:])
	}
	return p
}

// Normalize returns the canonical form of p: separators patched, "." and ".."
// resolved, no trailing separator and no leading home marker. A leading home
// marker stands for the root, so "~/a" and "/~/a" both normalize to "/a".
//
// Returns "" for blank input and for a rooted path whose ".." segments climb
// above "/". Relative paths keep the ".." segments they cannot resolve.
func Normalize(p string) string {
	s, _ := normalize(p)
	return s
}

func normalize(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyPath
	}
	s, err := clean(Patch(toSlash(p)))
	if err != nil {
		return "", err
	}
	if t := strings.TrimSpace(s); t != s {
		// resolving ".." exposed whitespace at an end
		if t == "" {
			return "", nil
		}
		return normalize(t)
	}
	if strings.HasPrefix(s, homeMarker) || strings.HasPrefix(s, Separator+homeMarker) {
		rest := strings.TrimLeft(strings.TrimPrefix(s, Separator), homeMarker)
		return normalize(Separator + rest)
	}
	return s, nil
}

// clean resolves "." and ".." segments of a patched path
func clean(p string) (string, error) {
	rooted := strings.HasPrefix(p, Separator)
	segs := strings.Split(strings.Trim(p, Separator), Separator)
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		switch seg {
		case "", ".":
		case "..":
			switch {
			case len(out) > 0 && out[len(out)-1] != "..":
				out = out[:len(out)-1]
			case rooted:
				return "", ErrEscapesRoot
			default:
				out = append(out, seg)
			}
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, Separator)
	if rooted {
		return Separator + joined, nil
	}
	return joined, nil
}

// Concat joins last onto base and re-normalizes the result.
// Returns "" when the join escapes the root.
func Concat(base, last string) string {
	return Normalize(Normalize(base) + Separator + Normalize(Trunk(last)))
}

// VirtualPath derives the root-relative path of abs inside base. The base is
// only stripped when it is a whole-segment prefix of abs; ok is false when abs
// lies outside base.
func VirtualPath(abs, base string) (vpath string, ok bool) {
	abs, base = Normalize(abs), Normalize(base)
	if abs == "" || base == "" || !strings.HasPrefix(abs, Separator) {
		return "", false
	}
	switch {
	case base == Root:
		return abs, true
	case abs == base:
		return Root, true
	case strings.HasPrefix(abs, base+Separator):
		return Normalize(abs[len(base):]), true
	}
	return "", false
}

// Resolve turns name into a virtual path as seen from the folder at virtual
// path folder. Rooted names are taken as given, relative names are joined
// onto folder.
func Resolve(folder, name string) (string, error) {
	n, err := normalize(name)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(n, Separator) {
		return n, nil
	}
	// n is already normalized, only the joint needs cleaning
	joined, err := clean(Separator + strings.Trim(folder, Separator) + Separator + n)
	if err != nil {
		return "", err
	}
	return joined, nil
}

// Join appends the virtual path vpath to the normalized base. Every segment
// of vpath is kept as given, so a vpath returned by [Resolve] always maps
// onto base+vpath.
func Join(base, vpath string) string {
	switch {
	case vpath == "" || vpath == Root:
		return base
	case base == Root:
		return vpath
	}
	return strings.TrimSuffix(base, Separator) + Separator + strings.TrimPrefix(vpath, Separator)
}

// IsRoot reports whether p normalizes to the root
func IsRoot(p string) bool {
	return Normalize(p) == Root
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", Separator)
}

func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Name returns the last segment of p, "" for the root
func Name(p string) string {
	p = strings.TrimRight(toSlash(p), Separator)
	if i := strings.LastIndex(p, Separator); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Extension returns the part of the name after its last dot, without the dot
func Extension(p string) string {
	name := Name(p)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// BaseName returns the name without its extension
func BaseName(p string) string {
	name := Name(p)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
