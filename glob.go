package kvdoc

import "strings"

// matchGlob reports whether key matches pattern using Redis KEYS semantics:
// '*' matches any run of bytes, '?' matches one byte, '[...]' matches a
// byte class (with '^' negation and 'a-z' ranges), and '\' escapes the next
// byte.
func matchGlob(pattern, key string) bool {
	p, k := 0, 0
	starP, starK := -1, 0
	for k < len(key) {
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				for p < len(pattern) && pattern[p] == '*' {
					p++
				}
				if p == len(pattern) {
					return true
				}
				starP, starK = p, k
				continue
			case '?':
				p++
				k++
				continue
			case '[':
				end, ok := matchClass(pattern, p, key[k])
				if ok {
					p = end
					k++
					continue
				}
			case '\\':
				if p+1 < len(pattern) {
					if pattern[p+1] == key[k] {
						p += 2
						k++
						continue
					}
					break
				}
				fallthrough
			default:
				if pattern[p] == key[k] {
					p++
					k++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		starK++
		p, k = starP, starK
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchClass matches c against the class starting at pattern[start] == '['.
// It returns the index just past the closing bracket. An unterminated class
// extends to the end of the pattern, like Redis does.
func matchClass(pattern string, start int, c byte) (int, bool) {
	i := start + 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}
	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		switch {
		case pattern[i] == '\\' && i+1 < len(pattern):
			i++
			if pattern[i] == c {
				matched = true
			}
			i++
		case i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']':
			lo, hi := pattern[i], pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 3
		default:
			if pattern[i] == c {
				matched = true
			}
			i++
		}
	}
	if i < len(pattern) {
		i++ // closing ']'
	}
	return i, matched != negate
}

// globPrefix returns the literal prefix every key matching pattern must
// start with, used to narrow ordered scans.
func globPrefix(pattern string) string {
	var buf strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*', '?', '[':
			return buf.String()
		case '\\':
			if i+1 < len(pattern) {
				i++
				buf.WriteByte(pattern[i])
			} else {
				buf.WriteByte(c)
			}
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

// collectionPattern is the enumeration pattern for all records of a
// collection. Glob metacharacters in the collection name are escaped.
func collectionPattern(collection string) string {
	var buf strings.Builder
	for i := 0; i < len(collection); i++ {
		switch c := collection[i]; c {
		case '*', '?', '[', ']', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteString(":*")
	return buf.String()
}
