package conversation

import "math"

// ParseAmount reads the integer at the start of text: leading whitespace,
// an optional sign, then digits. Anything after the digits is ignored. Text
// without digits yields 0 and values past the int64 range saturate.
func ParseAmount(text string) int64 {
	i := 0
	for i < len(text) && isSpace(text[i]) {
		i++
	}

	negative := false
	if i < len(text) && (text[i] == '+' || text[i] == '-') {
		negative = text[i] == '-'
		i++
	}

	var n int64
	for ; i < len(text) && text[i] >= '0' && text[i] <= '9'; i++ {
		d := int64(text[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			if negative {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		n = n*10 + d
	}

	if negative {
		return -n
	}
	return n
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
