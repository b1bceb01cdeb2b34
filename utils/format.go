package utils

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// AbbreviateDecimal renders small prices compactly for logs, collapsing
// leading fractional zeros into a subscript count: 0.0000123 -> 0.0₄123.
func AbbreviateDecimal(v decimal.Decimal) string {
	s := v.StringFixedBank(9)
	ss := strings.Split(s, ".")
	if len(ss) == 1 {
		return s
	}

	fraction := ss[1]
	cnt := 0
	for _, c := range fraction {
		if c == '0' {
			cnt++
		} else {
			break
		}
	}

	const zero rune = '₀'
	if cnt >= 9 {
		fraction = fraction[:3]
	} else if cnt > 2 {
		fraction = fmt.Sprintf("0%s%s", string(zero+rune(cnt)), fraction[cnt:lo.Min([]int{9, cnt + 3})])
	} else {
		fraction = fraction[:cnt+3]
	}
	return fmt.Sprintf("%s.%s", ss[0], fraction)
}

// TrimSpace trims whitespace and the NUL padding of bytes32 strings.
func TrimSpace(s string) string {
	s = strings.TrimSpace(s)
	var m, n int

	for i := 0; i < len(s); i++ {
		if s[i] != 0 {
			m = i
			break
		}
	}

	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != 0 {
			n = i + 1
			break
		}
	}

	if n <= m {
		return ""
	}
	return s[m:n]
}
