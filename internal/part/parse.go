package part

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	AllStr  = "*"
	itemStr = `^(c|p)(0|[1-9][0-9]*)-(0|[1-9][0-9]*)(?:x([1-9][0-9]*)|@(0|[1-9][0-9]*)x(0|[1-9][0-9]*))?$`
)

var itemRE = regexp.MustCompile(itemStr)

const Doc = "Either " + AllStr + " (every channel convolved) or parts joined by +. " +
	"cB-E convolves input channels B through E-1; in a pointwise stage it is written " +
	"cB-ExN to produce N output channels. pB-E passes input channels B through E-1 " +
	"straight through; in a depthwise stage pB-E@YxX puts the single unit tap at " +
	"filter row Y and column X (the centre by default). Each part matches: " + itemStr

// Parse reads the parts grammar. It returns nil for AllStr; the caller
// substitutes All once the stage shape is known.
func Parse(s string) (*FiltersBiasesPartInfo, error) {
	if s == AllStr {
		return nil, nil
	}
	if s == "" {
		return nil, errors.New("no parts")
	}
	var parts []ChannelPartInfo
	for _, item := range strings.Split(s, "+") {
		m := itemRE.FindStringSubmatch(item)
		if m == nil {
			return nil, errors.New(item + " does not match " + itemStr)
		}
		begin, _ := strconv.Atoi(m[2])
		end, _ := strconv.Atoi(m[3])
		if begin >= end {
			return nil, errors.New(item + " is empty")
		}
		if m[1] == "c" {
			if m[5] != "" {
				return nil, errors.New(item + ": only a pass-through part has a tap")
			}
			p := Conv(begin, end)
			if m[4] != "" {
				p.OutCount, _ = strconv.Atoi(m[4])
			}
			parts = append(parts, p)
			continue
		}
		if m[4] != "" {
			return nil, errors.New(item + ": a pass-through part has no output count")
		}
		p := Pass(begin, end)
		if m[5] != "" {
			p.TapY, _ = strconv.Atoi(m[5])
			p.TapX, _ = strconv.Atoi(m[6])
		}
		parts = append(parts, p)
	}
	return New(parts...), nil
}
