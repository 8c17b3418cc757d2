/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package nodemap parses and compresses the bracketed-range node/proc map
// notation carried in a namespace's job-info blob (NODE_MAP, PROC_MAP).
package nodemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// bracket matches prefix[digits:ranges]suffix, e.g. "node[2:01-03,05]".
var bracket = regexp.MustCompile(`^(.*)\[(\d+):([0-9,\-]+)\](.*)$`)

// ParseNodes decompresses a NODE_MAP string into the ordered list of node
// names it denotes. A string with no bracket expression is returned as the
// single-element list containing it verbatim.
func ParseNodes(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	return parseOneGroup(s)
}

// ParseProcs decompresses a PROC_MAP string. Per-node groups are
// semicolon-separated; each group follows the same bracket grammar as a node
// name but denotes rank numbers rather than node names, returned as strings
// in decimal form to mirror the wire representation.
func ParseProcs(s string) ([][]string, error) {
	if s == "" {
		return nil, nil
	}
	groups := strings.Split(s, ";")
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		names, err := parseOneGroup(g)
		if err != nil {
			return nil, err
		}
		out = append(out, names)
	}
	return out, nil
}

func parseOneGroup(s string) ([]string, error) {
	m := bracket.FindStringSubmatch(s)
	if m == nil {
		return []string{s}, nil
	}

	prefix, widthStr, ranges, suffix := m[1], m[2], m[3], m[4]
	width, err := strconv.Atoi(widthStr)
	if err != nil {
		return nil, fmt.Errorf("nodemap: invalid digit width %q: %w", widthStr, err)
	}

	var out []string
	for _, span := range strings.Split(ranges, ",") {
		lo, hi, err := parseSpan(span)
		if err != nil {
			return nil, err
		}
		for i := lo; i <= hi; i++ {
			out = append(out, fmt.Sprintf("%s%0*d%s", prefix, width, i, suffix))
		}
	}
	return out, nil
}

func parseSpan(s string) (lo, hi int, err error) {
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		lo, err = strconv.Atoi(s[:idx])
		if err != nil {
			return 0, 0, fmt.Errorf("nodemap: invalid range start %q: %w", s, err)
		}
		hi, err = strconv.Atoi(s[idx+1:])
		if err != nil {
			return 0, 0, fmt.Errorf("nodemap: invalid range end %q: %w", s, err)
		}
		return lo, hi, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("nodemap: invalid value %q: %w", s, err)
	}
	return v, v, nil
}

// CompressNodes is the inverse of ParseNodes: given a flat, ordered list of
// names sharing a common prefix/digit-width/suffix, it emits the
// range-compressed bracket form. A single-element list (or one whose names
// do not share a uniform numeric core) is emitted verbatim, joined by commas
// with no bracket syntax applied.
func CompressNodes(names []string) string {
	return compressGroup(names)
}

// CompressProcs is the inverse of ParseProcs.
func CompressProcs(groups [][]string) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = compressGroup(g)
	}
	return strings.Join(parts, ";")
}

var trailingDigits = regexp.MustCompile(`^(.*?)(\d+)([^0-9]*)$`)

func compressGroup(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}

	prefix, width, suffix, nums, ok := splitUniform(names)
	if !ok {
		return strings.Join(names, ",")
	}

	ranges := compressInts(nums)
	return fmt.Sprintf("%s[%d:%s]%s", prefix, width, strings.Join(ranges, ","), suffix)
}

// splitUniform checks every name shares the same prefix, zero-padded digit
// width and suffix, returning the parsed numeric core of each in order.
func splitUniform(names []string) (prefix string, width int, suffix string, nums []int, ok bool) {
	m := trailingDigits.FindStringSubmatch(names[0])
	if m == nil {
		return "", 0, "", nil, false
	}
	prefix, digits, suffix := m[1], m[2], m[3]
	width = len(digits)

	nums = make([]int, len(names))
	for i, n := range names {
		mm := trailingDigits.FindStringSubmatch(n)
		if mm == nil || mm[1] != prefix || mm[3] != suffix || len(mm[2]) != width {
			return "", 0, "", nil, false
		}
		v, err := strconv.Atoi(mm[2])
		if err != nil {
			return "", 0, "", nil, false
		}
		nums[i] = v
	}
	return prefix, width, suffix, nums, true
}

// compressInts groups a list of (possibly unsorted, but here always
// insertion-ordered from the caller) integers into contiguous runs,
// preserving first-seen order of each run's start.
func compressInts(nums []int) []string {
	var out []string
	i := 0
	for i < len(nums) {
		start := nums[i]
		end := start
		j := i + 1
		for j < len(nums) && nums[j] == end+1 {
			end = nums[j]
			j++
		}
		if end > start {
			out = append(out, fmt.Sprintf("%d-%d", start, end))
		} else {
			out = append(out, strconv.Itoa(start))
		}
		i = j
	}
	return out
}
