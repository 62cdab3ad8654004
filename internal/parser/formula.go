package parser

import (
	"regexp"
	"strings"
)

var (
	fractionRegex = regexp.MustCompile(`(\d+)/(\d+)`)
	sqrtRegex     = regexp.MustCompile(`sqrt\(([^)]+)\)`)
	exponentRegex = regexp.MustCompile(`([a-zA-Z])\^(\d+)`)
)

// mathRule rewrites one informal pattern into math markup (without delimiters).
type mathRule struct {
	pattern *regexp.Regexp
	render  func(groups []string) string
}

// mathRules run in this order. Text claimed by an earlier rule becomes a math
// span and is never offered to a later one.
var mathRules = []mathRule{
	{fractionRegex, func(g []string) string { return `\frac{` + g[1] + `}{` + g[2] + `}` }},
	{sqrtRegex, func(g []string) string { return `\sqrt{` + g[1] + `}` }},
	{exponentRegex, func(g []string) string { return g[1] + `^{` + g[2] + `}` }},
}

// segment is either plain text or the content of a $...$ span.
type segment struct {
	text string
	math bool
}

// NormalizeFormula rewrites informal math notation into $-delimited markup.
//
//	"1/2"      -> "$\frac{1}{2}$"
//	"sqrt(3)"  -> "$\sqrt{3}$"
//	"$$y$$"    -> "$y$"
//	"x^2"      -> "$x^{2}$"
//
// Adjacent spans are merged into one pair. Text with an unmatched "$" is
// returned unchanged. NormalizeFormula(NormalizeFormula(s)) == NormalizeFormula(s).
func NormalizeFormula(text string) string {
	if text == "" || !strings.ContainsAny(text, "/^$") && !strings.Contains(text, "sqrt(") {
		return text
	}

	segs, ok := splitMathSpans(text)
	if !ok {
		return text
	}

	var out []segment
	for _, s := range segs {
		if s.math {
			out = appendSegment(out, s)
			continue
		}
		for _, piece := range rewritePlain(s.text, 0) {
			out = appendSegment(out, piece)
		}
	}

	var b strings.Builder
	b.Grow(len(text) + 16)
	for _, s := range out {
		if s.math {
			b.WriteByte('$')
			b.WriteString(s.text)
			b.WriteByte('$')
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// splitMathSpans cuts text into plain and math segments. A run of "$" opens a
// span and the closing run takes at most as many "$", so "$a$$b$" is two spans.
// ok is false when a delimiter has no partner.
func splitMathSpans(text string) (segs []segment, ok bool) {
	plainStart := 0
	i := 0
	for i < len(text) {
		if text[i] != '$' {
			i++
			continue
		}
		open := i
		for i < len(text) && text[i] == '$' {
			i++
		}
		width := i - open
		rel := strings.IndexByte(text[i:], '$')
		if rel < 0 {
			return nil, false
		}
		contentEnd := i + rel
		if open > plainStart {
			segs = append(segs, segment{text: text[plainStart:open]})
		}
		segs = append(segs, segment{text: text[i:contentEnd], math: true})

		i = contentEnd
		for n := 0; n < width && i < len(text) && text[i] == '$'; n++ {
			i++
		}
		plainStart = i
	}
	if plainStart < len(text) {
		segs = append(segs, segment{text: text[plainStart:]})
	}
	return segs, true
}

// rewritePlain applies mathRules[rule:] to plain text.
func rewritePlain(text string, rule int) []segment {
	if text == "" {
		return nil
	}
	if rule >= len(mathRules) {
		return []segment{{text: text}}
	}

	r := mathRules[rule]
	matches := r.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return rewritePlain(text, rule+1)
	}

	var out []segment
	last := 0
	for _, m := range matches {
		out = append(out, rewritePlain(text[last:m[0]], rule+1)...)
		groups := make([]string, len(m)/2)
		for g := range groups {
			if m[2*g] >= 0 {
				groups[g] = text[m[2*g]:m[2*g+1]]
			}
		}
		out = append(out, segment{text: r.render(groups), math: true})
		last = m[1]
	}
	return append(out, rewritePlain(text[last:], rule+1)...)
}

// appendSegment merges s into the previous segment when both are the same kind.
func appendSegment(segs []segment, s segment) []segment {
	if s.text == "" {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].math == s.math {
		segs[n-1].text += s.text
		return segs
	}
	return append(segs, s)
}
