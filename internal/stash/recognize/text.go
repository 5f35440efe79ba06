// Package recognize turns OCR text of an inventory screen into snapshot items.
//
// Each line is expected to carry one item label and a quantity written as
// "<n>x", for example "AK47 Baggy 50x" or "Dirty Money 200,000x". Lines without
// a known label or without a quantity are skipped. Labels only match as whole
// words, so "Tweed Jacket" is not weed.
package recognize

import (
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/labels"
)

var quantityRe = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)\s*[xX]\b`)

// Labeler lists the labels to look for, longest first.
type Labeler interface {
	Labels() []string
}

type labelPattern struct {
	label string
	re    *regexp.Regexp
}

// Parser matches OCR lines against a fixed label list.
type Parser struct {
	patterns []labelPattern
}

// NewParser compiles one whole-word pattern per label of known.
func NewParser(known Labeler) *Parser {
	candidates := known.Labels()
	p := &Parser{patterns: make([]labelPattern, 0, len(candidates))}

	for _, c := range candidates {
		p.patterns = append(p.patterns, labelPattern{
			label: c,
			re:    regexp.MustCompile(`(?:^|[^\pL\pN_])(` + regexp.QuoteMeta(c) + `)(?:$|[^\pL\pN_])`),
		})
	}

	return p
}

// ParseText is NewParser(known).Parse(text).
func ParseText(text string, known Labeler) (map[string]uint64, error) {
	return NewParser(known).Parse(text)
}

// Parse extracts label→quantity pairs from OCR output. Quantities for the
// same label on several lines are summed. A quantity or sum that does not
// fit in uint64 fails with stash.ErrInvalidAmount.
func (p *Parser) Parse(text string) (map[string]uint64, error) {
	out := make(map[string]uint64)

	for i, line := range strings.Split(text, "\n") {
		norm := labels.Normalize(line)
		if norm == "" {
			continue
		}

		label, rest, ok := p.match(norm)
		if !ok {
			continue
		}

		m := quantityRe.FindStringSubmatch(rest)
		if m == nil {
			continue
		}

		q, err := strconv.ParseUint(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s", stash.ErrInvalidAmount, i+1, m[1])
		}

		sum, carry := bits.Add64(out[label], q, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: line %d: %s total overflows", stash.ErrInvalidAmount, i+1, label)
		}

		out[label] = sum
	}

	return out, nil
}

// match finds the first label in line and returns the line with that label
// cut out, so digits inside labels like "ak47" are not read as quantities.
func (p *Parser) match(line string) (string, string, bool) {
	for _, lp := range p.patterns {
		loc := lp.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		return lp.label, line[:loc[2]] + " " + line[loc[3]:], true
	}

	return "", "", false
}
