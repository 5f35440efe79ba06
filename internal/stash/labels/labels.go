// Package labels folds the free-form labels reported by recognizers and users
// onto canonical storage categories.
//
// The table is configuration: it is loaded from a TOML file of the form
//
//	[categories.restricted_good]
//	labels = ["AK47 Baggy", "Coke Pouch", "Coke Pooch"]
//	exchange_rate = 4000
//
//	[categories.dirty_funds]
//	labels = ["Dirty Money"]
//
// Matching is case-insensitive and ignores repeated whitespace. Every
// category name also matches itself.
package labels

import (
	"errors"
	"fmt"
	"maps"
	"math/bits"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fastprodman/stashledger/internal/stash"
)

var (
	ErrDuplicateLabel = errors.New("label mapped to more than one category")
	ErrUnknownKey     = errors.New("unknown key in labels file")
)

// Table maps normalized labels to categories.
type Table struct {
	labels map[string]stash.Category
	rates  map[stash.Category]uint64
}

type fileCategory struct {
	Labels       []string `toml:"labels"`
	ExchangeRate uint64   `toml:"exchange_rate"`
}

type fileTable struct {
	Categories map[string]fileCategory `toml:"categories"`
}

// Default covers the labels seen in inventory screenshots so far.
func Default() *Table {
	t, err := New(map[stash.Category][]string{
		stash.DirtyFunds: {"Dirty Money"},
		stash.CleanFunds: {"Clean Money", "Money"},
		stash.RestrictedGood: {
			"AK47", "AK47 Baggy", "Skunk", "Weed", "Coke", "Coke Pouch", "Coke Pooch",
			"Meth Pouch", "Spice Pouch", "Meow Meow",
		},
	})
	if err != nil {
		panic(err)
	}

	return t
}

// New builds a table from category→labels.
func New(categories map[stash.Category][]string) (*Table, error) {
	t := &Table{
		labels: make(map[string]stash.Category),
		rates:  make(map[stash.Category]uint64),
	}

	for _, c := range stash.BuiltinCategories() {
		t.labels[Normalize(string(c))] = c
	}

	for _, c := range slices.Sorted(maps.Keys(categories)) {
		err := t.add(c, categories[c])
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Load reads a TOML table from path.
func Load(path string) (*Table, error) {
	var ft fileTable

	md, err := toml.DecodeFile(path, &ft)
	if err != nil {
		return nil, fmt.Errorf("decode labels file: %w", err)
	}

	err = rejectUndecoded(md)
	if err != nil {
		return nil, fmt.Errorf("decode labels file: %w", err)
	}

	return fromFile(ft)
}

// Parse reads a TOML table from a string.
func Parse(data string) (*Table, error) {
	var ft fileTable

	md, err := toml.Decode(data, &ft)
	if err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	err = rejectUndecoded(md)
	if err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	return fromFile(ft)
}

// rejectUndecoded fails on keys the table does not understand. Category
// classes are fixed: only clean_funds and dirty_funds are funds.
func rejectUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}

	return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(names, ", "))
}

func fromFile(ft fileTable) (*Table, error) {
	cats := make(map[stash.Category][]string, len(ft.Categories))
	rates := make(map[stash.Category]uint64)

	for name, fc := range ft.Categories {
		c := stash.Category(Normalize(name))
		if c == "" {
			return nil, fmt.Errorf("empty category name")
		}

		c = stash.Category(strings.ReplaceAll(string(c), " ", "_"))
		cats[c] = fc.Labels

		if fc.ExchangeRate > 0 {
			rates[c] = fc.ExchangeRate
		}
	}

	t, err := New(cats)
	if err != nil {
		return nil, err
	}

	maps.Copy(t.rates, rates)

	return t, nil
}

func (t *Table) add(c stash.Category, labels []string) error {
	t.labels[Normalize(string(c))] = c

	for _, l := range labels {
		n := Normalize(l)
		if n == "" {
			continue
		}

		prev, ok := t.labels[n]
		if ok && prev != c {
			return fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateLabel, l, prev, c)
		}

		t.labels[n] = c
	}

	return nil
}

// Normalize lowercases s and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup returns the category for label.
func (t *Table) Lookup(label string) (stash.Category, bool) {
	c, ok := t.labels[Normalize(label)]

	return c, ok
}

// Category is like Lookup but returns stash.ErrUnknownLabel.
func (t *Table) Category(label string) (stash.Category, error) {
	c, ok := t.Lookup(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", stash.ErrUnknownLabel, label)
	}

	return c, nil
}

// Labels returns the known normalized labels in order. Longer labels come
// first so that prefix matching prefers "coke pouch" over "coke".
func (t *Table) Labels() []string {
	out := slices.Collect(maps.Keys(t.labels))
	slices.SortFunc(out, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}

		return strings.Compare(a, b)
	})

	return out
}

// ExchangeRate returns the per-category rate override, if any.
func (t *Table) ExchangeRate(c stash.Category) (uint64, bool) {
	r, ok := t.rates[c]

	return r, ok
}

// Canonicalize folds a label→quantity map onto categories. Synonyms are summed.
func (t *Table) Canonicalize(items map[string]uint64) (map[stash.Category]uint64, error) {
	out := make(map[stash.Category]uint64, len(items))

	for label, q := range items {
		c, err := t.Category(label)
		if err != nil {
			return nil, err
		}

		sum, carry := bits.Add64(out[c], q, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: %s overflows", stash.ErrInvalidAmount, c)
		}

		out[c] = sum
	}

	return out, nil
}
