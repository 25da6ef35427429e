package script

import (
	"context"
	"fmt"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
)

// DuplicatePolicy decides what happens when two sections share a title.
type DuplicatePolicy string

const (
	// RejectDuplicates fails parsing with a DuplicateSectionError.
	RejectDuplicates DuplicatePolicy = "reject"
	// LastWins keeps every section in execution order, but lookups by title
	// return the latest one.
	LastWins DuplicatePolicy = "last_wins"
)

// ParseDuplicatePolicy validates a policy name. The empty string maps to
// RejectDuplicates.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", RejectDuplicates:
		return RejectDuplicates, nil
	case LastWins:
		return LastWins, nil
	default:
		return "", fmt.Errorf("invalid duplicate title policy %q: must be %q or %q", s, RejectDuplicates, LastWins)
	}
}

// Script is the ordered list of sections of one script together with an
// index by title.
type Script struct {
	Sections []Section
	byTitle  map[string]int
}

// Parse splits text and indexes the sections by title under the given policy.
func Parse(ctx context.Context, text string, policy DuplicatePolicy) (*Script, error) {
	sections, err := Split(text)
	if err != nil {
		return nil, err
	}
	return New(ctx, sections, policy)
}

// New indexes already split sections.
func New(ctx context.Context, sections []Section, policy DuplicatePolicy) (*Script, error) {
	logger := ctxlog.FromContext(ctx)
	s := &Script{
		Sections: sections,
		byTitle:  make(map[string]int, len(sections)),
	}
	for i, sec := range sections {
		if prev, ok := s.byTitle[sec.Title]; ok {
			if policy != LastWins {
				return nil, &DuplicateSectionError{Title: sec.Title, First: prev, Second: i}
			}
			logger.Warn("Duplicate section title, later section wins lookups.", "title", sec.Title, "first", prev, "second", i)
		}
		s.byTitle[sec.Title] = i
	}
	logger.Debug("Script parsed.", "sections", len(sections))
	return s, nil
}

// Section returns the section with the given title.
func (s *Script) Section(title string) (Section, bool) {
	i, ok := s.byTitle[title]
	if !ok {
		return Section{}, false
	}
	return s.Sections[i], true
}

// Titles returns the section titles in script order, duplicates included.
func (s *Script) Titles() []string {
	out := make([]string, len(s.Sections))
	for i, sec := range s.Sections {
		out[i] = sec.Title
	}
	return out
}

// String renders the script back to text.
func (s *Script) String() string {
	return Format(s.Sections)
}
