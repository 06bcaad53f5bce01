package diag

import (
	"fmt"
	"strings"
)

// Category groups codes by the validator that produces them.
type Category uint8

const (
	CatUnknown Category = iota
	// CatStructure covers scanner and tag-structure findings.
	CatStructure
	CatExpression
	CatSchema
	CatCharacterSafety
	CatPerformance
	// CatThemeStore covers the Theme Store submission rules.
	CatThemeStore
	// CatEngine findings are produced by the coordinator itself and are never filtered out.
	CatEngine
)

var categoryNames = map[Category]string{
	CatStructure:       "structure",
	CatExpression:      "expression",
	CatSchema:          "schema",
	CatCharacterSafety: "character-safety",
	CatPerformance:     "performance",
	CatThemeStore:      "theme-store",
	CatEngine:          "engine",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory maps a configuration key to a category.
// Подчёркивания и дефисы взаимозаменяемы: character_safety == character-safety.
func ParseCategory(s string) (Category, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for c, name := range categoryNames {
		if name == key {
			return c, nil
		}
	}
	return CatUnknown, fmt.Errorf("unknown category %q", s)
}

// Categories lists the categories a profile can toggle.
func Categories() []Category {
	return []Category{CatStructure, CatExpression, CatSchema, CatCharacterSafety, CatPerformance, CatThemeStore}
}

// Domain is a character-safety sub-domain.
type Domain uint8

const (
	DomNone Domain = iota
	// DomContext flags template code inside isolated fences.
	DomContext
	DomCSS
	DomEntities
	DomPlatform
)

var domainNames = map[Domain]string{
	DomContext:  "context",
	DomCSS:      "css",
	DomEntities: "entities",
	DomPlatform: "platform",
}

func (d Domain) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return "none"
}

// ParseDomain maps a configuration key to a sub-domain.
func ParseDomain(s string) (Domain, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d, name := range domainNames {
		if name == key {
			return d, nil
		}
	}
	return DomNone, fmt.Errorf("unknown character-safety domain %q (expected context|css|entities|platform)", s)
}

// Domains lists all character-safety sub-domains.
func Domains() []Domain {
	return []Domain{DomContext, DomCSS, DomEntities, DomPlatform}
}
