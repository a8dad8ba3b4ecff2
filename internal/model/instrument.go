package model

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies an instrument for the decision rule.
type Category int

const (
	RiskAsset Category = iota
	SafeHaven
)

func (c Category) String() string {
	switch c {
	case RiskAsset:
		return "risk_asset"
	case SafeHaven:
		return "safe_haven"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory maps a configuration string to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "risk_asset", "risk", "equity":
		return RiskAsset, nil
	case "safe_haven", "safe", "bond":
		return SafeHaven, nil
	default:
		return 0, fmt.Errorf("unknown instrument category %q", s)
	}
}

// Instrument is a tradable instrument taking part in the ranking.
type Instrument struct {
	Name     string
	Symbol   string
	Category Category
}

// ValidateUniverse checks that the instrument list can always be resolved by the decision rule:
// at least two instruments, at least one of each category, unique non-empty symbols.
func ValidateUniverse(instruments []Instrument) error {
	if len(instruments) < 2 {
		return errors.New("at least 2 instruments are required")
	}
	seen := make(map[string]bool, len(instruments))
	var risk, safe int
	for i, inst := range instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument #%d has no symbol", i+1)
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("duplicate symbol %q", inst.Symbol)
		}
		seen[inst.Symbol] = true
		switch inst.Category {
		case RiskAsset:
			risk++
		case SafeHaven:
			safe++
		default:
			return fmt.Errorf("instrument %q has invalid category %v", inst.Symbol, inst.Category)
		}
	}
	if risk == 0 {
		return errors.New("at least one risk_asset instrument is required")
	}
	if safe == 0 {
		return errors.New("at least one safe_haven instrument is required")
	}
	return nil
}
