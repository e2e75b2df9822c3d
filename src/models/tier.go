package models

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tier is a named subscription tier. The set of tiers is closed and fixed
// for the lifetime of the process.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierBasic      Tier = "BASIC"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// KeyPrefix is the literal prefix every generated key value starts with.
const KeyPrefix = "solang_"

// ErrUnknownTier indicates a tier name outside the closed set.
var ErrUnknownTier = errors.New("unknown tier")

// defaultQuotas are the compiled-in monthly credit quotas.
var defaultQuotas = map[Tier]int{
	TierFree:       1000,
	TierBasic:      5000,
	TierPro:        20000,
	TierEnterprise: 100000,
}

// TierCatalog maps tier names to their monthly credit quota. It is built
// once at startup and read-only afterwards, so unsynchronized concurrent
// reads are safe.
type TierCatalog struct {
	quotas map[Tier]int
}

// DefaultTierCatalog returns a catalog with the compiled-in quotas.
func DefaultTierCatalog() *TierCatalog {
	quotas := make(map[Tier]int, len(defaultQuotas))
	for tier, credits := range defaultQuotas {
		quotas[tier] = credits
	}
	return &TierCatalog{quotas: quotas}
}

// tiersFile is the on-disk shape of tiers.yaml.
type tiersFile struct {
	Tiers map[string]int `yaml:"tiers"`
}

// LoadTierCatalog reads quota overrides from a YAML file. A missing file is
// not an error: the defaults apply. Overrides may only adjust quotas of
// known tiers; new tier names are rejected because the set is closed.
func LoadTierCatalog(path string) (*TierCatalog, error) {
	catalog := DefaultTierCatalog()
	if path == "" {
		return catalog, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return catalog, nil
		}
		return nil, fmt.Errorf("failed to read tier catalog: %w", err)
	}

	var file tiersFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tier catalog: %w", err)
	}

	for name, credits := range file.Tiers {
		tier := Tier(name)
		if _, ok := catalog.quotas[tier]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTier, name)
		}
		if credits <= 0 {
			return nil, fmt.Errorf("tier %s must have a positive quota, got %d", name, credits)
		}
		catalog.quotas[tier] = credits
	}

	return catalog, nil
}

// QuotaFor returns the monthly credit quota for a tier.
func (tc *TierCatalog) QuotaFor(tier Tier) (int, error) {
	quota, ok := tc.quotas[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	return quota, nil
}

// Contains reports whether the tier is part of the closed set.
func (tc *TierCatalog) Contains(tier Tier) bool {
	_, ok := tc.quotas[tier]
	return ok
}

// Tiers returns the tier names ordered by ascending quota.
func (tc *TierCatalog) Tiers() []Tier {
	tiers := make([]Tier, 0, len(tc.quotas))
	for tier := range tc.quotas {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tc.quotas[tiers[i]] < tc.quotas[tiers[j]]
	})
	return tiers
}
