package mapping

import (
	"fmt"
	"strings"
)

// Resolution is the outcome of resolving one header.
type Resolution struct {
	Original string
	Mapped   string // upper-cased mapped name; empty when !Matched
	Matched  bool
}

// scope precedence tiers, most specific first.
const (
	tierVendorClient = iota
	tierVendor
	tierClient
	tierGlobal
	tierCount
)

// Resolver resolves headers against an in-memory rule set, loaded once per
// processing request. Comparison is case-insensitive on the original header.
type Resolver struct {
	// byOriginal[UPPER(original)][tier] holds at most one rule per tier.
	byOriginal map[string][tierCount][]Rule
	vendor     string
	client     string
}

// NewResolver indexes the given rules for resolution under the request's
// vendor/client scope. Rules scoped to other vendors/clients are ignored.
// Returns an error if two rules collide at the same precedence tier for the
// same original header — a data-integrity violation, never resolved silently.
func NewResolver(rules []Rule, vendor, client string) (*Resolver, error) {
	r := &Resolver{
		byOriginal: make(map[string][tierCount][]Rule),
		vendor:     strings.TrimSpace(vendor),
		client:     strings.TrimSpace(client),
	}

	for _, rule := range rules {
		rule = rule.normalize()
		tier, ok := r.tierOf(rule)
		if !ok {
			continue
		}
		tiers := r.byOriginal[rule.Original]
		for _, existing := range tiers[tier] {
			if existing.Mapped != rule.Mapped {
				return nil, fmt.Errorf(
					"conflicting mapping rules for %s at the same scope (%q vs %q)",
					rule.Original, existing.Mapped, rule.Mapped)
			}
		}
		tiers[tier] = append(tiers[tier], rule)
		r.byOriginal[rule.Original] = tiers
	}

	return r, nil
}

// tierOf places a rule in a precedence tier for this resolver's scope, or
// reports that the rule does not apply.
func (r *Resolver) tierOf(rule Rule) (int, bool) {
	vendorMatch := rule.Vendor == "" || rule.Vendor == r.vendor
	clientMatch := rule.Client == "" || rule.Client == r.client
	if !vendorMatch || !clientMatch {
		return 0, false
	}

	switch {
	case rule.Vendor != "" && rule.Client != "":
		return tierVendorClient, true
	case rule.Vendor != "":
		return tierVendor, true
	case rule.Client != "":
		return tierClient, true
	default:
		return tierGlobal, true
	}
}

// Resolve returns the mapped header for the given original, or an unmapped
// resolution. The most specific tier wins; the caller decides what to do
// with unmapped headers.
func (r *Resolver) Resolve(header string) Resolution {
	key := strings.ToUpper(strings.TrimSpace(header))
	res := Resolution{Original: key}

	tiers, ok := r.byOriginal[key]
	if !ok {
		return res
	}
	for tier := tierVendorClient; tier < tierCount; tier++ {
		if len(tiers[tier]) > 0 {
			res.Mapped = tiers[tier][0].Mapped
			res.Matched = true
			return res
		}
	}
	return res
}
