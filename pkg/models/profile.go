package models

import "reflect"

// ProfileTable is the lookup table of power profiles shared by nodes, keyed by name.
type ProfileTable map[string]*PowerProfile

// Intern returns the table's profile when an identical one with the same name is
// already registered, otherwise registers p. A profile whose name is taken by
// different coefficients is returned unshared so no node silently changes its draw.
func (t ProfileTable) Intern(p *PowerProfile) *PowerProfile {
	existing, ok := t[p.Name]
	if !ok {
		t[p.Name] = p
		return p
	}
	if existing == p || sameProfile(existing, p) {
		return existing
	}
	return p
}

// Get returns the profile registered under name
func (t ProfileTable) Get(name string) (*PowerProfile, bool) {
	p, ok := t[name]
	return p, ok
}

func sameProfile(a, b *PowerProfile) bool {
	return a.BaseIdleWatts == b.BaseIdleWatts &&
		a.WattsPerCPUCore == b.WattsPerCPUCore &&
		a.WattsPerGBRAM == b.WattsPerGBRAM &&
		(len(a.Metadata) == 0 && len(b.Metadata) == 0 || reflect.DeepEqual(a.Metadata, b.Metadata))
}
