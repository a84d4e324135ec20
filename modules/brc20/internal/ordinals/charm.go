package ordinals

import "strings"

// Charm is a bitset of anomaly markers assigned at inscription creation or
// relocation. Charms are frozen once set, except the location-dependent ones
// (lost, burned) which follow the inscription.
type Charm uint16

const (
	CharmCursed Charm = 1 << iota
	CharmReinscription
	CharmUnbound
	CharmLost
	CharmBurned
	// CharmVindicated marks an inscription that would have been cursed but was
	// created at or beyond the jubilee height.
	CharmVindicated
)

var charmNames = []struct {
	charm Charm
	name  string
}{
	{CharmCursed, "cursed"},
	{CharmReinscription, "reinscription"},
	{CharmUnbound, "unbound"},
	{CharmLost, "lost"},
	{CharmBurned, "burned"},
	{CharmVindicated, "vindicated"},
}

func (c Charm) Has(flag Charm) bool {
	return c&flag != 0
}

func (c *Charm) Set(flag Charm) {
	*c |= flag
}

func (c Charm) String() string {
	names := make([]string, 0)
	for _, entry := range charmNames {
		if c.Has(entry.charm) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, ",")
}

// Names returns the set charm names in declaration order.
func (c Charm) Names() []string {
	names := make([]string, 0)
	for _, entry := range charmNames {
		if c.Has(entry.charm) {
			names = append(names, entry.name)
		}
	}
	return names
}
