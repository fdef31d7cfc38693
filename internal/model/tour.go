package model

import "time"

// Variant identifies the kind of tour. Kids variants (jeugdtocht,
// familietocht, voetbalmissie) use polygon geofences and require
// parental consent before a session may start.
type Variant string

const (
	VariantWijktocht     Variant = "wijktocht"
	VariantImpactsprint  Variant = "impactsprint"
	VariantFamilietocht  Variant = "familietocht"
	VariantJeugdtocht    Variant = "jeugdtocht"
	VariantVoetbalmissie Variant = "voetbalmissie"
)

// KnownVariant reports whether v is one of the supported tour variants.
func KnownVariant(v Variant) bool {
	switch v {
	case VariantWijktocht, VariantImpactsprint, VariantFamilietocht,
		VariantJeugdtocht, VariantVoetbalmissie:
		return true
	}
	return false
}

// Kids reports whether the variant targets minors. Sessions of kids
// variants need a recorded parental consent and bounded retention of
// submission payloads.
func (v Variant) Kids() bool {
	return v == VariantFamilietocht || v == VariantJeugdtocht || v == VariantVoetbalmissie
}

// PricingModel selects how an order amount is computed for a tour.
type PricingModel string

const (
	PricingFlat      PricingModel = "flat"
	PricingPerPerson PricingModel = "per_person"
)

// DefaultMaxTeams applies when a tour does not set its own limit.
const DefaultMaxTeams = 20

// Tour is a reusable game template owned by a leader. A tour must not
// be edited while an active or paused session references it; the
// repository enforces that before any update.
type Tour struct {
	ID             uint64
	OwnerID        uint64
	Title          string
	Variant        Variant
	Pricing        PricingModel
	FlatPriceCents uint32
	SeatPriceCents uint32 // per-person price, used when Pricing == per_person
	MaxTeams       uint32
	Published      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PriceCents returns the base order amount for the tour given the
// expected head count. Per-person tours multiply; flat tours ignore
// the count.
func (t *Tour) PriceCents(persons uint32) uint32 {
	if t.Pricing == PricingPerPerson {
		return t.SeatPriceCents * persons
	}
	return t.FlatPriceCents
}

// TeamLimit returns the tour's max-teams setting, falling back to
// DefaultMaxTeams when unset.
func (t *Tour) TeamLimit() uint32 {
	if t.MaxTeams == 0 {
		return DefaultMaxTeams
	}
	return t.MaxTeams
}
