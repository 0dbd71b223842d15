package domain

import "time"

// TariffConfig holds the fare parameters. A single global config is
// always present; zones layer named overrides on top of it.
type TariffConfig struct {
	BaseFare        float64
	PerKm           float64
	PerMin          float64
	MinFare         float64
	NightMultiplier float64
	NightStart      string // "22:00"
	NightEnd        string // "06:00", window may wrap midnight
	ServiceFee      float64
	CancelAfterMin  int
	CancelFee       float64
}

// Zone is a named geographic tariff override. A request matches the
// zone when its origin lies within RadiusKm of the zone center.
// Zero-valued tariff fields fall back to the global config.
type Zone struct {
	Name     string
	Center   GeoPoint
	RadiusKm float64
	Tariff   TariffConfig
}

// Valid reports whether the zone has a usable shape.
func (z *Zone) Valid() bool {
	return z.Name != "" && z.RadiusKm > 0
}

// BillingSettings holds the weekly commission configuration.
type BillingSettings struct {
	WeeklyPercent float64
	UpdatedAt     time.Time
}

// BillingPeriod is a fixed Monday-through-Sunday window, computed
// relative to the aggregation run time rather than stored per ride.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// PeriodFor returns the weekly billing period containing t:
// Monday 00:00:00 through Sunday 23:59:59 in t's location.
func PeriodFor(t time.Time) BillingPeriod {
	weekday := int(t.Weekday())
	// time.Weekday has Sunday == 0; shift so Monday opens the week.
	daysSinceMonday := (weekday + 6) % 7
	year, month, day := t.AddDate(0, 0, -daysSinceMonday).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return BillingPeriod{Start: start, End: end}
}
