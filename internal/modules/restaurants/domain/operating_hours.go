package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// TimeRange is one day's opening window in 24h "HH:mm" notation.
type TimeRange struct {
	OpenTime  string `json:"openTime" yaml:"openTime"`
	CloseTime string `json:"closeTime" yaml:"closeTime"`
}

// Complete reports whether both ends of the range are set.
func (r TimeRange) Complete() bool {
	return strings.TrimSpace(r.OpenTime) != "" && strings.TrimSpace(r.CloseTime) != ""
}

// Validate checks the HH:mm format of both ends.
func (r TimeRange) Validate() error {
	if !clockPattern.MatchString(strings.TrimSpace(r.OpenTime)) {
		return fmt.Errorf("open time %q must be in HH:mm format", r.OpenTime)
	}
	if !clockPattern.MatchString(strings.TrimSpace(r.CloseTime)) {
		return fmt.Errorf("close time %q must be in HH:mm format", r.CloseTime)
	}
	return nil
}

// ParseTimeRange reads "09:00-17:30".
func ParseTimeRange(raw string) (TimeRange, error) {
	open, closing, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("time range %q must look like HH:mm-HH:mm", raw)
	}
	r := TimeRange{OpenTime: strings.TrimSpace(open), CloseTime: strings.TrimSpace(closing)}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// OperatingHours maps each weekday to an optional range. A nil day is closed.
type OperatingHours struct {
	Monday    *TimeRange `json:"monday,omitempty" yaml:"monday,omitempty"`
	Tuesday   *TimeRange `json:"tuesday,omitempty" yaml:"tuesday,omitempty"`
	Wednesday *TimeRange `json:"wednesday,omitempty" yaml:"wednesday,omitempty"`
	Thursday  *TimeRange `json:"thursday,omitempty" yaml:"thursday,omitempty"`
	Friday    *TimeRange `json:"friday,omitempty" yaml:"friday,omitempty"`
	Saturday  *TimeRange `json:"saturday,omitempty" yaml:"saturday,omitempty"`
	Sunday    *TimeRange `json:"sunday,omitempty" yaml:"sunday,omitempty"`
}

func (h *OperatingHours) slot(day DayOfWeek) **TimeRange {
	switch day {
	case Monday:
		return &h.Monday
	case Tuesday:
		return &h.Tuesday
	case Wednesday:
		return &h.Wednesday
	case Thursday:
		return &h.Thursday
	case Friday:
		return &h.Friday
	case Saturday:
		return &h.Saturday
	case Sunday:
		return &h.Sunday
	default:
		return nil
	}
}

// Day returns the range for day, or nil when closed.
func (h OperatingHours) Day(day DayOfWeek) *TimeRange {
	if slot := h.slot(day); slot != nil && *slot != nil {
		r := **slot
		return &r
	}
	return nil
}

// WithDay returns a copy with day set to r; a nil r closes the day.
func (h OperatingHours) WithDay(day DayOfWeek, r *TimeRange) OperatingHours {
	if slot := h.slot(day); slot != nil {
		if r == nil {
			*slot = nil
		} else {
			copied := *r
			*slot = &copied
		}
	}
	return h
}

// Normalize trims every range and resolves half-filled days to closed.
func (h OperatingHours) Normalize() OperatingHours {
	out := OperatingHours{}
	for _, day := range Week {
		r := h.Day(day)
		if r == nil {
			continue
		}
		trimmed := TimeRange{OpenTime: strings.TrimSpace(r.OpenTime), CloseTime: strings.TrimSpace(r.CloseTime)}
		if !trimmed.Complete() {
			continue
		}
		out = out.WithDay(day, &trimmed)
	}
	return out
}

// OpenDays lists the days that have a complete range, in week order.
func (h OperatingHours) OpenDays() []DayOfWeek {
	var days []DayOfWeek
	for _, day := range Week {
		if r := h.Day(day); r != nil && r.Complete() {
			days = append(days, day)
		}
	}
	return days
}

// Validate checks the format of every open day.
func (h OperatingHours) Validate() error {
	for _, day := range Week {
		if r := h.Day(day); r != nil {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%s: %w", day.Key(), err)
			}
		}
	}
	return nil
}
