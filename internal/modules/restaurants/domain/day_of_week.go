package domain

import "strings"

// DayOfWeek identifies a weekday using the uppercase english names used by the review API.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Week lists every day in display order.
var Week = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var allowedDays = map[string]DayOfWeek{
	string(Monday):    Monday,
	string(Tuesday):   Tuesday,
	string(Wednesday): Wednesday,
	string(Thursday):  Thursday,
	string(Friday):    Friday,
	string(Saturday):  Saturday,
	string(Sunday):    Sunday,
}

// ParseDay accepts any casing and the three letter abbreviation ("mon", "Tue").
func ParseDay(raw string) (DayOfWeek, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := allowedDays[key]; ok {
		return day, true
	}
	if len(key) == 3 {
		for _, day := range Week {
			if strings.HasPrefix(string(day), key) {
				return day, true
			}
		}
	}
	return "", false
}

// Key is the lowercase field name the day uses inside an operating hours object.
func (d DayOfWeek) Key() string {
	return strings.ToLower(string(d))
}

// Label is the capitalized display name, e.g. "Monday".
func (d DayOfWeek) Label() string {
	key := d.Key()
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
