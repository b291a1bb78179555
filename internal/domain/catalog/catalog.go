// Package catalog holds the static event catalog: canonical distances and
// display formats for every supported running event.
package catalog

// DisplayFormat selects how a duration is rendered for an event.
type DisplayFormat int

// Supported display formats.
const (
	Seconds    DisplayFormat = iota // "12.34"
	MinSec                          // "16:45.20"
	HourMinSec                      // "1:15:30"
)

// String returns the pattern notation of the format.
func (f DisplayFormat) String() string {
	switch f {
	case Seconds:
		return "ss.ss"
	case MinSec:
		return "mm:ss.ss"
	case HourMinSec:
		return "hh:mm:ss"
	default:
		return "unknown"
	}
}

// Entry is one catalog row.
type Entry struct {
	Name           string
	DistanceMeters float64
	Format         DisplayFormat
}

// Reference distances that are not whole metres.
const (
	mile          = 1609.34
	twoMiles      = 3218.68
	tenMiles      = 16093.4
	halfMarathon  = 21097.5
	fullMarathon  = 42195.0
	hundredKmRoad = 100000.0
)

// entries is the catalog in display order. It is never modified after init.
var entries = []Entry{ //nolint:gochecknoglobals // immutable reference data
	{"50 Metres", 50, Seconds},
	{"55 Metres", 55, Seconds},
	{"60 Metres", 60, Seconds},
	{"100 Metres", 100, Seconds},
	{"200 Metres", 200, Seconds},
	{"200 Metres Short Track", 200, Seconds},
	{"300 Metres", 300, Seconds},
	{"300 Metres Short Track", 300, Seconds},
	{"400 Metres", 400, Seconds},
	{"400 Metres Short Track", 400, Seconds},
	{"500 Metres", 500, MinSec},
	{"500 Metres Short Track", 500, MinSec},
	{"600 Metres", 600, MinSec},
	{"600 Metres Short Track", 600, MinSec},
	{"800 Metres", 800, MinSec},
	{"800 Metres Short Track", 800, MinSec},
	{"1000 Metres", 1000, MinSec},
	{"1000 Metres Short Track", 1000, MinSec},
	{"1500 Metres", 1500, MinSec},
	{"1500 Metres Short Track", 1500, MinSec},
	{"Mile", mile, MinSec},
	{"Mile Short Track", mile, MinSec},
	{"Mile Road", mile, MinSec},
	{"2000 Metres", 2000, MinSec},
	{"2000 Metres Short Track", 2000, MinSec},
	{"3000 Metres", 3000, MinSec},
	{"3000 Metres Short Track", 3000, MinSec},
	{"2 Miles", twoMiles, MinSec},
	{"2 Miles Short Track", twoMiles, MinSec},
	{"5000 Metres", 5000, MinSec},
	{"5000 Metres Short Track", 5000, MinSec},
	{"10,000 Metres", 10000, MinSec},
	{"10000 Metres", 10000, MinSec},
	{"5 Kilometres Road", 5000, MinSec},
	{"10 Kilometres Road", 10000, MinSec},
	{"10 Miles Road", tenMiles, HourMinSec},
	{"15 Kilometres Road", 15000, HourMinSec},
	{"20 Kilometres Road", 20000, HourMinSec},
	{"25 Kilometres Road", 25000, HourMinSec},
	{"30 Kilometres Road", 30000, HourMinSec},
	{"Half Marathon", halfMarathon, HourMinSec},
	{"Marathon", fullMarathon, HourMinSec},
	{"100 Kilometres Road", hundredKmRoad, HourMinSec},
}

var byName = func() map[string]Entry { //nolint:gochecknoglobals // index over immutable data
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}()

// Lookup returns the catalog entry for name.
func Lookup(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Has reports whether name is a catalog event.
func Has(name string) bool {
	_, ok := byName[name]
	return ok
}

// Distance returns the reference distance of an event in metres.
func Distance(name string) (float64, bool) {
	e, ok := byName[name]
	if !ok {
		return 0, false
	}
	return e.DistanceMeters, true
}

// Names returns the event names in catalog order.
func Names() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// All returns a copy of the catalog.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
