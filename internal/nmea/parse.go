package nmea

import "strings"

// Fields maps output field names to raw string values for one sentence. A
// known field missing from a short sentence is present with an empty value.
type Fields map[string]string

// Snapshot maps sentence-type identifiers (e.g. "GNGGA") to the fields
// extracted from one fix cycle. Values are kept verbatim as strings; no
// numeric conversion is applied.
type Snapshot map[string]Fields

// fieldSpec binds an output field name to its zero-based index in the
// comma-split payload following the sentence tag.
type fieldSpec struct {
	name  string
	index int
}

// GSA and GSV sentences share a schema across the GPS and BeiDou talkers.
var (
	gsaFields = []fieldSpec{
		{"mode", 0},
		{"fix_type", 1},
		{"pdop", 14},
		{"hdop", 15},
		{"vdop", 16},
	}
	gsvFields = []fieldSpec{
		{"num_of_messages", 0},
		{"message_number", 1},
		{"satellites_in_view", 2},
	}
)

// fieldTable is the fixed extraction schema for the sentence types the
// target receiver emits. Sentence types absent from the table are dropped.
var fieldTable = map[string][]fieldSpec{
	"GNGGA": {
		{"time", 0},
		{"latitude", 1},
		{"longitude", 3},
		{"fix_quality", 5},
		{"num_of_satellites", 6},
		{"horizontal_dilution", 7},
		{"altitude", 8},
		{"height_of_geoid", 10},
	},
	"GNGLL": {
		{"latitude", 0},
		{"longitude", 1},
		{"time", 4},
		{"status", 5},
	},
	"GPGSA": gsaFields,
	"BDGSA": gsaFields,
	"GPGSV": gsvFields,
	"BDGSV": gsvFields,
	"GNRMC": {
		{"time", 0},
		{"status", 1},
		{"latitude", 2},
		{"longitude", 4},
		{"speed", 6},
		{"date", 8},
		{"variation", 9},
	},
	"GNVTG": {
		{"track_degrees_true", 0},
		{"track_degrees_magnetic", 2},
		{"speed_knots", 4},
		{"speed_kmph", 6},
	},
	"GNZDA": {
		{"time", 0},
		{"day", 1},
		{"month", 2},
		{"year", 3},
		{"local_zone_hours", 4},
		{"local_zone_minutes", 5},
	},
}

// Parse extracts typed field sets from one raw fix-cycle message. It is
// total: malformed, truncated, or non-UTF-8 input degrades to a partial
// (possibly empty) Snapshot, never an error. When a sentence type repeats
// within one message, the last occurrence wins. Trailing checksum fragments
// are left inside whichever field they land in.
func Parse(raw []byte) Snapshot {
	snap := make(Snapshot)

	for _, line := range strings.Split(decodeLossy(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		tag, rest, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		tag = strings.TrimPrefix(tag, "$")

		// GPTXT carries free-form receiver text; its payload is kept
		// whole rather than field-split.
		if tag == "GPTXT" {
			snap[tag] = Fields{"text": rest}
			continue
		}

		specs, known := fieldTable[tag]
		if !known {
			continue
		}

		parts := strings.Split(rest, ",")
		out := make(Fields, len(specs))
		for _, fs := range specs {
			if fs.index < len(parts) {
				out[fs.name] = parts[fs.index]
			} else {
				out[fs.name] = ""
			}
		}
		snap[tag] = out
	}

	return snap
}
