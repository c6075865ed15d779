// Package domain models creek water-quality sampling data.
//
// # Data Source
//
// Samples come from the volunteer monitoring spreadsheet exported as CSV
// ("Updated results.csv"). The export starts with two metadata rows before
// the header. The site catalog ("Site_loc.csv") lists each site code with its
// latitude and longitude.
//
// # Feed Conventions
//
// Site labels:
//
//	Free text that contains a catalog code somewhere inside it, e.g.
//	"PEAV@OLDB - upstream" → "peav@oldb". Codes are compared lower-cased.
//	Rows whose label contains no code are dropped. When several codes occur
//	the longest wins, then catalog order; see [SiteMatcher].
//
// Measurements:
//
//	tot_coli_conc, ecoli_conc   MPN/100 mL
//	ph                          pH units
//	tubidity                    NTU (column name misspelled upstream)
//
// Censored values:
//
//	">2400" means the count exceeded the method's upper detection limit.
//	The bound is kept as the value and the field is flagged as censored, so
//	threshold checks can report a censored value below a limit as
//	inconclusive instead of "below".
//
// Unparsable measurements become nil; they never drop the row. Rows without
// a parsable date are dropped because they cannot be bucketed.
//
// # Aggregation
//
// Samples are grouped into weekly buckets per site ([WeekAnchor]) and each
// field is averaged over its non-nil values. The latest bucket per site is
// the "current state" served to readers. Every refresh rebuilds the whole
// [Snapshot] from the complete feed.
package domain
