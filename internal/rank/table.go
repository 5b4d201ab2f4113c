package rank

import "sort"

// Tier is one rung of the ranked ladder.
type Tier struct {
	Name         string
	EloThreshold int
}

// Table is the static ladder, ordered by strictly increasing threshold.
// A player's tier is the highest threshold not exceeding their elo.
var Table = []Tier{
	{"Iron I", 0},
	{"Iron II", 100},
	{"Iron III", 200},
	{"Bronze I", 300},
	{"Bronze II", 400},
	{"Bronze III", 500},
	{"Silver I", 600},
	{"Silver II", 700},
	{"Silver III", 800},
	{"Gold I", 900},
	{"Gold II", 1000},
	{"Gold III", 1100},
	{"Platinum I", 1250},
	{"Platinum II", 1400},
	{"Platinum III", 1550},
	{"Diamond I", 1700},
	{"Diamond II", 1900},
	{"Diamond III", 2100},
	{"Master", 2400},
	{"Grandmaster", 2700},
	{"Challenger", 3000},
}

// FromElo returns the tier for the given elo, clamped to the first tier
// for anything below all thresholds.
func FromElo(elo int) Tier {
	// First tier whose threshold exceeds elo; the one before it is ours.
	i := sort.Search(len(Table), func(i int) bool {
		return Table[i].EloThreshold > elo
	})
	if i == 0 {
		return Table[0]
	}
	return Table[i-1]
}

// NameFromElo is a convenience for the common string-only case.
func NameFromElo(elo int) string {
	return FromElo(elo).Name
}
