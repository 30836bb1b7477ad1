package settlement

import "math/rand"

// namer produces procedural settlement names by combining syllables,
// with grander suffixes for higher tiers. Names are unique per namer.
type namer struct {
	rng  *rand.Rand
	used map[string]bool
}

var namePrefixes = []string{
	"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
	"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
	"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
	"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "Marsh", "Fen",
}

var nameSuffixes = map[Tier][]string{
	TierCity: {
		"hold", "gate", "spire", "court", "crown", "keep",
		"haven", "march", "throne", "bastion",
	},
	TierTown: {
		"ford", "bridge", "market", "port", "town", "bury",
		"wick", "stead", "well", "cliff", "watch", "reach",
	},
	TierVillage: {
		"hollow", "field", "dale", "vale", "brook", "moor",
		"ridge", "fall", "rest", "thorpe", "croft", "hamlet",
	},
}

func newNamer(rng *rand.Rand) *namer {
	return &namer{rng: rng, used: make(map[string]bool)}
}

// next returns a fresh name appropriate for the tier. After too many
// collisions it appends a numeric suffix rather than spinning forever.
func (n *namer) next(t Tier) string {
	suffixes := nameSuffixes[t]
	for attempt := 0; attempt < 64; attempt++ {
		name := namePrefixes[n.rng.Intn(len(namePrefixes))] +
			suffixes[n.rng.Intn(len(suffixes))]
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
	base := namePrefixes[n.rng.Intn(len(namePrefixes))] + suffixes[0]
	for i := 2; ; i++ {
		name := base + " " + roman(i)
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}

// roman renders small numbers as roman numerals for disambiguated names.
func roman(n int) string {
	values := []int{100, 90, 50, 40, 10, 9, 5, 4, 1}
	symbols := []string{"C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	out := ""
	for i, v := range values {
		for n >= v {
			out += symbols[i]
			n -= v
		}
	}
	return out
}
