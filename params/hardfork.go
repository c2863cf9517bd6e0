package params

import "strings"

// Hardfork names a protocol upgrade. Values are the lowercase names used in
// chain-config JSON and on the command line.
type Hardfork string

const (
	Chainstart       Hardfork = "chainstart"
	Homestead        Hardfork = "homestead"
	Dao              Hardfork = "dao"
	TangerineWhistle Hardfork = "tangerineWhistle"
	SpuriousDragon   Hardfork = "spuriousDragon"
	Byzantium        Hardfork = "byzantium"
	Constantinople   Hardfork = "constantinople"
	Petersburg       Hardfork = "petersburg"
	Istanbul         Hardfork = "istanbul"
	MuirGlacier      Hardfork = "muirGlacier"
	Berlin           Hardfork = "berlin"
	London           Hardfork = "london"
	ArrowGlacier     Hardfork = "arrowGlacier"
	GrayGlacier      Hardfork = "grayGlacier"
	Paris            Hardfork = "paris"
	Shanghai         Hardfork = "shanghai"
	Cancun           Hardfork = "cancun"
	Prague           Hardfork = "prague"
	Osaka            Hardfork = "osaka"
	Verkle           Hardfork = "verkle"
)

// hardforkOrder lists every known fork in activation order.
var hardforkOrder = []Hardfork{
	Chainstart,
	Homestead,
	Dao,
	TangerineWhistle,
	SpuriousDragon,
	Byzantium,
	Constantinople,
	Petersburg,
	Istanbul,
	MuirGlacier,
	Berlin,
	London,
	ArrowGlacier,
	GrayGlacier,
	Paris,
	Shanghai,
	Cancun,
	Prague,
	Osaka,
	Verkle,
}

// forkEIPs are the EIPs switched on by each fork. A fork inherits all EIPs
// of the forks before it.
var forkEIPs = map[Hardfork][]int{
	Homestead:        {2, 7, 8},
	TangerineWhistle: {150},
	SpuriousDragon:   {155, 160, 161, 170},
	Byzantium:        {100, 140, 196, 197, 198, 211, 214, 649, 658},
	Constantinople:   {145, 1014, 1052, 1234},
	Petersburg:       {},
	Istanbul:         {152, 1108, 1344, 1884, 2028, 2200},
	MuirGlacier:      {2384},
	Berlin:           {2565, 2718, 2929, 2930},
	London:           {1559, 3198, 3529, 3541, 3554},
	ArrowGlacier:     {4345},
	GrayGlacier:      {5133},
	Paris:            {3675, 4399},
	Shanghai:         {3651, 3855, 3860, 4895},
	Cancun:           {1153, 4788, 4844, 5656, 6780, 7516},
	Prague:           {2537, 2935, 6110, 7002, 7251, 7623, 7685, 7691, 7702},
	Osaka:            {7594, 7823, 7825, 7883, 7918, 7934, 7939, 7951},
	Verkle:           {4762, 6800, 7709},
}

// Index returns the position of h in activation order, or -1 if unknown.
func (h Hardfork) Index() int {
	for i, f := range hardforkOrder {
		if f == h {
			return i
		}
	}
	return -1
}

// Gte reports whether h is at or after other.
func (h Hardfork) Gte(other Hardfork) bool {
	i, j := h.Index(), other.Index()
	return i >= 0 && j >= 0 && i >= j
}

func (h Hardfork) String() string { return string(h) }

// ParseHardfork resolves a fork name case-insensitively.
func ParseHardfork(name string) (Hardfork, error) {
	for _, f := range hardforkOrder {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	if strings.EqualFold(name, "merge") {
		return Paris, nil
	}
	return "", errUnknownHardfork(name)
}

// Hardforks returns all known forks in activation order.
func Hardforks() []Hardfork {
	out := make([]Hardfork, len(hardforkOrder))
	copy(out, hardforkOrder)
	return out
}

// eipsUpTo collects every EIP enabled at or before h.
func eipsUpTo(h Hardfork) map[int]struct{} {
	set := make(map[int]struct{})
	for _, f := range hardforkOrder {
		for _, eip := range forkEIPs[f] {
			set[eip] = struct{}{}
		}
		if f == h {
			break
		}
	}
	return set
}

// eipFork returns the fork that introduced eip, if any.
func eipFork(eip int) (Hardfork, bool) {
	for _, f := range hardforkOrder {
		for _, e := range forkEIPs[f] {
			if e == eip {
				return f, true
			}
		}
	}
	return "", false
}
