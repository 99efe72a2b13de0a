package cycling

type Category string

const (
	CategoryTrack Category = "track"
	CategoryLane  Category = "lane"
	CategoryPoint Category = "point"
	CategoryArea  Category = "area"
)

type Comfort int

const (
	// e.g. a shared use lane on a busy street
	ComfortLeast Comfort = iota + 1
	// e.g. a painted bike lane, but not separated from traffic
	ComfortLow
	// e.g. shared lane on a quiet neighborhood street
	ComfortHigh
	// a fully separated bike track that's off-street or has a physical barrier separating it from traffic
	ComfortMost
)

type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBoth  Side = "both"
)

// Classification is the attribute bundle of a cycling line.
type Classification struct {
	// Rule is the name of the rule that produced the classification.
	Rule string

	Category Category
	Subclass string

	Comfort               Comfort
	Oneway                bool
	SharedWithPedestrians bool
	SharedWithVehicles    bool
	Side                  Side

	Construction bool
	Website      string
	OpeningDate  string
}
