package pulse

// Priority orders listeners for the same event type. Lower priorities run
// first: Lowest → Low → Normal → High → Highest → Monitor. Monitor runs
// last and is meant for listeners that only observe the final outcome.
type Priority int

const (
	Lowest Priority = iota
	Low
	Normal
	High
	Highest
	Monitor
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case Lowest:
		return "Lowest"
	case Low:
		return "Low"
	case Normal:
		return "Normal"
	case High:
		return "High"
	case Highest:
		return "Highest"
	case Monitor:
		return "Monitor"
	default:
		return "Unknown"
	}
}
