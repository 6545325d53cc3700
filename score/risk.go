package score

// RiskLevel is the categorical banding derived from the numeric score.
type RiskLevel string

const (
	RiskGood   RiskLevel = "Good"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Display carries the presentation pairing for a risk level. The bands and
// their boundaries are part of the scoring contract; the colors belong to
// whatever UI renders them.
type Display struct {
	Level           RiskLevel `json:"level"`
	Color           string    `json:"color"`
	BackgroundColor string    `json:"backgroundColor"`
	Icon            string    `json:"icon"`
}

// RiskFor maps a score to its band: 70 and above is Good, 40 up to 70 is
// Medium, below 40 is High.
func RiskFor(value int) RiskLevel {
	switch {
	case value >= 70:
		return RiskGood
	case value >= 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// DisplayFor returns the presentation pairing for a score.
func DisplayFor(value int) Display {
	switch RiskFor(value) {
	case RiskGood:
		return Display{Level: RiskGood, Color: "#4CAF50", BackgroundColor: "#E8F5E9", Icon: "✓"}
	case RiskMedium:
		return Display{Level: RiskMedium, Color: "#FF9800", BackgroundColor: "#FFF3E0", Icon: "⚠"}
	default:
		return Display{Level: RiskHigh, Color: "#F44336", BackgroundColor: "#FFEBEE", Icon: "✕"}
	}
}
