package model

// PlotData is the input of a diagnostic plot frontend: the statistic
// sequence over the candidate grid with a horizontal critical-value line.
type PlotData struct {
	Thresholds    []float64
	Statistics    []float64
	CriticalValue float64
	Level         float64
}
