package report

import (
	"physioreport/internal/charts"
	"physioreport/internal/sample"
)

const (
	colorBlue   = "1f77b4"
	colorOrange = "ff7f0e"
)

// DemoFigures lays out the three sample charts in report order.
func DemoFigures(c sample.Curves) []charts.Figure {
	return []charts.Figure{
		{
			Title:  "Upper Body Vertical Position",
			XLabel: "Frames",
			YLabel: "Y-coordinates",
			Series: []charts.Series{
				{Name: "Upper Body", Color: colorOrange, Values: c.UpperBody},
			},
		},
		{
			Title:  "Knee Joint Angles",
			XLabel: "Frames",
			YLabel: "Angle (deg)",
			Series: []charts.Series{
				{Name: "Right Knee", Color: colorBlue, Values: c.Knee},
				{Name: "Left Knee", Color: colorOrange, Values: sample.Offset(c.Knee, -20)},
			},
		},
		{
			Title:  "Hip Joint Angles",
			XLabel: "Frames",
			YLabel: "Angle (deg)",
			Series: []charts.Series{
				{Name: "Right Hip", Color: colorBlue, Values: c.Hip},
				{Name: "Left Hip", Color: colorOrange, Values: sample.Offset(c.Hip, -10)},
			},
		},
	}
}
