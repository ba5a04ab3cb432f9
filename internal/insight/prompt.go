package insight

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/weather"
)

// Context is the slice of a pipeline run the prompts are rendered from.
type Context struct {
	Stats         balloon.AggregateStats
	TotalBalloons int
	Weather       weather.Summary
}

var promptFuncs = template.FuncMap{
	"json": func(v interface{}) string {
		b, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(b)
	},
}

var insightsPrompt = template.Must(template.New("insights").Funcs(promptFuncs).Parse(
	`You are an expert meteorologist analyzing weather balloon data. Analyze the following data and provide 5 key insights:

BALLOON DATA:
- Total Active Balloons: {{.Stats.TotalActive}}
- Average Altitude: {{.Stats.AvgAltitude}} km
- Altitude Range: {{.Stats.MinAltitude}} - {{.Stats.MaxAltitude}} km
- Geographic Distribution: {{.Stats.Hemispheres.Northern}} Northern, {{.Stats.Hemispheres.Southern}} Southern
- Total Historical Points: {{.TotalBalloons}} (last 24 hours)

WEATHER CONDITIONS (at balloon locations):
- Average Temperature: {{.Weather.AvgTemp}}°C
- Average Humidity: {{.Weather.AvgHumidity}}%
- Average Pressure: {{.Weather.AvgPressure}} hPa
- Average Wind Speed: {{.Weather.AvgWindSpeed}} m/s
- Weather Conditions: {{json .Weather.ConditionHistogram}}

Please provide:
1. One insight about flight patterns
2. One insight about weather correlation
3. One insight about geographic coverage
4. One insight about altitude distribution
5. One operational recommendation

Format each insight as a bullet point starting with "•"`))

var questionPrompt = template.Must(template.New("question").Funcs(promptFuncs).Parse(`
Context: You're analyzing real-time weather balloon data from WindBorne Systems.

Current Data Summary:
- {{.Data.Stats.TotalActive}} active balloons
- Average altitude: {{.Data.Stats.AvgAltitude}} km
- Weather conditions: {{json .Data.Weather.ConditionHistogram}}
- Average temperature: {{.Data.Weather.AvgTemp}}°C

Question: {{.Question}}

Provide a concise, data-driven answer based on the context above.`))

func renderInsightsPrompt(c Context) (string, error) {
	var buf bytes.Buffer
	if err := insightsPrompt.Execute(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderQuestionPrompt(question string, c Context) (string, error) {
	var buf bytes.Buffer
	err := questionPrompt.Execute(&buf, struct {
		Question string
		Data     Context
	}{question, c})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
