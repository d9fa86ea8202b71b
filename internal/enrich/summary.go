package enrich

import (
	"context"

	"weatherapp/internal/models"
	"weatherapp/internal/weather"
	"weatherapp/pkg/location"
)

// Summary is one favorite with its forecast, as listed by the dashboard.
type Summary struct {
	Place     models.Place
	Forecast  *weather.Forecast
	Placename string
	Errors    map[string]error
}

type Forecaster interface {
	Fetch(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

func ForecastStep(f Forecaster) Step[Summary] {
	return NewStep("forecast", func(ctx context.Context, s *Summary) error {
		forecast, err := f.Fetch(ctx, s.Place.Latitude, s.Place.Longitude)
		if err != nil {
			return err
		}
		s.Forecast = forecast
		return nil
	})
}

func PlacenameStep(r location.Reverser) Step[Summary] {
	return NewStep("placename", func(ctx context.Context, s *Summary) error {
		loc, err := r.Reverse(ctx, s.Place.Coordinates())
		if err != nil {
			return err
		}
		s.Placename = loc.Placename()
		return nil
	})
}

// Summaries runs the forecast and placename lookups for every place in
// parallel per place and returns the results in input order.
func Summaries(ctx context.Context, places []models.Place, f Forecaster, r location.Reverser) []*Summary {
	steps := []Step[Summary]{ForecastStep(f)}
	if r != nil {
		steps = append(steps, PlacenameStep(r))
	}
	p := NewPipeline(NewStage(steps...)).OnError(func(s *Summary, step string, err error) {
		s.Errors[step] = err
	})

	in := make(chan *Summary)
	go func() {
		defer close(in)
		for _, place := range places {
			select {
			case in <- &Summary{Place: place, Errors: make(map[string]error)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var out []*Summary
	for s := range p.Process(ctx, in) {
		out = append(out, s)
	}
	return out
}
