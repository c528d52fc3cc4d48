package systems

import (
	"math"

	"github.com/pthm-cable/biome/config"
)

// Rand is the random source threaded through every stochastic system.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Season of the simulated year.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// Weather of the current step.
type Weather string

const (
	Clear  Weather = "clear"
	Cloudy Weather = "cloudy"
	Rain   Weather = "rain"
	Snow   Weather = "snow"
)

// Precipitating reports whether w drops rain or snow.
func (w Weather) Precipitating() bool {
	return w == Rain || w == Snow
}

// Climate jitter bands (full width, centered on zero).
const (
	DaysPerYear       = 365
	TemperatureJitter = 5.0
	WindJitter        = 10.0
	HumidityJitter    = 0.2
	MaxPrecipitation  = 10.0
	cloudyFactor      = 1.5
)

// Atmosphere is the climate state derived for one step.
type Atmosphere struct {
	Season        Season
	Temperature   float64
	Weather       Weather
	Wind          float64
	Humidity      float64
	Precipitation float64
}

// SeasonForDay maps a day of the year in [0,365) to its season.
func SeasonForDay(day int) Season {
	switch {
	case day < 90:
		return Winter
	case day < 180:
		return Spring
	case day < 270:
		return Summer
	case day < 360:
		return Autumn
	default:
		return Winter
	}
}

// SeasonalTemperature is the deterministic part of the temperature curve.
// The sine phase puts the minimum at day 0.
func SeasonalTemperature(day int, c config.Climate) float64 {
	progress := float64(day) / DaysPerYear * 2 * math.Pi
	return c.BaseTemp + math.Sin(progress-math.Pi/2)*c.TempRange*c.SeasonalVariation
}

// Temperature adds daily jitter in [-2.5, 2.5) to the seasonal curve.
func Temperature(day int, c config.Climate, rng Rand) float64 {
	return SeasonalTemperature(day, c) + jitter(rng, TemperatureJitter)
}

// WeatherFor draws the weather. Both thresholds test the same draw, so the
// cloudy band [p, 1.5p) is truncated at 1 once p exceeds 2/3.
func WeatherFor(precipitationRate, temperature float64, rng Rand) Weather {
	r := rng.Float64()
	if r < precipitationRate {
		if temperature < 0 {
			return Snow
		}
		return Rain
	} else if r < precipitationRate*cloudyFactor {
		return Cloudy
	}
	return Clear
}

// PrecipitationIntensity draws only when w is rain or snow.
func PrecipitationIntensity(w Weather, rng Rand) float64 {
	if !w.Precipitating() {
		return 0
	}
	return rng.Float64() * MaxPrecipitation
}

// ComputeAtmosphere derives the full atmosphere for a day. The draw order
// (temperature, weather, wind, humidity, precipitation) is fixed.
func ComputeAtmosphere(day int, c config.Climate, rng Rand) Atmosphere {
	a := Atmosphere{Season: SeasonForDay(day)}
	a.Temperature = Temperature(day, c, rng)
	a.Weather = WeatherFor(c.PrecipitationRate, a.Temperature, rng)
	a.Wind = c.WindSpeed + jitter(rng, WindJitter)
	a.Humidity = c.Humidity + jitter(rng, HumidityJitter)
	a.Precipitation = PrecipitationIntensity(a.Weather, rng)
	return a
}

// jitter returns a uniform value in [-width/2, width/2).
func jitter(rng Rand, width float64) float64 {
	return (rng.Float64() - 0.5) * width
}
