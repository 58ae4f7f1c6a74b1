// Package location resolves the observer's coordinates. The control loop
// only sees Resolve succeed or fail; the strategies behind it (fixed config
// value, GeoClue, IP geolocation) are interchangeable.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/pasikonik/sun-dimmer/internal/domain/model"
	"github.com/pasikonik/sun-dimmer/internal/metrics"
)

// ErrUnavailable is returned when a provider cannot produce a position.
var ErrUnavailable = errors.New("location unavailable")

// Resolver produces the observer's coordinates.
type Resolver interface {
	Resolve(ctx context.Context) (model.Coordinates, error)
}

// Static returns a fixed position from configuration.
type Static struct {
	Coords model.Coordinates
}

func (s Static) Resolve(context.Context) (model.Coordinates, error) {
	if !s.Coords.Valid() {
		return model.Coordinates{}, fmt.Errorf("%w: configured coordinates %s out of range", ErrUnavailable, s.Coords)
	}
	metrics.LocationLookups.WithLabelValues("static", "ok").Inc()
	return s.Coords, nil
}

// commandRunner matches device.Runner; redeclared here to keep the package
// free of a device dependency.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

const geoclueDemo = "/usr/lib/geoclue-2.0/demos/where-am-i"

var (
	geoclueLat = regexp.MustCompile(`Latitude:\s*(-?\d+\.\d+)`)
	geoclueLon = regexp.MustCompile(`Longitude:\s*(-?\d+\.\d+)`)
)

// GeoClue shells out to the geoclue demo client and scrapes its output.
type GeoClue struct {
	Runner commandRunner
}

func (g GeoClue) Resolve(ctx context.Context) (model.Coordinates, error) {
	out, err := g.Runner.Run(ctx, geoclueDemo)
	if err != nil {
		metrics.LocationLookups.WithLabelValues("geoclue", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: geoclue: %w", ErrUnavailable, err)
	}

	latMatch := geoclueLat.FindStringSubmatch(out)
	lonMatch := geoclueLon.FindStringSubmatch(out)
	if latMatch == nil || lonMatch == nil {
		metrics.LocationLookups.WithLabelValues("geoclue", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: geoclue output had no coordinates", ErrUnavailable)
	}

	lat, err := strconv.ParseFloat(latMatch[1], 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: geoclue latitude: %w", ErrUnavailable, err)
	}
	lon, err := strconv.ParseFloat(lonMatch[1], 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: geoclue longitude: %w", ErrUnavailable, err)
	}

	metrics.LocationLookups.WithLabelValues("geoclue", "ok").Inc()
	return model.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// DefaultIPAPIURL is the ip-api.com JSON endpoint.
const DefaultIPAPIURL = "http://ip-api.com/json/"

// IPAPI estimates the position from the public IP address.
type IPAPI struct {
	Client *http.Client
	URL    string
}

type ipAPIResponse struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

func (p IPAPI) Resolve(ctx context.Context) (model.Coordinates, error) {
	url := p.URL
	if url == "" {
		url = DefaultIPAPIURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		metrics.LocationLookups.WithLabelValues("ip", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.LocationLookups.WithLabelValues("ip", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup returned %s", ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var parsed ipAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.LocationLookups.WithLabelValues("ip", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: decode ip lookup: %w", ErrUnavailable, err)
	}
	if parsed.Status != "success" {
		metrics.LocationLookups.WithLabelValues("ip", "error").Inc()
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup status %q", ErrUnavailable, parsed.Status)
	}

	metrics.LocationLookups.WithLabelValues("ip", "ok").Inc()
	return model.Coordinates{Latitude: parsed.Lat, Longitude: parsed.Lon}, nil
}

// Chain tries each resolver in order, warning between fallbacks. It fails
// only when every strategy does.
type Chain struct {
	Resolvers []Resolver
	Logger    *slog.Logger
}

func (c Chain) Resolve(ctx context.Context) (model.Coordinates, error) {
	var lastErr error
	for i, r := range c.Resolvers {
		coords, err := r.Resolve(ctx)
		if err == nil {
			return coords, nil
		}
		lastErr = err
		if c.Logger != nil && i < len(c.Resolvers)-1 {
			c.Logger.Warn("location provider failed, trying next", "error", err)
		}
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return model.Coordinates{}, lastErr
}
