package emissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// DefaultGeoURL answers with the caller's country as JSON.
const DefaultGeoURL = "https://get.geojs.io/v1/ip/geo.json"

var errNoCountry = errors.New("emissions: geolocation returned no country")

// Locate asks the geolocation endpoint for the host's ISO-3 country code.
// The endpoint must return a JSON object with a "country_code3" field.
func Locate(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geolocate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocate: bad status: %s", resp.Status)
	}

	var payload struct {
		CountryCode3 string `json:"country_code3"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("geolocate: decode: %w", err)
	}
	if payload.CountryCode3 == "" {
		return "", errNoCountry
	}
	return payload.CountryCode3, nil
}

// Resolve locates the host and returns its intensity, falling back to the
// world average on any failure. It never returns an error.
func Resolve(ctx context.Context, client *http.Client, url string, log *slog.Logger) Intensity {
	if log == nil {
		log = slog.Default()
	}
	code, err := Locate(ctx, client, url)
	if err != nil {
		log.Warn("geolocation failed, using world average", "err", err)
		return WorldAverage()
	}
	in, err := Lookup(code)
	if err != nil {
		log.Warn("no intensity for located country, using world average", "country", code)
		return WorldAverage()
	}
	return in
}
