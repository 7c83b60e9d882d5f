package fraud

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/richxcame/lead-intake/pkg/httpclient"
	"github.com/richxcame/lead-intake/pkg/resilience"
)

// VoIPDetector reports whether a phone number is a VoIP number.
// Real implementations call an external provider; the engine treats lookup
// failures as "not VoIP" so scoring never fails on provider outages.
type VoIPDetector interface {
	IsVoIP(ctx context.Context, phone string) (bool, error)
}

// Geocoder reports whether an address plausibly matches the stated
// suburb/city. Real implementations call a geocoding service.
type Geocoder interface {
	Matches(ctx context.Context, address, suburb, city string) (bool, error)
}

// SignalProvider supplies technical risk signals (IP reputation, device
// fingerprint, request patterns) gathered outside the lead record itself.
type SignalProvider interface {
	Analyze(ctx context.Context, lead *Lead) (PartialScore, error)
}

// NoopVoIPDetector always reports "not VoIP". It is the default placeholder
// until a real provider is wired in.
type NoopVoIPDetector struct{}

func (NoopVoIPDetector) IsVoIP(ctx context.Context, phone string) (bool, error) {
	return false, nil
}

// NoopGeocoder always reports a match, so the location-mismatch rule never
// fires. It is the default placeholder until a geocoding provider is wired in.
type NoopGeocoder struct{}

func (NoopGeocoder) Matches(ctx context.Context, address, suburb, city string) (bool, error) {
	return true, nil
}

// NoopSignalProvider contributes a zero score with no reasons.
type NoopSignalProvider struct{}

func (NoopSignalProvider) Analyze(ctx context.Context, lead *Lead) (PartialScore, error) {
	return PartialScore{}, nil
}

// HTTPVoIPDetector queries an external number-lookup service. Calls run
// through a circuit breaker so a slow or failing provider cannot stall lead
// intake.
type HTTPVoIPDetector struct {
	client  *httpclient.Client
	apiKey  string
	breaker *resilience.CircuitBreaker
}

// NewHTTPVoIPDetector creates a detector for the lookup service at baseURL
func NewHTTPVoIPDetector(baseURL, apiKey string) *HTTPVoIPDetector {
	breaker := resilience.NewCircuitBreaker(
		resilience.BuildSettings("voip-lookup", 60, 30, 5, 1),
		resilience.GracefulDegradation("voip-lookup"))

	client := httpclient.NewClient(baseURL, 5*time.Second)
	httpclient.WithDefaultRetry()(client)

	return &HTTPVoIPDetector{
		client:  client,
		apiKey:  apiKey,
		breaker: breaker,
	}
}

type voipLookupResponse struct {
	VoIP bool `json:"voip"`
}

// IsVoIP looks up the phone number's line type
func (d *HTTPVoIPDetector) IsVoIP(ctx context.Context, phone string) (bool, error) {
	result, err := d.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		headers := map[string]string{"Authorization": "Bearer " + d.apiKey}
		return d.client.Get(ctx, "/v1/lookup?number="+url.QueryEscape(phone), headers)
	})
	if err != nil {
		return false, err
	}

	body, _ := result.([]byte)
	var lookup voipLookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return false, err
	}

	return lookup.VoIP, nil
}
