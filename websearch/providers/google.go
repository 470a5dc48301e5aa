package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"retrievalagent/websearch/types"
)

const (
	googlePlacesBaseURL = "https://places.googleapis.com/v1"
	googleSearchMask    = "places.id,places.displayName,places.location,places.types,places.rating,places.formattedAddress"
	googleDetailsMask   = "id,displayName,location,types,rating,formattedAddress"
	// googleMaxBiasMeters ограничение API на радиус locationBias
	googleMaxBiasMeters = 50000.0
)

// GoogleConfig конфигурация провайдера Google Places
type GoogleConfig struct {
	APIKey    string
	BaseURL   string
	Region    string // добавляется к текстовому запросу, например "Singapore"
	Timeout   time.Duration
	RateLimit time.Duration // минимальный интервал между запросами
	PageSize  int
}

// GoogleProvider провайдер для Google Places API (New)
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	region     string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	rateLimit  time.Duration
}

var _ types.PlaceProvider = (*GoogleProvider)(nil)

// NewGoogleProvider создает новый провайдер Google Places
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.BaseURL == "" {
		config.BaseURL = googlePlacesBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 500 * time.Millisecond
	}
	if config.PageSize <= 0 || config.PageSize > 20 {
		config.PageSize = 20
	}

	return &GoogleProvider{
		apiKey:   config.APIKey,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		region:   config.Region,
		pageSize: config.PageSize,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:   rate.NewLimiter(rate.Every(config.RateLimit), 1),
		rateLimit: config.RateLimit,
	}
}

// GetName возвращает имя провайдера
func (g *GoogleProvider) GetName() string {
	return "google"
}

// IsAvailable проверяет доступность провайдера
func (g *GoogleProvider) IsAvailable() bool {
	return g.apiKey != ""
}

// GetRateLimit возвращает лимит запросов
func (g *GoogleProvider) GetRateLimit() time.Duration {
	return g.rateLimit
}

// googleTextSearchRequest тело запроса places:searchText
type googleTextSearchRequest struct {
	TextQuery    string             `json:"textQuery"`
	PageSize     int                `json:"pageSize,omitempty"`
	MinRating    float64            `json:"minRating,omitempty"`
	LocationBias googleLocationBias `json:"locationBias"`
}

type googleLocationBias struct {
	Circle googleCircle `json:"circle"`
}

type googleCircle struct {
	Center googleLatLng `json:"center"`
	Radius float64      `json:"radius"`
}

type googleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GooglePlace запись места в ответе API
type GooglePlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location         googleLatLng `json:"location"`
	Types            []string     `json:"types"`
	Rating           float64      `json:"rating"`
	FormattedAddress string       `json:"formattedAddress"`
}

// GoogleResponse структура ответа places:searchText
type GoogleResponse struct {
	Places []GooglePlace `json:"places"`
}

// GoogleErrorResponse структура ошибки Google API
type GoogleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Search выполняет текстовый поиск мест с привязкой к кругу
func (g *GoogleProvider) Search(ctx context.Context, req types.SearchRequest) ([]types.Venue, error) {
	if !g.IsAvailable() {
		return nil, types.NewPermanentError(g.GetName(), "API key is required", nil)
	}

	radius := req.RadiusKm * 1000
	if radius > googleMaxBiasMeters {
		radius = googleMaxBiasMeters
	}

	body := googleTextSearchRequest{
		TextQuery: g.textQuery(req.Category),
		PageSize:  g.pageSize,
		MinRating: req.MinRating,
		LocationBias: googleLocationBias{Circle: googleCircle{
			Center: googleLatLng{Latitude: req.Center.Latitude, Longitude: req.Center.Longitude},
			Radius: radius,
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewPermanentError(g.GetName(), "failed to encode request", err)
	}

	var response GoogleResponse
	if err := g.do(ctx, http.MethodPost, g.baseURL+"/places:searchText", googleSearchMask, payload, &response); err != nil {
		return nil, err
	}

	venues := make([]types.Venue, 0, len(response.Places))
	for _, p := range response.Places {
		venues = append(venues, g.toVenue(p))
	}
	return venues, nil
}

// Details возвращает расширенные атрибуты места
func (g *GoogleProvider) Details(ctx context.Context, placeID string) (*types.Venue, error) {
	if !g.IsAvailable() {
		return nil, types.NewPermanentError(g.GetName(), "API key is required", nil)
	}
	if strings.TrimSpace(placeID) == "" {
		return nil, types.NewPermanentError(g.GetName(), "place id is required", nil)
	}

	var place GooglePlace
	endpoint := g.baseURL + "/places/" + url.PathEscape(placeID)
	if err := g.do(ctx, http.MethodGet, endpoint, googleDetailsMask, nil, &place); err != nil {
		return nil, err
	}
	venue := g.toVenue(place)
	return &venue, nil
}

// do выполняет запрос с ожиданием лимитера и классификацией ошибок
func (g *GoogleProvider) do(ctx context.Context, method, endpoint, fieldMask string, payload []byte, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return types.NewTransientError(g.GetName(), "rate limit wait failed", err)
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return types.NewPermanentError(g.GetName(), "failed to create request", err)
	}
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)
	req.Header.Set("User-Agent", "RetrievalAgent/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return types.NewTransientError(g.GetName(), "request timeout", err)
		}
		return types.NewTransientError(g.GetName(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewTransientError(g.GetName(), "failed to decode response", err)
	}
	return nil
}

// statusError переводит HTTP статус в класс ошибки
func (g *GoogleProvider) statusError(resp *http.Response) error {
	message := resp.Status
	var errorResp GoogleErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil && errorResp.Error.Message != "" {
		message = fmt.Sprintf("%s (code %d): %s", errorResp.Error.Status, errorResp.Error.Code, errorResp.Error.Message)
	}
	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, message)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewTransientError(g.GetName(), "rate limit exceeded", statusErr)
	case resp.StatusCode == http.StatusRequestTimeout:
		return types.NewTransientError(g.GetName(), "request timeout", statusErr)
	case resp.StatusCode >= 500:
		return types.NewTransientError(g.GetName(), "service unavailable", statusErr)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewPermanentError(g.GetName(), "authentication failed", statusErr)
	default:
		return types.NewPermanentError(g.GetName(), "request rejected", statusErr)
	}
}

func (g *GoogleProvider) textQuery(category string) string {
	q := strings.ReplaceAll(strings.TrimSpace(category), "_", " ")
	if g.region != "" {
		q += " in " + g.region
	}
	return q
}

func (g *GoogleProvider) toVenue(p GooglePlace) types.Venue {
	return types.Venue{
		PlaceID:   p.ID,
		Name:      p.DisplayName.Text,
		Latitude:  p.Location.Latitude,
		Longitude: p.Location.Longitude,
		Types:     p.Types,
		Rating:    p.Rating,
		Address:   p.FormattedAddress,
		Source:    g.GetName(),
	}
}
