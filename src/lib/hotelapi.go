package lib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"hbs/src/types"
)

// HotelAPIClient syncs confirmed bookings to an upstream hotel inventory
// provider. The local record stays authoritative; callers treat failures
// here as log-and-continue.
type HotelAPIClient struct {
	BaseURL    string
	apiKey     string
	httpClient *http.Client
}

var hotelAPIClient *HotelAPIClient

func GetHotelAPIClient() *HotelAPIClient {
	if hotelAPIClient != nil {
		return hotelAPIClient
	}
	c := &HotelAPIClient{
		BaseURL: os.Getenv("HOTEL_API_URL"),
		apiKey:  os.Getenv("HOTEL_API_KEY"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	hotelAPIClient = c
	return c
}

// NewHotelAPIClient Replace provider instance with custom client implementation
func NewHotelAPIClient(c *HotelAPIClient) *HotelAPIClient {
	hotelAPIClient = c
	return c
}

type ExternalBookingResult struct {
	ExternalBookingID string `json:"booking_id"`
	ExternalStatus    string `json:"status"`
}

func (c *HotelAPIClient) CreateBooking(externalListingID string, checkIn, checkOut time.Time, guests uint8, metadata types.JSONB) (*ExternalBookingResult, error) {
	payload := map[string]any{
		"listing_id": externalListingID,
		"check_in":   checkIn.Format("2006-01-02"),
		"check_out":  checkOut.Format("2006-01-02"),
		"guests":     guests,
		"metadata":   metadata,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/bookings", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.WrapError(types.KindExternalService, "hotel provider request failed", err)
	}
	defer res.Body.Close()
	rbytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, types.WrapError(types.KindExternalService, "error reading hotel provider response", err)
	}
	if res.StatusCode >= 400 {
		log.Printf("[HotelAPI] createBooking returned %d: %s\n", res.StatusCode, string(rbytes))
		return nil, types.NewError(types.KindExternalService, fmt.Sprintf("hotel provider returned %d", res.StatusCode))
	}
	var result ExternalBookingResult
	if err := json.Unmarshal(rbytes, &result); err != nil {
		return nil, types.WrapError(types.KindExternalService, "error decoding hotel provider response", err)
	}
	return &result, nil
}
