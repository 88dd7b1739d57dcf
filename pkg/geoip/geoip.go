// Package geoip resolves where the ping target lives, using the ip-api.com JSON endpoint.
package geoip

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

const (
	// The free tier is plain http only
	DefaultBaseURL = "http://ip-api.com/json/"

	RequestTimeout = 10 * time.Second
	statusSuccess  = "success"
)

type Location struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Query       string  `json:"query"`
}

func (l *Location) String() string {
	return fmt.Sprintf("%s, %s, %s (%.4f, %.4f) via %s", l.City, l.RegionName, l.Country, l.Lat, l.Lon, l.ISP)
}

type Client struct {
	client  *req.Client
	baseURL string
}

func NewClient(baseURL string, debug bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := req.C().
		SetTimeout(RequestTimeout).
		SetCommonRetryCount(2).
		SetCommonHeader("Accept", "application/json")

	if debug {
		c.EnableDebugLog()
	}

	return &Client{client: c, baseURL: strings.TrimRight(baseURL, "/") + "/"}
}

// GetClient Use this for tests to set the transport to mock
func (c *Client) GetClient() *req.Client {
	return c.client
}

// Lookup resolves host, an IP address or a domain name
func (c *Client) Lookup(ctx context.Context, host string) (*Location, error) {
	loc := &Location{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(loc).
		Get(c.baseURL + url.PathEscape(host))

	if err := errorFromResponse(err, resp); err != nil {
		log.Warn("geolocation request failed", zap.String("host", host), zap.Error(err))
		return nil, err
	}

	if loc.Status != statusSuccess {
		return nil, fmt.Errorf("%w for %s: %s", ErrLookupFailed, host, loc.Message)
	}

	log.Debug("geolocation resolved", zap.String("host", host), zap.String("location", loc.String()))
	return loc, nil
}
