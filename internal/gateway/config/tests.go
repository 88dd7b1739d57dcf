package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
	"github.com/LeoCommon/cellgw/pkg/token"
)

type TCPConfig struct {
	Host   string `toml:"host" comment:"echo server, tcpbin by default"`
	Port   int    `toml:"port"`
	ConnID int    `toml:"conn_id"`
}

func defaultTCPConfig() TCPConfig {
	return TCPConfig{Host: "45.79.112.203", Port: 4242}
}

type TCPConfigManager struct {
	BaseConfigManager[TCPConfig]
}

func (a *TCPConfigManager) Verify() error {
	if a.conf.Host == "" {
		return errors.New("empty tcp host")
	}
	if a.conf.Port < 1 || a.conf.Port > 65535 {
		return fmt.Errorf("tcp port %d out of range", a.conf.Port)
	}
	if a.conf.ConnID < 0 {
		return fmt.Errorf("invalid connection id %d", a.conf.ConnID)
	}
	return nil
}

type HTTPConfig struct {
	URL         string `toml:"url"`
	GetPath     string `toml:"get_path"`
	PostPath    string `toml:"post_path"`
	Certificate string `toml:"certificate,omitempty" comment:"CA certificate uploaded before https requests"`
	BodyLen     int    `toml:"body_len"`
	HeaderLen   int    `toml:"header_len"`
	SSLVersion  int    `toml:"ssl_version"`
	UserAgent   string `toml:"user_agent"`
	BearerToken string `toml:"bearer_token,omitempty" comment:"optional JWT sent as Authorization header"`
}

func defaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		URL:        "http://httpbin.org",
		GetPath:    "/get?user=jack&password=123",
		PostPath:   "/post",
		BodyLen:    sim7070.DefaultBodyLen,
		HeaderLen:  sim7070.DefaultHeaderLen,
		SSLVersion: sim7070.DefaultSSLVersion,
		UserAgent:  sim7070.DefaultUserAgent,
	}
}

// Options converts the section into HTTP session options
func (c HTTPConfig) Options() sim7070.HTTPOptions {
	return sim7070.HTTPOptions{BodyLen: c.BodyLen, HeaderLen: c.HeaderLen, SSLVersion: c.SSLVersion}
}

type HTTPConfigManager struct {
	BaseConfigManager[HTTPConfig]
}

func (a *HTTPConfigManager) Verify() error {
	u, err := url.Parse(a.conf.URL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	// A broken token is a configuration error, an expired one is checked per request
	if a.conf.BearerToken != "" {
		if err := token.Validate(a.conf.BearerToken); err != nil && !errors.Is(err, token.ErrTokenExpired) {
			return fmt.Errorf("bearer token: %w", err)
		}
	}
	return nil
}

type PingConfig struct {
	Host      string `toml:"host"`
	Count     int    `toml:"count"`
	Size      int    `toml:"size"`
	TimeoutMs int    `toml:"timeout_ms"`
	Geolocate bool   `toml:"geolocate" comment:"look up the target location, needs host connectivity"`
}

func defaultPingConfig() PingConfig {
	return PingConfig{
		Host:      sim7070.DefaultPingHost,
		Count:     sim7070.DefaultPingCount,
		Size:      sim7070.DefaultPingSize,
		TimeoutMs: sim7070.DefaultPingTimeoutMs,
	}
}

func (c PingConfig) Request() sim7070.PingRequest {
	return sim7070.PingRequest{Host: c.Host, Count: c.Count, Size: c.Size, TimeoutMs: c.TimeoutMs}
}

type PingConfigManager struct {
	BaseConfigManager[PingConfig]
}

func (a *PingConfigManager) Verify() error {
	if a.conf.Host == "" {
		return errors.New("empty ping host")
	}
	if a.conf.Count <= 0 {
		return fmt.Errorf("ping count must be positive, got %d", a.conf.Count)
	}
	return nil
}
