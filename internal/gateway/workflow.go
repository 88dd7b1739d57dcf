package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
	"github.com/LeoCommon/cellgw/pkg/geoip"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/retry"
	"github.com/LeoCommon/cellgw/pkg/token"
	"github.com/LeoCommon/cellgw/pkg/usb"
	"go.uber.org/zap"
)

var (
	ErrNoPowerControl = errors.New("modem not responding and no power control configured")
	ErrModemOffline   = errors.New("modem did not come up")
)

// geoLookupTimeout bounds the optional location lookup of the ping target
const geoLookupTimeout = 10 * time.Second

// workflow brackets fn with the traffic log markers
func (a *App) workflow(name string, fn func() error) error {
	if a.Traffic != nil {
		a.Traffic.Start(name)
	}

	err := fn()

	if a.Traffic != nil {
		a.Traffic.End(err)
	}
	return err
}

// waitForUSB blocks until the modem enumerated again after a power toggle
func (a *App) waitForUSB(ctx context.Context) {
	mc := a.Conf.Modem().C()
	if !mc.USBDetect || a.Devices == nil {
		return
	}

	device, ok := usb.DeviceTypeByName(mc.Model)
	if !ok {
		return
	}

	wctx, cancel := context.WithTimeout(ctx, mc.USBWait.Value())
	defer cancel()

	if err := a.Devices.WaitForDevice(wctx, device); err != nil {
		log.Warn("modem did not re-enumerate, trying the AT port anyway", zap.Error(err))
	}
}

// PowerOn makes sure the modem answers on its AT port. The handshake is tried
// first and the power is toggled before every further attempt.
func (a *App) PowerOn(ctx context.Context) error {
	pc := a.Conf.Power().C()
	p := retry.Policy{Attempts: pc.HandshakeAttempts, Sleep: a.sleep}

	attempts, err := retry.Do(p, func(attempt int) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if attempt > 1 {
			if a.Power == nil {
				return false, ErrNoPowerControl
			}

			// The port vanishes while the modem is off
			a.disconnect()

			log.Info("power cycling modem", zap.Int("attempt", attempt))
			if err := a.Power.Toggle(); err != nil {
				return false, fmt.Errorf("power toggle: %w", err)
			}
			a.waitForUSB(ctx)
		}

		if err := a.Connect(ctx); err != nil {
			log.Warn("AT port not available", zap.Int("attempt", attempt), zap.Error(err))
			return false, nil
		}

		err := a.modem.Handshake()
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, sim7070.ErrHandshakeFailed):
			return false, nil
		case isTransportFailure(err):
			log.Warn("AT port failed during handshake", zap.Error(err))
			a.disconnect()
			return false, nil
		default:
			return false, err
		}
	})
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrModemOffline, err)
	}
	if err != nil {
		return err
	}

	log.Info("modem is responsive", zap.Int("attempts", attempts))
	return nil
}

// BringUp powers the modem if needed and runs the bring-up stages
func (a *App) BringUp(ctx context.Context) (res *sim7070.BringUpResult, err error) {
	err = a.workflow("bring-up", func() error {
		if err := a.PowerOn(ctx); err != nil {
			return err
		}

		res, err = a.modem.BringUp()
		return err
	})
	return res, err
}

// ensureContext runs a bring-up when no data context is cached
func (a *App) ensureContext(ctx context.Context) (int, error) {
	if a.modem != nil {
		if pdp, ok := a.modem.PDPContext(); ok {
			return pdp.ID, nil
		}
	}

	log.Info("no data context, bringing the modem up first")

	if err := a.PowerOn(ctx); err != nil {
		return sim7070.NoContext, err
	}

	res, err := a.modem.BringUp()
	if err != nil {
		return sim7070.NoContext, err
	}
	if res.ContextID == sim7070.NoContext {
		return sim7070.NoContext, sim7070.ErrNoContext
	}
	return res.ContextID, nil
}

type PingReport struct {
	*sim7070.PingResult

	// Location of the target, nil when not looked up
	Location *geoip.Location
}

// Ping pings the configured host over the data context
func (a *App) Ping(ctx context.Context) (rep *PingReport, err error) {
	pc := a.Conf.Ping().C()

	err = a.workflow("ping", func() error {
		if _, err := a.ensureContext(ctx); err != nil {
			return err
		}

		res, err := a.modem.Ping(pc.Request())
		if err != nil {
			return err
		}

		rep = &PingReport{PingResult: res}
		if pc.Geolocate {
			rep.Location = a.locate(ctx, res.Request.Host)
		}
		return nil
	})
	return rep, err
}

// locate is best effort and needs a host uplink besides the modem
func (a *App) locate(ctx context.Context, host string) *geoip.Location {
	if a.GeoIP == nil {
		return nil
	}

	if a.Network != nil && !a.Network.HasConnectivity() {
		log.Info("host has no connectivity, skipping geolocation")
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	loc, err := a.GeoIP.Lookup(lctx, host)
	if err != nil {
		log.Warn("geolocation failed", zap.String("host", host), zap.Error(err))
		return nil
	}
	return loc
}

// TCPTest runs the echo test against the configured server
func (a *App) TCPTest(ctx context.Context) (res *sim7070.TCPTestResult, err error) {
	tc := a.Conf.TCP().C()

	err = a.workflow("tcp", func() error {
		cid, err := a.ensureContext(ctx)
		if err != nil {
			return err
		}

		res, err = a.modem.TCPTest(tc.ConnID, cid, tc.Host, tc.Port, sim7070.TCPTestPayload)
		return err
	})
	return res, err
}

// httpRequest assembles the request from the [http] section
func (a *App) httpRequest(path string, contentType string) (sim7070.HTTPRequest, error) {
	hc := a.Conf.HTTP().C()

	req := sim7070.HTTPRequest{
		URL:     hc.URL,
		Path:    path,
		Headers: sim7070.DefaultHeaders(hc.UserAgent, contentType),
	}

	// An expired token would only waste airtime
	if hc.BearerToken != "" {
		if err := token.Validate(hc.BearerToken); err != nil {
			return req, fmt.Errorf("bearer token: %w", err)
		}
		req.Headers = append(req.Headers, sim7070.Header{Key: "Authorization", Value: "Bearer " + hc.BearerToken})
	}

	if u, err := url.Parse(hc.URL); err == nil && strings.EqualFold(u.Scheme, "https") {
		req.TLS = true
	}

	if hc.Certificate != "" {
		cert, err := sim7070.NewCertificateFromFile(hc.Certificate)
		if err != nil {
			return req, err
		}
		req.Cert = cert
	}

	return req, nil
}

func (a *App) HTTPGet(ctx context.Context) (res *sim7070.HTTPResponse, err error) {
	hc := a.Conf.HTTP().C()

	err = a.workflow("http get", func() error {
		req, err := a.httpRequest(hc.GetPath, "")
		if err != nil {
			return err
		}

		if _, err := a.ensureContext(ctx); err != nil {
			return err
		}

		res, err = a.modem.HTTPGet(hc.Options(), req)
		return err
	})
	return res, err
}

// HTTPPost sends body JSON encoded to the configured post path
func (a *App) HTTPPost(ctx context.Context, body any) (res *sim7070.HTTPResponse, err error) {
	hc := a.Conf.HTTP().C()

	err = a.workflow("http post", func() error {
		req, err := a.httpRequest(hc.PostPath, "application/json")
		if err != nil {
			return err
		}
		req.Body = body

		if _, err := a.ensureContext(ctx); err != nil {
			return err
		}

		res, err = a.modem.HTTPPost(hc.Options(), req)
		return err
	})
	return res, err
}

// UploadCertificate stores the file at path on the modem, no data context is needed.
// replace deletes a converted certificate of the same name first.
func (a *App) UploadCertificate(ctx context.Context, path string, replace bool) (res *sim7070.UploadResult, err error) {
	err = a.workflow("upload", func() error {
		cert, err := sim7070.NewCertificateFromFile(path)
		if err != nil {
			return err
		}

		if err := a.PowerOn(ctx); err != nil {
			return err
		}

		if replace {
			if err := a.modem.DeleteCertificate(cert.Name); err != nil {
				log.Warn("could not delete previous certificate", zap.String("name", cert.Name), zap.Error(err))
			}
		}

		res, err = a.modem.UploadCertificate(cert)
		return err
	})
	return res, err
}

type Modes struct {
	Network []int
	NB      []int
}

func (a *App) SupportedModes(ctx context.Context) (modes *Modes, err error) {
	err = a.workflow("modes", func() error {
		if err := a.PowerOn(ctx); err != nil {
			return err
		}

		network, nb, err := a.modem.SupportedModes()
		if err != nil {
			return err
		}

		modes = &Modes{Network: network, NB: nb}
		return nil
	})
	return modes, err
}
