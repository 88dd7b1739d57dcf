package sim7070

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070/atparser"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/retry"
	"go.uber.org/zap"
)

type HTTPMethod int

// Method codes of AT+SHREQ
const (
	MethodGet    HTTPMethod = 1
	MethodPut    HTTPMethod = 2
	MethodPost   HTTPMethod = 3
	MethodPatch  HTTPMethod = 4
	MethodHead   HTTPMethod = 5
	MethodDelete HTTPMethod = 6
)

const (
	DefaultBodyLen    = 1024
	DefaultHeaderLen  = 350
	DefaultSSLVersion = 3
	DefaultUserAgent  = "CORTUS_SIM7070G"

	HTTPConnectAttempts = 5
	HTTPConnectDelay    = 5 * time.Second

	// sslContext is the SSL context the HTTP stack is bound to
	sslContext = 1
)

const (
	HTTPHeadersConfigured SessionState = "headers-configured"
	HTTPRequestSent       SessionState = "request-sent"
	HTTPResponseReceived  SessionState = "response-received"
)

type Header struct {
	Key   string
	Value string
}

// DefaultHeaders are sent with every request unless replaced
func DefaultHeaders(userAgent string, contentType string) []Header {
	h := []Header{
		{"User-Agent", userAgent},
		{"Cache-control", "no-cache"},
		{"Connection", "keep-alive"},
		{"Accept", "*/*"},
	}
	if contentType != "" {
		h = append(h, Header{"Content-Type", contentType})
	}
	return h
}

type HTTPOptions struct {
	BodyLen    int
	HeaderLen  int
	SSLVersion int
}

func (o *HTTPOptions) setDefaults() {
	if o.BodyLen <= 0 {
		o.BodyLen = DefaultBodyLen
	}
	if o.HeaderLen <= 0 {
		o.HeaderLen = DefaultHeaderLen
	}
	if o.SSLVersion <= 0 {
		o.SSLVersion = DefaultSSLVersion
	}
}

// HTTPSession is the single HTTP(S) client slot of the modem
type HTTPSession struct {
	m    *Modem
	opts HTTPOptions

	URL   string
	State SessionState
}

type HTTPResponse struct {
	Code   int
	Length int
	Body   []string
}

// NewHTTPSession claims the modem's HTTP slot
func (m *Modem) NewHTTPSession(opts HTTPOptions) (*HTTPSession, error) {
	if m.http != nil && m.http.State != SessionClosed {
		return nil, fmt.Errorf("%w: http", ErrSessionOpen)
	}

	opts.setDefaults()
	m.http = &HTTPSession{m: m, opts: opts, State: SessionClosed}
	return m.http, nil
}

// ConfigureTLS optionally uploads a CA certificate, then enables SSL without
// server verification
func (s *HTTPSession) ConfigureTLS(cert *Certificate) (*UploadResult, error) {
	var res *UploadResult
	if cert != nil {
		var err error
		if res, err = s.m.UploadCertificate(cert); err != nil {
			return nil, err
		}
	}

	if err := s.m.exec(atSSLVersion(sslContext, s.opts.SSLVersion)); err != nil {
		return nil, err
	}
	if err := s.m.exec(AtHTTPNoVerify); err != nil {
		return nil, err
	}
	return res, nil
}

// Open configures the target and connects, checking the state after every attempt
func (s *HTTPSession) Open(url string) error {
	if s.State != SessionClosed {
		return fmt.Errorf("%w: http %s", ErrSessionOpen, s.URL)
	}

	s.URL = url
	s.State = SessionOpening

	// Drop whatever a previous run left connected
	for _, cmd := range []string{
		AtHTTPDisconnect,
		atHTTPConf("URL", url),
		atHTTPConfInt("BODYLEN", s.opts.BodyLen),
		atHTTPConfInt("HEADERLEN", s.opts.HeaderLen),
	} {
		if err := s.m.exec(cmd); err != nil {
			s.State = SessionClosed
			return err
		}
	}

	attempts, err := retry.Do(s.m.policy(HTTPConnectAttempts, HTTPConnectDelay), func(attempt int) (bool, error) {
		if _, err := s.m.run(at.Cmd(AtHTTPConnect).WithTimeout(HTTPConnectTimeout)); err != nil {
			return false, err
		}

		resp, err := s.m.run(at.Cmd(AtHTTPStateQuery))
		if err != nil {
			return false, err
		}

		if !atparser.HTTPConnected(resp.Lines) {
			log.Warn("http connect attempt failed", zap.String("url", url), zap.Int("attempt", attempt))
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		s.abandon()
		if errors.Is(err, retry.ErrExhausted) {
			return fmt.Errorf("%w %s: %w", ErrOpenFailed, url, err)
		}
		return err
	}

	log.Info("http connection established", zap.String("url", url), zap.Int("attempts", attempts))
	s.State = SessionOpen
	return nil
}

// abandon disconnects after a failed open, a failing disconnect is only logged
func (s *HTTPSession) abandon() {
	s.State = SessionClosed
	if err := s.m.exec(AtHTTPDisconnect); err != nil {
		log.Warn("disconnecting failed http session", zap.String("url", s.URL), zap.Error(err))
	}
}

// SetHeaders clears the header list and adds each header in order
func (s *HTTPSession) SetHeaders(headers []Header) error {
	if s.State == SessionClosed || s.State == SessionOpening {
		return ErrSessionNotOpen
	}

	if err := s.m.exec(AtHTTPClearHeader); err != nil {
		return err
	}

	for _, h := range headers {
		resp, err := s.m.run(at.Cmd(atHTTPHeader(h.Key, h.Value)))
		if err != nil {
			return err
		}

		if !resp.OK() {
			log.Warn("header rejected", zap.String("key", h.Key), zap.Strings("lines", resp.Lines))
		}
	}

	s.State = HTTPHeadersConfigured
	return nil
}

func (s *HTTPSession) ready() error {
	switch s.State {
	case SessionClosed, SessionOpening:
		return ErrSessionNotOpen
	}
	return nil
}

func (s *HTTPSession) request(path string, method HTTPMethod) (*HTTPResponse, error) {
	resp, err := s.m.run(at.Cmd(atHTTPRequest(path, method)).WithTimeout(HTTPRequestTimeout).AwaitURC(atparser.PrefixSHREQ))
	if err != nil {
		return nil, err
	}
	s.State = HTTPRequestSent

	result, ok := atparser.HTTPResult(resp.Lines)
	if !ok {
		return nil, fmt.Errorf("%w: no result for %s [%s]", ErrRequestFailed, path, strings.Join(resp.Lines, " | "))
	}

	log.Info("http response", zap.String("path", path), zap.Int("code", result.Code), zap.Int("length", result.Length))
	s.State = HTTPResponseReceived

	return &HTTPResponse{Code: result.Code, Length: result.Length}, nil
}

func (s *HTTPSession) Get(path string) (*HTTPResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.request(path, MethodGet)
}

// Post JSON encodes body, announces its exact length and streams it after the prompt
func (s *HTTPSession) Post(path string, body any) (*HTTPResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	resp, err := s.m.run(at.Cmd(atHTTPBody(len(data))).WithPayload(at.Prompt, data, SendPromptTimeout))
	if err != nil {
		return nil, err
	}
	if !resp.PromptSeen {
		return nil, promptTimeout()
	}
	if resp.Failed() {
		return nil, fmt.Errorf("%w: body rejected with %s", ErrRequestFailed, resp.Terminal)
	}

	return s.request(path, MethodPost)
}

// ReadBody fetches the response body, nothing is read for an empty response
func (s *HTTPSession) ReadBody(length int) ([]string, error) {
	if length <= 0 {
		return nil, nil
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	// The body follows the OK and the +SHREAD header without a terminal line
	cmd := at.Cmd(atHTTPRead(length)).WithTimeout(HTTPReadTimeout).ExpectData(atparser.PrefixSHREAD, length)

	resp, err := s.m.run(cmd)
	if err != nil {
		return nil, err
	}
	return atparser.HTTPBody(resp.Lines), nil
}

func (s *HTTPSession) Close() error {
	if s.State == SessionClosed {
		return nil
	}

	s.State = SessionClosed
	return s.m.exec(AtHTTPDisconnect)
}

// HTTPRequest describes one test request
type HTTPRequest struct {
	URL     string
	Path    string
	Headers []Header

	// Cert is uploaded before an HTTPS connection, nil skips TLS setup
	Cert *Certificate
	TLS  bool

	// Body is JSON encoded for POST
	Body any

	// SkipBody does not read the response body
	SkipBody bool
}

func (m *Modem) HTTPGet(opts HTTPOptions, req HTTPRequest) (*HTTPResponse, error) {
	return m.httpDo(opts, req, MethodGet)
}

func (m *Modem) HTTPPost(opts HTTPOptions, req HTTPRequest) (*HTTPResponse, error) {
	return m.httpDo(opts, req, MethodPost)
}

func (m *Modem) httpDo(opts HTTPOptions, req HTTPRequest, method HTTPMethod) (res *HTTPResponse, err error) {
	s, err := m.NewHTTPSession(opts)
	if err != nil {
		return nil, err
	}

	if req.TLS || req.Cert != nil {
		up, err := s.ConfigureTLS(req.Cert)
		if err != nil {
			return nil, err
		}
		if up != nil && up.Warning != nil {
			log.Warn("continuing with previously stored certificate", zap.Error(up.Warning))
		}
	}

	if err := s.Open(req.URL); err != nil {
		return nil, err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.SetHeaders(req.Headers); err != nil {
		return nil, err
	}

	switch method {
	case MethodPost:
		res, err = s.Post(req.Path, req.Body)
	default:
		res, err = s.Get(req.Path)
	}
	if err != nil {
		return nil, err
	}

	if req.SkipBody {
		return res, nil
	}

	body, err := s.ReadBody(res.Length)
	if err != nil {
		return nil, err
	}

	res.Body = body
	return res, nil
}
