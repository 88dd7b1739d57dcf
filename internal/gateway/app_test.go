package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LeoCommon/cellgw/internal/gateway/config"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at/attest"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/transport"
	"github.com/LeoCommon/cellgw/internal/modem_manager/power"
	"github.com/LeoCommon/cellgw/pkg/geoip"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/systemd"
	"github.com/LeoCommon/cellgw/pkg/token"
	"github.com/LeoCommon/cellgw/pkg/usb"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testCPSI = "+CPSI: LTE NB-IOT,Online,222-10,0xB7F5,20087664,217,EUTRAN-BAND20,6353,0,0,-10,-79,-69,14"

// seqDialer hands out one fake per dial, a closed fake cannot be reused
type seqDialer struct {
	mu     sync.Mutex
	modems []*attest.Modem
	errs   []error
	dials  int
}

func (d *seqDialer) Dial() (transport.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.dials
	d.dials++

	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i >= len(d.modems) {
		return nil, errors.New("no more fakes")
	}
	return d.modems[i], nil
}

type fakeTraffic struct {
	at.NopSink
	started []string
	ended   []error
	closed  bool
}

func (f *fakeTraffic) Start(name string) uuid.UUID {
	f.started = append(f.started, name)
	return uuid.New()
}

func (f *fakeTraffic) End(err error) {
	f.ended = append(f.ended, err)
}

func (f *fakeTraffic) Close() error {
	f.closed = true
	return nil
}

type fakeUnits struct {
	state   string
	stopped []string
}

func (f *fakeUnits) StopUnit(_ context.Context, unit string) (bool, error) {
	f.stopped = append(f.stopped, unit)
	return true, nil
}

func (f *fakeUnits) CheckUnitState(context.Context, string) (string, error) {
	return f.state, nil
}

func (f *fakeUnits) Shutdown() error {
	return nil
}

type fakeDevices struct {
	waited int
}

func (f *fakeDevices) WaitForDevice(context.Context, usb.DeviceType) error {
	f.waited++
	return nil
}

type fakeLocator struct {
	hosts []string
}

func (f *fakeLocator) Lookup(_ context.Context, host string) (*geoip.Location, error) {
	f.hosts = append(f.hosts, host)
	return &geoip.Location{Status: "success", City: "Mountain View", Country: "United States"}, nil
}

type connectivity bool

func (c connectivity) HasConnectivity() bool {
	return bool(c)
}

func newTestApp(t *testing.T, d transport.Dialer, toggler power.Toggler) (*App, *[]time.Duration) {
	log.Init(true)

	var slept []time.Duration
	a := New(config.NewManager(), d, toggler)
	a.sleep = func(d time.Duration) { slept = append(slept, d) }
	a.engineOpts = []at.Option{at.WithPollInterval(10 * time.Millisecond)}
	a.Traffic = &fakeTraffic{}

	t.Cleanup(a.disconnect)
	return a, &slept
}

// cooperative scripts every bring-up query with its successful answer
func cooperative(fake *attest.Modem) *attest.Modem {
	return fake.On(sim7070.AtHandshake, attest.OK()).
		On(sim7070.AtFunctionalityQuery, attest.OK("+CFUN: 1")).
		On(sim7070.AtSIMStatusQuery, attest.OK("+CPIN: READY")).
		On(sim7070.AtSignalQuery, attest.OK("+CSQ: 20,99")).
		On(sim7070.AtAttachQuery, attest.OK("+CGATT: 1")).
		On("AT+CFUN=0", attest.OK()).
		On("AT+CFUN=1", attest.OK()).
		On("AT+CNMP=38", attest.OK()).
		On("AT+CMNB=2", attest.OK()).
		On(sim7070.AtSystemInfoQuery, attest.OK(testCPSI)).
		On(sim7070.AtOperatorQuery, attest.OK(`+COPS: 0,2,"22210",9`)).
		On(sim7070.AtAPNQuery, attest.OK(`+CGNAPN: 0,"iot.1nce.net"`)).
		On(sim7070.AtPDPQuery, attest.OK(`+CNACT: 0,1,"10.0.0.5"`))
}

func TestPowerOnResponsiveModemIsNotToggled(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)

	fake := attest.New().On(sim7070.AtHandshake, attest.OK())
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, toggler)

	require.NoError(t, a.PowerOn(context.Background()))
	assert.NotNil(t, a.Modem())
	assert.Equal(t, 1, fake.Count(sim7070.AtHandshake))
}

func TestPowerOnTogglesAfterFailedHandshake(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)
	toggler.EXPECT().Toggle().Return(nil).Times(1)

	first := attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR"))
	second := attest.New().On(sim7070.AtHandshake, attest.OK())
	d := &seqDialer{modems: []*attest.Modem{first, second}}

	a, _ := newTestApp(t, d, toggler)

	require.NoError(t, a.PowerOn(context.Background()))
	assert.Equal(t, 2, d.dials)
	assert.Equal(t, 1, second.Count(sim7070.AtHandshake))
}

func TestPowerOnDialFailureCountsAsAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)
	toggler.EXPECT().Toggle().Return(nil).Times(1)

	fake := attest.New().On(sim7070.AtHandshake, attest.OK())
	d := &seqDialer{
		modems: []*attest.Modem{nil, fake},
		errs:   []error{errors.New("no such file or directory")},
	}

	a, _ := newTestApp(t, d, toggler)
	require.NoError(t, a.PowerOn(context.Background()))
	assert.Equal(t, 2, d.dials)
}

func TestPowerOnExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)
	toggler.EXPECT().Toggle().Return(nil).Times(2)

	d := &seqDialer{modems: []*attest.Modem{
		attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR")),
		attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR")),
		attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR")),
	}}

	a, _ := newTestApp(t, d, toggler)

	err := a.PowerOn(context.Background())
	assert.ErrorIs(t, err, ErrModemOffline)
	assert.Equal(t, 3, d.dials)
}

func TestPowerOnWithoutPowerControl(t *testing.T) {
	fake := attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR"))
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	assert.ErrorIs(t, a.PowerOn(context.Background()), ErrNoPowerControl)
}

func TestPowerOnToggleFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)
	toggler.EXPECT().Toggle().Return(power.ErrNoCommand)

	fake := attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR"))
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, toggler)

	assert.ErrorIs(t, a.PowerOn(context.Background()), power.ErrNoCommand)
}

func TestPowerOnWaitsForUSB(t *testing.T) {
	ctrl := gomock.NewController(t)
	toggler := power.NewMockToggler(ctrl)
	toggler.EXPECT().Toggle().Return(nil)

	d := &seqDialer{modems: []*attest.Modem{
		attest.New().On(sim7070.AtHandshake, attest.Reply("ERROR")),
		attest.New().On(sim7070.AtHandshake, attest.OK()),
	}}

	a, _ := newTestApp(t, d, toggler)
	a.Conf.Modem().Set(func(c *config.ModemConfig) { c.USBDetect = true })

	devices := &fakeDevices{}
	a.Devices = devices

	require.NoError(t, a.PowerOn(context.Background()))
	assert.Equal(t, 1, devices.waited)
}

func TestPowerOnCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _ := newTestApp(t, attest.Dialer{Modem: attest.New()}, nil)
	assert.ErrorIs(t, a.PowerOn(ctx), context.Canceled)
}

func TestBringUp(t *testing.T) {
	fake := cooperative(attest.New())
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	res, err := a.BringUp(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.ContextID)
	assert.Equal(t, "10.0.0.5", res.IP)
	assert.Len(t, res.Stages, 8)

	traffic := a.Traffic.(*fakeTraffic)
	assert.Equal(t, []string{"bring-up"}, traffic.started)
	assert.Equal(t, []error{nil}, traffic.ended)
}

func TestBringUpReportsStageFailure(t *testing.T) {
	fake := attest.New().
		On(sim7070.AtHandshake, attest.OK()).
		On(sim7070.AtFunctionalityQuery, attest.OK("+CFUN: 0")).
		On("AT+CFUN=1", attest.OK())
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	res, err := a.BringUp(context.Background())
	assert.ErrorIs(t, err, sim7070.ErrNotFullFunctionality)

	var se *sim7070.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim7070.StageFunctionality, se.Stage)
	assert.Equal(t, sim7070.NoContext, res.ContextID)

	traffic := a.Traffic.(*fakeTraffic)
	require.Len(t, traffic.ended, 1)
	assert.Error(t, traffic.ended[0])
}

func TestPingWithGeolocation(t *testing.T) {
	fake := cooperative(attest.New())
	fake.On(`AT+SNPING4="8.8.8.8",4,32,1000`, attest.OK(
		"+SNPING4: 1,8.8.8.8,61",
		"+SNPING4: 2,8.8.8.8,58",
		"+SNPING4: 3,8.8.8.8,-1",
		"+SNPING4: 4,8.8.8.8,70",
	))

	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)
	a.Conf.Ping().Set(func(c *config.PingConfig) { c.Geolocate = true })

	locator := &fakeLocator{}
	a.GeoIP = locator
	a.Network = connectivity(true)

	rep, err := a.Ping(context.Background())
	require.NoError(t, err)

	assert.Len(t, rep.Replies, 4)
	require.NotNil(t, rep.Location)
	assert.Equal(t, "Mountain View", rep.Location.City)
	assert.Equal(t, []string{"8.8.8.8"}, locator.hosts)

	// The ping ran a bring-up first
	assert.Equal(t, 1, fake.Count(sim7070.AtAPNQuery))
}

func TestPingSkipsGeolocationOffline(t *testing.T) {
	fake := cooperative(attest.New())
	fake.On(`AT+SNPING4="8.8.8.8",4,32,1000`, attest.OK("+SNPING4: 1,8.8.8.8,61"))

	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)
	a.Conf.Ping().Set(func(c *config.PingConfig) { c.Geolocate = true })

	locator := &fakeLocator{}
	a.GeoIP = locator
	a.Network = connectivity(false)

	rep, err := a.Ping(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rep.Location)
	assert.Empty(t, locator.hosts)
}

func TestTCPTestReusesContext(t *testing.T) {
	fake := cooperative(attest.New())
	fake.On(`AT+CASSLCFG=0,"SSL",0`, attest.OK()).
		On("AT+CACLOSE=0", attest.OK()).
		On(sim7070.AtTCPStateQuery, attest.OK("+CASTATE: 0,1")).
		On(`AT+CAOPEN=0,0,"TCP","45.79.112.203",4242`, attest.OK("+CAOPEN: 0,0")).
		On("AT+CASEND=0,13", attest.Prompt(len(sim7070.TCPTestPayload), "OK")).
		On("AT+CARECV=0,100", attest.OK("+CARECV: 12,Hello world!"))

	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	_, err := a.BringUp(context.Background())
	require.NoError(t, err)

	res, err := a.TCPTest(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Echoed)
	assert.Equal(t, 1, fake.Count(sim7070.AtAPNQuery))
}

func TestHTTPRejectsExpiredTokenBeforeAirtime(t *testing.T) {
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	fake := attest.New()
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)
	a.Conf.HTTP().Set(func(c *config.HTTPConfig) { c.BearerToken = tok })

	_, err = a.HTTPPost(context.Background(), map[string]string{"hello": "world"})
	assert.ErrorIs(t, err, token.ErrTokenExpired)
	assert.Empty(t, fake.Commands())
}

func TestHTTPRequestHeaders(t *testing.T) {
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	a, _ := newTestApp(t, attest.Dialer{Modem: attest.New()}, nil)
	a.Conf.HTTP().Set(func(c *config.HTTPConfig) {
		c.URL = "https://example.com"
		c.BearerToken = tok
	})

	req, err := a.httpRequest("/post", "application/json")
	require.NoError(t, err)

	assert.True(t, req.TLS)
	assert.Nil(t, req.Cert)
	assert.Contains(t, req.Headers, sim7070.Header{Key: "Authorization", Value: "Bearer " + tok})
	assert.Contains(t, req.Headers, sim7070.Header{Key: "Content-Type", Value: "application/json"})
}

func TestConnectStopsModemManager(t *testing.T) {
	a, _ := newTestApp(t, attest.Dialer{Modem: attest.New()}, nil)
	a.Conf.Modem().Set(func(c *config.ModemConfig) { c.StopModemManager = true })

	units := &fakeUnits{state: systemd.ServiceStateActive}
	a.Units = units

	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, []string{systemd.ModemManagerUnit}, units.stopped)
}

func TestConnectLeavesInactiveModemManager(t *testing.T) {
	a, _ := newTestApp(t, attest.Dialer{Modem: attest.New()}, nil)
	a.Conf.Modem().Set(func(c *config.ModemConfig) { c.StopModemManager = true })

	units := &fakeUnits{state: systemd.ServiceStateInactive}
	a.Units = units

	require.NoError(t, a.Connect(context.Background()))
	assert.Empty(t, units.stopped)
}

func TestShutdownClosesTraffic(t *testing.T) {
	a, _ := newTestApp(t, attest.Dialer{Modem: attest.New()}, nil)
	require.NoError(t, a.Connect(context.Background()))

	a.Shutdown()

	assert.Nil(t, a.Modem())
	assert.True(t, a.Traffic.(*fakeTraffic).closed)
}

func TestUploadCertificateReplacesExisting(t *testing.T) {
	pem := []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")
	path := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(path, pem, 0o600))

	fake := attest.New().
		On(sim7070.AtHandshake, attest.OK()).
		On(sim7070.AtFSInit, attest.OK()).
		On(sim7070.AtFSTerm, attest.OK()).
		On(`AT+CSSLCFG="del",2,"ca.crt"`, attest.OK()).
		On(fmt.Sprintf(`AT+CFSWFILE=3,"ca.crt",0,%d,5000`, len(pem)), attest.Download(len(pem), "OK")).
		On(`AT+CSSLCFG="convert",2,"ca.crt"`, attest.OK())

	a, slept := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	res, err := a.UploadCertificate(context.Background(), path, true)
	require.NoError(t, err)

	assert.Equal(t, "ca.crt", res.Name)
	assert.NoError(t, res.Warning)
	assert.Equal(t, 1, fake.Count(`AT+CSSLCFG="del",2,"ca.crt"`))
	assert.Equal(t, [][]byte{pem}, fake.Payloads())
	assert.Contains(t, *slept, sim7070.UploadSettle)

	// No bring-up is needed for the file system
	assert.Zero(t, fake.Count(sim7070.AtAPNQuery))
}

func TestUploadCertificateMissingFile(t *testing.T) {
	fake := attest.New()
	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	_, err := a.UploadCertificate(context.Background(), filepath.Join(t.TempDir(), "missing.crt"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, fake.Commands())
}

func TestSupportedModes(t *testing.T) {
	fake := attest.New().
		On(sim7070.AtHandshake, attest.OK()).
		On(sim7070.AtNetworkModeTest, attest.OK("+CNMP: (2,13,38,51)")).
		On(sim7070.AtNBModeTest, attest.OK("+CMNB: (1-3)"))

	a, _ := newTestApp(t, attest.Dialer{Modem: fake}, nil)

	modes, err := a.SupportedModes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 13, 38, 51}, modes.Network)
}
