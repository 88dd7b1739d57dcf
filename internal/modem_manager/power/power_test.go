package power

import (
	"errors"
	"testing"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/usb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recorder struct {
	calls []string
}

func (r *recorder) run(argv []string) error {
	r.calls = append(r.calls, argv[0]+" "+argv[len(argv)-1])
	return nil
}

func (r *recorder) sleep(d time.Duration) {
	r.calls = append(r.calls, "sleep "+d.String())
}

func TestCommandToggler(t *testing.T) {
	log.Init(true)

	r := &recorder{}
	c := NewCommandToggler([]string{"pinctrl", "set", "4", "op", "dh"}, []string{"pinctrl", "set", "4", "op", "dl"}, 0, 10*time.Second)
	c.run, c.sleep = r.run, r.sleep

	require.NoError(t, c.Toggle())
	assert.Equal(t, []string{"pinctrl dh", "sleep 2s", "pinctrl dl", "sleep 10s"}, r.calls)
}

func TestCommandTogglerDefaultsBootWait(t *testing.T) {
	log.Init(true)

	for _, wait := range []time.Duration{0, -time.Second} {
		r := &recorder{}
		c := NewCommandToggler([]string{"pinctrl", "set", "4", "op", "dh"}, nil, time.Second, wait)
		c.run, c.sleep = r.run, r.sleep

		assert.Equal(t, DefaultBootWait, c.BootWait)
		require.NoError(t, c.Toggle())
		assert.Equal(t, []string{"pinctrl dh", "sleep 1s", "sleep " + DefaultBootWait.String()}, r.calls)
	}

	u := NewUSBResetToggler(&fakeUSB{attached: true}, usb.ModemSIM7070G, 0)
	assert.Equal(t, DefaultBootWait, u.BootWait)
}

func TestCommandTogglerFailures(t *testing.T) {
	log.Init(true)

	c := NewCommandToggler(nil, nil, time.Second, 0)
	assert.ErrorIs(t, c.Toggle(), ErrNoCommand)

	c = NewCommandToggler([]string{"false"}, nil, time.Second, 0)
	c.sleep = func(time.Duration) {}
	err := c.Toggle()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false")
}

type fakeUSB struct {
	attached bool
	resets   int
	err      error
}

func (f *fakeUSB) FindSupportedDevices() usb.DeviceMap {
	if !f.attached {
		return usb.DeviceMap{}
	}
	return usb.DeviceMap{usb.ModemSIM7070G: usb.SupportedDevices[usb.ModemSIM7070G]}
}

func (f *fakeUSB) ResetDevice(usb.DeviceType) error {
	f.resets++
	return f.err
}

func TestUSBResetToggler(t *testing.T) {
	log.Init(true)

	f := &fakeUSB{attached: true}
	var waited time.Duration
	u := NewUSBResetToggler(f, usb.ModemSIM7070G, 5*time.Second)
	u.sleep = func(d time.Duration) { waited += d }

	require.NoError(t, u.Toggle())
	assert.Equal(t, 1, f.resets)
	assert.Equal(t, 5*time.Second, waited)

	f.attached = false
	assert.ErrorIs(t, u.Toggle(), &usb.NotFoundError{})
	assert.Equal(t, 1, f.resets)
}

func TestChain(t *testing.T) {
	log.Init(true)
	ctrl := gomock.NewController(t)

	first, second := NewMockToggler(ctrl), NewMockToggler(ctrl)
	gomock.InOrder(
		first.EXPECT().Toggle().Return(errors.New("gpio busy")),
		second.EXPECT().Toggle().Return(nil),
	)
	require.NoError(t, Chain{first, second}.Toggle())

	failing := NewMockToggler(ctrl)
	failing.EXPECT().Toggle().Return(errors.New("gpio busy")).Times(2)
	err := Chain{failing, failing}.Toggle()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpio busy")

	assert.ErrorIs(t, Chain{}.Toggle(), ErrNoCommand)
}
