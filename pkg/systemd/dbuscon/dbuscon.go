package dbuscon

import (
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "client is not connected"
}

func (e *NotConnectedError) Is(target error) bool {
	_, ok := target.(*NotConnectedError)
	return ok
}

// Client owns the system bus connection
type Client struct {
	conn *dbus.Conn
}

func NewDbusClient() *Client {
	return &Client{}
}

func (d *Client) Connect() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Error("failed to connect to system bus", zap.Error(err))
		return err
	}

	d.conn = conn
	return nil
}

// Connected returns whether the bus connection is established or not
func (d *Client) Connected() (*dbus.Conn, bool) {
	return d.conn, d.conn != nil && d.conn.Connected()
}

func (d *Client) GetConnection() *dbus.Conn {
	return d.conn
}

func (d *Client) Shutdown() (err error) {
	if d.conn == nil {
		return
	}

	err = d.conn.Close()
	d.conn = nil
	return
}
