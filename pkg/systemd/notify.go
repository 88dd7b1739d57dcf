package systemd

import (
	"errors"
	"net"
	"os"

	"github.com/LeoCommon/cellgw/pkg/log"
	"go.uber.org/zap"
)

var ErrNoNotifySocket = errors.New("systemd-notify socket was not available")

// Notify sends the provided msg to the systemd socket
func Notify(msg string) error {
	name := os.Getenv(NotifySocketEnvVar)
	if name == "" {
		return ErrNoNotifySocket
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: name})
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(msg))
	return err
}

// NotifyIfSupervised notifies systemd when running as a unit and stays quiet otherwise
func NotifyIfSupervised(msg string) {
	err := Notify(msg)
	if err != nil && !errors.Is(err, ErrNoNotifySocket) {
		log.Warn("systemd notification failed", zap.String("msg", msg), zap.Error(err))
	}
}
