package net

import (
	"fmt"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/systemd"
	"github.com/LeoCommon/cellgw/pkg/systemd/dbuscon"
	gonm "github.com/Wifx/gonetworkmanager/v2"
	"go.uber.org/zap"
)

// This maps to the NetworkManager connection.type
type NetworkInterfaceType string

const (
	Ethernet NetworkInterfaceType = "802-3-ethernet"
	WiFi     NetworkInterfaceType = "802-11-wireless"
	GSM      NetworkInterfaceType = "gsm"
)

// NetworkService answers questions about the host uplink, the modem's own
// data connection is not managed by NetworkManager
type NetworkService interface {
	ConnectionState(NetworkInterfaceType) (string, error)
	IsNetworkTypeActive(NetworkInterfaceType) (bool, error)
	HasConnectivity() bool
}

type ConnectionNotAvailable struct {
	connectionType NetworkInterfaceType // optional
}

func (e *ConnectionNotAvailable) Error() string {
	return fmt.Sprintf("connection with type %v: not available", string(e.connectionType))
}

func (e *ConnectionNotAvailable) Is(target error) bool {
	_, ok := target.(*ConnectionNotAvailable)
	return ok
}

type networkDbusService struct {
	nm gonm.NetworkManager
}

func NewService(sysdc *systemd.Connector) (NetworkService, error) {
	if sysdc == nil || !sysdc.Connected() {
		return nil, &dbuscon.NotConnectedError{}
	}

	nm, err := gonm.NewNetworkManager()
	if err != nil {
		return nil, err
	}

	return &networkDbusService{nm: nm}, nil
}

// Obtain all active connections in the system
func (n *networkDbusService) getActiveConnections() []gonm.ActiveConnection {
	activeConnections, err := n.nm.GetPropertyActiveConnections()
	if err != nil {
		log.Error("could not get active connections from NetworkManager", zap.Error(err))
		return nil
	}

	return activeConnections
}

func (n *networkDbusService) getActiveConnectionByType(t NetworkInterfaceType) gonm.ActiveConnection {
	for _, con := range n.getActiveConnections() {
		conT, err := con.GetPropertyType()
		if err != nil {
			log.Warn("skipping active network connection due to error", zap.Error(err))
			continue
		}

		if conT == string(t) {
			return con
		}
	}

	return nil
}

func (n *networkDbusService) connectionStateByType(netifType NetworkInterfaceType) (gonm.NmActiveConnectionState, error) {
	ac := n.getActiveConnectionByType(netifType)
	if ac == nil {
		return gonm.NmActiveConnectionStateUnknown, &ConnectionNotAvailable{netifType}
	}

	return ac.GetPropertyState()
}

func activeConnectionStateToString(r gonm.NmActiveConnectionState) string {
	switch r {
	case gonm.NmActiveConnectionStateActivating:
		return "preparing"
	case gonm.NmActiveConnectionStateActivated:
		return "active"
	case gonm.NmActiveConnectionStateDeactivating:
		return "deactivating"
	case gonm.NmActiveConnectionStateDeactivated:
		return "deactivated"
	}

	return "unknown"
}

// ConnectionState returns the state of the connection of the type as string
func (n *networkDbusService) ConnectionState(netifType NetworkInterfaceType) (string, error) {
	r, err := n.connectionStateByType(netifType)
	if err != nil {
		return "not_configured", err
	}

	return activeConnectionStateToString(r), nil
}

func (n *networkDbusService) IsNetworkTypeActive(netifType NetworkInterfaceType) (bool, error) {
	s, err := n.connectionStateByType(netifType)
	if err != nil {
		return false, err
	}

	return s == gonm.NmActiveConnectionStateActivated, nil
}

// Checks if the system has at-least one functioning active connection
func (n *networkDbusService) hasSingleActiveConnection() bool {
	for _, con := range n.getActiveConnections() {
		state, err := con.GetPropertyState()
		if err == nil && state == gonm.NmActiveConnectionStateActivated {
			return true
		}
	}

	return false
}

// HasConnectivity checks if the host itself can reach the internet
func (n *networkDbusService) HasConnectivity() bool {
	// Leverage the connectivity check if available
	checkAvailable, err := n.nm.GetPropertyConnectivityCheckEnabled()
	if err != nil || !checkAvailable {
		log.Debug("NM does not have connectivity checking enabled", zap.Error(err))
		return n.hasSingleActiveConnection()
	}

	nmConnectivity, err := n.nm.GetPropertyConnectivity()
	if err != nil {
		log.Error("failure during connectivity check", zap.Error(err))
		return false
	}

	log.Debug("connectivity check finished", zap.String("state", nmConnectivity.String()))
	return nmConnectivity == gonm.NmConnectivityFull
}
