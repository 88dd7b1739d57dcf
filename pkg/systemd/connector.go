package systemd

import (
	"context"
	"sync"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/systemd/dbuscon"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

type Connector struct {
	sync.Mutex

	client            *dbuscon.Client
	signalCh          chan *dbus.Signal
	jobRemoveListener struct {
		sync.Mutex
		jobs map[dbus.ObjectPath]chan<- string
		// results of jobs that finished before anybody registered for them
		unclaimed map[dbus.ObjectPath]string
		matcher   []dbus.MatchOption
	}
}

// init initializes the systemd connector
func (c *Connector) init() error {
	c.jobRemoveListener.jobs = make(map[dbus.ObjectPath]chan<- string)
	c.jobRemoveListener.unclaimed = make(map[dbus.ObjectPath]string)
	c.client = dbuscon.NewDbusClient()

	c.jobRemoveListener.matcher = []dbus.MatchOption{
		dbus.WithMatchInterface(BusManagerInterface),
		dbus.WithMatchMember(BusMemberJobRemoved),
	}

	if err := c.client.Connect(); err != nil {
		return err
	}

	conn := c.client.GetConnection()

	// Create a slightly buffered channel
	c.signalCh = make(chan *dbus.Signal, 10)
	conn.Signal(c.signalCh)
	go c.listenForSignals()

	// Match all job removed signals so we can get their results
	if err := conn.AddMatchSignal(c.jobRemoveListener.matcher...); err != nil {
		return err
	}

	log.Info("systemd/dbus initialization complete")
	return nil
}

// NewConnector connects to the system bus
func NewConnector() (*Connector, error) {
	c := &Connector{}
	c.Lock()
	defer c.Unlock()

	return c, c.init()
}

// Connected returns if the client is correctly connected
func (c *Connector) Connected() bool {
	if c.client == nil {
		return false
	}

	_, ok := c.client.Connected()
	return ok
}

func (c *Connector) Shutdown() error {
	c.Lock()
	defer c.Unlock()

	if !c.Connected() {
		return nil
	}

	conn := c.client.GetConnection()
	if err := conn.RemoveMatchSignal(c.jobRemoveListener.matcher...); err != nil {
		log.Warn("could not remove job signal match", zap.Error(err))
	}
	conn.RemoveSignal(c.signalCh)
	close(c.signalCh)

	return c.client.Shutdown()
}

func (c *Connector) jobCompleteSignal(signal *dbus.Signal) {
	var id uint32
	var job dbus.ObjectPath
	var unit string
	var result string
	if err := dbus.Store(signal.Body, &id, &job, &unit, &result); err != nil {
		log.Debug("malformed job removed signal", zap.Error(err))
		return
	}

	c.jobRemoveListener.Lock()
	defer c.jobRemoveListener.Unlock()

	// If a listener for this exists, inform it
	if out, ok := c.jobRemoveListener.jobs[job]; ok {
		out <- result
		delete(c.jobRemoveListener.jobs, job)
		return
	}

	// Only jobs we queued ourselves are ever claimed, keep the map small
	if len(c.jobRemoveListener.unclaimed) > 32 {
		clear(c.jobRemoveListener.unclaimed)
	}
	c.jobRemoveListener.unclaimed[job] = result
}

// manageUnit queues a job for the unit and waits for its result
func (c *Connector) manageUnit(ctx context.Context, unitName string, method string) (bool, error) {
	if !c.Connected() {
		return false, &dbuscon.NotConnectedError{}
	}

	service := c.client.GetConnection().Object(BusObjectSystemdDest, BusObjectSystemdPath)

	result := service.CallWithContext(ctx, method, 0, unitName, "replace")
	if result.Err != nil {
		return false, result.Err
	}

	var p dbus.ObjectPath
	if err := result.Store(&p); err != nil {
		return false, err
	}

	ch := make(chan string, 1)
	c.jobRemoveListener.Lock()
	if r, done := c.jobRemoveListener.unclaimed[p]; done {
		delete(c.jobRemoveListener.unclaimed, p)
		ch <- r
	} else {
		c.jobRemoveListener.jobs[p] = ch
	}
	c.jobRemoveListener.Unlock()

	select {
	case r := <-ch:
		log.Debug("systemd job finished", zap.String("unit", unitName), zap.String("method", method), zap.String("result", r))
		return r == JobResultDone, nil
	case <-ctx.Done():
		c.jobRemoveListener.Lock()
		delete(c.jobRemoveListener.jobs, p)
		c.jobRemoveListener.Unlock()
		return false, ctx.Err()
	}
}

// StopUnit synchronously stops an unit and returns true if it succeeded
func (c *Connector) StopUnit(ctx context.Context, unitName string) (bool, error) {
	return c.manageUnit(ctx, unitName, BusInterfaceStopUnit)
}

// StartUnit synchronously starts an unit and returns true if it succeeded
func (c *Connector) StartUnit(ctx context.Context, unitName string) (bool, error) {
	return c.manageUnit(ctx, unitName, BusInterfaceStartUnit)
}

func getUnitObjectPath(unitName string) dbus.ObjectPath {
	return dbus.ObjectPath(BusObjectSystemdPath + "/unit/" + EscapeObjectPath(unitName))
}

// CheckUnitState retrieves the ActiveState of the unit
func (c *Connector) CheckUnitState(ctx context.Context, unitName string) (string, error) {
	if !c.Connected() {
		return "", &dbuscon.NotConnectedError{}
	}

	unit := c.client.GetConnection().Object(BusObjectSystemdDest, getUnitObjectPath(unitName))

	var state string
	err := unit.CallWithContext(ctx, BusMemberGetProp, 0,
		BusObjectSystemdDestUnit, BusObjectPropertyActiveState).Store(&state)

	return state, err
}

// GetRawDbusConnection returns the currently active dbus connection
func (c *Connector) GetRawDbusConnection() *dbus.Conn {
	if !c.Connected() {
		return nil
	}

	return c.client.GetConnection()
}

func (c *Connector) listenForSignals() {
	for signal := range c.signalCh {
		// If its a job removed signal, our job terminated
		if signal.Name == BusSignalJobRemoved {
			c.jobCompleteSignal(signal)
		}
	}

	log.Debug("signal channel terminated")
}
