package systemd

const (
	NotifySocketEnvVar = "NOTIFY_SOCKET"
	NotifyReady        = "READY=1"
	NotifyStopping     = "STOPPING=1"

	ServiceStateActive   = "active"
	ServiceStateInactive = "inactive"
	JobResultDone        = "done"

	// ModemManagerUnit probes every ttyUSB it sees and steals the AT port from us
	ModemManagerUnit = "ModemManager.service"

	BusObjectPropertyActiveState = "ActiveState"

	BusObjectSystemdDest     = "org.freedesktop.systemd1"
	BusObjectSystemdDestUnit = BusObjectSystemdDest + ".Unit"
	BusObjectSystemdPath     = "/org/freedesktop/systemd1"

	BusMemberGetProp = "org.freedesktop.DBus.Properties.Get"

	// Systemd Manager actions
	BusManagerInterface   = "org.freedesktop.systemd1.Manager"
	BusInterfaceStartUnit = BusManagerInterface + ".StartUnit"
	BusInterfaceStopUnit  = BusManagerInterface + ".StopUnit"

	// Signals
	BusMemberJobRemoved = "JobRemoved"
	BusSignalJobRemoved = BusManagerInterface + "." + BusMemberJobRemoved
)
