package atparser

import "strconv"

const (
	PrefixCSQ   = "+CSQ:"
	PrefixCFUN  = "+CFUN:"
	PrefixCPIN  = "+CPIN:"
	PrefixCGATT = "+CGATT:"

	// SignalUnknown is reported for rssi and ber when not detectable
	SignalUnknown = 99

	FullFunctionality = 1
	SIMReadyStatus    = "READY"
)

// Signal is the +CSQ reply
type Signal struct {
	RSSI int
	BER  int
}

func (s Signal) Known() bool {
	return s.RSSI != SignalUnknown
}

func (s Signal) BERKnown() bool {
	return s.BER != SignalUnknown
}

// DBm converts the raw rssi into dBm
func (s Signal) DBm() int {
	return -113 + 2*s.RSSI
}

func (s Signal) String() string {
	if !s.Known() {
		return "unknown"
	}
	return strconv.Itoa(s.RSSI) + " (" + strconv.Itoa(s.DBm()) + " dBm)"
}

// SignalQuality parses "+CSQ: <rssi>,<ber>". A non numeric ber is reported as unknown.
func SignalQuality(lines []string) (Signal, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCSQ)
		if !ok {
			continue
		}

		rssi, ok := intAt(parts, 0)
		if !ok {
			continue
		}

		ber, ok := intAt(parts, 1)
		if !ok {
			ber = SignalUnknown
		}

		return Signal{RSSI: rssi, BER: ber}, true
	}

	return Signal{RSSI: SignalUnknown, BER: SignalUnknown}, false
}

// Functionality parses "+CFUN: <n>"
func Functionality(lines []string) (int, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCFUN)
		if !ok {
			continue
		}

		if n, ok := intAt(parts, 0); ok {
			return n, true
		}
	}
	return 0, false
}

// SIMStatus parses "+CPIN: <status>"
func SIMStatus(lines []string) (string, bool) {
	for _, l := range lines {
		if p, ok := payload(l, PrefixCPIN); ok && p != "" {
			return p, true
		}
	}
	return "", false
}

func SIMReady(lines []string) bool {
	status, ok := SIMStatus(lines)
	return ok && status == SIMReadyStatus
}

// PacketAttached reports "+CGATT: 1"
func PacketAttached(lines []string) bool {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCGATT)
		if !ok {
			continue
		}

		if n, ok := intAt(parts, 0); ok && n == 1 {
			return true
		}
	}
	return false
}
