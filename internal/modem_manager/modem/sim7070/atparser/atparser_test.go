package atparser

import (
	"testing"

	"github.com/LeoCommon/cellgw/pkg/misc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalQuality(t *testing.T) {
	s, ok := SignalQuality([]string{"AT+CSQ", "+CSQ: 31,99", "OK"})
	require.True(t, ok)

	assert.Equal(t, 31, s.RSSI)
	assert.True(t, s.Known())
	assert.False(t, s.BERKnown())
	assert.Equal(t, -51, s.DBm())

	s, ok = SignalQuality([]string{"+CSQ: 99,99", "OK"})
	require.True(t, ok)
	assert.False(t, s.Known())

	_, ok = SignalQuality([]string{"+CSQ: x,0", "OK"})
	assert.False(t, ok)
}

func TestSimpleStatus(t *testing.T) {
	n, ok := Functionality([]string{"+CFUN: 1", "OK"})
	assert.True(t, ok)
	assert.Equal(t, FullFunctionality, n)

	_, ok = Functionality([]string{"OK"})
	assert.False(t, ok)

	assert.True(t, SIMReady([]string{"+CPIN: READY", "OK"}))
	assert.False(t, SIMReady([]string{"+CPIN: SIM PIN", "OK"}))
	assert.False(t, SIMReady([]string{"+CME ERROR: 10"}))

	assert.True(t, PacketAttached([]string{"+CGATT: 1", "OK"}))
	assert.False(t, PacketAttached([]string{"+CGATT: 0", "OK"}))
}

func TestParseSystemInfoNBIoT(t *testing.T) {
	info, err := ParseSystemInfo("+CPSI: LTE NB-IOT,Online,222-10,0xB7F5,20087664,217,EUTRAN-BAND20,6353,0,0,-10,-79,-69,14")
	require.NoError(t, err)

	assert.Equal(t, "LTE NB-IOT", info.RAT)
	assert.Equal(t, "Online", info.State)
	assert.Equal(t, "222-10", info.Operator)
	assert.Equal(t, "0xB7F5", info.TAC)
	assert.Equal(t, "20087664", info.CellID)
	assert.Equal(t, "EUTRAN-BAND20", info.Band)
	assert.Equal(t, "6353", info.EARFCN)
	assert.Equal(t, "-10", info.RSRQ)
	assert.Equal(t, "-79", info.RSRP)
	assert.Equal(t, "-69", info.RSSI)
	assert.Equal(t, "14", info.SINR)

	assert.Equal(t, "Vodafone IT", info.OperatorName())
	assert.Equal(t, "NB-IoT", info.Technology())
}

func TestParseSystemInfoShortLTE(t *testing.T) {
	info, err := ParseSystemInfo("+CPSI: LTE,Online,262-02,0x1234,1234567,100,EUTRAN-BAND8,3750,5,5,-11,0")
	require.NoError(t, err)

	assert.Equal(t, "-11", info.RSRQ)
	assert.Equal(t, RSRPNotAvailable, info.RSRP)
	assert.Equal(t, misc.Unknown, info.RSSI)
	assert.Equal(t, misc.Unknown, info.SINR)
	assert.Equal(t, "LTE", info.Technology())
}

func TestParseSystemInfoFailures(t *testing.T) {
	_, err := ParseSystemInfo("+CPSI: NO SERVICE,Online")
	assert.ErrorIs(t, err, ErrNoService)

	_, err = ParseSystemInfo("+CPSI: LTE,Online,262-02")
	assert.ErrorIs(t, err, ErrShortRecord)

	_, err = ServiceInfo([]string{"OK"})
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestOperatorInfo(t *testing.T) {
	op, ok := OperatorInfo([]string{`+COPS: 0,2,"26202",9`, "OK"})
	require.True(t, ok)

	assert.Equal(t, "Automatic selection", op.ModeName())
	assert.Equal(t, "Numeric", op.FormatName())
	assert.Equal(t, "Vodafone DE", op.Name())
	assert.Equal(t, "Narrowband Internet of Things (NB-IoT)", op.AccessTechName())

	op, ok = OperatorInfo([]string{`+COPS: 0,2,"99999"`})
	require.True(t, ok)
	assert.Equal(t, "Unknown (99999)", op.Name())
	assert.Equal(t, misc.Unknown, op.AccessTech)

	_, ok = OperatorInfo([]string{"+COPS: 0", "OK"})
	assert.False(t, ok)
}

func TestAPNAndPDP(t *testing.T) {
	apn, ok := APNConfig([]string{`+CGNAPN: 1,"iot.1nce.net"`, "OK"})
	require.True(t, ok)
	assert.Equal(t, APN{ContextID: 1, Name: "iot.1nce.net"}, apn)

	lines := []string{
		`+CNACT: 0,1,"10.0.0.5"`,
		`+CNACT: 1,0,"0.0.0.0"`,
		`+CNACT: 2,1,"0.0.0.0"`,
		"OK",
	}

	ctxs := PDPContexts(lines)
	require.Len(t, ctxs, 3)
	assert.True(t, ctxs[0].Active())
	assert.False(t, ctxs[1].Active())
	assert.False(t, ctxs[2].Active())

	c, ok := FindPDPContext(lines, 0)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", c.IP)

	_, ok = FindPDPContext(lines, 3)
	assert.False(t, ok)
}

func TestHTTPReplies(t *testing.T) {
	r, ok := HTTPResult([]string{"OK", `+SHREQ: "GET",200,387`})
	require.True(t, ok)
	assert.Equal(t, HTTPResponse{Method: "GET", Code: 200, Length: 387}, r)

	r, ok = HTTPResult([]string{"+SHREQ: 1,200,1234"})
	require.True(t, ok)
	assert.Equal(t, 1234, r.Length)

	assert.True(t, HTTPConnected([]string{"+SHSTATE: 1", "OK"}))
	assert.False(t, HTTPConnected([]string{"+SHSTATE: 0", "OK"}))

	body := HTTPBody([]string{"OK", "+SHREAD: 12", `{"a": 1}`, "}"})
	assert.Equal(t, []string{`{"a": 1}`, "}"}, body)
}

func TestTCPReplies(t *testing.T) {
	res, ok := OpenResult([]string{"+CAOPEN: 1,0", "+CAOPEN: 0,27", "OK"}, 0)
	require.True(t, ok)
	assert.Equal(t, 27, res)

	_, ok = OpenResult([]string{"OK"}, 0)
	assert.False(t, ok)

	assert.True(t, ConnectionActive([]string{"+CASTATE: 0,1"}, 0))
	assert.False(t, ConnectionActive([]string{"+CASTATE: 0,0", "+CASTATE: 1,1"}, 0))

	rcv, ok := ReceivedData([]string{"+CARECV: 12,Hello world!", "OK"})
	require.True(t, ok)
	assert.Equal(t, Received{Length: 12, Data: "Hello world!"}, rcv)

	_, ok = ReceivedData([]string{"+CARECV: 0", "OK"})
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	replies := PingReplies([]string{
		"+SNPING4: 1,8.8.8.8,61",
		"+SNPING4: 2,8.8.8.8,-1",
		"+SNPING4: 3,8.8.8.8,75",
		"+SNPING4: garbage",
		"OK",
	})
	require.Len(t, replies, 3)
	assert.True(t, replies[1].Lost())

	s := Stats(replies)
	assert.Equal(t, 3, s.Transmitted)
	assert.Equal(t, 2, s.Received)
	assert.Equal(t, 1, s.Lost())
}

func TestSupportedModes(t *testing.T) {
	modes := SupportedModes([]string{"+CNMP: (2,13,38,51)", "OK"}, PrefixCNMP)
	assert.Equal(t, []int{2, 13, 38, 51}, modes)

	assert.Equal(t, []int{1, 2, 3}, SupportedModes([]string{"+CMNB: (1-3)"}, PrefixCMNB))
	assert.Equal(t, []int{1, 2, 3, 7}, SupportedModes([]string{"+CMNB: (2-3,1,7)"}, PrefixCMNB))

	assert.Equal(t, "LTE Only", NetworkModeName(38))
	assert.Equal(t, "NB-IoT only", NBModeName(2))
	assert.Equal(t, "Unknown (7)", NBModeName(7))
}
