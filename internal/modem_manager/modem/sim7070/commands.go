package sim7070

import (
	"fmt"
	"time"
)

const (
	AtHandshake = "AT"

	AtFunctionalityQuery = "AT+CFUN?"
	AtSIMStatusQuery     = "AT+CPIN?"
	AtSignalQuery        = "AT+CSQ"
	AtAttachQuery        = "AT+CGATT?"
	AtSystemInfoQuery    = "AT+CPSI?"
	AtOperatorQuery      = "AT+COPS?"
	AtAPNQuery           = "AT+CGNAPN"
	AtPDPQuery           = "AT+CNACT?"

	AtNetworkModeTest = "AT+CNMP=?"
	AtNBModeTest      = "AT+CMNB=?"

	AtFSInit = "AT+CFSINIT"
	AtFSTerm = "AT+CFSTERM"

	AtTCPStateQuery = "AT+CASTATE?"

	AtHTTPDisconnect  = "AT+SHDISC"
	AtHTTPConnect     = "AT+SHCONN"
	AtHTTPStateQuery  = "AT+SHSTATE?"
	AtHTTPClearHeader = "AT+SHCHEAD"
	AtHTTPNoVerify    = `AT+SHSSL=1,""`
)

const (
	HandshakeTimeout = 2 * time.Second

	// Transaction timeouts longer than the default
	HTTPConnectTimeout = 10 * time.Second
	HTTPRequestTimeout = 15 * time.Second
	HTTPReadTimeout    = 15 * time.Second
	PingTimeout        = 20 * time.Second

	// HTTPBodyTimeoutMs is the time the modem waits for the announced body
	HTTPBodyTimeoutMs = 10000
)

func atSetFunctionality(n int) string {
	return fmt.Sprintf("AT+CFUN=%d", n)
}

func atNetworkMode(mode int) string {
	return fmt.Sprintf("AT+CNMP=%d", mode)
}

func atNBMode(mode int) string {
	return fmt.Sprintf("AT+CMNB=%d", mode)
}

func atConfigureAPN(cid int, apn string) string {
	return fmt.Sprintf(`AT+CNCFG=%d,1,"%s"`, cid, apn)
}

func atActivatePDP(cid int) string {
	return fmt.Sprintf("AT+CNACT=%d,1", cid)
}

func atWriteFile(name string, size int, timeoutMs int) string {
	return fmt.Sprintf(`AT+CFSWFILE=3,"%s",0,%d,%d`, name, size, timeoutMs)
}

func atConvertCert(name string) string {
	return fmt.Sprintf(`AT+CSSLCFG="convert",2,"%s"`, name)
}

func atDeleteCert(name string) string {
	return fmt.Sprintf(`AT+CSSLCFG="del",2,"%s"`, name)
}

func atSSLVersion(ctx int, version int) string {
	return fmt.Sprintf(`AT+CSSLCFG="sslversion",%d,%d`, ctx, version)
}

func atTCPDisableSSL(cid int) string {
	return fmt.Sprintf(`AT+CASSLCFG=%d,"SSL",0`, cid)
}

func atTCPOpen(cid int, pdp int, host string, port int) string {
	return fmt.Sprintf(`AT+CAOPEN=%d,%d,"TCP","%s",%d`, cid, pdp, host, port)
}

func atTCPSend(cid int, n int) string {
	return fmt.Sprintf("AT+CASEND=%d,%d", cid, n)
}

func atTCPReceive(cid int, n int) string {
	return fmt.Sprintf("AT+CARECV=%d,%d", cid, n)
}

func atTCPClose(cid int) string {
	return fmt.Sprintf("AT+CACLOSE=%d", cid)
}

func atHTTPConf(key string, value string) string {
	return fmt.Sprintf(`AT+SHCONF="%s","%s"`, key, value)
}

func atHTTPConfInt(key string, value int) string {
	return fmt.Sprintf(`AT+SHCONF="%s",%d`, key, value)
}

func atHTTPHeader(key string, value string) string {
	return fmt.Sprintf(`AT+SHAHEAD="%s","%s"`, key, value)
}

func atHTTPBody(n int) string {
	return fmt.Sprintf("AT+SHBOD=%d,%d", n, HTTPBodyTimeoutMs)
}

func atHTTPRequest(path string, method HTTPMethod) string {
	return fmt.Sprintf(`AT+SHREQ="%s",%d`, path, method)
}

func atHTTPRead(n int) string {
	return fmt.Sprintf("AT+SHREAD=0,%d", n)
}

func atPing(host string, count int, size int, timeoutMs int) string {
	return fmt.Sprintf(`AT+SNPING4="%s",%d,%d,%d`, host, count, size, timeoutMs)
}
