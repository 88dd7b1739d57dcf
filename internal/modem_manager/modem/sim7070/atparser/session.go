package atparser

import (
	"strings"
)

const (
	PrefixSHREQ   = "+SHREQ:"
	PrefixSHSTATE = "+SHSTATE:"
	PrefixSHREAD  = "+SHREAD:"
	PrefixCAOPEN  = "+CAOPEN:"
	PrefixCASTATE = "+CASTATE:"
	PrefixCARECV  = "+CARECV:"
)

// HTTPResponse is the result of "+SHREQ: "<method>",<code>,<len>"
type HTTPResponse struct {
	Method string
	Code   int
	Length int
}

func HTTPResult(lines []string) (HTTPResponse, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixSHREQ)
		if !ok || len(parts) < 3 {
			continue
		}

		code, ok := intAt(parts, 1)
		if !ok {
			continue
		}

		length, ok := intAt(parts, 2)
		if !ok {
			continue
		}

		return HTTPResponse{Method: parts[0], Code: code, Length: length}, true
	}
	return HTTPResponse{}, false
}

// HTTPConnected reports "+SHSTATE: 1"
func HTTPConnected(lines []string) bool {
	for _, l := range lines {
		if p, ok := payload(l, PrefixSHSTATE); ok && p == "1" {
			return true
		}
	}
	return false
}

// HTTPBody returns the body lines of an AT+SHREAD reply
func HTTPBody(lines []string) []string {
	var body []string
	for _, l := range lines {
		if strings.HasPrefix(l, PrefixSHREAD) || strings.HasPrefix(l, "OK") {
			continue
		}
		body = append(body, l)
	}
	return body
}

// OpenResult returns the result code of "+CAOPEN: <cid>,<result>", 0 is success
func OpenResult(lines []string, cid int) (int, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCAOPEN)
		if !ok {
			continue
		}

		if id, ok := intAt(parts, 0); !ok || id != cid {
			continue
		}

		if result, ok := intAt(parts, 1); ok {
			return result, true
		}
	}
	return 0, false
}

// ConnectionActive reports "+CASTATE: <cid>,1"
func ConnectionActive(lines []string, cid int) bool {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCASTATE)
		if !ok {
			continue
		}

		id, ok := intAt(parts, 0)
		if !ok || id != cid {
			continue
		}

		if state, ok := intAt(parts, 1); ok && state == 1 {
			return true
		}
	}
	return false
}

// Received is the data of "+CARECV: <len>,<data>"
type Received struct {
	Length int
	Data   string
}

// ReceivedData returns the first +CARECV line that carries data.
// "+CARECV: 0" without data is not reported.
func ReceivedData(lines []string) (Received, bool) {
	for _, l := range lines {
		p, ok := payload(l, PrefixCARECV)
		if !ok {
			continue
		}

		length, data, found := strings.Cut(p, ",")
		if !found {
			continue
		}

		n, ok := intAt([]string{length}, 0)
		if !ok {
			n = len(data)
		}

		return Received{Length: n, Data: data}, true
	}
	return Received{}, false
}
