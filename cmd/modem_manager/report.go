package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/LeoCommon/cellgw/internal/gateway"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
	"github.com/LeoCommon/cellgw/pkg/console"
)

var errTestsFailed = errors.New("some tests failed")

func printBringUp(res *sim7070.BringUpResult, err error) {
	printer.Title("Bring-up")

	if res == nil {
		printer.Fail("modem", errString(err))
		return
	}

	for _, s := range res.Stages {
		detail := fmt.Sprintf("%s (%d attempts)", s.Detail, s.Attempts)
		if s.OK {
			printer.OK(string(s.Name), detail)
			continue
		}

		printer.Fail(string(s.Name), errString(s.Err))
		if s.Last != nil {
			printer.Lines(s.Last.Lines)
		}
	}

	if err != nil {
		return
	}

	fields := []console.Field{
		{Label: "Context", Value: strconv.Itoa(res.ContextID)},
		{Label: "IP", Value: res.IP},
		{Label: "APN", Value: res.APN},
		{Label: "Signal", Value: res.Signal.String()},
	}
	if res.Network != nil {
		fields = append(fields,
			console.Field{Label: "Operator", Value: res.Network.OperatorName()},
			console.Field{Label: "Network", Value: fmt.Sprintf("%s, %s", res.Network.Technology(), res.Network.Band)},
		)
	}
	printer.Box(fields...)
}

func printPing(rep *gateway.PingReport, err error) {
	printer.Title("Ping")

	if err != nil {
		printer.Fail("ping", errString(err))
		return
	}

	for _, r := range rep.Replies {
		label := fmt.Sprintf("#%d %s", r.Seq, r.IP)
		if r.Lost() {
			printer.Warn(label, "no reply")
			continue
		}
		printer.OK(label, fmt.Sprintf("%d ms", r.Delay))
	}

	status := console.StatusOK
	if rep.Incomplete || rep.Stats.Received == 0 {
		status = console.StatusWarn
	}
	printer.Line(status, "statistics", fmt.Sprintf("%d sent, %d received, %d lost", rep.Stats.Transmitted, rep.Stats.Received, rep.Stats.Lost()))

	if rep.Location != nil {
		printer.Box(
			console.Field{Label: "Target", Value: rep.Request.Host},
			console.Field{Label: "Location", Value: rep.Location.String()},
		)
	}
}

func printTCP(res *sim7070.TCPTestResult, err error) {
	printer.Title("TCP echo")

	switch {
	case err != nil:
		printer.Fail("tcp", errString(err))
	case res.Echoed:
		printer.OK("echo", strings.TrimSpace(res.Received))
	default:
		printer.Warn("echo", "nothing came back within the timeout")
	}
}

func printHTTP(method string, res *sim7070.HTTPResponse, err error) {
	printer.Title("HTTP " + method)

	if err != nil {
		printer.Fail(method, errString(err))
		return
	}

	status := console.StatusOK
	if res.Code < 200 || res.Code >= 300 {
		status = console.StatusWarn
	}
	printer.Line(status, strconv.Itoa(res.Code), fmt.Sprintf("%d bytes", res.Length))
	printer.Lines(res.Body)
}

func printUpload(res *sim7070.UploadResult, err error) {
	printer.Title("Certificate upload")

	switch {
	case err != nil:
		printer.Fail("upload", errString(err))
	case res.Warning != nil:
		printer.Warn(res.Name, res.Warning.Error())
	default:
		printer.OK(res.Name, fmt.Sprintf("%d bytes stored and converted", res.Size))
	}
}

func printModes(modes *gateway.Modes, err error) {
	printer.Title("Supported modes")

	if err != nil {
		printer.Fail("modes", errString(err))
		return
	}

	printer.Box(
		console.Field{Label: "AT+CNMP", Value: joinInts(modes.Network)},
		console.Field{Label: "AT+CMNB", Value: joinInts(modes.NB)},
	)
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ", ")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
