package sim7070

import (
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070/atparser"
	"github.com/LeoCommon/cellgw/pkg/log"
	"go.uber.org/zap"
)

const (
	DefaultPingHost      = "8.8.8.8"
	DefaultPingCount     = 4
	DefaultPingSize      = 32
	DefaultPingTimeoutMs = 1000
)

type PingRequest struct {
	Host      string
	Count     int
	Size      int
	TimeoutMs int
}

func (r *PingRequest) setDefaults() {
	if r.Host == "" {
		r.Host = DefaultPingHost
	}
	if r.Count <= 0 {
		r.Count = DefaultPingCount
	}
	if r.Size <= 0 {
		r.Size = DefaultPingSize
	}
	if r.TimeoutMs <= 0 {
		r.TimeoutMs = DefaultPingTimeoutMs
	}
}

type PingResult struct {
	Request PingRequest
	Replies []atparser.PingReply
	Stats   atparser.PingStats

	// Incomplete is set when the modem did not finish with OK
	Incomplete bool
}

// Ping sends ICMP echo requests over the active PDP context
func (m *Modem) Ping(req PingRequest) (*PingResult, error) {
	req.setDefaults()

	resp, err := m.run(at.Cmd(atPing(req.Host, req.Count, req.Size, req.TimeoutMs)).WithTimeout(PingTimeout))
	if err != nil {
		return nil, err
	}

	res := &PingResult{
		Request:    req,
		Replies:    atparser.PingReplies(resp.Lines),
		Incomplete: !resp.OK(),
	}
	res.Stats = atparser.Stats(res.Replies)

	log.Info("ping finished",
		zap.String("host", req.Host),
		zap.Int("transmitted", res.Stats.Transmitted),
		zap.Int("received", res.Stats.Received),
		zap.Int("lost", res.Stats.Lost()),
	)
	if res.Incomplete {
		log.Warn("ping may have some errors, check modem output", zap.Strings("lines", resp.Lines))
	}

	return res, nil
}
