package sim7070

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070/atparser"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/retry"
	"go.uber.org/zap"
)

type Stage string

const (
	StageFunctionality Stage = "functionality"
	StageSIM           Stage = "sim"
	StageSignal        Stage = "signal"
	StageAttach        Stage = "attach"
	StageNetworkMode   Stage = "network mode"
	StageOperator      Stage = "operator"
	StageAPN           Stage = "apn"
	StagePDP           Stage = "pdp"
)

// Fixed delays and retry policies of the bring-up stages
const (
	FunctionalitySettle = 3 * time.Second
	RadioOffSettle      = 3 * time.Second
	RadioOnSettle       = 5 * time.Second

	SIMAttempts    = 10
	SIMDelay       = time.Second
	SignalAttempts = 5
	SignalDelay    = 30 * time.Second
	AttachAttempts = 5
	AttachDelay    = 20 * time.Second
	PDPAttempts    = 3
	PDPDelay       = 20 * time.Second
)

// NoContext marks a result without a usable context id
const NoContext = -1

type StageReport struct {
	Name     Stage
	Attempts int
	OK       bool
	Err      error
	Detail   string

	// Last is the final response of the stage, kept for diagnostics
	Last *at.Response
}

// BringUpResult collects what the stages learned. ContextID and IP are only set
// once every stage passed.
type BringUpResult struct {
	ContextID int
	IP        string
	APN       string

	Signal   atparser.Signal
	Network  *atparser.SystemInfo
	Operator *atparser.Operator

	Stages []StageReport
}

type stageFunc func(r *StageReport, res *BringUpResult) error

// BringUp runs the stages in their fixed order and stops at the first failure
func (m *Modem) BringUp() (*BringUpResult, error) {
	res := &BringUpResult{ContextID: NoContext}
	m.pdp = nil

	stages := []struct {
		name Stage
		run  stageFunc
	}{
		{StageFunctionality, m.functionality},
		{StageSIM, m.simReady},
		{StageSignal, m.signal},
		{StageAttach, m.attach},
		{StageNetworkMode, m.networkMode},
		{StageOperator, m.operator},
		{StageAPN, m.apn},
		{StagePDP, m.activatePDP},
	}

	var cid int
	var ip string

	for _, s := range stages {
		r := StageReport{Name: s.name}
		log.Info("bring-up stage", zap.String("stage", string(s.name)))

		err := s.run(&r, res)
		if err != nil {
			r.Err = &StageError{Stage: s.name, Attempts: r.Attempts, Last: r.Last, Err: err}
			res.Stages = append(res.Stages, r)
			m.pdp = nil

			log.Error("bring-up aborted", zap.String("stage", string(s.name)), zap.Int("attempts", r.Attempts), zap.Error(err))
			return res, r.Err
		}

		r.OK = true
		res.Stages = append(res.Stages, r)
		log.Info("stage passed", zap.String("stage", string(s.name)), zap.Int("attempts", r.Attempts), zap.String("detail", r.Detail))

		if s.name == StagePDP && m.pdp != nil {
			cid, ip = m.pdp.ID, m.pdp.IP
		}
	}

	res.ContextID, res.IP = cid, ip
	return res, nil
}

// query runs cmd and stores its response as the stage's last one
func (m *Modem) query(r *StageReport, cmd at.Command) (*at.Response, error) {
	resp, err := m.run(cmd)
	if resp != nil {
		r.Last = resp
	}
	return resp, err
}

// poll runs one query per attempt until ok reports success
func (m *Modem) poll(r *StageReport, p retry.Policy, cmd string, ok func(resp *at.Response) bool) error {
	attempts, err := retry.Do(p, func(attempt int) (bool, error) {
		resp, err := m.query(r, at.Cmd(cmd))
		if err != nil {
			return false, err
		}

		success := ok(resp)
		if !success {
			log.Debug("stage attempt failed", zap.String("cmd", cmd), zap.Int("attempt", attempt), zap.Strings("lines", resp.Lines))
		}
		return success, nil
	})

	r.Attempts = attempts
	return err
}

func (m *Modem) functionality(r *StageReport, _ *BringUpResult) error {
	full := func() (bool, error) {
		r.Attempts++
		resp, err := m.query(r, at.Cmd(AtFunctionalityQuery))
		if err != nil {
			return false, err
		}

		n, ok := atparser.Functionality(resp.Lines)
		r.Detail = fmt.Sprintf("mode %d", n)
		return ok && n == atparser.FullFunctionality, nil
	}

	ok, err := full()
	if err != nil || ok {
		return err
	}

	log.Info("modem not fully operational, setting full functionality", zap.String("current", r.Detail))
	if err := m.exec(atSetFunctionality(atparser.FullFunctionality)); err != nil {
		return err
	}
	m.sleep(FunctionalitySettle)

	ok, err = full()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFullFunctionality
	}
	return nil
}

func (m *Modem) simReady(r *StageReport, _ *BringUpResult) error {
	err := m.poll(r, m.policy(SIMAttempts, SIMDelay), AtSIMStatusQuery, func(resp *at.Response) bool {
		return atparser.SIMReady(resp.Lines)
	})
	if err == nil {
		r.Detail = atparser.SIMReadyStatus
	}
	return err
}

func (m *Modem) signal(r *StageReport, res *BringUpResult) error {
	err := m.poll(r, m.policy(SignalAttempts, SignalDelay), AtSignalQuery, func(resp *at.Response) bool {
		s, ok := atparser.SignalQuality(resp.Lines)
		if !ok || !s.Known() {
			return false
		}

		res.Signal = s
		return true
	})
	if err == nil {
		r.Detail = res.Signal.String()
	}
	return err
}

func (m *Modem) attach(r *StageReport, _ *BringUpResult) error {
	err := m.poll(r, m.policy(AttachAttempts, AttachDelay), AtAttachQuery, func(resp *at.Response) bool {
		return atparser.PacketAttached(resp.Lines)
	})
	if err == nil {
		r.Detail = "packet network attached"
	}
	return err
}

// networkMode forces LTE with the configured narrowband mode and waits for registration.
// Registration counts only once a complete +CPSI record was decoded.
func (m *Modem) networkMode(r *StageReport, res *BringUpResult) error {
	if err := m.exec(atSetFunctionality(0)); err != nil {
		return err
	}
	m.sleep(RadioOffSettle)

	for _, cmd := range []string{atNetworkMode(m.opts.NetworkMode), atNBMode(m.opts.NBMode), atSetFunctionality(atparser.FullFunctionality)} {
		if err := m.exec(cmd); err != nil {
			return err
		}
	}
	m.sleep(RadioOnSettle)

	polls := int((m.opts.AttachTimeout + m.opts.AttachPoll - 1) / m.opts.AttachPoll)

	err := m.poll(r, m.policy(polls, m.opts.AttachPoll), AtSystemInfoQuery, func(resp *at.Response) bool {
		info, err := atparser.ServiceInfo(resp.Lines)
		if err != nil {
			if errors.Is(err, atparser.ErrShortRecord) {
				log.Warn("unparseable service status, skipping poll", zap.Error(err))
			}
			return false
		}

		res.Network = info
		return true
	})
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w within %s: %w", ErrNotRegistered, m.opts.AttachTimeout, err)
	}
	if err != nil {
		return err
	}

	r.Detail = fmt.Sprintf("%s via %s (%s)", res.Network.OperatorName(), res.Network.Technology(), res.Network.Band)
	return nil
}

// operator is informational and never fails on content
func (m *Modem) operator(r *StageReport, res *BringUpResult) error {
	r.Attempts = 1
	resp, err := m.query(r, at.Cmd(AtOperatorQuery))
	if err != nil {
		return err
	}

	op, ok := atparser.OperatorInfo(resp.Lines)
	if !ok {
		r.Detail = "operator unknown"
		return nil
	}

	res.Operator = op
	r.Detail = fmt.Sprintf("%s, %s", op.Name(), op.AccessTechName())
	return nil
}

func (m *Modem) apn(r *StageReport, res *BringUpResult) error {
	r.Attempts = 1
	resp, err := m.query(r, at.Cmd(AtAPNQuery))
	if err != nil {
		return err
	}

	// The network assigns context 0 when nothing is reported
	current, found := atparser.APNConfig(resp.Lines)
	cid := current.ContextID

	if found && current.Name == m.opts.APN {
		res.APN = current.Name
		r.Detail = fmt.Sprintf("%s on context %d", current.Name, cid)
		m.pdp = &atparser.PDPContext{ID: cid}
		return nil
	}

	log.Info("apn not correct, configuring", zap.String("current", current.Name), zap.String("expected", m.opts.APN))
	r.Attempts = 2
	resp, err = m.query(r, at.Cmd(atConfigureAPN(cid, m.opts.APN)))
	if err != nil {
		return err
	}
	if !resp.OK() {
		return ErrAPNNotSet
	}

	res.APN = m.opts.APN
	r.Detail = fmt.Sprintf("%s set on context %d", m.opts.APN, cid)
	m.pdp = &atparser.PDPContext{ID: cid}
	return nil
}

func (m *Modem) activatePDP(r *StageReport, _ *BringUpResult) error {
	if m.pdp == nil {
		return ErrNoContext
	}
	cid := m.pdp.ID

	resp, err := m.query(r, at.Cmd(AtPDPQuery))
	if err != nil {
		return err
	}

	if ctx, ok := atparser.FindPDPContext(resp.Lines, cid); ok && ctx.Active() {
		m.pdp = &ctx
		r.Attempts = 1
		r.Detail = fmt.Sprintf("context %d already active with %s", cid, ctx.IP)
		return nil
	}

	log.Info("pdp context inactive, activating", zap.Int("cid", cid))

	var active atparser.PDPContext
	attempts, err := retry.Do(m.policy(PDPAttempts, PDPDelay), func(attempt int) (bool, error) {
		if err := m.exec(atActivatePDP(cid)); err != nil {
			return false, err
		}

		resp, err := m.query(r, at.Cmd(AtPDPQuery))
		if err != nil {
			return false, err
		}

		ctx, ok := atparser.FindPDPContext(resp.Lines, cid)
		if !ok || !ctx.Active() {
			log.Debug("activation attempt failed", zap.Int("cid", cid), zap.Int("attempt", attempt))
			return false, nil
		}

		active = ctx
		return true, nil
	})

	r.Attempts = attempts
	if err != nil {
		m.pdp = nil
		return err
	}

	m.pdp = &active
	r.Detail = fmt.Sprintf("context %d activated with %s", cid, active.IP)
	return nil
}
