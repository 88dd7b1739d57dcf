package atparser

const (
	PrefixCGNAPN = "+CGNAPN:"
	PrefixCNACT  = "+CNACT:"

	NullIP = "0.0.0.0"
)

// APN is the network provided APN of +CGNAPN
type APN struct {
	ContextID int
	Name      string
}

// APNConfig parses "+CGNAPN: <cid>,"<apn>""
func APNConfig(lines []string) (APN, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCGNAPN)
		if !ok || len(parts) < 2 {
			continue
		}

		cid, ok := intAt(parts, 0)
		if !ok {
			continue
		}

		return APN{ContextID: cid, Name: parts[1]}, true
	}
	return APN{}, false
}

// PDPContext is one entry of the +CNACT list
type PDPContext struct {
	ID    int
	State int
	IP    string
}

// Active requires the active state and an assigned address
func (c PDPContext) Active() bool {
	return c.State == 1 && c.IP != "" && c.IP != NullIP
}

// PDPContexts parses every "+CNACT: <cid>,<state>,"<ip>"" line
func PDPContexts(lines []string) []PDPContext {
	var out []PDPContext
	for _, l := range lines {
		parts, ok := fields(l, PrefixCNACT)
		if !ok {
			continue
		}

		id, ok := intAt(parts, 0)
		if !ok {
			continue
		}

		state, ok := intAt(parts, 1)
		if !ok {
			continue
		}

		ctx := PDPContext{ID: id, State: state}
		if len(parts) > 2 {
			ctx.IP = parts[2]
		}
		out = append(out, ctx)
	}
	return out
}

// FindPDPContext returns the entry for context id
func FindPDPContext(lines []string, id int) (PDPContext, bool) {
	for _, c := range PDPContexts(lines) {
		if c.ID == id {
			return c, true
		}
	}
	return PDPContext{}, false
}
