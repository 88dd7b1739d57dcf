package atparser

const PrefixSNPING4 = "+SNPING4:"

// PingReply is one "+SNPING4: <seq>,<ip>,<delay>" line, a negative delay marks a lost packet
type PingReply struct {
	Seq   int
	IP    string
	Delay int
}

func (r PingReply) Lost() bool {
	return r.Delay < 0
}

func PingReplies(lines []string) []PingReply {
	var out []PingReply
	for _, l := range lines {
		parts, ok := fields(l, PrefixSNPING4)
		if !ok || len(parts) != 3 {
			continue
		}

		seq, ok := intAt(parts, 0)
		if !ok {
			continue
		}

		delay, ok := intAt(parts, 2)
		if !ok {
			continue
		}

		out = append(out, PingReply{Seq: seq, IP: parts[1], Delay: delay})
	}
	return out
}

type PingStats struct {
	Transmitted int
	Received    int
}

func (s PingStats) Lost() int {
	return s.Transmitted - s.Received
}

func Stats(replies []PingReply) PingStats {
	s := PingStats{Transmitted: len(replies)}
	for _, r := range replies {
		if !r.Lost() {
			s.Received++
		}
	}
	return s
}
