package atparser

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/LeoCommon/cellgw/pkg/misc"
)

const (
	PrefixCPSI = "+CPSI:"
	PrefixCOPS = "+COPS:"
	PrefixCNMP = "+CNMP:"
	PrefixCMNB = "+CMNB:"

	NoService = "NO SERVICE"

	// RSRP is reported as 0 when the modem has no measurement
	RSRPNotAvailable = "N/A"

	cpsiMandatoryFields = 8
)

// Human readable names for the operator codes seen with 1NCE SIMs
var operatorNames = map[string]string{
	"22210":       "Vodafone IT",
	"22201":       "TIM IT",
	"22288":       "WindTre IT",
	"22299":       "Iliad IT",
	"26201":       "Telekom DE",
	"26202":       "Vodafone DE",
	"26203":       "O2 DE",
	"00760":       "Vodafone DE (1NCE roaming)",
	"0057003":     "Vodafone DE (1NCE roaming)",
	"00760030003": "Vodafone DE (1NCE roaming)",
}

// OperatorName maps a numeric PLMN code, with or without dash, to a name
func OperatorName(code string) string {
	if name, ok := operatorNames[strings.ReplaceAll(code, "-", "")]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

// SystemInfo is the serving cell record of +CPSI.
// Fields that are absent from the record hold misc.Unknown.
type SystemInfo struct {
	RAT      string
	State    string
	Operator string
	TAC      string
	CellID   string
	PCI      string
	Band     string
	EARFCN   string

	RSRQ string
	RSRP string
	RSSI string
	SINR string
}

// ParseSystemInfo decodes a single +CPSI line, e.g.
// "+CPSI: LTE NB-IOT,Online,222-10,0xB7F5,20087664,217,EUTRAN-BAND20,6353,0,0,-10,-79,-69,14"
func ParseSystemInfo(line string) (*SystemInfo, error) {
	p, ok := payload(line, PrefixCPSI)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRecord, line)
	}

	if strings.Contains(p, NoService) {
		return nil, ErrNoService
	}

	parts := strings.Split(p, ",")
	if len(parts) < cpsiMandatoryFields {
		return nil, fmt.Errorf("%w: %d of %d in %q", ErrShortRecord, len(parts), cpsiMandatoryFields, line)
	}

	info := &SystemInfo{
		RAT:      misc.FieldAt(parts, 0),
		State:    misc.FieldAt(parts, 1),
		Operator: misc.FieldAt(parts, 2),
		TAC:      misc.FieldAt(parts, 3),
		CellID:   misc.FieldAt(parts, 4),
		PCI:      misc.FieldAt(parts, 5),
		Band:     misc.FieldAt(parts, 6),
		EARFCN:   misc.FieldAt(parts, 7),

		// NB-IoT, Cat-M and LTE share this layout, LTE records may be cut short
		RSRQ: misc.FieldAt(parts, 10),
		RSRP: misc.FieldAt(parts, 11),
		RSSI: misc.FieldAt(parts, 12),
		SINR: misc.FieldAt(parts, 13),
	}

	if info.RSRP == "0" {
		info.RSRP = RSRPNotAvailable
	}

	return info, nil
}

// ServiceInfo decodes the first +CPSI line of a response
func ServiceInfo(lines []string) (*SystemInfo, error) {
	for _, l := range lines {
		if _, ok := payload(l, PrefixCPSI); ok {
			return ParseSystemInfo(l)
		}
	}
	return nil, ErrNoRecord
}

func (s *SystemInfo) OperatorName() string {
	return OperatorName(s.Operator)
}

var accessTechnologyNames = map[string]string{
	"LTE NB-IOT": "Narrowband Internet of things (NB-IoT)",
	"LTE CAT-M":  "LTE Cat M1 (eMTC)",
	"LTE":        "LTE",
	"GSM":        "GSM",
}

func (s *SystemInfo) AccessTechnologyName() string {
	if name, ok := accessTechnologyNames[s.RAT]; ok {
		return name
	}
	return s.RAT
}

// Technology is the short name of the radio access in use
func (s *SystemInfo) Technology() string {
	switch {
	case strings.Contains(s.RAT, "NB-IOT"):
		return "NB-IoT"
	case strings.Contains(s.RAT, "CAT-M"):
		return "Cat-M1"
	case strings.Contains(s.RAT, "LTE"):
		return "LTE"
	case strings.Contains(s.RAT, "GSM"):
		return "GSM"
	}
	return misc.Unknown
}

// Operator is the +COPS reply
type Operator struct {
	Mode       string
	Format     string
	Code       string
	AccessTech string
}

var (
	selectionModeNames = map[string]string{
		"0": "Automatic selection",
		"1": "Manual selection",
	}
	formatNames = map[string]string{
		"0": "Long alphanumeric",
		"1": "Short alphanumeric",
		"2": "Numeric",
	}
	copsAccessTechNames = map[string]string{
		"0": "GSM",
		"2": "EDGE",
		"3": "UMTS",
		"4": "HSDPA",
		"5": "HSUPA",
		"6": "HSPA",
		"7": "LTE Cat M1 (eMTC)",
		"8": "LTE",
		"9": "Narrowband Internet of Things (NB-IoT)",
	}
)

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fmt.Sprintf("Unknown (%s)", key)
}

func (o *Operator) ModeName() string {
	return lookup(selectionModeNames, o.Mode)
}

func (o *Operator) FormatName() string {
	return lookup(formatNames, o.Format)
}

func (o *Operator) Name() string {
	return OperatorName(o.Code)
}

func (o *Operator) AccessTechName() string {
	return lookup(copsAccessTechNames, o.AccessTech)
}

// OperatorInfo parses "+COPS: <mode>,<format>,"<oper>"[,<act>]".
// A bare "+COPS: 0" without registration is not reported.
func OperatorInfo(lines []string) (*Operator, bool) {
	for _, l := range lines {
		parts, ok := fields(l, PrefixCOPS)
		if !ok || len(parts) < 3 {
			continue
		}

		return &Operator{
			Mode:       parts[0],
			Format:     parts[1],
			Code:       parts[2],
			AccessTech: misc.FieldAt(parts, 3),
		}, true
	}
	return nil, false
}

var modePattern = regexp.MustCompile(`(\d+)(?:-(\d+))?`)

// SupportedModes collects every number of a "=?" test reply, e.g.
// "+CNMP: (2,13,38,51)" or "+CMNB: (1-3)", sorted and without duplicates.
// Ranges are expanded.
func SupportedModes(lines []string, prefix string) []int {
	var modes []int
	for _, l := range lines {
		p, ok := payload(l, prefix)
		if !ok {
			continue
		}

		for _, m := range modePattern.FindAllStringSubmatch(p, -1) {
			lo, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			hi := lo
			if m[2] != "" {
				if v, err := strconv.Atoi(m[2]); err == nil && v >= lo {
					hi = v
				}
			}
			for v := lo; v <= hi; v++ {
				modes = append(modes, v)
			}
		}
	}

	slices.Sort(modes)
	return slices.Compact(modes)
}

var (
	networkModeNames = map[int]string{
		2:  "Automatic",
		13: "GSM Only",
		38: "LTE Only",
		51: "GSM + LTE Only",
	}
	nbModeNames = map[int]string{
		1: "Cat-M only",
		2: "NB-IoT only",
		3: "Cat-M + NB-IoT",
	}
)

// NetworkModeName names an AT+CNMP mode
func NetworkModeName(mode int) string {
	if name, ok := networkModeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", mode)
}

// NBModeName names an AT+CMNB mode
func NBModeName(mode int) string {
	if name, ok := nbModeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", mode)
}
