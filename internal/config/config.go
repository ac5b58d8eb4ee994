package config

// Mode selects how an inbound data-channel connection is handled.
type Mode string

const (
	// ModeRaw splices every connection to a single preconfigured target,
	// with no HTTP parsing.
	ModeRaw Mode = "RAW"
	// ModeRouting parses the HTTP head and dispatches by path.
	ModeRouting Mode = "ROUTING"
)

// RawTarget is the single backend used in RAW mode.
type RawTarget struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RuleSpec is the JSON wire/persistence shape of a routing rule. Priority is
// a pointer so that "omitted" (use DefaultPriority) is distinguishable from
// an explicit 0, which is a valid priority per the spec's Open Questions.
type RuleSpec struct {
	PathPattern string `json:"pathPattern"`
	TargetHost  string `json:"targetHost"`
	TargetPort  int    `json:"targetPort"`
	Description string `json:"description,omitempty"`
	StripPrefix bool   `json:"stripPrefix,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	ForwardHost bool   `json:"forwardHost,omitempty"`
	UseSSL      bool   `json:"useSSL,omitempty"`
}

// Document is the on-disk JSON shape described in spec.md §6. It round-trips
// losslessly through Save/Load. RawTargetHost/RawTargetPort are
// top-level keys per §6, not a nested "rawTarget" object.
type Document struct {
	Domain        string     `json:"domain"`
	Mode          Mode       `json:"mode"`
	RawTargetHost string     `json:"rawTargetHost"`
	RawTargetPort int        `json:"rawTargetPort"`
	SignalHost    string     `json:"signalHost"`
	SignalPort    int        `json:"signalPort"`
	DataPort      int        `json:"dataPort"`
	Routes        []RuleSpec `json:"routes"`

	AutoReconnect        bool `json:"autoReconnect"`
	ForceConnectionClose bool `json:"forceConnectionClose"`
	MonitoringEnabled    bool `json:"monitoringEnabled"`
}

// Defaults returns the Document used when no config file exists yet.
func Defaults() Document {
	return Document{
		Mode:                 ModeRaw,
		SignalPort:           7000,
		DataPort:             7001,
		AutoReconnect:        true,
		ForceConnectionClose: false,
		MonitoringEnabled:    true,
	}
}
