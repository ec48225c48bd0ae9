package safety

// FaultType is the closed enum of safety faults spec.md §3 names.
type FaultType int

const (
	FaultNone FaultType = iota
	FaultUsbStall
	FaultEncoderNaN
	FaultThermalLimit
	FaultOvercurrent
	FaultPluginOverrun
	FaultTimingViolation
	FaultSafetyInterlockViolation
	FaultHandsOffTimeout
	FaultPipelineFault
)

func (f FaultType) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultUsbStall:
		return "usb_stall"
	case FaultEncoderNaN:
		return "encoder_nan"
	case FaultThermalLimit:
		return "thermal_limit"
	case FaultOvercurrent:
		return "overcurrent"
	case FaultPluginOverrun:
		return "plugin_overrun"
	case FaultTimingViolation:
		return "timing_violation"
	case FaultSafetyInterlockViolation:
		return "safety_interlock_violation"
	case FaultHandsOffTimeout:
		return "hands_off_timeout"
	case FaultPipelineFault:
		return "pipeline_fault"
	default:
		return "unknown"
	}
}

// Trigger identifies what caused a SafeMode or fault transition.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerWatchdogTimeout
	TriggerCommunicationLoss
	TriggerFaultDetected
	TriggerManual
)

func (t Trigger) String() string {
	switch t {
	case TriggerNone:
		return "none"
	case TriggerWatchdogTimeout:
		return "watchdog_timeout"
	case TriggerCommunicationLoss:
		return "communication_loss"
	case TriggerFaultDetected:
		return "fault_detected"
	case TriggerManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Kind discriminates the State sum type's variants.
type Kind int

const (
	KindNormal Kind = iota
	KindWarning
	KindSafeMode
	KindEmergencyStop
	KindFaulted
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindWarning:
		return "warning"
	case KindSafeMode:
		return "safe_mode"
	case KindEmergencyStop:
		return "emergency_stop"
	case KindFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// State is the safety state machine's current value: a closed sum
// type over {Normal, Warning, SafeMode, EmergencyStop, Faulted}
// (spec.md §3). Non-Normal variants carry the monotonic timestamp
// they were entered at, used for the minimum-hold enforcement before
// a fault may be cleared.
type State struct {
	Kind    Kind
	Trigger Trigger
	Fault   FaultType
	SinceNs int64
}

// Normal is the resting, fully-operational state.
func Normal() State {
	return State{Kind: KindNormal}
}

// Warning constructs a Warning{reason, since} state.
func Warning(trigger Trigger, sinceNs int64) State {
	return State{Kind: KindWarning, Trigger: trigger, SinceNs: sinceNs}
}

// SafeMode constructs a SafeMode{trigger, since} state.
func SafeMode(trigger Trigger, sinceNs int64) State {
	return State{Kind: KindSafeMode, Trigger: trigger, SinceNs: sinceNs}
}

// SafeModeFault constructs the SafeMode variant entered via
// report_fault, carrying the fault that triggered it.
func SafeModeFault(fault FaultType, sinceNs int64) State {
	return State{Kind: KindSafeMode, Trigger: TriggerFaultDetected, Fault: fault, SinceNs: sinceNs}
}

// EmergencyStop constructs the irrevocable EmergencyStop{since} state.
func EmergencyStop(sinceNs int64) State {
	return State{Kind: KindEmergencyStop, SinceNs: sinceNs}
}

// Faulted constructs a Faulted{fault, since} state.
func Faulted(fault FaultType, sinceNs int64) State {
	return State{Kind: KindFaulted, Fault: fault, SinceNs: sinceNs}
}

// IsNormal reports whether the state is Normal.
func (s State) IsNormal() bool { return s.Kind == KindNormal }

// HeldFor returns how long (in nanoseconds) the state has been held
// as of nowNs. Normal carries no entry timestamp and reports 0.
func (s State) HeldFor(nowNs int64) int64 {
	if s.Kind == KindNormal {
		return 0
	}
	return nowNs - s.SinceNs
}
