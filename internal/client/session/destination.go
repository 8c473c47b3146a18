package session

import "fmt"

// Kind identifies a screen.
type Kind int

const (
	KindLogin Kind = iota + 1
	KindPinSetup
	KindPinUnlock
	KindHome
	KindJobDetail
	KindTimeEntries
	KindNotifications
)

var kindNames = map[Kind]string{
	KindLogin:         "login",
	KindPinSetup:      "pin-setup",
	KindPinUnlock:     "pin-unlock",
	KindHome:          "home",
	KindJobDetail:     "job",
	KindTimeEntries:   "time-entries",
	KindNotifications: "notifications",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Destination is a screen together with its routing parameters. The zero
// value is "no screen yet"; use the constructors below.
type Destination struct {
	kind  Kind
	jobID string
}

func Login() Destination         { return Destination{kind: KindLogin} }
func PinSetup() Destination      { return Destination{kind: KindPinSetup} }
func PinUnlock() Destination     { return Destination{kind: KindPinUnlock} }
func Home() Destination          { return Destination{kind: KindHome} }
func TimeEntries() Destination   { return Destination{kind: KindTimeEntries} }
func Notifications() Destination { return Destination{kind: KindNotifications} }

// JobDetail is the detail screen of one job.
func JobDetail(jobID string) Destination {
	return Destination{kind: KindJobDetail, jobID: jobID}
}

func (d Destination) Kind() Kind    { return d.kind }
func (d Destination) JobID() string { return d.jobID }

// IsGate reports the login, PIN setup and PIN unlock screens.
func (d Destination) IsGate() bool {
	switch d.kind {
	case KindLogin, KindPinSetup, KindPinUnlock:
		return true
	}
	return false
}

func (d Destination) String() string {
	if d.kind == 0 {
		return "none"
	}
	if d.kind == KindJobDetail {
		return d.kind.String() + "/" + d.jobID
	}
	return d.kind.String()
}
