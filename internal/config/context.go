// Package config provides the explicit context object called for in
// spec.md §9 Design Notes ("Global config object → explicit context"): a
// small bag of policy flags and shared collaborators passed into transport
// constructors instead of relying on process-wide globals.
package config

import (
	"time"

	"github.com/godbus/dbus/v5"
	"gopkg.in/yaml.v3"
)

// MainThreadSentinel is the value a WorkerHandle slot holds when no worker
// goroutine currently owns it ("main thread" in spec.md §3).
const MainThreadSentinel = "-"

// Policy carries the per-codec and per-transport policy flags spec.md §9
// says should be threaded through constructors explicitly.
type Policy struct {
	// A2DPSoftVolumePreference is the soft-volume flag NewA2DPTransport
	// installs on both PCM endpoints of every A2DP transport created with
	// this context (spec.md §4.1: soft_volume = !config.volume-passthrough).
	A2DPSoftVolumePreference bool `yaml:"a2dp_soft_volume"`

	// LDACQuality is an opaque policy hint. The transport core does not
	// read it.
	LDACQuality string `yaml:"ldac_quality"`

	// ESCOCapable records whether the local adapter supports eSCO links.
	// The transport constructors do not read it: NewSCOTransport takes
	// eSCO support as its supportsESCO argument and forces CVSD when that
	// is false.
	ESCOCapable bool `yaml:"esco_capable"`

	// DrainSettle is the fixed post-drain sleep from spec.md §4.3,
	// exposed as a configurable per the §9 Design Notes redesign flag.
	DrainSettle time.Duration `yaml:"drain_settle"`
}

// policyYAML mirrors Policy but with a string duration field, since
// gopkg.in/yaml.v3 has no built-in time.Duration codec.
type policyYAML struct {
	A2DPSoftVolumePreference bool   `yaml:"a2dp_soft_volume"`
	LDACQuality              string `yaml:"ldac_quality"`
	ESCOCapable              bool   `yaml:"esco_capable"`
	DrainSettle              string `yaml:"drain_settle"`
}

// UnmarshalYAML lets Policy be loaded directly from a codec-policy
// document despite embedding a time.Duration field.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	var raw policyYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.A2DPSoftVolumePreference = raw.A2DPSoftVolumePreference
	p.LDACQuality = raw.LDACQuality
	p.ESCOCapable = raw.ESCOCapable

	if raw.DrainSettle == "" {
		p.DrainSettle = DefaultPolicy().DrainSettle
		return nil
	}
	d, err := time.ParseDuration(raw.DrainSettle)
	if err != nil {
		return err
	}
	p.DrainSettle = d
	return nil
}

// DefaultPolicy returns the policy spec.md's defaults imply: volume is
// delegated to the peer unless the caller opts into local scaling, the
// drain settle time is 200ms, and eSCO capability is assumed absent until
// the adapter reports otherwise.
func DefaultPolicy() Policy {
	return Policy{
		A2DPSoftVolumePreference: false,
		LDACQuality:              "auto",
		ESCOCapable:              false,
		DrainSettle:              200 * time.Millisecond,
	}
}

// Context bundles the collaborators and policy flags a Device/Transport
// needs but that spec.md treats as ambient/global in the original design.
type Context struct {
	// Conn is the shared D-Bus connection used for all BlueZ RPCs.
	Conn *dbus.Conn

	// Policy holds the codec/volume policy flags.
	Policy Policy
}

// NewContext builds a Context around an already-established D-Bus
// connection and a policy snapshot.
func NewContext(conn *dbus.Conn, policy Policy) *Context {
	return &Context{Conn: conn, Policy: policy}
}
