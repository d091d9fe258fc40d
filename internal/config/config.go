// Package config loads compiler-wide tunables from a TOML file: register
// class sizes, GVN-PRE iteration caps, emission format, and the block
// alignment frequency threshold (spec §4.A, §4.B, §4.C.1).
//
// The teacher keeps every knob as a literal Go struct value constructed in
// code (regalloc.Config, amd64's ArgRegs/CalleeSaved/CallerSaved vars).
// That shape is kept — Config below mirrors it field-for-field — but made
// file-loadable, since a real backend core ships tunables (spec §9 Open
// Question (b) names two inconsistently-named flags that hint the original
// treated these as run-time, not compile-time, knobs) as data, not
// recompiles. github.com/BurntSushi/toml is the pack's natural choice for
// a small, hand-editable options file.
package config

import "github.com/BurntSushi/toml"

// Config is the full set of tunables the core consumes.
type Config struct {
	GeneralPurpose RegisterClass `toml:"general_purpose"`
	X87Stack       RegisterClass `toml:"x87_stack"`

	GVNPRE GVNPRE `toml:"gvn_pre"`

	Emit Emit `toml:"emit"`
}

// RegisterClass names a class of interchangeable physical registers, the
// caller-supplied "class of N registers" spec §4.A's contract requires.
type RegisterClass struct {
	Name      string   `toml:"name"`
	Registers []string `toml:"registers"`
}

// N is the class size (spec §4.A: "the caller-supplied class of N registers").
func (c RegisterClass) N() int { return len(c.Registers) }

// GVNPRE holds the two iteration caps spec §4.B names explicitly.
// SuppressInfLoops only controls whether hitting AnticIterationCap is
// logged; it removes nothing from antic_in.
type GVNPRE struct {
	AnticIterationCap  int  `toml:"antic_iteration_cap"`  // default 10
	InsertIterationCap int  `toml:"insert_iteration_cap"` // default 3
	SuppressInfLoops   bool `toml:"suppress_infinite_loop_antic"`
}

// Emit holds emitter-facing knobs (spec §4.C.1). AlignFreqThreshold is
// loaded but not read by the emitter: ia32.EmitText aligns blocks whose
// frequency exceeds a fixed 0.1, the same value as the default here.
type Emit struct {
	Binary             bool    `toml:"binary"`
	AlignFreqThreshold float64 `toml:"align_freq_threshold"`
}

// Default returns the configuration the teacher's amd64 generator hardcodes,
// translated to IA-32: the general-purpose set is EAX/EBX/ECX/EDX/ESI/EDI;
// neither ESP nor EBP is allocatable.
func Default() Config {
	return Config{
		GeneralPurpose: RegisterClass{
			Name:      "gp",
			Registers: []string{"%eax", "%ebx", "%ecx", "%edx", "%esi", "%edi"},
		},
		X87Stack: RegisterClass{
			Name:      "x87",
			Registers: []string{"%st0", "%st1", "%st2", "%st3", "%st4", "%st5", "%st6", "%st7"},
		},
		GVNPRE: GVNPRE{
			AnticIterationCap:  10,
			InsertIterationCap: 3,
			SuppressInfLoops:   true,
		},
		Emit: Emit{
			Binary:             false,
			AlignFreqThreshold: 0.1,
		},
	}
}

// Load reads a TOML config file. Decoding starts from Default so any table
// the file omits keeps its built-in values.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
