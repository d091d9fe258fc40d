package ia32

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/firmgo/firmgo/internal/diagnostics"
)

// ValidationError is one textual-assembly defect found by Validator,
// grounded on the teacher's post-generation sanity pass over its own
// output rather than on anything the IR side already checked.
type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

// Validator re-parses EmitText's own output as a second, independent
// check — a syntax or calling-convention slip in a future emitNode change
// shows up here even if every unit test around the IR side still passes.
type Validator struct {
	errors []ValidationError
	warns  []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

var validRegs32 = map[string]bool{
	"%eax": true, "%ebx": true, "%ecx": true, "%edx": true,
	"%esi": true, "%edi": true, "%ebp": true, "%esp": true,
	"%al": true, "%bl": true, "%cl": true, "%dl": true,
	"%ah": true, "%bh": true, "%ch": true, "%dh": true,
	"%st": true,
}

var regPattern = regexp.MustCompile(`%[a-z0-9]+`)

func isValidReg(reg string) bool {
	return validRegs32[reg]
}

var calleeSavedRegs = map[string]bool{"%ebx": true, "%esi": true, "%edi": true, "%ebp": true}

var validInsnPrefixes = []string{
	"mov", "push", "pop", "add", "sub", "imul", "idiv", "cdq",
	"cmp", "test", "set", "jmp", "jnz", "jz", "je", "jne", "jp",
	"j", "call", "ret", "lea", "and", "or", "xor", "not", "neg",
	"shl", "shr", "sal", "sar", "inc", "dec", "leave", "enter",
	"cmov", "cld", "movs", "xchg", "ucomis", "fadd", "fsub", "fmul",
	"fdiv", "fld", "fstp", "align",
}

// Validate runs the full pass and returns a combined error if anything
// fatal was found; warnings are logged, not returned, matching the
// teacher's "warn but don't fail the build" split.
func (v *Validator) Validate(assembly string) error {
	lines := strings.Split(assembly, "\n")

	v.validateSyntax(lines)
	v.validateRegisters(lines)
	v.validateCalleeSavedRestored(lines)
	v.validateStackBalance(lines)
	v.validateMemoryToMemory(lines)
	v.validateScaleFactors(lines)
	v.detectRedundantMoves(lines)

	if len(v.errors) > 0 {
		return v.formatErrors()
	}
	v.logWarnings()
	return nil
}

func (v *Validator) validateSyntax(lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(line, "\t") && !isValidInstruction(trimmed) {
			v.addError(i+1, "malformed instruction", trimmed)
		}
		if strings.HasSuffix(trimmed, ":") && strings.Contains(trimmed, " ") {
			v.addError(i+1, "invalid label format (contains spaces)", trimmed)
		}
	}
}

func isValidInstruction(line string) bool {
	if strings.HasPrefix(line, ".") {
		return true
	}
	for _, p := range validInsnPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func (v *Validator) validateRegisters(lines []string) {
	for i, line := range lines {
		for _, reg := range regPattern.FindAllString(line, -1) {
			if !isValidReg(reg) {
				v.addError(i+1, fmt.Sprintf("invalid register: %s", reg), line)
			}
		}
	}
}

// validateCalleeSavedRestored mirrors the teacher's calling-convention
// check, scaled down to what this emitter actually owns: callee-saved
// registers pushed in a function's prologue must be popped before its
// final ret.
func (v *Validator) validateCalleeSavedRestored(lines []string) {
	inFunction := false
	saved := make(map[string]bool)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(trimmed, ".L") {
			inFunction = true
			saved = make(map[string]bool)
			continue
		}
		if !inFunction {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 2 && strings.HasPrefix(fields[0], "push") && calleeSavedRegs[fields[1]] {
			saved[fields[1]] = true
		}
		if len(fields) == 2 && strings.HasPrefix(fields[0], "pop") {
			delete(saved, fields[1])
		}
		if strings.HasPrefix(trimmed, "ret") {
			if len(saved) > 0 {
				v.addError(i+1, fmt.Sprintf("callee-saved registers not restored: %v", saved), trimmed)
			}
			inFunction = false
		}
	}
}

func (v *Validator) validateStackBalance(lines []string) {
	inFunction := false
	depth := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(trimmed, ".L") {
			inFunction = true
			depth = 0
			continue
		}
		if !inFunction {
			continue
		}
		if strings.HasPrefix(trimmed, "push") {
			depth++
		}
		if strings.HasPrefix(trimmed, "pop") {
			depth--
		}
		if strings.HasPrefix(trimmed, "ret") {
			if depth < 0 {
				v.addError(i+1, "stack underflow detected", trimmed)
			}
			inFunction = false
		}
	}
}

func (v *Validator) validateMemoryToMemory(lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "mov") {
			continue
		}
		parts := strings.SplitN(trimmed, " ", 2)
		if len(parts) != 2 {
			continue
		}
		operands := strings.Split(parts[1], ",")
		if len(operands) != 2 {
			continue
		}
		if isMemoryOperand(operands[0]) && isMemoryOperand(strings.TrimSpace(operands[1])) {
			v.addError(i+1, "IA-32 doesn't support memory-to-memory moves", trimmed)
		}
	}
}

func isMemoryOperand(s string) bool {
	return strings.Contains(s, "(") && strings.Contains(s, ")")
}

var scalePattern = regexp.MustCompile(`\(%[a-z0-9]*,%[a-z0-9]+,(\d+)\)`)

func (v *Validator) validateScaleFactors(lines []string) {
	for i, line := range lines {
		for _, m := range scalePattern.FindAllStringSubmatch(line, -1) {
			switch m[1] {
			case "1", "2", "4", "8":
			default:
				v.addError(i+1, fmt.Sprintf("invalid scale factor: %s (must be 1, 2, 4, or 8)", m[1]), line)
			}
		}
	}
}

func (v *Validator) detectRedundantMoves(lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "mov") {
			continue
		}
		parts := strings.SplitN(trimmed, " ", 2)
		if len(parts) != 2 {
			continue
		}
		operands := strings.Split(parts[1], ",")
		if len(operands) != 2 {
			continue
		}
		src := strings.TrimSpace(operands[0])
		dst := strings.TrimSpace(operands[1])
		if src == dst {
			v.addWarn(i+1, fmt.Sprintf("redundant move: source and destination are identical (%s)", src), trimmed)
		}
	}
}

func (v *Validator) addError(line int, msg, code string) {
	v.errors = append(v.errors, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) addWarn(line int, msg, code string) {
	v.warns = append(v.warns, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) formatErrors() error {
	var sb strings.Builder
	sb.WriteString("assembly validation failed:\n")
	for _, e := range v.errors {
		sb.WriteString("  " + e.Error() + "\n")
	}
	return fmt.Errorf("%s", sb.String())
}

func (v *Validator) logWarnings() {
	for _, w := range v.warns {
		diagnostics.Warn("assembly validation warning", "line", w.Line, "msg", w.Message)
	}
}

// ValidateProgram validates one function's emitted text, matching
// EmitText's output contract.
func ValidateProgram(assembly string) error {
	return NewValidator().Validate(assembly)
}
