package idl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	includeDirective = regexp.MustCompile(`^include\s+[<"]([^>"]+)[>"]`)
	prefixDirective  = regexp.MustCompile(`^pragma\s+prefix\s+"([^"]*)"`)
)

// Preprocessor expands #include, #define and the conditional directives of an IDL source.
// #pragma lines are kept for the parser, and #line markers record where included text
// came from.
type Preprocessor struct {
	includeDirs    []string
	defines        map[string]string
	includeHandler func(string) (io.Reader, error)

	included map[string]bool
	dirs     []string
	prefix   string
}

type condFrame struct {
	active     bool
	taken      bool
	seenElse   bool
	wasEnabled bool
}

// NewPreprocessor creates a preprocessor searching includeDirs for included files
func NewPreprocessor(includeDirs ...string) *Preprocessor {
	return &Preprocessor{
		includeDirs: includeDirs,
		defines:     make(map[string]string),
	}
}

// SetIncludeHandler replaces the file system lookup of #include directives
func (pp *Preprocessor) SetIncludeHandler(handler func(string) (io.Reader, error)) {
	pp.includeHandler = handler
}

// Define adds a macro; "NAME=value" and "NAME" are both accepted
func (pp *Preprocessor) Define(definition string) {
	name, value, _ := strings.Cut(definition, "=")
	pp.defines[strings.TrimSpace(name)] = strings.TrimSpace(value)
}

// IsDefined reports whether a macro is defined
func (pp *Preprocessor) IsDefined(name string) bool {
	_, ok := pp.defines[name]
	return ok
}

// Process expands the source of the compilation unit name. Every file is included at
// most once per call.
func (pp *Preprocessor) Process(name string, r io.Reader) (string, error) {
	pp.included = map[string]bool{name: true}
	pp.dirs = []string{filepath.Dir(name)}
	pp.prefix = ""
	var out bytes.Buffer
	if err := pp.process(name, r, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// ProcessFile reads and expands a file
func (pp *Preprocessor) ProcessFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pp.Process(path, bytes.NewReader(data))
}

func (pp *Preprocessor) process(name string, r io.Reader, out *bytes.Buffer) error {
	var stack []condFrame
	enabled := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if !strings.HasPrefix(trimmed, "#") {
			if enabled() {
				out.WriteString(pp.substitute(text))
			}
			out.WriteByte('\n')
			continue
		}

		directive := strings.TrimSpace(trimmed[1:])
		keyword := firstWord(directive)
		rest := strings.TrimSpace(strings.TrimPrefix(directive, keyword))
		where := fmt.Sprintf("%s:%d", name, line)

		switch keyword {
		case "ifdef", "ifndef":
			defined := pp.IsDefined(firstWord(rest))
			cond := defined == (keyword == "ifdef")
			stack = append(stack, condFrame{active: enabled() && cond, taken: cond, wasEnabled: enabled()})
		case "else":
			if len(stack) == 0 || stack[len(stack)-1].seenElse {
				return fmt.Errorf("%s: unexpected #else", where)
			}
			top := &stack[len(stack)-1]
			top.seenElse = true
			top.active = top.wasEnabled && !top.taken
		case "endif":
			if len(stack) == 0 {
				return fmt.Errorf("%s: unexpected #endif", where)
			}
			stack = stack[:len(stack)-1]
		case "define":
			if enabled() {
				if rest == "" {
					return fmt.Errorf("%s: #define without a name", where)
				}
				macro := firstWord(rest)
				pp.defines[macro] = strings.TrimSpace(strings.TrimPrefix(rest, macro))
			}
		case "undef":
			if enabled() {
				delete(pp.defines, firstWord(rest))
			}
		case "include":
			if enabled() {
				m := includeDirective.FindStringSubmatch(directive)
				if m == nil {
					return fmt.Errorf("%s: invalid include directive: %s", where, trimmed)
				}
				if err := pp.include(m[1], out); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
				fmt.Fprintf(out, "#line %d %q\n", line+1, name)
				continue
			}
		case "pragma":
			if enabled() {
				if m := prefixDirective.FindStringSubmatch(directive); m != nil {
					pp.prefix = m[1]
				}
				out.WriteString(trimmed)
			}
		default:
			return fmt.Errorf("%s: unsupported preprocessor directive: %s", where, trimmed)
		}
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(stack) != 0 {
		return fmt.Errorf("%s: missing #endif", name)
	}
	return nil
}

// include expands an included file in place. The file does not inherit the prefix of the
// including file, and the including file's prefix is restored afterwards.
func (pp *Preprocessor) include(file string, out *bytes.Buffer) error {
	path, r, err := pp.open(file)
	if err != nil {
		return fmt.Errorf("failed to handle include %s: %w", file, err)
	}
	if pp.included[path] {
		return nil
	}
	pp.included[path] = true

	saved := pp.prefix
	if saved != "" {
		out.WriteString("#pragma prefix \"\"\n")
		pp.prefix = ""
	}
	fmt.Fprintf(out, "#line 1 %q\n", path)
	pp.dirs = append(pp.dirs, filepath.Dir(path))
	err = pp.process(path, r, out)
	pp.dirs = pp.dirs[:len(pp.dirs)-1]
	if err != nil {
		return err
	}
	if pp.prefix != saved {
		fmt.Fprintf(out, "#pragma prefix %q\n", saved)
		pp.prefix = saved
	}
	return nil
}

func (pp *Preprocessor) open(file string) (string, io.Reader, error) {
	if pp.includeHandler != nil {
		r, err := pp.includeHandler(file)
		return file, r, err
	}
	candidates := []string{file}
	if !filepath.IsAbs(file) {
		candidates = candidates[:0]
		candidates = append(candidates, filepath.Join(pp.dirs[len(pp.dirs)-1], file))
		for _, dir := range pp.includeDirs {
			candidates = append(candidates, filepath.Join(dir, file))
		}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return filepath.Clean(path), bytes.NewReader(data), nil
		}
	}
	return "", nil, errors.New("file not found in include path")
}

// substitute replaces macros that have a value, outside of string and char literals
func (pp *Preprocessor) substitute(line string) string {
	if len(pp.defines) == 0 {
		return line
	}
	var b strings.Builder
	runes := []rune(line)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			j := i + 1
			for j < len(runes) && runes[j] != r {
				if runes[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(runes))
			b.WriteString(string(runes[i:j]))
			i = j
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			b.WriteString(string(runes[i:]))
			i = len(runes)
		case isLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (isLetter(runes[j]) || isDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			if value, ok := pp.defines[word]; ok && value != "" {
				word = value
			}
			b.WriteString(word)
			i = j
		default:
			b.WriteRune(r)
			i++
		}
	}
	return b.String()
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
