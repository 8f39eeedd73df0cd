package persist

import (
	"bytes"
	"fmt"
	"go/format"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"

	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

// SourceWriter renders a module as Go source, one file per namespace, all in one package
type SourceWriter struct {
	packageName string
	outputDir   string
	templates   *template.Template
	logger      *slog.Logger
	written     []string
}

// NewSourceWriter creates a source writer. An empty package name is derived from the
// module name.
func NewSourceWriter(packageName string, logger *slog.Logger) *SourceWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceWriter{packageName: packageName, logger: logger}
}

// BeginModule prepares the output directory and the templates
func (w *SourceWriter) BeginModule(name, outputLocation string) error {
	if outputLocation == "" {
		outputLocation = "."
	}
	w.outputDir = outputLocation
	if w.packageName == "" {
		w.packageName = strings.ToLower(identifier(name))
	}
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return err
	}
	return w.initTemplates()
}

// Files returns the paths written by SaveModule
func (w *SourceWriter) Files() []string {
	return w.written
}

// Initialize the templates used for code generation
func (w *SourceWriter) initTemplates() error {
	w.templates = template.New("idl").Funcs(template.FuncMap{
		"capitalize":  capitalize,
		"goName":      goName,
		"goType":      goType,
		"fieldName":   fieldName,
		"signature":   signature,
		"ownMembers":  ownMembers,
		"operations":  operations,
		"factories":   factories,
		"caseLabels":  caseLabels,
		"otherLabels": otherLabels,
		"firstLabel":  firstLabel,
		"hasDefault":  hasDefault,
		"constDecl":   constDecl,
		"quote":       strconv.Quote,
		"deref":       deref,
	})

	for _, tmpl := range []struct {
		name string
		text string
	}{
		{"file", fileTemplate},
		{"interface", interfaceTemplate},
		{"struct", structTemplate},
		{"exception", exceptionTemplate},
		{"enum", enumTemplate},
		{"union", unionTemplate},
		{"value", valueTemplate},
		{"abstractvalue", abstractValueTemplate},
		{"valuebox", valueBoxTemplate},
		{"const", constTemplate},
	} {
		if _, err := w.templates.New(tmpl.name).Parse(tmpl.text); err != nil {
			return err
		}
	}
	return nil
}

// SaveModule writes one file per namespace of m
func (w *SourceWriter) SaveModule(m *typesys.Module) error {
	if w.templates == nil {
		return ErrNotBegun
	}
	for _, ns := range m.Namespaces() {
		if err := w.generateNamespace(m, ns); err != nil {
			return err
		}
	}
	return nil
}

func (w *SourceWriter) generateNamespace(m *typesys.Module, ns string) error {
	types := m.InNamespace(ns)
	var body bytes.Buffer
	for _, t := range types {
		name := templateFor(t)
		if name == "" {
			continue
		}
		if err := w.templates.ExecuteTemplate(&body, name, t); err != nil {
			return fmt.Errorf("failed to render %s: %w", t.QualifiedName(), err)
		}
	}

	var buf bytes.Buffer
	err := w.templates.ExecuteTemplate(&buf, "file", map[string]any{
		"Package":   w.packageName,
		"Namespace": ns,
		"Imports":   collectImports(types),
	})
	if err != nil {
		return err
	}
	buf.Write(body.Bytes())

	file := strings.ToLower(identifier(ns))
	if file == "" {
		file = strings.ToLower(identifier(m.Name))
	}
	filename := filepath.Join(w.outputDir, file+".go")
	// Use goimports for better formatting and import grouping
	formatted, err := imports.Process(filename, buf.Bytes(), nil)
	if err != nil {
		// Fallback to go/format if goimports fails
		formatted, err = format.Source(buf.Bytes())
		if err != nil {
			// If formatting fails, write the unformatted code for debugging
			if werr := os.WriteFile(filename+".unformatted", buf.Bytes(), 0644); werr != nil {
				return werr
			}
			return fmt.Errorf("failed to format generated code for %s: %w", ns, err)
		}
	}
	if err := os.WriteFile(filename, formatted, 0644); err != nil {
		return err
	}
	w.written = append(w.written, filename)
	w.logger.Debug("source written", "namespace", ns, "path", filename, "types", len(types))
	return nil
}

func templateFor(t *typesys.Type) string {
	switch t.Kind {
	case typesys.TC_OBJREF:
		return "interface"
	case typesys.TC_STRUCT:
		return "struct"
	case typesys.TC_EXCEPT:
		return "exception"
	case typesys.TC_ENUM:
		return "enum"
	case typesys.TC_UNION:
		return "union"
	case typesys.TC_VALUE:
		if t.IsAbstractValue() {
			return "abstractvalue"
		}
		return "value"
	case typesys.TC_VALUE_BOX:
		return "valuebox"
	case typesys.TC_CONST_HOLDER:
		return "const"
	}
	return ""
}

// identifier replaces every character that can't appear in a Go identifier
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// capitalize returns a string with first letter capitalized
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// uncapitalize returns a string with first letter lowercased
func uncapitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// goName is the package level name of a generated type: the namespace parts and the
// type name, capitalized and joined with "_"
func goName(t *typesys.Type) string {
	var parts []string
	if t.Namespace != "" {
		parts = strings.Split(t.Namespace, ".")
	}
	parts = append(parts, t.Name)
	for i, p := range parts {
		parts[i] = capitalize(identifier(p))
	}
	return strings.Join(parts, "_")
}

func goType(d typesys.TypeDescriptor) string {
	t := d.Type
	if t == nil {
		return ""
	}
	switch t.Kind {
	case typesys.TC_VOID:
		return ""
	case typesys.TC_SHORT:
		return "int16"
	case typesys.TC_LONG:
		return "int32"
	case typesys.TC_LONGLONG:
		return "int64"
	case typesys.TC_USHORT:
		return "uint16"
	case typesys.TC_ULONG:
		return "uint32"
	case typesys.TC_ULONGLONG:
		return "uint64"
	case typesys.TC_FLOAT:
		return "float32"
	case typesys.TC_DOUBLE:
		return "float64"
	case typesys.TC_BOOLEAN:
		return "bool"
	case typesys.TC_CHAR, typesys.TC_OCTET:
		return "byte"
	case typesys.TC_WCHAR:
		return "rune"
	case typesys.TC_STRING, typesys.TC_WSTRING:
		return "string"
	case typesys.TC_ANY, typesys.TC_TYPECODE:
		return "any"
	case typesys.TC_SEQUENCE:
		return "[]" + goType(*t.Elem)
	case typesys.TC_ARRAY:
		dims := ""
		for _, tag := range d.Tags {
			if a, ok := tag.(typesys.ArrayTag); ok && a.Order == 0 {
				for _, n := range a.Dims {
					dims += "[" + strconv.Itoa(n) + "]"
				}
			}
		}
		return dims + goType(*t.Elem)
	case typesys.TC_EXTERNAL:
		if t.Namespace == "" {
			return t.Name
		}
		return path.Base(t.Namespace) + "." + t.Name
	case typesys.TC_OBJREF:
		if typesys.IsBuiltin(t) {
			return "any"
		}
		return goName(t)
	case typesys.TC_VALUE:
		if t.IsAbstractValue() {
			return goName(t)
		}
		return "*" + goName(t)
	case typesys.TC_VALUE_BOX:
		return "*" + goName(t)
	}
	return goName(t)
}

func deref(d *typesys.TypeDescriptor) typesys.TypeDescriptor {
	if d == nil {
		return typesys.TypeDescriptor{}
	}
	return *d
}

func fieldName(f typesys.Field) string {
	if f.Private {
		return symtab.MapName(uncapitalize(f.Name))
	}
	return capitalize(f.Name)
}

func paramName(name string) string {
	return symtab.MapName(uncapitalize(name))
}

// signature renders a member as a Go method: in and inout parameters are arguments, the
// result, out and inout parameters are results, followed by an error
func signature(m typesys.Member) string {
	var params, results []string
	if r := goType(m.Result); r != "" {
		results = append(results, r)
	}
	for _, p := range m.Params {
		switch p.Mode {
		case typesys.PARAM_IN:
			params = append(params, paramName(p.Name)+" "+goType(p.Type))
		case typesys.PARAM_INOUT:
			params = append(params, paramName(p.Name)+" "+goType(p.Type))
			results = append(results, goType(p.Type))
		case typesys.PARAM_OUT:
			results = append(results, goType(p.Type))
		}
	}
	results = append(results, "error")

	name := capitalize(m.Name)
	switch m.Kind {
	case typesys.MemberGetter:
		name = "Get" + name
	case typesys.MemberSetter:
		name = "Set" + name
	}
	if len(results) == 1 {
		return fmt.Sprintf("%s(%s) error", name, strings.Join(params, ", "))
	}
	return fmt.Sprintf("%s(%s) (%s)", name, strings.Join(params, ", "), strings.Join(results, ", "))
}

// ownMembers returns the members declared by t itself; inherited ones come with the
// embedded base interfaces
func ownMembers(t *typesys.Type) []typesys.Member {
	var result []typesys.Member
	for _, m := range t.Members {
		if m.Origin == t.RepositoryID {
			result = append(result, m)
		}
	}
	return result
}

func operations(t *typesys.Type) []typesys.Member {
	var result []typesys.Member
	for _, m := range t.Members {
		switch m.Kind {
		case typesys.MemberOperation, typesys.MemberGetter, typesys.MemberSetter:
			result = append(result, m)
		}
	}
	return result
}

func factories(t *typesys.Type) []typesys.Member {
	var result []typesys.Member
	for _, m := range t.Members {
		if m.Kind == typesys.MemberFactory {
			result = append(result, m)
		}
	}
	return result
}

func renderLabel(u *typesys.Type, v any) string {
	if u.Discriminator.Type.Kind == typesys.TC_ENUM {
		return fmt.Sprintf("%s(%v)", goName(u.Discriminator.Type), v)
	}
	return fmt.Sprint(v)
}

func explicitLabels(u *typesys.Type, labels []any) []string {
	var result []string
	for _, l := range labels {
		if !typesys.IsDefaultLabel(l) {
			result = append(result, renderLabel(u, l))
		}
	}
	return result
}

func caseLabels(u *typesys.Type, c typesys.UnionCase) string {
	return strings.Join(explicitLabels(u, c.Labels), ", ")
}

// otherLabels lists the labels of every case but c
func otherLabels(u *typesys.Type, c typesys.UnionCase) string {
	var result []string
	for _, other := range u.Cases {
		if other.Name != c.Name {
			result = append(result, explicitLabels(u, other.Labels)...)
		}
	}
	return strings.Join(result, ", ")
}

func firstLabel(u *typesys.Type, c typesys.UnionCase) string {
	if labels := explicitLabels(u, c.Labels); len(labels) > 0 {
		return labels[0]
	}
	return ""
}

func hasDefault(c typesys.UnionCase) bool {
	for _, l := range c.Labels {
		if typesys.IsDefaultLabel(l) {
			return true
		}
	}
	return false
}

// constDecl renders a constant holder as a Go constant, or as a variable when the value
// has no constant form
func constDecl(t *typesys.Type) string {
	c := t.Const
	name := goName(t)
	typ := goType(c.Type)
	switch v := c.Value.(type) {
	case string:
		return fmt.Sprintf("const %s %s = %s", name, typ, strconv.Quote(v))
	case float32:
		return floatDecl(name, typ, float64(v), 32)
	case float64:
		return floatDecl(name, typ, v, 64)
	}
	if c.Type.Type.Kind == typesys.TC_ENUM {
		return fmt.Sprintf("var %s = %s(%v)", name, typ, c.Value)
	}
	return fmt.Sprintf("const %s %s = %v", name, typ, c.Value)
}

func floatDecl(name, typ string, v float64, bits int) string {
	switch {
	case math.IsInf(v, 1):
		return fmt.Sprintf("var %s = %s(math.Inf(1))", name, typ)
	case math.IsInf(v, -1):
		return fmt.Sprintf("var %s = %s(math.Inf(-1))", name, typ)
	case math.IsNaN(v):
		return fmt.Sprintf("var %s = %s(math.NaN())", name, typ)
	}
	return fmt.Sprintf("const %s %s = %s", name, typ, strconv.FormatFloat(v, 'g', -1, bits))
}

// collectImports returns the import paths of the external types the types refer to
func collectImports(types []*typesys.Type) []string {
	seen := map[string]bool{"math": true, "strconv": true}
	var add func(d typesys.TypeDescriptor)
	add = func(d typesys.TypeDescriptor) {
		if d.Type == nil {
			return
		}
		if d.Type.Kind == typesys.TC_EXTERNAL && d.Type.ImportPath != "" {
			seen[d.Type.ImportPath] = true
		}
		if d.Type.Elem != nil && (d.Type.Kind == typesys.TC_SEQUENCE || d.Type.Kind == typesys.TC_ARRAY) {
			add(*d.Type.Elem)
		}
	}
	for _, t := range types {
		for _, f := range t.Fields {
			add(f.Type)
		}
		for _, m := range t.Members {
			add(m.Result)
			for _, p := range m.Params {
				add(p.Type)
			}
		}
		for _, c := range t.Cases {
			add(c.Type)
		}
		if t.Elem != nil {
			add(*t.Elem)
		}
	}
	result := make([]string, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Template for Go file header
const fileTemplate = `// Code generated by idlgen. DO NOT EDIT.
{{- if .Namespace}}
// IDL namespace {{.Namespace}}
{{- end}}

package {{.Package}}

import (
{{- range .Imports}}
	{{quote .}}
{{- end}}
)
`

// Template for Go interface from IDL interface
const interfaceTemplate = `
// {{goName .}} is the {{.Flavor}} IDL interface {{.RepositoryID}}
type {{goName .}} interface {
{{- range .Interfaces}}
	{{goName .}}
{{- end}}
{{- range ownMembers .}}
	{{signature .}}
{{- end}}
}

// {{goName .}}RepositoryID identifies {{goName .}}
const {{goName .}}RepositoryID = {{quote .RepositoryID}}
`

// Template for Go struct from IDL struct
const structTemplate = `
// {{goName .}} is the IDL struct {{.RepositoryID}}
type {{goName .}} struct {
{{- range .Fields}}
	{{fieldName .}} {{goType .Type}}
{{- end}}
}

// RepositoryID returns the repository id of {{goName .}}
func ({{goName .}}) RepositoryID() string {
	return {{quote .RepositoryID}}
}
`

// Template for Go error type from IDL exception
const exceptionTemplate = `
// {{goName .}} is the IDL exception {{.RepositoryID}}
type {{goName .}} struct {
{{- range .Fields}}
	{{fieldName .}} {{goType .Type}}
{{- end}}
}

// RepositoryID returns the repository id of {{goName .}}
func ({{goName .}}) RepositoryID() string {
	return {{quote .RepositoryID}}
}

func (e *{{goName .}}) Error() string {
	return "IDL exception " + {{quote .RepositoryID}}
}
`

// Template for Go enum from IDL enum
const enumTemplate = `
// {{goName .}} is the IDL enum {{.RepositoryID}}
type {{goName .}} uint32

const (
{{- range $i, $e := .Enumerators}}
	{{goName $}}_{{$e}} {{goName $}} = {{$i}}
{{- end}}
)

// String converts the enum to a string
func (e {{goName .}}) String() string {
	switch e {
{{- range .Enumerators}}
	case {{goName $}}_{{.}}:
		return {{quote .}}
{{- end}}
	}
	return "{{goName .}}(" + strconv.FormatUint(uint64(e), 10) + ")"
}
`

// Template for Go union from IDL union
const unionTemplate = `
// {{goName .}} is the IDL union {{.RepositoryID}}
type {{goName .}} struct {
	Discriminant {{goType (deref .Discriminator)}}
	Value        any
}
{{- range .Cases}}
{{- $c := .}}

// Get{{capitalize $c.Name}} returns the {{$c.Name}} value if it is the active case
func (u *{{goName $}}) Get{{capitalize $c.Name}}() ({{goType $c.Type}}, bool) {
{{- if hasDefault $c}}
{{- with otherLabels $ $c}}
	switch u.Discriminant {
	case {{.}}:
		var zero {{goType $c.Type}}
		return zero, false
	}
{{- end}}
{{- else}}
	switch u.Discriminant {
	case {{caseLabels $ $c}}:
	default:
		var zero {{goType $c.Type}}
		return zero, false
	}
{{- end}}
	v, ok := u.Value.({{goType $c.Type}})
	return v, ok
}
{{- with firstLabel $ $c}}

// Set{{capitalize $c.Name}} makes {{$c.Name}} the active case
func (u *{{goName $}}) Set{{capitalize $c.Name}}(value {{goType $c.Type}}) {
	u.Discriminant = {{.}}
	u.Value = value
}
{{- else}}

// Set{{capitalize $c.Name}} makes {{$c.Name}} the active case under the given discriminant
func (u *{{goName $}}) Set{{capitalize $c.Name}}(discriminant {{goType (deref $.Discriminator)}}, value {{goType $c.Type}}) {
	u.Discriminant = discriminant
	u.Value = value
}
{{- end}}
{{- end}}

// RepositoryID returns the repository id of {{goName .}}
func ({{goName .}}) RepositoryID() string {
	return {{quote .RepositoryID}}
}
`

// Template for Go struct from IDL concrete value type
const valueTemplate = `
// {{goName .}} is the IDL value type {{.RepositoryID}}
type {{goName .}} struct {
{{- with .Parent}}
	{{goName .}}
{{- end}}
{{- range .Fields}}
	{{fieldName .}} {{goType .Type}}
{{- end}}
}

// RepositoryID returns the repository id of {{goName .}}
func (*{{goName .}}) RepositoryID() string {
	return {{quote .RepositoryID}}
}
{{- if .ImplExpected}}

// {{goName .}}Operations is implemented by the user supplied implementation of {{goName .}}
type {{goName .}}Operations interface {
{{- range operations .}}
	{{signature .}}
{{- end}}
}
{{- end}}
{{- with factories .}}

// {{goName $}}Factory creates {{goName $}} values
type {{goName $}}Factory interface {
{{- range .}}
	{{signature .}}
{{- end}}
}
{{- end}}
`

// Template for Go interface from IDL abstract value type
const abstractValueTemplate = `
// {{goName .}} is the abstract IDL value type {{.RepositoryID}}
type {{goName .}} interface {
{{- range .Interfaces}}
	{{goName .}}
{{- end}}
{{- range ownMembers .}}
	{{signature .}}
{{- end}}
}
`

// Template for Go struct from IDL value box
const valueBoxTemplate = `
// {{goName .}} boxes {{goType (deref .Elem)}} as the IDL value type {{.RepositoryID}}
type {{goName .}} struct {
	Value {{goType (deref .Elem)}}
}
`

// Template for Go constant from IDL constant
const constTemplate = `
// {{goName .}} is the IDL constant {{.RepositoryID}}
{{constDecl .}}
`
