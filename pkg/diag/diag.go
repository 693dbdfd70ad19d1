// Package diag collects compiler diagnostics and renders them for humans.
package diag

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

// Location is a position in a source file.
type Location struct {
	Filename string
	Line     int
	Column   int
}

func (l Location) String() string {
	if l.Filename == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// Before orders locations by line, then column.
func (l Location) Before(o Location) bool {
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Column < o.Column
}

// Kind identifies what went wrong.
type Kind uint8

const (
	Syntax Kind = iota
	Redefinition
	RecursiveMacro
	UnboundVar
	AlreadyBound
	NotBoundInAllConjuncts
	MismatchingNumberOfArgs
	UndeclaredTask
	FailedToUnifyType
	FailedToInferType
	FailedToResolveCall
	OnlySingleAttrAllowed
	OnlyConstExprAllowed
	ExpectedArgumentType
	TooManyClauses
)

var kindNames = [...]string{
	Syntax:                  "Syntax",
	Redefinition:            "Redefinition",
	RecursiveMacro:          "RecursiveMacro",
	UnboundVar:              "UnboundVar",
	AlreadyBound:            "AlreadyBound",
	NotBoundInAllConjuncts:  "NotBoundInAllConjuncts",
	MismatchingNumberOfArgs: "MismatchingNumberOfArgs",
	UndeclaredTask:          "UndeclaredTask",
	FailedToUnifyType:       "FailedToUnifyType",
	FailedToInferType:       "FailedToInferType",
	FailedToResolveCall:     "FailedToResolveCall",
	OnlySingleAttrAllowed:   "OnlySingleAttrAllowed",
	OnlyConstExprAllowed:    "OnlyConstExprAllowed",
	ExpectedArgumentType:    "ExpectedArgumentType",
	TooManyClauses:          "TooManyClauses",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Code is the stable kebab-case identifier, e.g. "recursive-macro".
func (k Kind) Code() string {
	return strcase.ToKebab(k.String())
}

// ArgKind says which field of an Arg is meaningful.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgName
	ArgType
	ArgGroup
)

// Arg is one typed argument of a diagnostic.
type Arg struct {
	Kind ArgKind
	Str  string
	Type types.Tag
}

// Name is an identifier argument.
func Name(s string) Arg { return Arg{Kind: ArgName, Str: s} }

// Type is a type tag argument.
func Type(t types.Tag) Arg { return Arg{Kind: ArgType, Type: t} }

// Group names the category of a declaration ("fact", "task", ...).
func Group(s string) Arg { return Arg{Kind: ArgGroup, Str: s} }

func (a Arg) String() string {
	switch a.Kind {
	case ArgName:
		return fmt.Sprintf("%q", a.Str)
	case ArgType:
		return a.Type.Name()
	case ArgGroup:
		return a.Str
	}
	return ""
}

// MaxArgs is the number of arguments a diagnostic can carry.
const MaxArgs = 3

// Diagnostic is a single reported problem. It is comparable, which is what
// duplicate suppression relies on.
type Diagnostic struct {
	Kind  Kind
	Loc   Location
	Args  [MaxArgs]Arg
	NArgs int
}

// New builds a diagnostic; arguments past MaxArgs are dropped.
func New(kind Kind, loc Location, args ...Arg) Diagnostic {
	d := Diagnostic{Kind: kind, Loc: loc}
	for _, a := range args {
		if d.NArgs == MaxArgs {
			break
		}
		d.Args[d.NArgs] = a
		d.NArgs++
	}
	return d
}

func (d Diagnostic) arg(i int) string {
	if i >= d.NArgs {
		return "?"
	}
	return d.Args[i].String()
}

// Message renders the diagnostic text without location.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case Syntax:
		if d.NArgs > 0 {
			return "syntax error: " + d.Args[0].Str
		}
		return "syntax error"
	case Redefinition:
		return fmt.Sprintf("redefinition of %s %s", d.arg(1), d.arg(0))
	case RecursiveMacro:
		return fmt.Sprintf("recursive macro %s", d.arg(0))
	case UnboundVar:
		return fmt.Sprintf("unbound variable %s", d.arg(0))
	case AlreadyBound:
		return fmt.Sprintf("variable %s is already bound", d.arg(0))
	case NotBoundInAllConjuncts:
		return fmt.Sprintf("variable %s is not bound in all conjuncts of the precondition", d.arg(0))
	case MismatchingNumberOfArgs:
		return fmt.Sprintf("%s %s called with the wrong number of arguments", d.arg(1), d.arg(0))
	case UndeclaredTask:
		return fmt.Sprintf("undeclared task %s", d.arg(0))
	case FailedToUnifyType:
		return fmt.Sprintf("failed to unify type of %s: %s vs %s", d.arg(0), d.arg(1), d.arg(2))
	case FailedToInferType:
		return fmt.Sprintf("failed to infer type of %s", d.arg(0))
	case FailedToResolveCall:
		return fmt.Sprintf("failed to resolve call to %s", d.arg(0))
	case OnlySingleAttrAllowed:
		return fmt.Sprintf("only a single %s attribute is allowed", d.arg(0))
	case OnlyConstExprAllowed:
		return fmt.Sprintf("attribute %s only accepts constant expressions", d.arg(0))
	case ExpectedArgumentType:
		return fmt.Sprintf("argument of %s: expected %s, got %s", d.arg(0), d.arg(1), d.arg(2))
	case TooManyClauses:
		return fmt.Sprintf("precondition of %s expands to too many clauses", d.arg(0))
	}
	return d.Kind.String()
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: error[%s]: %s", d.Loc, d.Kind.Code(), d.Message())
}
