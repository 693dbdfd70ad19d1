// Package parser reads the planning domain language into a raw syntax tree.
//
//	fact { @size(64) location(id32, id32) }
//	prim { walk(id32, id32) }
//	domain travel {
//	    macro near(a, b) = distance(a, b, d) & d < 3.0
//	    task travel(x, y) {
//	        case near(x, y) -> [walk(x, y)]
//	    }
//	}
//
// The tree it builds is untyped and unnormalized; task parameters are Any,
// fact parameters carry their declared types.
package parser

import (
	"fmt"
	"strconv"

	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

// Error is a syntax error. Parsing stops at the first one.
type Error struct {
	Loc diag.Location
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

type parser struct {
	filename string
	lex      *Lexer
	tok      Token
	tree     *ast.Tree
}

// Parse appends the declarations of src to t's root.
func Parse(t *ast.Tree, filename, src string) error {
	p := &parser{filename: filename, lex: NewLexer(src), tree: t}
	p.next()
	for !p.at(EOF) {
		if err := p.block(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) next() { p.tok = p.lex.Next() }

func (p *parser) at(tt TokenType) bool { return p.tok.Type == tt }

func (p *parser) atKeyword(word string) bool {
	return p.tok.Type == IDENT && p.tok.Lexeme == word
}

func (p *parser) accept(tt TokenType) bool {
	if p.at(tt) {
		p.next()
		return true
	}
	return false
}

func (p *parser) need(tt TokenType) (Token, error) {
	t := p.tok
	if t.Type != tt {
		return t, p.errorf(t, "expected %s, got %s", tt, t)
	}
	p.next()
	return t, nil
}

func (p *parser) needKeyword(word string) error {
	if !p.atKeyword(word) {
		return p.errorf(p.tok, "expected %q, got %s", word, p.tok)
	}
	p.next()
	return nil
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	return &Error{Loc: p.loc(t), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) loc(t Token) diag.Location {
	return t.loc(p.filename)
}

func (p *parser) block() error {
	switch {
	case p.atKeyword("fact"):
		return p.factBlock(ast.KindWorld, p.tree.World())
	case p.atKeyword("prim"):
		return p.factBlock(ast.KindPrimitive, p.tree.Primitives())
	case p.atKeyword("domain"):
		if p.tree.DomainNode() != nil {
			return p.errorf(p.tok, "only one domain is allowed")
		}
		return p.domain()
	}
	return p.errorf(p.tok, "expected \"fact\", \"prim\" or \"domain\", got %s", p.tok)
}

// factBlock parses a fact or prim block. Repeated blocks of one kind merge.
func (p *parser) factBlock(kind ast.Kind, block *ast.Node) error {
	start := p.tok
	p.next()
	if block == nil {
		block = p.tree.New(kind, p.loc(start))
		ast.AppendChild(p.tree.Root, block)
	}
	if _, err := p.need(LCURLY); err != nil {
		return err
	}
	for !p.accept(RCURLY) {
		fact, err := p.factDecl()
		if err != nil {
			return err
		}
		ast.AppendChild(block, fact)
	}
	return nil
}

func (p *parser) factDecl() (*ast.Node, error) {
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}
	name, err := p.need(IDENT)
	if err != nil {
		return nil, err
	}
	fact := p.tree.NewNamed(ast.KindFact, name.Lexeme, p.loc(name))
	for _, a := range attrs {
		ast.AppendChild(fact, a)
	}
	if _, err := p.need(LROUND); err != nil {
		return nil, err
	}
	for !p.accept(RROUND) {
		if fact.ChildCount() > len(attrs) {
			if _, err := p.need(COMMA); err != nil {
				return nil, err
			}
		}
		typeTok, err := p.need(IDENT)
		if err != nil {
			return nil, err
		}
		tag, ok := types.Parse(typeTok.Lexeme)
		if !ok {
			return nil, p.errorf(typeTok, "unknown type %q", typeTok.Lexeme)
		}
		param := p.tree.NewParam("", p.loc(typeTok))
		param.Type = tag
		ast.AppendChild(fact, param)
	}
	return fact, nil
}

func (p *parser) attributes() ([]*ast.Node, error) {
	var attrs []*ast.Node
	for p.at(AT) {
		at := p.tok
		p.next()
		name, err := p.need(IDENT)
		if err != nil {
			return nil, err
		}
		attr := p.tree.NewNamed(ast.KindAttribute, name.Lexeme, p.loc(at))
		if p.accept(LROUND) {
			if err := p.argsInto(attr); err != nil {
				return nil, err
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// argsInto parses a comma separated expression list up to and including the
// closing paren.
func (p *parser) argsInto(parent *ast.Node) error {
	first := true
	for !p.accept(RROUND) {
		if !first {
			if _, err := p.need(COMMA); err != nil {
				return err
			}
		}
		first = false
		arg, err := p.expr(0)
		if err != nil {
			return err
		}
		ast.AppendChild(parent, arg)
	}
	return nil
}

// paramsInto parses "(a, b, ...)" as Param children of parent.
func (p *parser) paramsInto(parent *ast.Node) error {
	if _, err := p.need(LROUND); err != nil {
		return err
	}
	first := true
	for !p.accept(RROUND) {
		if !first {
			if _, err := p.need(COMMA); err != nil {
				return err
			}
		}
		first = false
		name, err := p.need(IDENT)
		if err != nil {
			return err
		}
		ast.AppendChild(parent, p.tree.NewParam(name.Lexeme, p.loc(name)))
	}
	return nil
}

func (p *parser) domain() error {
	p.next()
	name, err := p.need(IDENT)
	if err != nil {
		return err
	}
	dom := p.tree.NewNamed(ast.KindDomain, name.Lexeme, p.loc(name))
	ast.AppendChild(p.tree.Root, dom)
	if _, err := p.need(LCURLY); err != nil {
		return err
	}
	for !p.accept(RCURLY) {
		var (
			n   *ast.Node
			err error
		)
		switch {
		case p.atKeyword("macro"):
			n, err = p.macro()
		case p.atKeyword("task"):
			n, err = p.task()
		default:
			err = p.errorf(p.tok, "expected \"macro\" or \"task\", got %s", p.tok)
		}
		if err != nil {
			return err
		}
		ast.AppendChild(dom, n)
	}
	return nil
}

func (p *parser) macro() (*ast.Node, error) {
	p.next()
	name, err := p.need(IDENT)
	if err != nil {
		return nil, err
	}
	m := p.tree.NewNamed(ast.KindMacro, name.Lexeme, p.loc(name))
	if err := p.paramsInto(m); err != nil {
		return nil, err
	}
	if _, err := p.need(ASSIGN); err != nil {
		return nil, err
	}
	body, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	ast.AppendChild(m, body)
	return m, nil
}

func (p *parser) task() (*ast.Node, error) {
	p.next()
	name, err := p.need(IDENT)
	if err != nil {
		return nil, err
	}
	task := p.tree.NewNamed(ast.KindTask, name.Lexeme, p.loc(name))
	if err := p.paramsInto(task); err != nil {
		return nil, err
	}
	if _, err := p.need(LCURLY); err != nil {
		return nil, err
	}
	for !p.accept(RCURLY) {
		var n *ast.Node
		if p.atKeyword("macro") {
			n, err = p.macro()
		} else {
			n, err = p.caseDecl()
		}
		if err != nil {
			return nil, err
		}
		ast.AppendChild(task, n)
	}
	return task, nil
}

func (p *parser) caseDecl() (*ast.Node, error) {
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}
	start := p.tok
	if err := p.needKeyword("case"); err != nil {
		return nil, err
	}
	c := p.tree.New(ast.KindCase, p.loc(start))
	for _, a := range attrs {
		ast.AppendChild(c, a)
	}

	var precond *ast.Node
	if p.at(ARROW) {
		precond = p.tree.NewOp(ast.KindAnd, p.loc(p.tok))
	} else if precond, err = p.expr(0); err != nil {
		return nil, err
	}
	ast.AppendChild(c, precond)

	if _, err := p.need(ARROW); err != nil {
		return nil, err
	}
	open, err := p.need(LSQUARE)
	if err != nil {
		return nil, err
	}
	list := p.tree.New(ast.KindTaskList, p.loc(open))
	ast.AppendChild(c, list)
	first := true
	for !p.accept(RSQUARE) {
		if !first {
			if _, err := p.need(COMMA); err != nil {
				return nil, err
			}
		}
		first = false
		name, err := p.need(IDENT)
		if err != nil {
			return nil, err
		}
		call := p.tree.NewFunc(name.Lexeme, p.loc(name))
		if _, err := p.need(LROUND); err != nil {
			return nil, err
		}
		if err := p.argsInto(call); err != nil {
			return nil, err
		}
		ast.AppendChild(list, call)
	}

	cs := c.Case()
	cs.Precond = precond
	cs.Tasks = list
	return c, nil
}

// binding powers of infix operators
func lbp(tt TokenType) (int, ast.Kind, bool) {
	switch tt {
	case OR:
		return 10, ast.KindOr, true
	case AND:
		return 20, ast.KindAnd, true
	case ASSIGN:
		return 25, ast.KindAssign, true
	case EQ:
		return 30, ast.KindEq, true
	case NEQ:
		return 30, ast.KindNe, true
	case LESS:
		return 30, ast.KindLt, true
	case LESS_EQ:
		return 30, ast.KindLe, true
	case GREATER:
		return 30, ast.KindGt, true
	case GREATER_EQ:
		return 30, ast.KindGe, true
	case PLUS:
		return 40, ast.KindAdd, true
	case MINUS:
		return 40, ast.KindSub, true
	case MULT:
		return 50, ast.KindMul, true
	case DIV:
		return 50, ast.KindDiv, true
	}
	return 0, 0, false
}

const prefixBP = 60

func (p *parser) expr(minBP int) (*ast.Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		op := p.tok
		bp, kind, ok := lbp(op.Type)
		if !ok || bp <= minBP {
			return left, nil
		}
		p.next()

		rbp := bp
		if kind == ast.KindAssign {
			// right associative
			rbp = bp - 1
			if left.Kind != ast.KindVar {
				return nil, p.errorf(op, "left side of '=' must be a variable")
			}
		}
		right, err := p.expr(rbp)
		if err != nil {
			return nil, err
		}

		if (kind == ast.KindAnd || kind == ast.KindOr) && left.Kind == kind {
			ast.AppendChild(left, right)
			continue
		}
		left = p.tree.NewOp(kind, p.loc(op), left, right)
	}
}

func (p *parser) prefix() (*ast.Node, error) {
	t := p.tok
	switch t.Type {
	case IDENT:
		p.next()
		if !p.accept(LROUND) {
			return p.tree.NewVar(t.Lexeme, p.loc(t)), nil
		}
		call := p.tree.NewFunc(t.Lexeme, p.loc(t))
		if err := p.argsInto(call); err != nil {
			return nil, err
		}
		return call, nil

	case INT, FLOAT:
		p.next()
		return p.number(t, "")

	case LROUND:
		p.next()
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RROUND); err != nil {
			return nil, err
		}
		return e, nil

	case NOT:
		p.next()
		operand, err := p.expr(prefixBP)
		if err != nil {
			return nil, err
		}
		return p.tree.NewOp(ast.KindNot, p.loc(t), operand), nil

	case MINUS:
		p.next()
		if num := p.tok; num.Type == INT || num.Type == FLOAT {
			p.next()
			lit, err := p.number(num, "-")
			if err != nil {
				return nil, err
			}
			lit.Loc = p.loc(t)
			return lit, nil
		}
		operand, err := p.expr(prefixBP)
		if err != nil {
			return nil, err
		}
		return p.tree.NewOp(ast.KindNeg, p.loc(t), operand), nil
	}
	return nil, p.errorf(t, "expected expression, got %s", t)
}

func (p *parser) number(t Token, sign string) (*ast.Node, error) {
	if t.Type == INT {
		v, err := strconv.ParseInt(sign+t.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "integer literal %s%s out of range", sign, t.Lexeme)
		}
		return p.tree.NewInt(v, p.loc(t)), nil
	}
	v, err := strconv.ParseFloat(sign+t.Lexeme, 64)
	if err != nil {
		return nil, p.errorf(t, "bad float literal %s%s", sign, t.Lexeme)
	}
	return p.tree.NewFloat(v, p.loc(t)), nil
}
