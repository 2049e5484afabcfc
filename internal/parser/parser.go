// Package parser implements a hand-written recursive-descent parser with a
// Pratt-style precedence-climbing expression core for ergo source, per
// spec.md §4.2. It maintains two-token lookahead and reports the first
// syntax error it meets (no error-collection mode — each module must parse
// cleanly before the pipeline proceeds to lowering).
package parser

import (
	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/errs"
	"github.com/lainsce/ergo/internal/lexer"
)

// Parser holds the token stream and current read position.
type Parser struct {
	toks []lexer.Token
	i    int
	path string
}

// New builds a Parser over an already-lexed token stream.
func New(toks []lexer.Token, path string) *Parser {
	return &Parser{toks: toks, path: path}
}

// Parse lexes then parses src in one step, returning a *ast.Module.
func Parse(path, src string) (*ast.Module, error) {
	toks, err := lexer.Lex(path, src)
	if err != nil {
		return nil, err
	}
	return New(toks, path).ParseModule()
}

func (p *Parser) peek(k int) lexer.Token {
	if p.i+k < len(p.toks) {
		return p.toks[p.i+k]
	}
	return lexer.Token{Kind: lexer.EOF, Line: -1, Col: -1}
}

func (p *Parser) at(kind lexer.TokenKind) bool { return p.peek(0).Kind == kind }

func (p *Parser) eat(kind lexer.TokenKind) (lexer.Token, error) {
	t := p.peek(0)
	if t.Kind != kind {
		return t, errs.NewParse(p.path, t.Line, t.Col, "expected %s, got %s (%s)", kind, t.Kind, t.Text)
	}
	p.i++
	return t, nil
}

// maybe consumes the current token if it has the given kind and reports
// whether it did; it never fails and consumes nothing otherwise.
func (p *Parser) maybe(kind lexer.TokenKind) (lexer.Token, bool) {
	if p.at(kind) {
		t, _ := p.eat(kind)
		return t, true
	}
	return lexer.Token{}, false
}

func (p *Parser) skipSemi() {
	for p.at(lexer.SEMI) {
		_, _ = p.eat(lexer.SEMI)
	}
}

// ParseModule parses the entire token stream as one module.
func (p *Parser) ParseModule() (*ast.Module, error) {
	var imports []*ast.Import
	var decls []ast.Decl
	p.skipSemi()
	for !p.at(lexer.EOF) {
		switch {
		case p.at(lexer.KwBring):
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			imports = append(imports, imp)
		case p.at(lexer.KwEntry):
			d, err := p.parseEntry()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		case p.at(lexer.KwFun):
			d, err := p.parseFun()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		case p.at(lexer.KwPub) || p.at(lexer.KwLock) || p.at(lexer.KwSeal) || p.at(lexer.KwClass):
			d, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		case p.at(lexer.KwConst):
			d, err := p.parseConstDecl()
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		default:
			t := p.peek(0)
			return nil, errs.NewParse(p.path, t.Line, t.Col, "unexpected token %s (%s)", t.Kind, t.Text)
		}
		p.skipSemi()
	}
	return &ast.Module{Path: p.path, Imports: imports, Decls: decls}, nil
}

func (p *Parser) parseImport() (*ast.Import, error) {
	if _, err := p.eat(lexer.KwBring); err != nil {
		return nil, err
	}
	t, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	name := t.Text
	if _, ok := p.maybe(lexer.DOT); ok {
		ext, err := p.eat(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if ext.Text != "e" {
			name = name + "." + ext.Text
		}
	}
	return &ast.Import{Name: name, Line: t.Line, Col: t.Col}, nil
}

func (p *Parser) parseRetSpec() (*ast.RetSpec, error) {
	open, err := p.eat(lexer.RETSPECOP)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.RETVOID) {
		_, _ = p.eat(lexer.RETVOID)
		if _, err := p.eat(lexer.RETSPECCL); err != nil {
			return nil, err
		}
		return &ast.RetSpec{Void: true, Line: open.Line, Col: open.Col}, nil
	}
	var types []ast.TypeRef
	t0, err := p.parseType()
	if err != nil {
		return nil, err
	}
	types = append(types, t0)
	for p.at(lexer.SEMI) || p.at(lexer.COMMA) {
		p.i++
		tn, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, tn)
	}
	if _, err := p.eat(lexer.RETSPECCL); err != nil {
		return nil, err
	}
	return &ast.RetSpec{Void: false, Types: types, Line: open.Line, Col: open.Col}, nil
}

// parseType parses a type annotation: a (possibly dotted) identifier, or a
// bracketed array-of element type, either optionally followed by `?` to mark
// it nullable. See DESIGN.md entry 8: the reference
// parser returns a bare string here, inconsistent with its own checker's
// expectations; this builds real TypeName/TypeArray nodes instead.
func (p *Parser) parseType() (ast.TypeRef, error) {
	if p.at(lexer.LBRACK) {
		open, _ := p.eat(lexer.LBRACK)
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.RBRACK); err != nil {
			return nil, err
		}
		_, nullable := p.maybe(lexer.QMARK)
		return &ast.TypeArray{Elem: elem, Nullable: nullable, Line: open.Line, Col: open.Col}, nil
	}
	t, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	name := t.Text
	for p.at(lexer.DOT) {
		p.i++
		part, err := p.eat(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		name = name + "." + part.Text
	}
	_, nullable := p.maybe(lexer.QMARK)
	return &ast.TypeName{Name: name, Nullable: nullable, Line: t.Line, Col: t.Col}, nil
}

func (p *Parser) parseParams() ([]*ast.Param, error) {
	var ps []*ast.Param
	if p.at(lexer.RPAR) {
		return ps, nil
	}
	for {
		isMut := false
		if _, ok := p.maybe(lexer.QMARK); ok {
			isMut = true
		}
		nameTok, err := p.eat(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		name := nameTok.Text
		if name == "this" && !p.at(lexer.EQ) {
			ps = append(ps, &ast.Param{Name: "this", IsMut: isMut, IsThis: true, Line: nameTok.Line, Col: nameTok.Col})
		} else {
			if _, err := p.eat(lexer.EQ); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			ps = append(ps, &ast.Param{Name: name, Typ: typ, IsMut: isMut, Line: nameTok.Line, Col: nameTok.Col})
		}
		if _, ok := p.maybe(lexer.COMMA); !ok {
			break
		}
	}
	return ps, nil
}

func (p *Parser) parseFun() (*ast.FunDecl, error) {
	kw, err := p.eat(lexer.KwFun)
	if err != nil {
		return nil, err
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LPAR); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.RPAR); err != nil {
		return nil, err
	}
	ret, err := p.parseRetSpec()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunDecl{Name: name.Text, Params: params, Ret: ret, Body: body, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseEntry() (*ast.EntryDecl, error) {
	kw, err := p.eat(lexer.KwEntry)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LPAR); err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.RPAR); err != nil {
		return nil, err
	}
	ret, err := p.parseRetSpec()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.EntryDecl{Ret: ret, Body: body, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseConstDecl() (*ast.ConstDecl, error) {
	kw, err := p.eat(lexer.KwConst)
	if err != nil {
		return nil, err
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.EQ); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.ConstDecl{Name: name.Text, Expr: e, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseClass() (*ast.ClassDecl, error) {
	vis := ast.VisPriv
	isSeal := false

	start := p.peek(0)

	if p.at(lexer.KwPub) {
		p.i++
		vis = ast.VisPub
	} else if p.at(lexer.KwLock) {
		p.i++
		vis = ast.VisLock
	}

	if p.at(lexer.KwSeal) {
		p.i++
		isSeal = true
	}

	if _, err := p.eat(lexer.KwClass); err != nil {
		return nil, err
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LBRACE); err != nil {
		return nil, err
	}

	var fields []*ast.FieldDecl
	var methods []*ast.FunDecl

	p.skipSemi()
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.KwPub) && p.peek(1).Kind == lexer.KwFun {
			p.i++
			m, err := p.parseFun()
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		} else if p.at(lexer.KwFun) {
			m, err := p.parseFun()
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		} else {
			fname, err := p.eat(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.eat(lexer.EQ); err != nil {
				return nil, err
			}
			ftyp, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields = append(fields, &ast.FieldDecl{Name: fname.Text, Typ: ftyp, Line: fname.Line, Col: fname.Col})
		}
		p.skipSemi()
	}
	if _, err := p.eat(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.ClassDecl{Name: name.Text, Vis: vis, IsSeal: isSeal, Fields: fields, Methods: methods, Line: start.Line, Col: start.Col}, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.eat(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	p.skipSemi()
	for !p.at(lexer.RBRACE) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		p.skipSemi()
	}
	if _, err := p.eat(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Block{Stmts: stmts, Line: open.Line, Col: open.Col}, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.at(lexer.KwLet):
		return p.parseLet()
	case p.at(lexer.KwConst):
		return p.parseConstStmt()
	case p.at(lexer.KwIf):
		return p.parseIf()
	case p.at(lexer.KwFor):
		return p.parseFor()
	case p.at(lexer.KwReturn):
		return p.parseReturn()
	case p.at(lexer.LBRACE):
		return p.parseBlock()
	default:
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Expr: e}, nil
	}
}

func (p *Parser) parseLet() (*ast.LetStmt, error) {
	kw, err := p.eat(lexer.KwLet)
	if err != nil {
		return nil, err
	}
	isMut := false
	if _, ok := p.maybe(lexer.QMARK); ok {
		isMut = true
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.EQ); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: name.Text, IsMut: isMut, Expr: e, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseConstStmt() (*ast.ConstStmt, error) {
	kw, err := p.eat(lexer.KwConst)
	if err != nil {
		return nil, err
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.EQ); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.ConstStmt{Name: name.Text, Expr: e, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseIf() (*ast.IfStmt, error) {
	var arms []*ast.IfArm
	kw, err := p.eat(lexer.KwIf)
	if err != nil {
		return nil, err
	}
	c, err := p.parseIfCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseArm()
	if err != nil {
		return nil, err
	}
	arms = append(arms, &ast.IfArm{Cond: c, Body: body, Line: kw.Line, Col: kw.Col})
	p.skipSemi()

	for p.at(lexer.KwElif) {
		ekw, _ := p.eat(lexer.KwElif)
		c2, err := p.parseIfCond()
		if err != nil {
			return nil, err
		}
		b2, err := p.parseArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, &ast.IfArm{Cond: c2, Body: b2, Line: ekw.Line, Col: ekw.Col})
		p.skipSemi()
	}

	if p.at(lexer.KwElse) {
		ekw, _ := p.eat(lexer.KwElse)
		b3, err := p.parseArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, &ast.IfArm{Cond: nil, Body: b3, Line: ekw.Line, Col: ekw.Col})
		p.skipSemi()
	}

	return &ast.IfStmt{Arms: arms, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseIfCond() (ast.Expr, error) {
	if p.at(lexer.LPAR) {
		p.i++
		c, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.RPAR); err != nil {
			return nil, err
		}
		return c, nil
	}
	return p.parseExpr(0)
}

// parseArm parses the body of an if/elif/else/for arm: either a
// colon-prefixed single statement or a brace block, always normalized to a
// *ast.Block (a single statement that is not itself a block is wrapped here
// into a one-statement Block).
func (p *Parser) parseArm() (*ast.Block, error) {
	if p.at(lexer.COLON) {
		p.i++
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if b, ok := s.(*ast.Block); ok {
			return b, nil
		}
		return &ast.Block{Stmts: []ast.Stmt{s}}, nil
	}
	return p.parseBlock()
}

func (p *Parser) parseReturn() (*ast.ReturnStmt, error) {
	kw, err := p.eat(lexer.KwReturn)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.SEMI) || p.at(lexer.RBRACE) {
		return &ast.ReturnStmt{Line: kw.Line, Col: kw.Col}, nil
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Expr: e, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	kw, err := p.eat(lexer.KwFor)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LPAR); err != nil {
		return nil, err
	}

	if p.at(lexer.IDENT) && p.peek(1).Kind == lexer.KwIn {
		name, _ := p.eat(lexer.IDENT)
		p.i++ // KwIn
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.eat(lexer.RPAR); err != nil {
			return nil, err
		}
		body, err := p.parseArm()
		if err != nil {
			return nil, err
		}
		return &ast.ForEachStmt{Name: name.Text, Expr: e, Body: body, Line: kw.Line, Col: kw.Col}, nil
	}

	var init ast.Stmt
	if !p.at(lexer.SEMI) {
		switch {
		case p.at(lexer.KwLet):
			init, err = p.parseLet()
		case p.at(lexer.KwConst):
			init, err = p.parseConstStmt()
		default:
			var e ast.Expr
			e, err = p.parseExpr(0)
			if err == nil {
				init = &ast.ExprStmt{Expr: e}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(lexer.SEMI); err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.at(lexer.SEMI) {
		cond, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(lexer.SEMI); err != nil {
		return nil, err
	}

	var step ast.Expr
	if !p.at(lexer.RPAR) {
		step, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(lexer.RPAR); err != nil {
		return nil, err
	}
	body, err := p.parseArm()
	if err != nil {
		return nil, err
	}
	var stepStmt ast.Stmt
	if step != nil {
		stepStmt = &ast.ExprStmt{Expr: step}
	}
	return &ast.ForStmt{Init: init, Cond: cond, Step: stepStmt, Body: body, Line: kw.Line, Col: kw.Col}, nil
}

// precs is the fixed precedence table from spec.md §4.2: higher binds
// tighter. `=` is lowest and right-associative; every other operator is
// left-associative.
var precs = map[lexer.TokenKind]int{
	lexer.EQ:     1,
	lexer.OROR:   2,
	lexer.ANDAND: 3,
	lexer.EQEQ:   4,
	lexer.NEQ:    4,
	lexer.LT:     5,
	lexer.LE:     5,
	lexer.GT:     5,
	lexer.GE:     5,
	lexer.PLUS:   6,
	lexer.MINUS:  6,
	lexer.STAR:   7,
	lexer.SLASH:  7,
	lexer.PCT:    7,
}

func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek(0)
		prec, ok := precs[t.Kind]
		if !ok || prec < minPrec {
			break
		}
		op := t.Kind
		p.i++
		nextMin := prec + 1
		if op == lexer.EQ {
			nextMin = prec
		}
		rhs, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		if op == lexer.EQ {
			x = &ast.Assign{Target: x, Value: rhs, Line: t.Line, Col: t.Col}
		} else {
			x = &ast.Binary{Op: string(op), A: x, B: rhs, Line: t.Line, Col: t.Col}
		}
	}
	return x, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(lexer.HASH) || p.at(lexer.BANG) || p.at(lexer.MINUS) {
		t := p.peek(0)
		p.i++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: string(t.Kind), X: x, Line: t.Line, Col: t.Col}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(lexer.LPAR):
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.Call{Fn: x, Args: args}
		case p.at(lexer.LBRACK):
			p.i++
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.eat(lexer.RBRACK); err != nil {
				return nil, err
			}
			x = &ast.Index{A: x, I: idx}
		case p.at(lexer.DOT):
			p.i++
			name, err := p.eat(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			x = &ast.Member{A: x, Name: name.Text, Line: name.Line, Col: name.Col}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Expr, error) {
	if _, err := p.eat(lexer.LPAR); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.at(lexer.RPAR) {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		for {
			if _, ok := p.maybe(lexer.COMMA); !ok {
				break
			}
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	if _, err := p.eat(lexer.RPAR); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.peek(0)
	switch t.Kind {
	case lexer.INT:
		p.i++
		return &ast.IntLit{Val: t.IntVal, Line: t.Line, Col: t.Col}, nil
	case lexer.FLOAT:
		p.i++
		return &ast.FloatLit{Val: t.FloatVal, Line: t.Line, Col: t.Col}, nil
	case lexer.STR:
		p.i++
		return &ast.StrLit{Parts: convParts(t.StrVal), Line: t.Line, Col: t.Col}, nil
	case lexer.KwMatch:
		return p.parseMatch()
	case lexer.KwNew:
		return p.parseNew()
	case lexer.BAR:
		return p.parseLambda()
	case lexer.IDENT:
		p.i++
		return &ast.Ident{Name: t.Text, Line: t.Line, Col: t.Col}, nil
	case lexer.KwNull:
		p.i++
		return &ast.NullLit{Line: t.Line, Col: t.Col}, nil
	case lexer.KwTrue:
		p.i++
		return &ast.BoolLit{Val: true, Line: t.Line, Col: t.Col}, nil
	case lexer.KwFalse:
		p.i++
		return &ast.BoolLit{Val: false, Line: t.Line, Col: t.Col}, nil
	case lexer.LBRACK:
		return p.parseArrayLit()
	case lexer.LPAR:
		p.i++
		x, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.at(lexer.COMMA) {
			items := []ast.Expr{x}
			for {
				if _, ok := p.maybe(lexer.COMMA); !ok {
					break
				}
				e, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				items = append(items, e)
			}
			if _, err := p.eat(lexer.RPAR); err != nil {
				return nil, err
			}
			return &ast.TupleLit{Items: items, Line: t.Line, Col: t.Col}, nil
		}
		if _, err := p.eat(lexer.RPAR); err != nil {
			return nil, err
		}
		return &ast.Paren{X: x, Line: t.Line, Col: t.Col}, nil
	}
	return nil, errs.NewParse(p.path, t.Line, t.Col, "bad expr token %s (%s)", t.Kind, t.Text)
}

func convParts(in []lexer.StrPart) []ast.StrPart {
	out := make([]ast.StrPart, len(in))
	for i, part := range in {
		out[i] = ast.StrPart{Kind: part.Kind, Text: part.Text, Name: part.Name}
	}
	return out
}

func (p *Parser) parseMatch() (*ast.MatchExpr, error) {
	kw, err := p.eat(lexer.KwMatch)
	if err != nil {
		return nil, err
	}
	scrut, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}

	var arms []*ast.MatchArm
	if p.at(lexer.COLON) {
		p.i++
		a, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, a)
		for {
			if _, ok := p.maybe(lexer.COMMA); !ok {
				break
			}
			a, err := p.parseMatchArm()
			if err != nil {
				return nil, err
			}
			arms = append(arms, a)
		}
		return &ast.MatchExpr{Scrut: scrut, Arms: arms, Line: kw.Line, Col: kw.Col}, nil
	}

	if _, err := p.eat(lexer.LBRACE); err != nil {
		return nil, err
	}
	p.skipSemi()
	for !p.at(lexer.RBRACE) {
		a, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, a)
		p.skipSemi()
	}
	if _, err := p.eat(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.MatchExpr{Scrut: scrut, Arms: arms, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseMatchArm() (*ast.MatchArm, error) {
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.FATARROW); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.MatchArm{Pat: pat, Expr: e}, nil
}

func (p *Parser) parsePattern() (ast.Pat, error) {
	t := p.peek(0)
	switch t.Kind {
	case lexer.INT:
		p.i++
		return &ast.PatInt{Val: t.IntVal, Line: t.Line, Col: t.Col}, nil
	case lexer.STR:
		p.i++
		return &ast.PatStr{Parts: convParts(t.StrVal), Line: t.Line, Col: t.Col}, nil
	case lexer.KwTrue:
		p.i++
		return &ast.PatBool{Val: true, Line: t.Line, Col: t.Col}, nil
	case lexer.KwFalse:
		p.i++
		return &ast.PatBool{Val: false, Line: t.Line, Col: t.Col}, nil
	case lexer.KwNull:
		p.i++
		return &ast.PatNull{Line: t.Line, Col: t.Col}, nil
	case lexer.IDENT:
		p.i++
		if t.Text == "_" {
			return &ast.PatWild{Line: t.Line, Col: t.Col}, nil
		}
		return &ast.PatIdent{Name: t.Text, Line: t.Line, Col: t.Col}, nil
	}
	return nil, errs.NewParse(p.path, t.Line, t.Col, "bad pattern token %s (%s)", t.Kind, t.Text)
}

func (p *Parser) parseLambda() (*ast.LambdaExpr, error) {
	kw, err := p.eat(lexer.BAR)
	if err != nil {
		return nil, err
	}
	var params []*ast.Param
	if !p.at(lexer.BAR) {
		for {
			isMut := false
			if _, ok := p.maybe(lexer.QMARK); ok {
				isMut = true
			}
			name, err := p.eat(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			var typ ast.TypeRef
			if _, ok := p.maybe(lexer.EQ); ok {
				typ, err = p.parseType()
				if err != nil {
					return nil, err
				}
			}
			params = append(params, &ast.Param{Name: name.Text, Typ: typ, IsMut: isMut, Line: name.Line, Col: name.Col})
			if _, ok := p.maybe(lexer.COMMA); !ok {
				break
			}
		}
	}
	if _, err := p.eat(lexer.BAR); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.LambdaExpr{Params: params, Body: body, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseNew() (*ast.NewExpr, error) {
	kw, err := p.eat(lexer.KwNew)
	if err != nil {
		return nil, err
	}
	name, err := p.eat(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	var args []ast.Expr
	if p.at(lexer.LPAR) {
		args, err = p.parseCallArgs()
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpr{Name: name.Text, Args: args, Line: kw.Line, Col: kw.Col}, nil
}

func (p *Parser) parseArrayLit() (*ast.ArrayLit, error) {
	open, err := p.eat(lexer.LBRACK)
	if err != nil {
		return nil, err
	}
	var items []ast.Expr
	if !p.at(lexer.RBRACK) {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		for {
			if _, ok := p.maybe(lexer.COMMA); !ok {
				break
			}
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
	}
	if _, err := p.eat(lexer.RBRACK); err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Items: items, Line: open.Line, Col: open.Col}, nil
}
