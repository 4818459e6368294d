package condition

type parser struct {
	tokens []token
	pos    int
	refs   []Ref
}

func (p *parser) current() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) expect(kind tokenKind, expected string) (token, error) {
	tok := p.current()
	if tok.kind != kind {
		return tok, &ParseError{Pos: tok.pos, Found: tok.describe(), Expected: expected}
	}

	return p.advance(), nil
}

func (p *parser) parseExpression() (node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenOr {
		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = &logicalNode{op: "or", left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenAnd {
		p.advance()

		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = &logicalNode{op: "and", left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.current().kind == tokenNot {
		p.advance()

		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return &notNode{operand: operand}, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch tok := p.current(); tok.kind {
	case tokenCompare, tokenIn:
		p.advance()

		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}

		op := tok.text
		if tok.kind == tokenIn {
			op = "in"
		}

		return &compareNode{op: op, left: left, right: right, pos: tok.pos}, nil
	case tokenNot:
		// "a.b not in [..]"
		if p.tokens[p.pos+1].kind == tokenIn {
			p.advance()
			p.advance()

			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}

			return &notNode{operand: &compareNode{op: "in", left: left, right: right, pos: tok.pos}}, nil
		}
	}

	return left, nil
}

func (p *parser) parseOperand() (node, error) {
	tok := p.current()

	switch tok.kind {
	case tokenIdent:
		return p.parseRef()
	case tokenString, tokenNumber:
		p.advance()

		return &literalNode{value: tok.value}, nil
	case tokenTrue, tokenFalse:
		p.advance()

		return &literalNode{value: tok.kind == tokenTrue}, nil
	case tokenLBracket:
		return p.parseList()
	case tokenLParen:
		p.advance()

		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		_, err = p.expect(tokenRParen, `")"`)
		if err != nil {
			return nil, err
		}

		return inner, nil
	}

	return nil, &ParseError{Pos: tok.pos, Found: tok.describe(), Expected: "an operand"}
}

func (p *parser) parseRef() (node, error) {
	form := p.advance()

	if p.current().kind != tokenDot {
		return nil, &GrammarError{Pos: form.pos, Message: "variable '" + form.text + "' must be written as form.field"}
	}

	p.advance()

	field, err := p.expect(tokenIdent, "a field name")
	if err != nil {
		return nil, err
	}

	if p.current().kind == tokenDot {
		return nil, &GrammarError{Pos: form.pos, Message: "variable '" + form.text + "." + field.text + "' is nested too deep"}
	}

	ref := Ref{Form: form.text, Field: field.text}
	p.refs = append(p.refs, ref)

	return &refNode{ref: ref}, nil
}

func (p *parser) parseList() (node, error) {
	open := p.advance()
	list := &listNode{}

	if p.current().kind == tokenRBracket {
		p.advance()

		return list, nil
	}

	for {
		item, err := p.parseOperand()
		if err != nil {
			return nil, err
		}

		if _, ok := item.(*literalNode); !ok {
			return nil, &GrammarError{Pos: open.pos, Message: "lists may only contain literals"}
		}

		list.items = append(list.items, item)

		switch tok := p.advance(); tok.kind {
		case tokenComma:
			continue
		case tokenRBracket:
			return list, nil
		default:
			return nil, &ParseError{Pos: tok.pos, Found: tok.describe(), Expected: `"," or "]"`}
		}
	}
}
