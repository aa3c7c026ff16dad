package protocol

import (
	"bytes"
	"strconv"
)

// Parser turns a token stream into a slice of Commands. It keeps a
// two-token lookahead (current, next), both primed at construction,
// the same shape as the original implementation's parser: consume
// swaps next into current and pulls a fresh token from the lexer.
type Parser struct {
	lexer   *Lexer
	current Token
	next    Token
}

// NewParser primes the lookahead from lexer.
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.current = lexer.Next()
	p.next = lexer.Next()
	return p
}

func (p *Parser) consume() {
	p.current = p.next
	p.next = p.lexer.Next()
}

func (p *Parser) currentIs(tt TokenType) bool {
	return p.current.Type == tt
}

// ParseCommands consumes the token stream until Eof, returning every
// Command found. Semicolons between commands are optional terminators;
// a trailing semicolon before Eof is accepted. Any unexpected token
// aborts parsing immediately with a ParseError.
func (p *Parser) ParseCommands() ([]Command, error) {
	var commands []Command

	for !p.currentIs(Eof) {
		if p.currentIs(Semicolon) {
			p.consume()
			if p.currentIs(Eof) {
				break
			}
		}

		switch p.current.Type {
		case Message:
			cmd, err := p.parseMessage()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		case Publisher:
			cmd, err := p.parsePublisher()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		case Subscribe:
			cmd, err := p.parseSubscriber()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		case Ok:
			cmd, err := p.parseOk()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		case Error:
			cmd, err := p.parseErrorCmd()
			if err != nil {
				return nil, err
			}
			commands = append(commands, cmd)
		default:
			return nil, newParseError(
				"miss expression, expression cannot start with %s, only start with "+
					"'message', 'publisher', 'subscribe', 'ok' or 'error'", p.current.Type)
		}
	}

	return commands, nil
}

// parseLenTail consumes the "+l<N> #" tail shared by message and ok
// commands. Both pieces lex as Illegal tokens (neither '+' nor '#'
// starts a recognized keyword, quote, or semicolon), so the parser —
// not the lexer — recognizes the lenTail shape.
func (p *Parser) parseLenTail() (int, error) {
	if !p.currentIs(Illegal) {
		return 0, newParseError("expected length tail '+l<N>' but got %s", p.current)
	}
	declaredLen, ok := parseLenPrefix(p.current.Value)
	if !ok {
		return 0, newParseError("expected length tail '+l<N>' but got %q", p.current.Value)
	}
	p.consume()

	if !p.currentIs(Illegal) || !bytes.Equal(p.current.Value, []byte("#")) {
		return 0, newParseError("expected '#' but got %s", p.current)
	}
	p.consume()

	return declaredLen, nil
}

func parseLenPrefix(value []byte) (int, bool) {
	if len(value) < 3 || value[0] != '+' || value[1] != 'l' {
		return 0, false
	}
	digits := value[2:]
	if len(digits) == 0 {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *Parser) parseMessage() (Command, error) {
	p.consume() // past "message"
	declaredLen, err := p.parseLenTail()
	if err != nil {
		return Command{}, err
	}
	if !p.currentIs(Binary) {
		return Command{}, newParseError("expected quoted payload but got %s", p.current)
	}
	payload := p.current.Value
	p.consume()
	return MessageCommand(payload, declaredLen), nil
}

func (p *Parser) parsePublisher() (Command, error) {
	p.consume() // past "publisher"
	if !p.currentIs(Name) {
		return Command{}, newParseError("expected queue name but got %s", p.current)
	}
	queueName := p.current.Value
	p.consume()
	return PublisherCommand(queueName), nil
}

func (p *Parser) parseSubscriber() (Command, error) {
	p.consume() // past "subscribe"
	if !p.currentIs(Name) {
		return Command{}, newParseError("expected queue name but got %s", p.current)
	}
	queueName := p.current.Value
	p.consume()

	if !p.currentIs(With) {
		return Command{}, newParseError("expected 'with' but got %s", p.current)
	}
	p.consume()

	if !p.currentIs(Group) {
		return Command{}, newParseError("expected 'group' but got %s", p.current)
	}
	p.consume()

	if !p.currentIs(Name) {
		return Command{}, newParseError("expected group name but got %s", p.current)
	}
	groupName := p.current.Value
	p.consume()

	return SubscriberCommand(queueName, groupName), nil
}

func (p *Parser) parseOk() (Command, error) {
	p.consume() // past "ok"
	declaredLen, err := p.parseLenTail()
	if err != nil {
		return Command{}, err
	}
	return OkCommand(declaredLen), nil
}

func (p *Parser) parseErrorCmd() (Command, error) {
	p.consume() // past "error"
	if !p.currentIs(Binary) {
		return Command{}, newParseError("expected quoted message but got %s", p.current)
	}
	message := p.current.Value
	p.consume()
	return ErrorCommand(message), nil
}

// ParseString is a convenience wrapper: lex and parse a byte buffer in
// one call.
func ParseString(input []byte) ([]Command, error) {
	return NewParser(NewLexer(input)).ParseCommands()
}
