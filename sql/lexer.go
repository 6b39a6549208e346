package sql

type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset of the token in the statement text
	End   int // byte offset just past the token
}

type TokenType int

const (
	Identifier TokenType = iota
	DatabaseIdentifier
	TableIdentifier
	TransactionIdentifier
	Wildcard
	String
	Number
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Operator
	Create
	Use
	Insert
	Into
	Values
	Select
	From
	Where
	Update
	Set
	Delete
	Begin
	Commit
	Rollback
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case DatabaseIdentifier:
		return "DatabaseIdentifier"
	case TableIdentifier:
		return "TableIdentifier"
	case TransactionIdentifier:
		return "TransactionIdentifier"
	case Wildcard:
		return "Wildcard"
	case String:
		return "String(" + token.Value + ")"
	case Number:
		return "Number(" + token.Value + ")"
	case Comma:
		return "Comma"
	case Semicolon:
		return "Semicolon"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case Operator:
		return "Operator(" + token.Value + ")"
	case Create:
		return "Create"
	case Use:
		return "Use"
	case Insert:
		return "Insert"
	case Into:
		return "Into"
	case Values:
		return "Values"
	case Select:
		return "Select"
	case From:
		return "From"
	case Where:
		return "Where"
	case Update:
		return "Update"
	case Set:
		return "Set"
	case Delete:
		return "Delete"
	case Begin:
		return "Begin"
	case Commit:
		return "Commit"
	case Rollback:
		return "Rollback"
	case EOF:
		return "EOF"
	default:
		return "Unknown(" + token.Value + ")"
	}
}

// Lexer splits statement text into keyword-level tokens. It keeps byte
// offsets so the parser can cut raw clause text (column lists, SET and
// WHERE bodies) straight out of the original statement.
type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	start := lexer.position
	var token Token

	switch lexer.ch {
	case 0:
		return Token{Type: EOF, Pos: len(lexer.sql), End: len(lexer.sql)}
	case ',':
		token = Token{Type: Comma, Value: ","}
	case ';':
		token = Token{Type: Semicolon, Value: ";"}
	case '(':
		token = Token{Type: ParenOpen, Value: "("}
	case ')':
		token = Token{Type: ParenClose, Value: ")"}
	case '*':
		token = Token{Type: Wildcard, Value: "*"}
	case '\'':
		value := lexer.readString()
		return Token{Type: String, Value: value, Pos: start, End: lexer.position}
	default:
		if isOperator(lexer.ch) {
			operator := lexer.readOperator()
			return Token{Type: Operator, Value: operator, Pos: start, End: lexer.position}
		} else if isDigit(lexer.ch) {
			num := lexer.readNumber()
			return Token{Type: Number, Value: num, Pos: start, End: lexer.position}
		} else if isAlphaNumeric(lexer.ch) {
			literal := lexer.readIdentifier()
			return Token{Type: lookupIdentifier(literal), Value: literal, Pos: start, End: lexer.position}
		}
		token = Token{Type: Unknown, Value: string(lexer.ch)}
	}

	lexer.readChar()
	token.Pos = start
	token.End = lexer.position
	return token
}

// ReadName consumes a database or table name. A name is any run of
// characters up to whitespace or one of ( ) , ; '
func (lexer *Lexer) ReadName() Token {
	lexer.skipWhitespace()
	start := lexer.position
	for lexer.ch != 0 && !isNameTerminator(lexer.ch) {
		lexer.readChar()
	}
	if lexer.position == start {
		return lexer.NextToken()
	}
	return Token{Type: Identifier, Value: lexer.sql[start:lexer.position], Pos: start, End: lexer.position}
}

func isNameTerminator(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '(', ')', ',', ';', '\'':
		return true
	}
	return false
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString consumes a quoted literal including both quotes. An
// unterminated literal runs to the end of the input.
func (lexer *Lexer) readString() string {
	lexer.readChar()
	position := lexer.position
	for lexer.ch != '\'' && lexer.ch != 0 {
		lexer.readChar()
	}
	str := lexer.sql[position:lexer.position]
	if lexer.ch == '\'' {
		lexer.readChar()
	}
	return str
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) || lexer.ch == '.' {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '.' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>' || ch == '+' || ch == '-'
}

func lookupIdentifier(id string) TokenType {
	switch toUpper(id) {
	case "DATABASE":
		return DatabaseIdentifier
	case "TABLE":
		return TableIdentifier
	case "TRANSACTION":
		return TransactionIdentifier
	case "CREATE":
		return Create
	case "USE":
		return Use
	case "INSERT":
		return Insert
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "UPDATE":
		return Update
	case "SET":
		return Set
	case "DELETE":
		return Delete
	case "BEGIN":
		return Begin
	case "COMMIT":
		return Commit
	case "ROLLBACK":
		return Rollback
	default:
		return Identifier
	}
}

func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
