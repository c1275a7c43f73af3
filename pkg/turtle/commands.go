package turtle

// Operand is an unresolved numeric argument: a literal or a variable name.
type Operand string

// Command is one parsed script line. The set of implementations is closed;
// the dispatcher switches over all of them.
type Command interface {
	Keyword() string
	isCommand()
}

type (
	MoveTo    struct{ X, Y Operand }
	DrawTo    struct{ X, Y Operand }
	Rectangle struct{ W, H Operand }
	Square    struct{ Size Operand }
	Circle    struct{ R Operand }
	Triangle  struct{ Coords [6]Operand }
	SetColor  struct{ Color Color }
	TextColor struct{ Color Color }
	Reset     struct{}
	Fill      struct{ On bool }
	LineWidth struct{ W Operand }
	Rotate    struct{ Angle Operand }
	Text      struct{ Text string }
	Clear     struct{}
	VarDef    struct {
		Name  string
		Value Operand
	}
	VarSet struct {
		Name  string
		Value Operand
	}
	If        struct{ Condition string }
	EndIf     struct{}
	Loop      struct{}
	EndLoop   struct{}
	MethodDef struct {
		Name   string
		Params []string
	}
	EndMethod struct{}
	// Call invokes a method. Bare is set when the line had no parentheses;
	// a bare call to an unknown name is an unknown command rather than an
	// undefined method.
	Call struct {
		Name string
		Args []Operand
		Bare bool
	}
)

func (MoveTo) Keyword() string    { return "moveto" }
func (DrawTo) Keyword() string    { return "drawto" }
func (Rectangle) Keyword() string { return "rectangle" }
func (Square) Keyword() string    { return "square" }
func (Circle) Keyword() string    { return "circle" }
func (Triangle) Keyword() string  { return "triangle" }
func (SetColor) Keyword() string  { return "color" }
func (TextColor) Keyword() string { return "textcolor" }
func (Reset) Keyword() string     { return "reset" }
func (Fill) Keyword() string      { return "fill" }
func (LineWidth) Keyword() string { return "linewidth" }
func (Rotate) Keyword() string    { return "rotate" }
func (Text) Keyword() string      { return "text" }
func (Clear) Keyword() string     { return "clear" }
func (VarDef) Keyword() string    { return "var" }
func (VarSet) Keyword() string    { return "set" }
func (If) Keyword() string        { return "if" }
func (EndIf) Keyword() string     { return "endif" }
func (Loop) Keyword() string      { return "loop" }
func (EndLoop) Keyword() string   { return "endloop" }
func (MethodDef) Keyword() string { return "method" }
func (EndMethod) Keyword() string { return "endmethod" }
func (c Call) Keyword() string    { return c.Name }

func (MoveTo) isCommand()    {}
func (DrawTo) isCommand()    {}
func (Rectangle) isCommand() {}
func (Square) isCommand()    {}
func (Circle) isCommand()    {}
func (Triangle) isCommand()  {}
func (SetColor) isCommand()  {}
func (TextColor) isCommand() {}
func (Reset) isCommand()     {}
func (Fill) isCommand()      {}
func (LineWidth) isCommand() {}
func (Rotate) isCommand()    {}
func (Text) isCommand()      {}
func (Clear) isCommand()     {}
func (VarDef) isCommand()    {}
func (VarSet) isCommand()    {}
func (If) isCommand()        {}
func (EndIf) isCommand()     {}
func (Loop) isCommand()      {}
func (EndLoop) isCommand()   {}
func (MethodDef) isCommand() {}
func (EndMethod) isCommand() {}
func (Call) isCommand()      {}
