package shared

// MessageType tells the browser client how to handle a message.
type MessageType int

// Values below 32 keep the numbering the terminal frontend already maps.
const (
	MessageTypeText     MessageType = 0 // plain text line
	MessageTypeClear    MessageType = 1 // clear the text console
	MessageTypeGraphics MessageType = 4 // canvas primitive, see Graphics* commands
	MessageTypeSession  MessageType = 8 // session id handshake

	MessageTypeError       MessageType = 32 // run or request failure
	MessageTypeProgram     MessageType = 33 // program source for the editor
	MessageTypeProgramList MessageType = 34 // saved programs
	MessageTypeValidation  MessageType = 35 // result of a syntax check
	MessageTypeSVG         MessageType = 36 // rendered SVG document
	MessageTypeDone        MessageType = 37 // run finished successfully
)

// Commands carried by MessageTypeGraphics.
const (
	GraphicsMove    = "MOVE"
	GraphicsLine    = "LINE"
	GraphicsRect    = "RECT"
	GraphicsEllipse = "ELLIPSE"
	GraphicsPolygon = "POLYGON"
	GraphicsText    = "TEXT"
	GraphicsClear   = "CLEAR"
	GraphicsRefresh = "REFRESH"
)

// Message is the JSON envelope sent to the browser.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`

	SessionID string `json:"sessionId,omitempty"`

	// GRAPHICS: command plus its parameters
	Command string                 `json:"command,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`

	// ERROR and VALIDATION
	Line  int    `json:"line,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Usage string `json:"usage,omitempty"`

	// PROGRAM and PROGRAM_LIST
	ProgramID   string        `json:"programId,omitempty"`
	ProgramName string        `json:"programName,omitempty"`
	Programs    []ProgramInfo `json:"programs,omitempty"`
}

// ProgramInfo describes a stored program without its source.
type ProgramInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	UpdatedAt string `json:"updatedAt"`
}
