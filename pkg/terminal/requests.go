package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antibyte/turtleterm/pkg/auth"
	"github.com/antibyte/turtleterm/pkg/canvas"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/shared"
	"github.com/antibyte/turtleterm/pkg/store"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

// Request types accepted over the websocket.
const (
	RequestRun       = "run"    // reset, then execute content
	RequestExec      = "exec"   // execute content on top of the current state
	RequestCall      = "call"   // invoke a defined method
	RequestStop      = "stop"   // cancel the running script
	RequestCheck     = "check"  // validate content without running it
	RequestSave      = "save"   // store content under name
	RequestLoad      = "load"   // fetch a program by id or name
	RequestList      = "list"   // list visible programs
	RequestDelete    = "delete" // delete an own program by id
	RequestSVG       = "svg"    // render content, or the program id, as SVG
	RequestHelp      = "help"
	RequestKeepalive = "keepalive"
)

// Request is a client message.
type Request struct {
	Type    string    `json:"type"`
	Content string    `json:"content,omitempty"`
	Name    string    `json:"name,omitempty"`
	ID      string    `json:"id,omitempty"`
	Method  string    `json:"method,omitempty"`
	Args    []float64 `json:"args,omitempty"`
}

var errUnknownRequest = errors.New("unknown request type")

// decodeRequest parses a single request and rejects unknown fields.
func decodeRequest(data []byte) (Request, error) {
	var req Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	switch req.Type {
	case RequestRun, RequestExec, RequestCall, RequestStop, RequestCheck, RequestSave,
		RequestLoad, RequestList, RequestDelete, RequestSVG, RequestHelp, RequestKeepalive:
		return req, nil
	}
	return req, fmt.Errorf("%w: %q", errUnknownRequest, req.Type)
}

// owners lists whose programs the client may read.
func owners(id auth.Identity) []string {
	if id.Guest {
		return []string{auth.GuestOwner}
	}
	return []string{id.Username, auth.GuestOwner}
}

func (c *Client) handleRequest(req Request) {
	logger.Debug(logger.AreaTerminal, "Session %s request %s", c.session.ID, req.Type)

	switch req.Type {
	case RequestKeepalive:
	case RequestRun, RequestExec:
		go c.runScript(req.Content, req.Type == RequestRun)
	case RequestCall:
		go c.callMethod(req.Method, req.Args)
	case RequestStop:
		c.session.Stop()
		c.reply(shared.Message{Type: shared.MessageTypeText, Content: "Stopped"})
	case RequestCheck:
		go c.checkScript(req.Content)
	case RequestSave:
		c.saveProgram(req.Name, req.Content)
	case RequestLoad:
		c.loadProgram(req.ID, req.Name)
	case RequestList:
		c.listPrograms()
	case RequestDelete:
		c.deleteProgram(req.ID)
	case RequestSVG:
		go c.renderSVG(req.ID, req.Content)
	case RequestHelp:
		c.reply(shared.Message{Type: shared.MessageTypeText, Content: strings.Join(turtle.HelpText(), "\n")})
	}
}

func (c *Client) runScript(script string, fresh bool) {
	start := time.Now()
	dropped := c.session.Canvas.Dropped()
	if err := c.session.Run(c.ctx, script, fresh); err != nil {
		logger.Debug(logger.AreaInterpreter, "Run in session %s failed: %v", c.session.ID, err)
		c.reply(errorMessage(err))
		return
	}
	c.reply(c.doneMessage(fmt.Sprintf("Done in %v", time.Since(start).Round(time.Millisecond)), dropped))
}

// checkScript validates content against the methods the session already
// knows, so chunks meant for exec can call them. It waits for a running
// script to finish.
func (c *Client) checkScript(content string) {
	known := c.session.Interpreter.MethodArities()
	c.reply(validationMessage(turtle.ValidateWith(content, known)))
}

func (c *Client) callMethod(name string, args []float64) {
	dropped := c.session.Canvas.Dropped()
	if err := c.session.Invoke(c.ctx, name, args); err != nil {
		c.reply(errorMessage(err))
		return
	}
	c.reply(c.doneMessage(name+" done", dropped))
}

// doneMessage reports a finished run. droppedBefore is the canvas drop
// counter at the start of the run.
func (c *Client) doneMessage(content string, droppedBefore int64) shared.Message {
	n := c.session.Canvas.Dropped() - droppedBefore
	if n > 0 {
		logger.WebSocketWarn("Session %s: %d drawing messages dropped, output channel full", c.session.ID, n)
	}
	return completion(content, n)
}

func completion(content string, dropped int64) shared.Message {
	msg := shared.Message{Type: shared.MessageTypeDone, Content: content}
	if dropped > 0 {
		msg.Content = fmt.Sprintf("%s, %d drawing messages lost, run again to redraw", content, dropped)
		msg.Params = map[string]interface{}{"dropped": dropped}
	}
	return msg
}

func (c *Client) saveProgram(name, source string) {
	if c.identity.Guest {
		c.reply(shared.Message{Type: shared.MessageTypeError, Content: "Log in to save programs"})
		return
	}
	if err := resources.DefaultScriptLimits().Check(source); err != nil {
		c.reply(errorMessage(err))
		return
	}
	p, err := c.handler.programs.SaveProgram(c.ctx, c.identity.Username, name, source)
	if err != nil {
		c.reply(storeError("save", err))
		return
	}
	c.reply(shared.Message{
		Type:        shared.MessageTypeProgram,
		Content:     p.Source,
		ProgramID:   p.ID,
		ProgramName: p.Name,
	})
	c.reply(shared.Message{Type: shared.MessageTypeText, Content: "Saved " + p.Name})
}

func (c *Client) loadProgram(id, name string) {
	var (
		p   store.Program
		err error
	)
	switch {
	case id != "":
		p, err = c.handler.programs.LoadProgram(c.ctx, id, owners(c.identity)...)
	case name != "":
		err = store.ErrNotFound
		for _, owner := range owners(c.identity) {
			if p, err = c.handler.programs.LoadProgramByName(c.ctx, owner, name); err == nil {
				break
			}
		}
	default:
		err = store.ErrNameRequired
	}
	if err != nil {
		c.reply(storeError("load", err))
		return
	}
	c.reply(shared.Message{
		Type:        shared.MessageTypeProgram,
		Content:     p.Source,
		ProgramID:   p.ID,
		ProgramName: p.Name,
	})
}

func (c *Client) listPrograms() {
	programs, err := c.handler.programs.ListPrograms(c.ctx, owners(c.identity)...)
	if err != nil {
		c.reply(storeError("list", err))
		return
	}
	infos := make([]shared.ProgramInfo, 0, len(programs))
	for _, p := range programs {
		infos = append(infos, shared.ProgramInfo{
			ID:        p.ID,
			Name:      p.Name,
			Owner:     p.Owner,
			UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
		})
	}
	c.reply(shared.Message{Type: shared.MessageTypeProgramList, Programs: infos})
}

func (c *Client) deleteProgram(id string) {
	if c.identity.Guest {
		c.reply(shared.Message{Type: shared.MessageTypeError, Content: "Log in to delete programs"})
		return
	}
	if err := c.handler.programs.DeleteProgram(c.ctx, c.identity.Username, id); err != nil {
		c.reply(storeError("delete", err))
		return
	}
	c.reply(shared.Message{Type: shared.MessageTypeText, Content: "Deleted", ProgramID: id})
}

func (c *Client) renderSVG(id, script string) {
	title := ""
	if id != "" {
		p, err := c.handler.programs.LoadProgram(c.ctx, id, owners(c.identity)...)
		if err != nil {
			c.reply(storeError("load", err))
			return
		}
		script, title = p.Source, p.Name
	}
	if err := resources.DefaultScriptLimits().Check(script); err != nil {
		c.reply(errorMessage(err))
		return
	}
	doc, err := canvas.RenderScript(c.ctx, script, title)
	if err != nil {
		c.reply(errorMessage(err))
		return
	}
	c.reply(shared.Message{Type: shared.MessageTypeSVG, Content: doc, ProgramID: id, ProgramName: title})
}

// errorMessage describes err for the browser. Script errors carry the
// failing line and kind; nested failures add the innermost line.
func errorMessage(err error) shared.Message {
	msg := shared.Message{Type: shared.MessageTypeError, Content: err.Error()}

	var se *turtle.ScriptError
	if errors.As(err, &se) {
		msg.Line = se.Line
		var inner *turtle.ScriptError
		if errors.As(se.Err, &inner) {
			line, text := turtle.RootLine(err)
			msg.Params = map[string]interface{}{"rootLine": line, "rootText": text}
		}
	}
	if kind := turtle.KindOf(err); kind != turtle.KindNone {
		msg.Kind = kind.String()
	}
	var te *turtle.Error
	if errors.As(err, &te) {
		msg.Usage = te.UsageHint
	}
	return msg
}

func validationMessage(res turtle.ValidationResult) shared.Message {
	if res.OK {
		return shared.Message{Type: shared.MessageTypeValidation, Content: "OK"}
	}
	return shared.Message{
		Type:    shared.MessageTypeValidation,
		Content: res.Reason,
		Line:    res.LineNumber,
		Kind:    res.KindName,
		Usage:   res.UsageHint,
	}
}

func storeError(op string, err error) shared.Message {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return shared.Message{Type: shared.MessageTypeError, Content: "Program not found"}
	case errors.Is(err, store.ErrNameRequired):
		return shared.Message{Type: shared.MessageTypeError, Content: "Program name required"}
	}
	logger.Error(logger.AreaDatabase, "Program %s failed: %v", op, err)
	return shared.Message{Type: shared.MessageTypeError, Content: "Program " + op + " failed"}
}
