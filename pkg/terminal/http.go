package terminal

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/antibyte/turtleterm/pkg/canvas"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/resources"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

// scriptResponse is the JSON body of failed HTTP script requests.
type scriptResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Usage   string `json:"usage,omitempty"`
}

// readScript reads a POSTed script body within the size limits. It writes
// the error response itself and returns false on failure.
func readScript(w http.ResponseWriter, r *http.Request) (string, bool) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return "", false
	}
	if r.Method != http.MethodPost {
		writeScriptError(w, http.StatusMethodNotAllowed, scriptResponse{Message: "Method not allowed"})
		return "", false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, getMaxMessageSize()))
	if err != nil {
		writeScriptError(w, http.StatusRequestEntityTooLarge, scriptResponse{Message: "Script too large"})
		return "", false
	}
	script := string(body)
	if err := resources.DefaultScriptLimits().Check(script); err != nil {
		writeScriptError(w, http.StatusRequestEntityTooLarge, scriptResponse{Message: err.Error()})
		return "", false
	}
	return script, true
}

func writeScriptError(w http.ResponseWriter, status int, resp scriptResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// HandleCheck validates the request body and returns the result as JSON.
func HandleCheck(w http.ResponseWriter, r *http.Request) {
	script, ok := readScript(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turtle.Validate(script))
}

// HandleRenderSVG runs the request body and returns the drawing as SVG.
func HandleRenderSVG(w http.ResponseWriter, r *http.Request) {
	script, ok := readScript(w, r)
	if !ok {
		return
	}
	doc, err := canvas.RenderScript(r.Context(), script, r.URL.Query().Get("title"))
	if err != nil {
		m := errorMessage(err)
		resp := scriptResponse{Message: m.Content, Line: m.Line, Kind: m.Kind, Usage: m.Usage}
		logger.Debug(logger.AreaCanvas, "SVG render failed: %v", err)
		writeScriptError(w, http.StatusUnprocessableEntity, resp)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	io.WriteString(w, doc)
}
