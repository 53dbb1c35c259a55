package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/halit-vural/autorag/internal/config"
	"github.com/halit-vural/autorag/internal/session"
)

const helpText = `Type a question and press Enter, or use a command:
  /url <url>            add a web page to the knowledge base
  /pdf <path>           add a PDF file
  /folder <dir>         add every PDF in a folder
  /clear                clear the knowledge base
  /new                  start a new run
  /run <id>             switch to an earlier run
  /runs                 list runs
  /model <name>         switch the LLM (%s)
  /embeddings <name>    switch the embeddings model (%s)
  /help                 show this help
  /quit                 exit`

func help() string {
	return fmt.Sprintf(helpText, strings.Join(config.LLMModels, ", "), strings.Join(config.EmbeddingsModels, ", "))
}

// request is one parsed line of input. Exactly one of its parts is meaningful.
type request struct {
	event session.Event

	// pdfPath is read from disk when the cycle runs.
	pdfPath  string
	showRuns bool
	showHelp bool
	quit     bool
}

// parseInput turns a line into a request against the current model selection.
func parseInput(line string, current session.Selection) (request, error) {
	line = strings.TrimSpace(line)
	req := request{event: session.Event{Selection: current}}

	if !strings.HasPrefix(line, "/") {
		req.event.Prompt = line
		return req, nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	needsArg := func() error {
		if arg == "" {
			return fmt.Errorf("%s needs an argument", name)
		}
		return nil
	}

	switch name {
	case "/url":
		if err := needsArg(); err != nil {
			return req, err
		}
		req.event.URL = arg
	case "/pdf":
		if err := needsArg(); err != nil {
			return req, err
		}
		req.pdfPath = arg
	case "/folder":
		req.event.Folder = arg
		req.event.AddFolder = true
	case "/clear":
		req.event.ClearKnowledgeBase = true
	case "/new":
		req.event.NewRun = true
	case "/run":
		if err := needsArg(); err != nil {
			return req, err
		}
		req.event.SelectRunID = arg
	case "/runs":
		req.showRuns = true
	case "/model":
		if !slices.Contains(config.LLMModels, arg) {
			return req, fmt.Errorf("unknown model %q, choose one of: %s", arg, strings.Join(config.LLMModels, ", "))
		}
		req.event.Selection.LLMModel = arg
	case "/embeddings":
		if !slices.Contains(config.EmbeddingsModels, arg) {
			return req, fmt.Errorf("unknown embeddings model %q, choose one of: %s", arg, strings.Join(config.EmbeddingsModels, ", "))
		}
		req.event.Selection.EmbeddingsModel = arg
	case "/help":
		req.showHelp = true
	case "/quit", "/exit":
		req.quit = true
	default:
		return req, fmt.Errorf("unknown command %s, type /help", name)
	}
	return req, nil
}

// local reports whether the request is answered without running a cycle.
func (r request) local() bool {
	return r.showRuns || r.showHelp || r.quit
}
