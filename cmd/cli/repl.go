package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/session"
)

const (
	historyFile = ".scriptctl_history"
	promptMain  = ">>> "
	promptCont  = "... "
	replHelp    = `:quit     leave the session
:vars     list variables
:classes  list declared classes
:reset    drop every variable and class
:help     show this help`
)

func startRepl(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Apply()
	transcriptPath := c.String("transcript")
	if transcriptPath == "" {
		transcriptPath = cfg.History.Transcript
	}
	transcript, err := openTranscript(transcriptPath)
	if err != nil {
		return err
	}
	if transcript != nil {
		defer transcript.Close()
	}
	sc, err := streamingContext(cfg)
	if err != nil {
		return err
	}
	runner := script.NewRunner(sc)

	histPath := c.String("history")
	if histPath == "" {
		home, _ := os.UserHomeDir()
		histPath = filepath.Join(home, historyFile)
	}
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	infoColor.Printf("scriptctl session %s. Type :help for commands.\n", sc.ID())
	for {
		src, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			if quit := replCommand(sc, trimmed); quit {
				return nil
			}
			continue
		}
		res := session.Run(c.Context, runner, src)
		if transcript != nil {
			if err := transcript.Append(res.Record(src, "")); err != nil {
				warnColor.Fprintf(os.Stderr, "transcript: %v\n", err)
			}
		}
		if !res.Success() {
			errColor.Fprintln(os.Stderr, res.Error)
			continue
		}
		if res.Result != "" {
			infoColor.Println(res.Result)
		}
	}
}

func replCommand(sc *script.Context, cmd string) (quit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":exit", ":q":
		return true
	case ":vars":
		names := sc.VariableNames()
		if len(names) == 0 {
			fmt.Println("(no variables)")
		}
		for _, name := range names {
			v, _ := sc.GetVariable(name)
			fmt.Printf("%s %s = %s\n", v.Type.SimpleName(), name, script.FormatValue(v.Value))
		}
	case ":classes":
		names := sc.ClassNames()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
	case ":reset":
		sc.Reset()
		infoColor.Println("session reset")
	case ":help":
		fmt.Println(replHelp)
	default:
		warnColor.Printf("unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}

// readStatement reads lines until every bracket opened in the input has
// been closed.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !needsMore(b.String()) {
			return b.String(), true
		}
	}
}

// needsMore reports whether src has unclosed brackets or an unterminated
// block comment. Brackets inside literals and comments are ignored.
func needsMore(src string) bool {
	depth := 0
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '"', '\'':
			for i++; i < len(runes) && runes[i] != r && runes[i] != '\n'; i++ {
				if runes[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
			} else if i+1 < len(runes) && runes[i+1] == '*' {
				end := strings.Index(string(runes[i+2:]), "*/")
				if end < 0 {
					return true
				}
				i += 2 + len([]rune(string(runes[i+2:])[:end])) + 1
			}
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		}
	}
	return depth > 0
}
