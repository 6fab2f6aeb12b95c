package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/tgpost/internal/logutil"
	"github.com/blacktop/tgpost/internal/tgpost"
	"golang.org/x/term"
)

const setupGuide = `
First-time setup
================
You need a Telegram Bot Token.

1. Open https://t.me/BotFather
2. Send /newbot and follow the prompts
3. Copy the Bot Token below
`

// Prompter asks the user for a value.
type Prompter interface {
	Prompt(label string) (string, error)
}

// TerminalPrompter reads answers from in. When in is a terminal the input is
// not echoed.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Prompt implements Prompter.
func (p TerminalPrompter) Prompt(label string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", label)

	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// Resolver obtains the bot token from a Store, prompting for it on first use.
type Resolver struct {
	Store Store
	// Prompter may be nil, in which case a missing token is an error.
	Prompter Prompter
	Out      io.Writer
}

// Reset forgets the saved bot token so the next resolution prompts again.
func (r *Resolver) Reset() error {
	if err := r.Store.Remove(BotTokenKey); err != nil {
		return fmt.Errorf("reset credentials: %w", err)
	}
	logutil.Debugf("cleared saved credentials from %s", r.Store.Describe())
	return nil
}

// BotToken returns the saved bot token, or asks for one and saves it.
func (r *Resolver) BotToken() (string, error) {
	token, err := r.Store.Get(BotTokenKey)
	switch {
	case err == nil:
		logutil.Debugf("using bot token %s from %s", logutil.Redact(token), r.Store.Describe())
		return token, nil
	case !errors.Is(err, ErrNotFound):
		return "", err
	}

	missing := &tgpost.MissingCredentialError{Key: BotTokenKey, Source: r.Store.Describe()}
	if r.Prompter == nil {
		return "", missing
	}

	if r.Out != nil {
		fmt.Fprint(r.Out, setupGuide+"\n")
	}
	token, err = r.Prompter.Prompt("Bot Token")
	if err != nil {
		return "", err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", missing
	}

	if err := r.Store.Set(BotTokenKey, token); err != nil {
		return "", fmt.Errorf("save bot token: %w", err)
	}
	logutil.Debugf("saved bot token %s to %s", logutil.Redact(token), r.Store.Describe())

	return token, nil
}
