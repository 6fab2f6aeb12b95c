package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/tgpost/internal/config"
	"github.com/blacktop/tgpost/internal/credential"
	"github.com/blacktop/tgpost/internal/tgpost"
	"github.com/spf13/cobra"
)

type sentMessage struct {
	chatID, text string
	mode         tgpost.ParseMode
}

type sentPhoto struct {
	chatID, path, caption string
	mode                  tgpost.ParseMode
}

type fakePoster struct {
	messages []sentMessage
	photos   []sentPhoto
	result   tgpost.PostResult
	err      error
}

func (p *fakePoster) SendMessage(_ context.Context, chatID, text string, mode tgpost.ParseMode) (tgpost.PostResult, error) {
	p.messages = append(p.messages, sentMessage{chatID, text, mode})
	return p.result, p.err
}

func (p *fakePoster) SendPhoto(_ context.Context, chatID, path, caption string, mode tgpost.ParseMode) (tgpost.PostResult, error) {
	p.photos = append(p.photos, sentPhoto{chatID, path, caption, mode})
	return p.result, p.err
}

type memoryStore map[string]string

func (m memoryStore) Get(key string) (string, error) {
	if v, ok := m[key]; ok && v != "" {
		return v, nil
	}
	return "", credential.ErrNotFound
}

func (m memoryStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memoryStore) Remove(keys ...string) error {
	for _, key := range keys {
		delete(m, key)
	}
	return nil
}

func (m memoryStore) Describe() string { return "memory" }

type staticPrompter string

func (p staticPrompter) Prompt(string) (string, error) { return string(p), nil }

type harness struct {
	poster   *fakePoster
	store    memoryStore
	prompter credential.Prompter
	token    string
	stdin    string
	stdout   bytes.Buffer
	stderr   bytes.Buffer
}

func newHarness() *harness {
	return &harness{
		poster: &fakePoster{result: tgpost.PostResult{MessageID: 42, URL: "https://t.me/mychan/42"}},
		store:  memoryStore{credential.BotTokenKey: "123:FAKE"},
	}
}

func (h *harness) run(args ...string) error {
	cmd := newRootCommand(collaborators{
		loadSettings: func() (config.Settings, error) {
			return config.Settings{CredentialStore: credential.KindFile}, nil
		},
		openStore: func(credential.Kind, credential.Options) (credential.Store, error) {
			return h.store, nil
		},
		prompter: func(*cobra.Command) credential.Prompter { return h.prompter },
		newPoster: func(token string, _ config.Settings) (tgpost.Poster, error) {
			h.token = token
			return h.poster, nil
		},
	})
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(h.stdin))
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	return cmd.Execute()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPrintsURL(t *testing.T) {
	h := newHarness()
	if err := h.run("--channel", "mychan", "Hello!"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "https://t.me/mychan/42") {
		t.Fatalf("url not printed: %q", h.stdout.String())
	}
	want := sentMessage{"@mychan", "Hello!", tgpost.ParseModeNone}
	if len(h.poster.messages) != 1 || h.poster.messages[0] != want {
		t.Fatalf("unexpected sends %+v", h.poster.messages)
	}
	if h.token != "123:FAKE" {
		t.Fatalf("client built with token %q", h.token)
	}
}

func TestPassesParseMode(t *testing.T) {
	h := newHarness()
	if err := h.run("--channel", "ch", "--parse-mode", "HTML", "<b>Bold</b>"); err != nil {
		t.Fatal(err)
	}
	want := sentMessage{"@ch", "<b>Bold</b>", tgpost.ParseModeHTML}
	if h.poster.messages[0] != want {
		t.Fatalf("got %+v", h.poster.messages[0])
	}
}

func TestRejectsUnknownParseMode(t *testing.T) {
	h := newHarness()
	if err := h.run("--channel", "ch", "--parse-mode", "BBCode", "hi"); err == nil {
		t.Fatal("expected error")
	}
	if len(h.poster.messages) != 0 {
		t.Fatal("message sent despite invalid parse mode")
	}
}

func TestSendsPhotoWithCaption(t *testing.T) {
	h := newHarness()
	img := writeFile(t, "photo.jpg", "\xff\xd8")

	if err := h.run("--channel", "mychan", "--image", img, "Caption"); err != nil {
		t.Fatal(err)
	}
	want := sentPhoto{"@mychan", img, "Caption", tgpost.ParseModeNone}
	if len(h.poster.photos) != 1 || h.poster.photos[0] != want {
		t.Fatalf("unexpected photos %+v", h.poster.photos)
	}
}

func TestSendsPhotoWithoutCaption(t *testing.T) {
	h := newHarness()
	h.stdin = "ignored"
	img := writeFile(t, "photo.jpg", "\xff\xd8")

	if err := h.run("--channel", "mychan", "--image", img); err != nil {
		t.Fatal(err)
	}
	want := sentPhoto{"@mychan", img, "", tgpost.ParseModeNone}
	if len(h.poster.photos) != 1 || h.poster.photos[0] != want {
		t.Fatalf("unexpected photos %+v", h.poster.photos)
	}
}

func TestPhotoCaptionFromFile(t *testing.T) {
	h := newHarness()
	img := writeFile(t, "photo.png", "\x89PNG")
	caption := writeFile(t, "caption.txt", "  from file \n")

	if err := h.run("--channel", "mychan", "--image", img, "--from-file", caption); err != nil {
		t.Fatal(err)
	}
	if h.poster.photos[0].caption != "from file" {
		t.Fatalf("got caption %q", h.poster.photos[0].caption)
	}
}

func TestMessageFromFile(t *testing.T) {
	h := newHarness()
	path := writeFile(t, "post.md", "\n*release* notes\n")

	if err := h.run("--channel", "@mychan", "--from-file", path, "--parse-mode", "MarkdownV2"); err != nil {
		t.Fatal(err)
	}
	want := sentMessage{"@mychan", "*release* notes", tgpost.ParseModeMarkdownV2}
	if h.poster.messages[0] != want {
		t.Fatalf("got %+v", h.poster.messages[0])
	}
}

func TestMessageFromStdin(t *testing.T) {
	h := newHarness()
	h.stdin = "piped text\n"

	if err := h.run("--channel", "mychan"); err != nil {
		t.Fatal(err)
	}
	if h.poster.messages[0].text != "piped text" {
		t.Fatalf("got %q", h.poster.messages[0].text)
	}
}

func TestRejectsEmptyText(t *testing.T) {
	h := newHarness()
	err := h.run("--channel", "ch")
	if !errors.Is(err, tgpost.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if len(h.poster.messages) != 0 {
		t.Fatal("message sent with empty text")
	}
}

func TestRejectsMissingBotToken(t *testing.T) {
	h := newHarness()
	h.store = memoryStore{}
	h.prompter = staticPrompter("")

	err := h.run("--channel", "ch", "hello")
	var missing *tgpost.MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingCredentialError, got %v", err)
	}
	if len(h.poster.messages) != 0 {
		t.Fatal("message sent without a token")
	}
}

func TestFirstRunPromptsForToken(t *testing.T) {
	h := newHarness()
	h.store = memoryStore{}
	h.prompter = staticPrompter("999:NEW")

	if err := h.run("--channel", "ch", "hello"); err != nil {
		t.Fatal(err)
	}
	if h.token != "999:NEW" || h.store[credential.BotTokenKey] != "999:NEW" {
		t.Fatalf("token=%q stored=%q", h.token, h.store[credential.BotTokenKey])
	}
	if !strings.Contains(h.stderr.String(), "First-time setup") {
		t.Fatalf("setup guide missing: %q", h.stderr.String())
	}
}

func TestResetKeys(t *testing.T) {
	h := newHarness()
	h.prompter = staticPrompter("999:NEW")

	if err := h.run("--channel", "ch", "--reset-keys", "hello"); err != nil {
		t.Fatal(err)
	}
	if h.token != "999:NEW" {
		t.Fatalf("expected re-prompted token, got %q", h.token)
	}
}

func TestRejectsMissingChannel(t *testing.T) {
	h := newHarness()
	if err := h.run("hello"); err == nil {
		t.Fatal("expected error without --channel")
	}
	if err := h.run("--channel", " ", "hello"); !errors.Is(err, tgpost.ErrMissingChannel) {
		t.Fatalf("expected ErrMissingChannel, got %v", err)
	}
	if len(h.poster.messages) != 0 {
		t.Fatal("message sent without a channel")
	}
}

func TestRejectsMissingImage(t *testing.T) {
	h := newHarness()
	err := h.run("--channel", "ch", "--image", filepath.Join(t.TempDir(), "nope.png"))
	var notFound *tgpost.ImageNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ImageNotFoundError, got %v", err)
	}
}

func TestPropagatesSendErrors(t *testing.T) {
	h := newHarness()
	h.poster.err = &tgpost.RemoteError{Method: "sendMessage", StatusCode: 403, Body: "forbidden"}

	err := h.run("--channel", "ch", "hello")
	var remote *tgpost.RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 403 {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("unexpected output on failure: %q", h.stdout.String())
	}
}

func TestPrintsMessageIDWithoutPublicURL(t *testing.T) {
	h := newHarness()
	h.poster.result = tgpost.PostResult{MessageID: 7}

	if err := h.run("--channel", "ch", "hello"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "message_id 7") {
		t.Fatalf("got %q", h.stdout.String())
	}
}

func TestDryRunDoesNotPost(t *testing.T) {
	h := newHarness()
	built := false
	cmd := newRootCommand(collaborators{
		loadSettings: func() (config.Settings, error) { return config.Settings{}, nil },
		openStore:    func(credential.Kind, credential.Options) (credential.Store, error) { return h.store, nil },
		prompter:     func(*cobra.Command) credential.Prompter { return nil },
		newPoster: func(string, config.Settings) (tgpost.Poster, error) {
			built = true
			return h.poster, nil
		},
	})
	cmd.SetArgs([]string{"--channel", "ch", "--dry-run", "hello"})
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if built {
		t.Fatal("client built during dry run")
	}
	if !strings.Contains(h.stdout.String(), `[dry-run] would post to @ch: "hello"`) {
		t.Fatalf("got %q", h.stdout.String())
	}
}

func TestStoreFlagOverridesSettings(t *testing.T) {
	h := newHarness()
	var opened credential.Kind
	cmd := newRootCommand(collaborators{
		loadSettings: func() (config.Settings, error) {
			return config.Settings{CredentialStore: credential.KindFile}, nil
		},
		openStore: func(kind credential.Kind, _ credential.Options) (credential.Store, error) {
			opened = kind
			return h.store, nil
		},
		prompter:  func(*cobra.Command) credential.Prompter { return nil },
		newPoster: func(string, config.Settings) (tgpost.Poster, error) { return h.poster, nil },
	})
	cmd.SetArgs([]string{"--channel", "ch", "--store", "env", "hello"})
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if opened != credential.KindEnv {
		t.Fatalf("opened %q store", opened)
	}
}

func TestCompletion(t *testing.T) {
	h := newHarness()
	if err := h.run("completion", "bash"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "tgpost") {
		t.Fatal("completion script missing command name")
	}
}
