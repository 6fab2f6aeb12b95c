/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blacktop/tgpost/internal/config"
	"github.com/blacktop/tgpost/internal/credential"
	"github.com/blacktop/tgpost/internal/logutil"
	"github.com/blacktop/tgpost/internal/tgpost"
	"github.com/blacktop/tgpost/internal/tgpost/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const textPrompt = "Enter message text (Ctrl+D to send):"

type options struct {
	fromFile  string
	imagePath string
	channel   string
	parseMode string
	store     string
	resetKeys bool
	dryRun    bool
	verbose   bool
}

// collaborators are the pieces runRoot reaches outside the process through.
type collaborators struct {
	loadSettings func() (config.Settings, error)
	openStore    func(credential.Kind, credential.Options) (credential.Store, error)
	prompter     func(cmd *cobra.Command) credential.Prompter
	newPoster    func(token string, settings config.Settings) (tgpost.Poster, error)
}

func defaultCollaborators() collaborators {
	return collaborators{
		loadSettings: func() (config.Settings, error) { return config.Load(nil) },
		openStore:    credential.Open,
		prompter:     terminalPrompter,
		newPoster: func(token string, settings config.Settings) (tgpost.Poster, error) {
			return telegram.New(token,
				telegram.WithEndpoint(settings.Endpoint),
				telegram.WithTimeout(settings.Timeout),
			)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCommand(defaultCollaborators()).Execute()
}

func newRootCommand(c collaborators) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tgpost [text]",
		Short: "Post to a Telegram channel",
		Long: "tgpost publishes a message or a photo to a Telegram channel through the Bot API. " +
			"The bot token is requested on first run and saved for later invocations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts, c)
		},
		Example: `  tgpost --channel mychannel "hello world"
  tgpost --channel @mychannel --from-file ./post.md --parse-mode MarkdownV2
  tgpost --channel mychannel --image ./shot.png "Release shipped"
  echo "Release shipped" | tgpost --channel mychannel`,
	}

	cmd.Flags().StringVar(&opts.channel, "channel", "", "Telegram channel (e.g. myChannel, @myChannel, or numeric ID)")
	cmd.Flags().StringVar(&opts.fromFile, "from-file", "", "Read message text from a file")
	cmd.Flags().StringVar(&opts.imagePath, "image", "", "Send a photo (jpg/png/gif/webp, max 10 MB)")
	cmd.Flags().StringVar(&opts.parseMode, "parse-mode", "", "Message parse mode (HTML, Markdown, MarkdownV2)")
	cmd.Flags().BoolVar(&opts.resetKeys, "reset-keys", false, "Clear saved credentials and prompt again")
	cmd.Flags().StringVar(&opts.store, "store", "", "Credential store to use (file, keyring, env)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print what would be posted without posting")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "V", false, "Enable debug logging")
	cmd.Flags().SortFlags = false
	_ = cmd.MarkFlagRequired("channel")

	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string, opts *options, c collaborators) error {
	ctx := cmd.Context()
	logutil.SetOutput(cmd.ErrOrStderr())
	logutil.SetVerbose(opts.verbose)

	if strings.TrimSpace(opts.channel) == "" {
		return tgpost.ErrMissingChannel
	}

	mode, err := tgpost.ParseParseMode(opts.parseMode)
	if err != nil {
		return err
	}

	token, settings, err := resolveCredentials(cmd, opts, c)
	if err != nil {
		return err
	}

	chatID := tgpost.NormalizeChannel(strings.TrimSpace(opts.channel))

	var text string
	if opts.imagePath != "" {
		if _, err := os.Stat(opts.imagePath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &tgpost.ImageNotFoundError{Path: opts.imagePath, Err: err}
			}
			return fmt.Errorf("stat image: %w", err)
		}
		if text, err = resolveCaption(args, opts); err != nil {
			return err
		}
	} else {
		if text, err = resolveMessage(cmd, args, opts); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		if opts.imagePath != "" {
			fmt.Fprintf(out, "[dry-run] would post photo %s to %s (caption: %q, parse mode: %q)\n", opts.imagePath, chatID, text, mode)
		} else {
			fmt.Fprintf(out, "[dry-run] would post to %s: %q (parse mode: %q)\n", chatID, text, mode)
		}
		return nil
	}

	poster, err := c.newPoster(token, settings)
	if err != nil {
		return err
	}

	var result tgpost.PostResult
	if opts.imagePath != "" {
		result, err = poster.SendPhoto(ctx, chatID, opts.imagePath, text, mode)
	} else {
		result, err = poster.SendMessage(ctx, chatID, text, mode)
	}
	if err != nil {
		return err
	}

	if result.URL == "" {
		fmt.Fprintf(out, "Message posted! (message_id %d)\n", result.MessageID)
		return nil
	}
	fmt.Fprintf(out, "Message posted!\n%s\n", result.URL)
	return nil
}

func resolveCredentials(cmd *cobra.Command, opts *options, c collaborators) (string, config.Settings, error) {
	settings, err := c.loadSettings()
	if err != nil {
		return "", config.Settings{}, err
	}
	if opts.store != "" {
		if settings.CredentialStore, err = credential.ParseKind(opts.store); err != nil {
			return "", config.Settings{}, err
		}
	}

	store, err := c.openStore(settings.CredentialStore, settings.CredentialOptions())
	if err != nil {
		return "", config.Settings{}, err
	}

	resolver := &credential.Resolver{
		Store:    store,
		Prompter: c.prompter(cmd),
		Out:      cmd.ErrOrStderr(),
	}
	if opts.resetKeys {
		if err := resolver.Reset(); err != nil {
			return "", config.Settings{}, err
		}
	}

	token, err := resolver.BotToken()
	if err != nil {
		return "", config.Settings{}, err
	}
	return token, settings, nil
}

// resolveCaption picks the photo caption: inline text first, then --from-file.
// Stdin is never read for photos.
func resolveCaption(args []string, opts *options) (string, error) {
	if caption := strings.TrimSpace(strings.Join(args, " ")); caption != "" {
		return caption, nil
	}
	if opts.fromFile != "" {
		return readMessageFile(opts.fromFile)
	}
	return "", nil
}

func resolveMessage(cmd *cobra.Command, args []string, opts *options) (string, error) {
	if message := strings.TrimSpace(strings.Join(args, " ")); message != "" {
		return message, nil
	}

	var message string
	if opts.fromFile != "" {
		text, err := readMessageFile(opts.fromFile)
		if err != nil {
			return "", err
		}
		message = text
	} else {
		stdin := cmd.InOrStdin()
		if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			fmt.Fprintln(cmd.ErrOrStderr(), textPrompt)
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}

	if message == "" {
		return "", tgpost.ErrEmptyText
	}
	return message, nil
}

func readMessageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read message file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// terminalPrompter only prompts when stdin is interactive, so piped message
// text is never consumed as a token.
func terminalPrompter(cmd *cobra.Command) credential.Prompter {
	file, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil
	}
	return credential.TerminalPrompter{In: file, Out: cmd.ErrOrStderr()}
}
