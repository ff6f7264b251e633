package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/comb/internal/core/logging"
	"github.com/colonyops/comb/internal/core/mailbox"
	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/internal/hive"
)

type MsgCmd struct {
	flags *Flags
	app   *hive.App

	agent string

	// send flags
	sendTo      string
	sendSubject string
	sendFile    string

	// inbox flags
	inboxUnread   bool
	inboxArchived bool

	// read flags
	readPeek bool
}

// NewMsgCmd creates a new msg command.
func NewMsgCmd(flags *Flags, app *hive.App) *MsgCmd {
	return &MsgCmd{flags: flags, app: app}
}

// Register adds the msg command to the application.
func (cmd *MsgCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "msg",
		Usage: "Send and read inter-agent messages",
		Description: `Message commands for inter-agent communication.

Messages are markdown files under <data-dir>/messages/inbox and
<data-dir>/messages/archive. The acting agent is taken from --agent or
$COMB_AGENT.`,
		Commands: []*cli.Command{
			cmd.sendCmd(),
			cmd.inboxCmd(),
			cmd.sentCmd(),
			cmd.readCmd(),
			cmd.idCmd("archive", "Move a message to the archive", (*hive.Toolkit).ArchiveMessage),
			cmd.idCmd("unarchive", "Move an archived message back to the inbox", (*hive.Toolkit).UnarchiveMessage),
			cmd.idCmd("delete", "Delete a message permanently", (*hive.Toolkit).DeleteMessage),
			cmd.replyCmd(),
		},
	})

	return app
}

func (cmd *MsgCmd) agentFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "agent",
		Aliases:     []string{"a"},
		Usage:       "acting agent name",
		Sources:     cli.EnvVars("COMB_AGENT"),
		Required:    required,
		Destination: &cmd.agent,
	}
}

func (cmd *MsgCmd) sendCmd() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message to an agent",
		UsageText: "comb msg send --to <agent> --subject <subject> [body]",
		Description: `Sends a message from --agent to --to.

The body can be provided as:
- A command-line argument
- From a file with -f/--file
- From stdin when it is not a terminal

Sending to "human" is allowed; hooks decide how the operator is notified.

Examples:
  comb msg send -a coder-1 --to orchestrator -s "PLAT-12 ready" "all tests pass"
  git diff | comb msg send -a coder-1 --to reviewer -s "diff for review"`,
		Flags: []cli.Flag{
			cmd.agentFlag(true),
			&cli.StringFlag{
				Name:        "to",
				Aliases:     []string{"t"},
				Usage:       "recipient agent",
				Required:    true,
				Destination: &cmd.sendTo,
			},
			&cli.StringFlag{
				Name:        "subject",
				Aliases:     []string{"s"},
				Usage:       "message subject",
				Required:    true,
				Destination: &cmd.sendSubject,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read message body from file",
				Destination: &cmd.sendFile,
			},
		},
		Action: cmd.runSend,
	}
}

func (cmd *MsgCmd) inboxCmd() *cli.Command {
	return &cli.Command{
		Name:      "inbox",
		Usage:     "List messages addressed to an agent",
		UsageText: "comb msg inbox -a <agent> [--unread | --archived]",
		Flags: []cli.Flag{
			cmd.agentFlag(true),
			&cli.BoolFlag{
				Name:        "unread",
				Aliases:     []string{"u"},
				Usage:       "only unread messages",
				Destination: &cmd.inboxUnread,
			},
			&cli.BoolFlag{
				Name:        "archived",
				Usage:       "list archived messages instead",
				Destination: &cmd.inboxArchived,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			box := hive.BoxInbox
			switch {
			case cmd.inboxArchived:
				box = hive.BoxArchive
			case cmd.inboxUnread:
				box = hive.BoxUnread
			}
			return cmd.flags.render(c, cmd.app.Toolkit.ListMessages(ctx, cmd.agent, box), messageTable)
		},
	}
}

func (cmd *MsgCmd) sentCmd() *cli.Command {
	return &cli.Command{
		Name:      "sent",
		Usage:     "List messages sent by an agent",
		UsageText: "comb msg sent -a <agent>",
		Flags:     []cli.Flag{cmd.agentFlag(true)},
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.flags.render(c, cmd.app.Toolkit.ListMessages(ctx, cmd.agent, hive.BoxSent), messageTable)
		},
	}
}

func (cmd *MsgCmd) readCmd() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Show a message and mark it read",
		UsageText: "comb msg read [--peek] <id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "peek",
				Usage:       "read without marking the message read",
				Destination: &cmd.readPeek,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "message id")
			if err != nil {
				return err
			}

			res := cmd.app.Toolkit.ReadMessage(ctx, id)
			if !res.IsError && !cmd.readPeek {
				if marked := cmd.app.Toolkit.MarkRead(ctx, id); marked.IsError {
					return cmd.flags.render(c, marked, nil)
				}
			}
			return cmd.flags.render(c, res, nil)
		},
	}
}

func (cmd *MsgCmd) replyCmd() *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "Reply to the sender of a message",
		UsageText: "comb msg reply -a <agent> <id> [body]",
		Flags: []cli.Flag{
			cmd.agentFlag(true),
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read reply body from file",
				Destination: &cmd.sendFile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "message id")
			if err != nil {
				return err
			}
			body, err := cmd.readBody(c, 1)
			if err != nil {
				return err
			}
			ctx = logging.WithAgent(ctx, cmd.agent)
			return cmd.flags.render(c, cmd.app.Toolkit.ReplyMessage(ctx, id, cmd.agent, body), nil)
		},
	}
}

func (cmd *MsgCmd) idCmd(name, usage string, op func(*hive.Toolkit, context.Context, string) hive.Result) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		UsageText: "comb msg " + name + " <id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := requireArg(c, "message id")
			if err != nil {
				return err
			}
			return cmd.flags.render(c, op(cmd.app.Toolkit, ctx, id), nil)
		},
	}
}

func (cmd *MsgCmd) runSend(ctx context.Context, c *cli.Command) error {
	body, err := cmd.readBody(c, 0)
	if err != nil {
		return err
	}
	ctx = logging.WithAgent(ctx, cmd.agent)
	return cmd.flags.render(c, cmd.app.Toolkit.SendMessage(ctx, cmd.agent, cmd.sendTo, cmd.sendSubject, body), nil)
}

// readBody returns the positional argument at index, the --file contents, or
// stdin when it is piped.
func (cmd *MsgCmd) readBody(c *cli.Command, index int) (string, error) {
	switch {
	case c.NArg() > index:
		return c.Args().Get(index), nil
	case cmd.sendFile != "":
		data, err := os.ReadFile(cmd.sendFile)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	case !term.IsTerminal(int(os.Stdin.Fd())):
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		return "", nil
	}
}

func messageTable(data any) ([]string, [][]string) {
	msgs, _ := data.([]mailbox.Message)
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		state := "unread"
		if m.Read {
			state = "read"
		}
		rows = append(rows, []string{
			styles.IDStyle.Render(m.ID),
			m.From,
			m.To,
			m.Subject,
			m.Timestamp.Local().Format(time.DateTime),
			styles.StatusStyle(state).Render(state),
		})
	}
	return []string{"ID", "From", "To", "Subject", "Date", "State"}, rows
}

func requireArg(c *cli.Command, name string) (string, error) {
	if c.NArg() < 1 || c.Args().First() == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return c.Args().First(), nil
}
