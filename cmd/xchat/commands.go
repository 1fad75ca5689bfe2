package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/jessevdk/go-flags"
	"github.com/vedran77/xchat/pkg/client"
	"github.com/vedran77/xchat/pkg/domain"
)

type cli struct {
	ctx    context.Context
	api    *client.Client
	out    io.Writer
	errOut io.Writer
}

func (c *cli) register(p *flags.Parser) {
	mustAdd(p, "channels", "List your channels", &channelsCmd{cli: c})
	mustAdd(p, "create", "Create a channel", &createCmd{cli: c})
	mustAdd(p, "priv", "Open a private channel with another user", &privCmd{cli: c})
	mustAdd(p, "messages", "Show messages of a channel", &messagesCmd{cli: c})
	mustAdd(p, "send", "Send a text message", &sendCmd{cli: c})
	mustAdd(p, "upload", "Upload a file into a channel", &uploadCmd{cli: c})
	mustAdd(p, "download", "Download a file from a channel", &downloadCmd{cli: c})
}

func mustAdd(p *flags.Parser, name, short string, cmd any) {
	if _, err := p.AddCommand(name, short, "", cmd); err != nil {
		panic(err)
	}
}

type channelsCmd struct {
	cli          *cli
	Members      []string `long:"member" short:"m" description:"only channels that include this member (repeatable)"`
	CreatedAfter int64    `long:"created-after" description:"epoch milliseconds"`
	Page         int      `long:"page" default:"0"`
	PageSize     int      `long:"page-size" default:"50"`
}

func (c *channelsCmd) Execute([]string) error {
	members, err := domain.ParseNames(c.Members)
	if err != nil {
		return err
	}
	q := client.ChannelQuery{Members: members, Page: c.Page, PageSize: c.PageSize}
	if c.CreatedAfter > 0 {
		t := time.UnixMilli(c.CreatedAfter)
		q.CreatedAfter = &t
	}
	channels, err := c.cli.api.ListChannels(c.cli.ctx, q)
	if err != nil {
		return err
	}
	renderChannels(c.cli.out, channels)
	return nil
}

type createCmd struct {
	cli  *cli
	Name string `long:"name" short:"n" description:"channel name"`
	Args struct {
		Members []string `positional-arg-name:"member"`
	} `positional-args:"yes"`
}

func (c *createCmd) Execute([]string) error {
	var name *domain.Name
	if c.Name != "" {
		parsed, err := domain.ParseName(c.Name)
		if err != nil {
			return err
		}
		name = &parsed
	}
	members, err := domain.ParseNames(c.Args.Members)
	if err != nil {
		return err
	}
	ch, err := c.cli.api.CreateChannel(c.cli.ctx, name, members)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.cli.out, color.Green.Sprintf("created channel %s", ch.ID))
	renderChannels(c.cli.out, []domain.Channel{*ch})
	return nil
}

type privCmd struct {
	cli  *cli
	Args struct {
		Recipient string `positional-arg-name:"user"`
	} `positional-args:"yes" required:"yes"`
}

func (c *privCmd) Execute([]string) error {
	recipient, err := domain.ParseName(c.Args.Recipient)
	if err != nil {
		return err
	}
	ch, err := c.cli.api.CreatePrivateChannel(c.cli.ctx, recipient)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.cli.out, color.Green.Sprintf("created channel %s", ch.ID))
	renderChannels(c.cli.out, []domain.Channel{*ch})
	return nil
}

func parseChannelID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid channel id %q", raw)
	}
	return id, nil
}

type messagesCmd struct {
	cli        *cli
	SentBefore int64 `long:"before" description:"epoch milliseconds"`
	Page       int   `long:"page" default:"0"`
	PageSize   int   `long:"page-size" default:"50"`
	Args       struct {
		Channel string `positional-arg-name:"channel"`
	} `positional-args:"yes" required:"yes"`
}

func (c *messagesCmd) Execute([]string) error {
	channelID, err := parseChannelID(c.Args.Channel)
	if err != nil {
		return err
	}
	q := client.MessageQuery{Page: c.Page, PageSize: c.PageSize}
	if c.SentBefore > 0 {
		t := time.UnixMilli(c.SentBefore)
		q.SentBefore = &t
	}
	msgs, err := c.cli.api.ListMessages(c.cli.ctx, channelID, q)
	if err != nil {
		return err
	}
	renderMessages(c.cli.out, msgs)
	return nil
}

type sendCmd struct {
	cli  *cli
	Args struct {
		Channel string   `positional-arg-name:"channel"`
		Text    []string `positional-arg-name:"text"`
	} `positional-args:"yes" required:"yes"`
}

func (c *sendCmd) Execute([]string) error {
	channelID, err := parseChannelID(c.Args.Channel)
	if err != nil {
		return err
	}
	msg, err := c.cli.api.SendMessage(c.cli.ctx, channelID, domain.TextContent{Text: strings.Join(c.Args.Text, " ")})
	if err != nil {
		return err
	}
	renderMessages(c.cli.out, []domain.Message{*msg})
	return nil
}

type uploadCmd struct {
	cli  *cli
	Name string `long:"name" description:"file name in the channel, defaults to the base name of path"`
	Args struct {
		Channel string `positional-arg-name:"channel"`
		Path    string `positional-arg-name:"path"`
	} `positional-args:"yes" required:"yes"`
}

func (c *uploadCmd) Execute([]string) error {
	channelID, err := parseChannelID(c.Args.Channel)
	if err != nil {
		return err
	}
	f, err := os.Open(c.Args.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	name := c.Name
	if name == "" {
		name = filepath.Base(c.Args.Path)
	}

	bar := newProgressBar(c.cli.errOut, name)
	msg, err := c.cli.api.UploadFile(c.cli.ctx, channelID, name, st.Size(), f, bar.update)
	bar.done(err == nil)
	if err != nil {
		return err
	}
	renderMessages(c.cli.out, []domain.Message{*msg})
	return nil
}

type downloadCmd struct {
	cli    *cli
	Output string `long:"output" short:"o" description:"destination path, defaults to the file name"`
	Args   struct {
		Channel string `positional-arg-name:"channel"`
		Name    string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *downloadCmd) Execute([]string) error {
	channelID, err := parseChannelID(c.Args.Channel)
	if err != nil {
		return err
	}
	bar := newProgressBar(c.cli.errOut, c.Args.Name)
	rc, err := c.cli.api.DownloadFile(c.cli.ctx, channelID, c.Args.Name, bar.update)
	if err != nil {
		return err
	}
	defer rc.Close()

	dest := c.Output
	if dest == "" {
		dest = filepath.Base(c.Args.Name)
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	bar.done(err == nil)
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	fmt.Fprintln(c.cli.out, color.Green.Sprintf("saved %s (%d bytes)", dest, n))
	return nil
}
