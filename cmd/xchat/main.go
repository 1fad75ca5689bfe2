// Command xchat is a command line client for the xchat server.
//
// The server address and the user come from XCHAT_HOST and XCHAT_USER,
// optionally set in a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	env "github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/vedran77/xchat/pkg/client"
	"github.com/vedran77/xchat/pkg/domain"
)

type Env struct {
	Host  string `env:"XCHAT_HOST,default=http://localhost:8080"`
	User  string `env:"XCHAT_USER,required=true"`
	Token string `env:"XCHAT_TOKEN"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()
	var cfg Env
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		fmt.Fprintln(stderr, color.Red.Sprintf("config error: %v", err))
		return 2
	}
	user, err := domain.ParseName(cfg.User)
	if err != nil {
		fmt.Fprintln(stderr, color.Red.Sprintf("XCHAT_USER: %v", err))
		return 2
	}

	var opts []client.Option
	if cfg.Token != "" {
		opts = append(opts, client.WithBearerToken(cfg.Token))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &cli{ctx: ctx, api: client.New(cfg.Host, user, opts...), out: stdout, errOut: stderr}
	parser := flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)
	cli.register(parser)

	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, color.Red.Sprint(describe(err)))
		return 1
	}
	return 0
}

// describe renders errors the server answered with by kind.
func describe(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "you are not a member of this channel"
	case errors.Is(err, domain.ErrNotFound):
		return "not found: " + apiErr.Message
	case errors.Is(err, domain.ErrUnauthenticated):
		return "the server rejected XCHAT_USER: " + apiErr.Message
	default:
		msg := apiErr.Error()
		for field, problem := range apiErr.Fields {
			msg += fmt.Sprintf("\n  %s %s", field, problem)
		}
		return msg
	}
}
