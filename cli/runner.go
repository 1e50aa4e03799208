package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/statsadmin/client"
)

// Run executes statsctl with args, writing results to stdout.
func Run(args []string, stdout io.Writer) error {
	options := &Options{}
	if err := options.LoadEnv(); err != nil {
		return err
	}
	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	if parser.Active == nil {
		return fmt.Errorf("command is required")
	}
	options.Init()
	cli, err := client.NewClient(&options.ClientOptions, client.OnSessionExpired(func(error) {
		_, _ = fmt.Fprintln(os.Stderr, "session expired, run statsctl login")
	}))
	if err != nil {
		return err
	}
	ctx := context.Background()
	switch parser.Active.Name {
	case "login":
		return login(ctx, cli, &options.Login, stdout)
	case "logout":
		return cli.Logout()
	case "me":
		user, err := cli.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, user)
	case "get":
		return call(ctx, cli, http.MethodGet, options.Get.Args.Path, nil, stdout)
	case "send":
		body, err := payload(options.Send.Data)
		if err != nil {
			return err
		}
		return call(ctx, cli, options.Send.Method, options.Send.Args.Path, body, stdout)
	}
	return fmt.Errorf("unsupported command: %v", parser.Active.Name)
}

func login(ctx context.Context, cli *client.Client, cmd *LoginCommand, stdout io.Writer) error {
	if err := cli.Login(ctx, cmd.Username, cmd.Password); err != nil {
		return err
	}
	if cmd.Admin {
		if _, err := cli.RequireRole(ctx, client.AdminRoleID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(stdout, "logged in as %v\n", cmd.Username)
	return err
}

func call(ctx context.Context, cli *client.Client, method, resource string, body io.Reader, stdout io.Writer) error {
	header := http.Header{"Accept": {"application/json"}}
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	resp, err := cli.Do(ctx, method, resource, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &client.StatusError{Method: method, URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
	}
	_, err = io.Copy(stdout, resp.Body)
	return err
}

func payload(data string) (io.Reader, error) {
	if data == "" {
		return nil, nil
	}
	if location, ok := strings.CutPrefix(data, "@"); ok {
		content, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload %v: %w", location, err)
		}
		return strings.NewReader(string(content)), nil
	}
	return strings.NewReader(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
