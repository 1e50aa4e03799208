package cli

import (
	"os"
	"path/filepath"

	"github.com/statsadmin/client"
)

type Options struct {
	client.ClientOptions
	Login  LoginCommand  `command:"login" description:"log in and keep the session"`
	Logout LogoutCommand `command:"logout" description:"drop the session"`
	Me     MeCommand     `command:"me" description:"print the logged in user"`
	Get    GetCommand    `command:"get" description:"GET a backend resource"`
	Send   SendCommand   `command:"send" description:"send a request with a JSON body"`
}

type LoginCommand struct {
	Username string `short:"U" long:"username" description:"user name" required:"true"`
	Password string `short:"P" long:"password" description:"password" env:"STATS_PASSWORD"`
	Admin    bool   `long:"admin" description:"require the administrator role"`
}

type LogoutCommand struct{}

type MeCommand struct{}

type GetCommand struct {
	Args struct {
		Path string `positional-arg-name:"path" required:"true"`
	} `positional-args:"yes"`
}

type SendCommand struct {
	Method string `short:"m" long:"method" description:"HTTP method" default:"POST" choice:"POST" choice:"PUT" choice:"PATCH" choice:"DELETE"`
	Data   string `short:"d" long:"data" description:"JSON body, @file reads it from a file"`
	Args   struct {
		Path string `positional-arg-name:"path" required:"true"`
	} `positional-args:"yes"`
}

// Init fills the session directory default.
func (o *Options) Init() {
	if o.Auth.SessionDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.Auth.SessionDir = filepath.Join(home, ".statsctl")
		}
	}
	o.ClientOptions.Init()
}
